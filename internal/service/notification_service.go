package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-core/internal/goroutine"
	"github.com/ignatzorin/freelance-core/internal/logger"
	"github.com/ignatzorin/freelance-core/internal/models"
)

// События жизненного цикла, рассылаемые сторонам контракта.
const (
	EventProposalAccepted  = "proposal.accepted"
	EventProposalRejected  = "proposal.rejected"
	EventContractCreated   = "contract.created"
	EventContractStatus    = "contract.status_changed"
	EventMilestoneSubmit   = "milestone.submitted"
	EventMilestoneRejected = "milestone.rejected"
	EventMilestonePaid     = "milestone.paid"
	EventTimesheetSubmit   = "timesheet.submitted"
	EventTimesheetRejected = "timesheet.rejected"
	EventEscrowFunded      = "escrow.funded"
	EventEscrowReleased    = "escrow.released"
	EventEscrowRefunded    = "escrow.refunded"
	EventInvoiceCreated    = "invoice.created"
	EventInvoicePaid       = "invoice.paid"
	EventPaymentRefunded   = "payment.refunded"
	EventDisputeOpened     = "dispute.opened"
	EventDisputeResolved   = "dispute.resolved"
)

// NotificationRepository описывает хранилище уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}

// WSNotifier интерфейс для отправки WebSocket уведомлений.
type WSNotifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data interface{}) error
}

// Notifier — то, чем пользуются остальные сервисы: событие уходит
// получателю, не блокируя бизнес-операцию.
type Notifier interface {
	Notify(userID uuid.UUID, event string, payload interface{})
}

// NotificationService сохраняет уведомления и транслирует их по WebSocket.
type NotificationService struct {
	repo NotificationRepository
	hub  WSNotifier
}

// NewNotificationService создаёт сервис уведомлений.
func NewNotificationService(repo NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// SetHub устанавливает WebSocket hub для отправки уведомлений.
func (s *NotificationService) SetHub(hub WSNotifier) {
	s.hub = hub
}

// Notify сохраняет уведомление и рассылает его в фоне. Ошибки доставки
// логируются и не влияют на вызвавшую операцию.
func (s *NotificationService) Notify(userID uuid.UUID, event string, payload interface{}) {
	goroutine.SafeGo(func() {
		raw, err := json.Marshal(payload)
		if err != nil {
			logger.Log.WithError(err).WithField("event", event).Error("не удалось сериализовать уведомление")
			return
		}

		n := &models.Notification{UserID: userID, Event: event, Payload: raw}
		if err := s.repo.Create(context.Background(), n); err != nil {
			logger.Log.WithError(err).WithField("event", event).Error("не удалось сохранить уведомление")
		}

		if s.hub != nil {
			if err := s.hub.BroadcastToUser(userID, event, payload); err != nil {
				logger.Log.WithError(err).WithField("event", event).Debug("не удалось отправить уведомление по WebSocket")
			}
		}
	})
}

// List возвращает уведомления пользователя.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// UnreadCount возвращает число непрочитанных уведомлений.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead помечает уведомление прочитанным.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID)
}

// MarkAllRead помечает все уведомления пользователя прочитанными.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}
