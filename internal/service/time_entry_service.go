package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-core/internal/authz"
	"github.com/ignatzorin/freelance-core/internal/models"
	"github.com/ignatzorin/freelance-core/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-core/internal/validation"
)

// TimeEntryRepository описывает взаимодействие сервиса с хранилищем
// записей времени.
type TimeEntryRepository interface {
	Start(ctx context.Context, e *models.TimeEntry) error
	Stop(ctx context.Context, entryID, userID uuid.UUID, at time.Time) (*models.TimeEntry, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.TimeEntry, error)
	ListByContract(ctx context.Context, contractID uuid.UUID, status *models.TimeEntryStatus) ([]models.TimeEntry, error)
	UpdateDraft(ctx context.Context, entryID, userID uuid.UUID, description string, billable bool) (*models.TimeEntry, error)
	DeleteDraft(ctx context.Context, entryID, userID uuid.UUID) error
	SubmitBatch(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) ([]models.TimeEntry, *models.Contract, error)
	RejectBatch(ctx context.Context, ids []uuid.UUID, clientID uuid.UUID, reason string) ([]models.TimeEntry, *models.Contract, error)
	ResetToDraft(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) ([]models.TimeEntry, error)
}

// TimeEntryContractRepository — минимальный контракт для чтения контрактов.
type TimeEntryContractRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
}

// TimeEntryService ведёт почасовой трекер.
type TimeEntryService struct {
	repo      TimeEntryRepository
	contracts TimeEntryContractRepository
	notifier  Notifier
}

// NewTimeEntryService создаёт сервис записей времени.
func NewTimeEntryService(repo TimeEntryRepository, contracts TimeEntryContractRepository, notifier Notifier) *TimeEntryService {
	return &TimeEntryService{
		repo:      repo,
		contracts: contracts,
		notifier:  notifier,
	}
}

// StartTimerInput описывает запуск таймера.
type StartTimerInput struct {
	ContractID  uuid.UUID
	UserID      uuid.UUID
	Description *string
	Billable    bool
}

// Start запускает таймер по почасовому контракту. Ставка снимается
// с контракта на момент запуска.
func (s *TimeEntryService) Start(ctx context.Context, in StartTimerInput) (*models.TimeEntry, error) {
	contract, err := s.contracts.GetByID(ctx, in.ContractID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureContractFreelancer(contract, in.UserID); err != nil {
		return nil, err
	}
	if err := authz.EnsureContractNotFrozen(contract); err != nil {
		return nil, err
	}
	if contract.ContractType != models.ContractTypeHourly || contract.HourlyRate == nil {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "учёт времени доступен только по почасовым контрактам")
	}

	entry := &models.TimeEntry{
		UserID:      in.UserID,
		ContractID:  in.ContractID,
		Description: in.Description,
		StartTime:   time.Now(),
		HourlyRate:  *contract.HourlyRate,
		Billable:    in.Billable,
		Status:      models.TimeEntryStatusDraft,
	}
	if err := s.repo.Start(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Stop останавливает таймер и фиксирует сумму.
func (s *TimeEntryService) Stop(ctx context.Context, entryID, userID uuid.UUID) (*models.TimeEntry, error) {
	return s.repo.Stop(ctx, entryID, userID, time.Now())
}

// Get возвращает запись времени. Доступно сторонам контракта.
func (s *TimeEntryService) Get(ctx context.Context, entryID, userID uuid.UUID) (*models.TimeEntry, error) {
	entry, err := s.repo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	contract, err := s.contracts.GetByID(ctx, entry.ContractID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureContractParty(contract, userID); err != nil {
		return nil, err
	}
	return entry, nil
}

// ListByContract возвращает записи контракта. Доступно сторонам.
func (s *TimeEntryService) ListByContract(ctx context.Context, contractID, userID uuid.UUID, status *models.TimeEntryStatus) ([]models.TimeEntry, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureContractParty(contract, userID); err != nil {
		return nil, err
	}
	return s.repo.ListByContract(ctx, contractID, status)
}

// UpdateDraft правит остановленный черновик.
func (s *TimeEntryService) UpdateDraft(ctx context.Context, entryID, userID uuid.UUID, description string, billable bool) (*models.TimeEntry, error) {
	return s.repo.UpdateDraft(ctx, entryID, userID, description, billable)
}

// DeleteDraft удаляет черновик.
func (s *TimeEntryService) DeleteDraft(ctx context.Context, entryID, userID uuid.UUID) error {
	return s.repo.DeleteDraft(ctx, entryID, userID)
}

// SubmitBatch отправляет пакет черновиков клиенту на согласование.
func (s *TimeEntryService) SubmitBatch(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) ([]models.TimeEntry, error) {
	if err := validation.ValidateBatch(len(ids)); err != nil {
		return nil, err
	}

	entries, contract, err := s.repo.SubmitBatch(ctx, ids, userID)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(contract.ClientID, EventTimesheetSubmit, entries)
	return entries, nil
}

// RejectBatch отклоняет пакет записей с обязательной причиной.
func (s *TimeEntryService) RejectBatch(ctx context.Context, ids []uuid.UUID, clientID uuid.UUID, reason string) ([]models.TimeEntry, error) {
	if err := validation.ValidateBatch(len(ids)); err != nil {
		return nil, err
	}
	if err := validation.ValidateReason(reason); err != nil {
		return nil, err
	}

	entries, contract, err := s.repo.RejectBatch(ctx, ids, clientID, reason)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(contract.FreelancerID, EventTimesheetRejected, entries)
	return entries, nil
}

// ResetToDraft возвращает отклонённые записи в черновики для доработки.
func (s *TimeEntryService) ResetToDraft(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) ([]models.TimeEntry, error) {
	if err := validation.ValidateBatch(len(ids)); err != nil {
		return nil, err
	}
	return s.repo.ResetToDraft(ctx, ids, userID)
}
