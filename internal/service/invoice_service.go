package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-core/internal/authz"
	"github.com/ignatzorin/freelance-core/internal/models"
	"github.com/ignatzorin/freelance-core/internal/money"
	"github.com/ignatzorin/freelance-core/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-core/internal/validation"
)

// InvoiceRepository описывает взаимодействие сервиса с хранилищем счетов.
type InvoiceRepository interface {
	GenerateFromTimeEntries(ctx context.Context, entryIDs []uuid.UUID, clientID uuid.UUID) (*models.Invoice, error)
	Create(ctx context.Context, contractID, issuerID uuid.UUID, items []models.InvoiceItem, tax decimal.Decimal) (*models.Invoice, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Invoice, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, next models.InvoiceStatus) (*models.Invoice, error)
}

// InvoiceContractRepository — минимальный контракт для чтения контрактов.
type InvoiceContractRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
}

// InvoiceService формирует и ведёт счета.
type InvoiceService struct {
	repo      InvoiceRepository
	contracts InvoiceContractRepository
	notifier  Notifier
}

// NewInvoiceService создаёт сервис счетов.
func NewInvoiceService(repo InvoiceRepository, contracts InvoiceContractRepository, notifier Notifier) *InvoiceService {
	return &InvoiceService{
		repo:      repo,
		contracts: contracts,
		notifier:  notifier,
	}
}

// ApproveTimeEntries — приёмка пакета записей времени клиентом: записи
// принимаются и по ним выставляется счёт одной транзакцией хранилища.
func (s *InvoiceService) ApproveTimeEntries(ctx context.Context, entryIDs []uuid.UUID, clientID uuid.UUID) (*models.Invoice, error) {
	if err := validation.ValidateBatch(len(entryIDs)); err != nil {
		return nil, err
	}

	invoice, err := s.repo.GenerateFromTimeEntries(ctx, entryIDs, clientID)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(invoice.FromUserID, EventInvoiceCreated, invoice)
	return invoice, nil
}

// CreateInvoiceInput описывает ручное выставление счёта исполнителем.
type CreateInvoiceInput struct {
	ContractID uuid.UUID
	IssuerID   uuid.UUID
	Items      []models.InvoiceItem
	Tax        decimal.Decimal
}

// Create выставляет счёт по контракту вручную.
func (s *InvoiceService) Create(ctx context.Context, in CreateInvoiceInput) (*models.Invoice, error) {
	if len(in.Items) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "счёт не может быть пустым")
	}
	for i := range in.Items {
		if in.Items[i].Description == "" {
			return nil, apperror.New(apperror.ErrCodeValidation, "строка счёта без описания")
		}
		if err := money.Validate(in.Items[i].Amount); err != nil {
			return nil, err
		}
	}
	if err := money.ValidateNonNegative(in.Tax); err != nil {
		return nil, err
	}

	invoice, err := s.repo.Create(ctx, in.ContractID, in.IssuerID, in.Items, money.Round(in.Tax))
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(invoice.ToUserID, EventInvoiceCreated, invoice)
	return invoice, nil
}

// Get возвращает счёт со строками. Доступно сторонам и администратору.
func (s *InvoiceService) Get(ctx context.Context, invoiceID, userID uuid.UUID, role string) (*models.Invoice, error) {
	invoice, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureInvoiceAccess(ctx, invoice, userID, role); err != nil {
		return nil, err
	}
	return invoice, nil
}

// ListByContract возвращает счета контракта. Доступно сторонам и админу.
func (s *InvoiceService) ListByContract(ctx context.Context, contractID, userID uuid.UUID, role string) ([]models.Invoice, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureContractPartyOrAdmin(contract, userID, role); err != nil {
		return nil, err
	}
	return s.repo.ListByContract(ctx, contractID)
}

// MarkPaid помечает счёт оплаченным. Доступно плательщику и администратору.
func (s *InvoiceService) MarkPaid(ctx context.Context, invoiceID, userID uuid.UUID, role string) (*models.Invoice, error) {
	invoice, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && invoice.ToUserID != userID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "оплатить счёт может только его получатель")
	}

	invoice, err = s.repo.TransitionStatus(ctx, invoiceID, models.InvoiceStatusPaid)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(invoice.FromUserID, EventInvoicePaid, invoice)
	return invoice, nil
}

// Cancel аннулирует неоплаченный счёт. Доступно выставившему и администратору.
func (s *InvoiceService) Cancel(ctx context.Context, invoiceID, userID uuid.UUID, role string) (*models.Invoice, error) {
	invoice, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && invoice.FromUserID != userID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "аннулировать счёт может только выставивший")
	}
	return s.repo.TransitionStatus(ctx, invoiceID, models.InvoiceStatusCancelled)
}

// MarkOverdue помечает просроченный счёт. Служебная операция администратора.
func (s *InvoiceService) MarkOverdue(ctx context.Context, invoiceID uuid.UUID, role string) (*models.Invoice, error) {
	if err := authz.EnsureAdmin(role); err != nil {
		return nil, err
	}
	return s.repo.TransitionStatus(ctx, invoiceID, models.InvoiceStatusOverdue)
}

func (s *InvoiceService) ensureInvoiceAccess(ctx context.Context, invoice *models.Invoice, userID uuid.UUID, role string) error {
	if role == models.RoleAdmin || invoice.FromUserID == userID || invoice.ToUserID == userID {
		return nil
	}
	return apperror.ErrForbidden
}
