package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-core/internal/authz"
	"github.com/ignatzorin/freelance-core/internal/models"
	"github.com/ignatzorin/freelance-core/internal/money"
	"github.com/ignatzorin/freelance-core/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-core/internal/repository"
	"github.com/ignatzorin/freelance-core/internal/validation"
)

// DisputeRepository описывает взаимодействие сервиса с хранилищем споров.
type DisputeRepository interface {
	Open(ctx context.Context, contractID, userID uuid.UUID, reason string) (*models.Dispute, *models.Contract, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Dispute, error)
	ListOpen(ctx context.Context, limit, offset int) ([]models.Dispute, error)
	Review(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error)
	Escalate(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error)
	Close(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error)
	Resolve(ctx context.Context, in repository.ResolveInput) (*models.Dispute, error)
}

// DisputeContractRepository — минимальный контракт для чтения контрактов.
type DisputeContractRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
}

// DisputeService ведёт споры по контрактам.
type DisputeService struct {
	repo      DisputeRepository
	contracts DisputeContractRepository
	notifier  Notifier
	feeRate   decimal.Decimal
}

// NewDisputeService создаёт сервис споров.
func NewDisputeService(repo DisputeRepository, contracts DisputeContractRepository, notifier Notifier, feeRate decimal.Decimal) *DisputeService {
	return &DisputeService{
		repo:      repo,
		contracts: contracts,
		notifier:  notifier,
		feeRate:   feeRate,
	}
}

// Open открывает спор стороной контракта. Контракт замораживается,
// вторая сторона получает уведомление.
func (s *DisputeService) Open(ctx context.Context, contractID, userID uuid.UUID, reason string) (*models.Dispute, error) {
	if err := validation.ValidateReason(reason); err != nil {
		return nil, err
	}

	dispute, contract, err := s.repo.Open(ctx, contractID, userID, reason)
	if err != nil {
		return nil, err
	}

	target := contract.ClientID
	if userID == contract.ClientID {
		target = contract.FreelancerID
	}
	s.notifier.Notify(target, EventDisputeOpened, dispute)
	return dispute, nil
}

// Get возвращает спор. Доступно сторонам контракта и администратору.
func (s *DisputeService) Get(ctx context.Context, disputeID, userID uuid.UUID, role string) (*models.Dispute, error) {
	dispute, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	contract, err := s.contracts.GetByID(ctx, dispute.ContractID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureContractPartyOrAdmin(contract, userID, role); err != nil {
		return nil, err
	}
	return dispute, nil
}

// ListByContract возвращает споры контракта. Доступно сторонам и админу.
func (s *DisputeService) ListByContract(ctx context.Context, contractID, userID uuid.UUID, role string) ([]models.Dispute, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureContractPartyOrAdmin(contract, userID, role); err != nil {
		return nil, err
	}
	return s.repo.ListByContract(ctx, contractID)
}

// ListOpen возвращает очередь незакрытых споров администратору.
func (s *DisputeService) ListOpen(ctx context.Context, role string, limit, offset int) ([]models.Dispute, error) {
	if err := authz.EnsureAdmin(role); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListOpen(ctx, limit, offset)
}

// Review берёт спор в рассмотрение администратором.
func (s *DisputeService) Review(ctx context.Context, disputeID uuid.UUID, role string) (*models.Dispute, error) {
	if err := authz.EnsureAdmin(role); err != nil {
		return nil, err
	}
	return s.repo.Review(ctx, disputeID)
}

// Escalate поднимает спор выше.
func (s *DisputeService) Escalate(ctx context.Context, disputeID uuid.UUID, role string) (*models.Dispute, error) {
	if err := authz.EnsureAdmin(role); err != nil {
		return nil, err
	}
	return s.repo.Escalate(ctx, disputeID)
}

// Close закрывает спор без резолюции и размораживает контракт.
func (s *DisputeService) Close(ctx context.Context, disputeID uuid.UUID, role string) (*models.Dispute, error) {
	if err := authz.EnsureAdmin(role); err != nil {
		return nil, err
	}
	return s.repo.Close(ctx, disputeID)
}

// ResolveDisputeInput описывает резолюцию спора.
type ResolveDisputeInput struct {
	DisputeID  uuid.UUID
	AdminID    uuid.UUID
	Role       string
	Outcome    string
	Amount     decimal.Decimal
	Resolution string
}

// Resolve применяет резолюцию администратора: resume, refund или terminate.
// Денежные последствия и статусы применяются одной транзакцией хранилища.
func (s *DisputeService) Resolve(ctx context.Context, in ResolveDisputeInput) (*models.Dispute, error) {
	if err := authz.EnsureAdmin(in.Role); err != nil {
		return nil, err
	}
	if err := validation.ValidateReason(in.Resolution); err != nil {
		return nil, err
	}

	switch in.Outcome {
	case models.DisputeOutcomeResume:
		if in.Amount.IsPositive() {
			return nil, apperror.New(apperror.ErrCodeValidation, "исход resume не предполагает выплат")
		}
	case models.DisputeOutcomeRefund:
		if err := money.Validate(in.Amount); err != nil {
			return nil, err
		}
	case models.DisputeOutcomeTerminate:
		if err := money.ValidateNonNegative(in.Amount); err != nil {
			return nil, err
		}
	default:
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный исход спора")
	}

	amount := money.Round(in.Amount)
	fee := money.Zero
	// Комиссия площадки применяется только к выплате исполнителю.
	if in.Outcome == models.DisputeOutcomeTerminate && amount.IsPositive() {
		fee = money.PlatformFee(amount, s.feeRate)
	}

	dispute, err := s.repo.Resolve(ctx, repository.ResolveInput{
		DisputeID:  in.DisputeID,
		AdminID:    in.AdminID,
		Outcome:    in.Outcome,
		Amount:     amount,
		Fee:        fee,
		Resolution: in.Resolution,
	})
	if err != nil {
		return nil, err
	}

	if contract, err := s.contracts.GetByID(ctx, dispute.ContractID); err == nil {
		s.notifier.Notify(contract.ClientID, EventDisputeResolved, dispute)
		s.notifier.Notify(contract.FreelancerID, EventDisputeResolved, dispute)
	}
	return dispute, nil
}
