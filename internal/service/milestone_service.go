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

// MilestoneRepository описывает взаимодействие сервиса с хранилищем этапов.
type MilestoneRepository interface {
	Create(ctx context.Context, m *models.Milestone, clientID uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Milestone, error)
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Milestone, error)
	Start(ctx context.Context, milestoneID, freelancerID uuid.UUID) (*models.Milestone, error)
	Submit(ctx context.Context, milestoneID, freelancerID uuid.UUID, deliverables string) (*models.Milestone, error)
	Reject(ctx context.Context, milestoneID, clientID uuid.UUID, feedback string) (*models.Milestone, error)
}

// EscrowReleaser — контракт платёжного слоя для приёмки этапа: деньги и
// статус этапа меняются одной транзакцией на стороне хранилища.
type EscrowReleaser interface {
	GetEscrowByContract(ctx context.Context, contractID uuid.UUID) (*models.Escrow, error)
	ReleaseEscrow(ctx context.Context, in repository.ReleaseInput) (*models.Payment, *models.Escrow, error)
}

// MilestoneContractRepository — минимальный контракт для чтения контрактов.
type MilestoneContractRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
}

// MilestoneService ведёт этапы фиксированных контрактов.
type MilestoneService struct {
	repo      MilestoneRepository
	contracts MilestoneContractRepository
	payments  EscrowReleaser
	notifier  Notifier
	feeRate   decimal.Decimal
}

// NewMilestoneService создаёт сервис этапов.
func NewMilestoneService(repo MilestoneRepository, contracts MilestoneContractRepository, payments EscrowReleaser, notifier Notifier, feeRate decimal.Decimal) *MilestoneService {
	return &MilestoneService{
		repo:      repo,
		contracts: contracts,
		payments:  payments,
		notifier:  notifier,
		feeRate:   feeRate,
	}
}

// CreateMilestoneInput описывает новый этап контракта.
type CreateMilestoneInput struct {
	ContractID  uuid.UUID
	ClientID    uuid.UUID
	Title       string
	Description *string
	Amount      decimal.Decimal
	OrderIndex  int
}

// Create добавляет этап к контракту.
func (s *MilestoneService) Create(ctx context.Context, in CreateMilestoneInput) (*models.Milestone, error) {
	if err := validation.ValidateLength("название этапа", in.Title, validation.MinProjectTitleLength, validation.MaxProjectTitleLength); err != nil {
		return nil, err
	}
	if err := money.Validate(in.Amount); err != nil {
		return nil, err
	}

	milestone := &models.Milestone{
		ContractID:  in.ContractID,
		Title:       in.Title,
		Description: in.Description,
		Amount:      money.Round(in.Amount),
		OrderIndex:  in.OrderIndex,
		Status:      models.MilestoneStatusPending,
	}
	if err := s.repo.Create(ctx, milestone, in.ClientID); err != nil {
		return nil, err
	}
	return milestone, nil
}

// Get возвращает этап. Доступно сторонам контракта.
func (s *MilestoneService) Get(ctx context.Context, milestoneID, userID uuid.UUID) (*models.Milestone, error) {
	milestone, err := s.repo.GetByID(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	contract, err := s.contracts.GetByID(ctx, milestone.ContractID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureContractParty(contract, userID); err != nil {
		return nil, err
	}
	return milestone, nil
}

// ListByContract возвращает этапы контракта. Доступно сторонам.
func (s *MilestoneService) ListByContract(ctx context.Context, contractID, userID uuid.UUID) ([]models.Milestone, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureContractParty(contract, userID); err != nil {
		return nil, err
	}
	return s.repo.ListByContract(ctx, contractID)
}

// Start переводит этап в работу исполнителем.
func (s *MilestoneService) Start(ctx context.Context, milestoneID, freelancerID uuid.UUID) (*models.Milestone, error) {
	return s.repo.Start(ctx, milestoneID, freelancerID)
}

// Submit отправляет результат этапа на приёмку. Клиент получает уведомление.
func (s *MilestoneService) Submit(ctx context.Context, milestoneID, freelancerID uuid.UUID, deliverables string) (*models.Milestone, error) {
	if deliverables == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "описание результата обязательно")
	}

	milestone, err := s.repo.Submit(ctx, milestoneID, freelancerID, deliverables)
	if err != nil {
		return nil, err
	}

	contract, err := s.contracts.GetByID(ctx, milestone.ContractID)
	if err == nil {
		s.notifier.Notify(contract.ClientID, EventMilestoneSubmit, milestone)
	}
	return milestone, nil
}

// Approve принимает этап: деньги этапа уходят исполнителю из escrow,
// этап становится paid. Списание и смена статуса — одна транзакция.
func (s *MilestoneService) Approve(ctx context.Context, milestoneID, clientID uuid.UUID, feedback string) (*models.Milestone, *models.Payment, error) {
	milestone, err := s.repo.GetByID(ctx, milestoneID)
	if err != nil {
		return nil, nil, err
	}

	escrow, err := s.payments.GetEscrowByContract(ctx, milestone.ContractID)
	if err != nil {
		return nil, nil, err
	}

	payment, _, err := s.payments.ReleaseEscrow(ctx, repository.ReleaseInput{
		EscrowID:    escrow.ID,
		ClientID:    clientID,
		Amount:      milestone.Amount,
		Fee:         money.PlatformFee(milestone.Amount, s.feeRate),
		MilestoneID: &milestone.ID,
		Reason:      feedback,
	})
	if err != nil {
		return nil, nil, err
	}

	milestone, err = s.repo.GetByID(ctx, milestoneID)
	if err != nil {
		return nil, nil, err
	}

	s.notifier.Notify(payment.ToUserID, EventMilestonePaid, milestone)
	return milestone, payment, nil
}

// Reject возвращает этап в работу с обязательными замечаниями.
func (s *MilestoneService) Reject(ctx context.Context, milestoneID, clientID uuid.UUID, feedback string) (*models.Milestone, error) {
	if err := validation.ValidateReason(feedback); err != nil {
		return nil, err
	}

	milestone, err := s.repo.Reject(ctx, milestoneID, clientID, feedback)
	if err != nil {
		return nil, err
	}

	contract, err := s.contracts.GetByID(ctx, milestone.ContractID)
	if err == nil {
		s.notifier.Notify(contract.FreelancerID, EventMilestoneRejected, milestone)
	}
	return milestone, nil
}
