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

// ContractRepository описывает взаимодействие сервиса с хранилищем контрактов.
type ContractRepository interface {
	Create(ctx context.Context, c *models.Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contract, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, next models.ContractStatus) (*models.Contract, error)
}

// ContractProposalRepository — минимальный контракт для чтения предложений.
type ContractProposalRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
}

// ContractProjectRepository — минимальный контракт для чтения проектов.
type ContractProjectRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next models.ProjectStatus) (*models.Project, error)
}

// ContractUserRepository — минимальный контракт для чтения пользователей.
type ContractUserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ContractService создаёт контракты по принятым предложениям и ведёт
// их жизненный цикл.
type ContractService struct {
	repo      ContractRepository
	proposals ContractProposalRepository
	projects  ContractProjectRepository
	users     ContractUserRepository
	notifier  Notifier
	feeRate   decimal.Decimal
}

// NewContractService создаёт сервис контрактов.
func NewContractService(repo ContractRepository, proposals ContractProposalRepository, projects ContractProjectRepository, users ContractUserRepository, notifier Notifier, feeRate decimal.Decimal) *ContractService {
	return &ContractService{
		repo:      repo,
		proposals: proposals,
		projects:  projects,
		users:     users,
		notifier:  notifier,
		feeRate:   feeRate,
	}
}

// CreateContractInput описывает создание контракта по принятому предложению.
type CreateContractInput struct {
	ProposalID uuid.UUID
	ClientID   uuid.UUID
	Type       models.ContractType
	HourlyRate *decimal.Decimal
}

// CreateFromProposal создаёт контракт по принятому предложению. Сумма
// берётся из ставки предложения, комиссия площадки считается при создании
// и фиксируется в контракте.
func (s *ContractService) CreateFromProposal(ctx context.Context, in CreateContractInput) (*models.Contract, error) {
	proposal, err := s.proposals.GetByID(ctx, in.ProposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status != models.ProposalStatusAccepted {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "контракт создаётся только по принятому предложению")
	}

	project, err := s.projects.GetByID(ctx, proposal.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureProjectOwner(project, in.ClientID); err != nil {
		return nil, err
	}

	// Стороны контракта должны существовать и иметь подходящие роли.
	client, err := s.users.GetByID(ctx, project.ClientID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureRole(client, models.RoleClient); err != nil {
		return nil, err
	}
	freelancer, err := s.users.GetByID(ctx, proposal.FreelancerID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureRole(freelancer, models.RoleFreelancer); err != nil {
		return nil, err
	}

	if !in.Type.IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректный тип контракта")
	}
	if in.Type == models.ContractTypeHourly {
		if in.HourlyRate == nil {
			return nil, apperror.New(apperror.ErrCodeValidation, "для почасового контракта обязательна ставка")
		}
		if err := money.Validate(*in.HourlyRate); err != nil {
			return nil, err
		}
	}

	amount := money.Round(proposal.BidAmount)
	contract := &models.Contract{
		ProjectID:    proposal.ProjectID,
		WinningBidID: proposal.ID,
		ClientID:     project.ClientID,
		FreelancerID: proposal.FreelancerID,
		ContractType: in.Type,
		Amount:       amount,
		PlatformFee:  money.PlatformFee(amount, s.feeRate),
		HourlyRate:   in.HourlyRate,
		Status:       models.ContractStatusPending,
	}
	if err := s.repo.Create(ctx, contract); err != nil {
		return nil, err
	}

	s.notifier.Notify(contract.FreelancerID, EventContractCreated, contract)
	return contract, nil
}

// Get возвращает контракт. Доступно сторонам и администратору.
func (s *ContractService) Get(ctx context.Context, contractID, userID uuid.UUID, role string) (*models.Contract, error) {
	contract, err := s.repo.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureContractPartyOrAdmin(contract, userID, role); err != nil {
		return nil, err
	}
	return contract, nil
}

// ListMy возвращает контракты пользователя.
func (s *ContractService) ListMy(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contract, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// Complete завершает активный контракт. Доступно клиенту; проект
// закрывается вместе с контрактом.
func (s *ContractService) Complete(ctx context.Context, contractID, clientID uuid.UUID) (*models.Contract, error) {
	contract, err := s.repo.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureContractClient(contract, clientID); err != nil {
		return nil, err
	}

	contract, err = s.repo.TransitionStatus(ctx, contractID, models.ContractStatusCompleted)
	if err != nil {
		return nil, err
	}

	if project, err := s.projects.GetByID(ctx, contract.ProjectID); err == nil &&
		project.Status.CanTransitionTo(models.ProjectStatusCompleted) {
		if _, err := s.projects.UpdateStatus(ctx, contract.ProjectID, models.ProjectStatusCompleted); err != nil {
			return nil, err
		}
	}

	s.notifier.Notify(contract.FreelancerID, EventContractStatus, contract)
	return contract, nil
}

// Cancel отменяет контракт до начала работ. Доступно обеим сторонам,
// пока контракт pending, и только клиенту для активного.
func (s *ContractService) Cancel(ctx context.Context, contractID, userID uuid.UUID) (*models.Contract, error) {
	contract, err := s.repo.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.Status == models.ContractStatusPending {
		if err := authz.EnsureContractParty(contract, userID); err != nil {
			return nil, err
		}
	} else if err := authz.EnsureContractClient(contract, userID); err != nil {
		return nil, err
	}

	contract, err = s.repo.TransitionStatus(ctx, contractID, models.ContractStatusCancelled)
	if err != nil {
		return nil, err
	}

	s.notifyCounterparty(contract, userID, EventContractStatus)
	return contract, nil
}

// Terminate расторгает активный контракт решением администратора,
// минуя спор. С обязательной причиной, уходящей обеим сторонам.
func (s *ContractService) Terminate(ctx context.Context, contractID uuid.UUID, role, reason string) (*models.Contract, error) {
	if err := authz.EnsureAdmin(role); err != nil {
		return nil, err
	}
	if err := validation.ValidateReason(reason); err != nil {
		return nil, err
	}

	contract, err := s.repo.TransitionStatus(ctx, contractID, models.ContractStatusTerminated)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(contract.ClientID, EventContractStatus, contract)
	s.notifier.Notify(contract.FreelancerID, EventContractStatus, contract)
	return contract, nil
}

// notifyCounterparty шлёт событие второй стороне контракта.
func (s *ContractService) notifyCounterparty(contract *models.Contract, actorID uuid.UUID, event string) {
	target := contract.ClientID
	if actorID == contract.ClientID {
		target = contract.FreelancerID
	}
	s.notifier.Notify(target, event, contract)
}
