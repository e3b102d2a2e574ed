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

// ProposalRepository описывает взаимодействие сервиса с хранилищем предложений.
type ProposalRepository interface {
	Create(ctx context.Context, p *models.Proposal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Proposal, error)
	ListByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Proposal, error)
	Accept(ctx context.Context, proposalID, clientID uuid.UUID) (*models.Proposal, error)
	Reject(ctx context.Context, proposalID, clientID uuid.UUID) (*models.Proposal, error)
	Withdraw(ctx context.Context, proposalID, freelancerID uuid.UUID) (*models.Proposal, error)
}

// ProposalProjectRepository — минимальный контракт для чтения проектов.
type ProposalProjectRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

// ProposalUserRepository — минимальный контракт для чтения пользователей.
type ProposalUserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ProposalService содержит бизнес-логику откликов на проекты.
type ProposalService struct {
	repo     ProposalRepository
	projects ProposalProjectRepository
	users    ProposalUserRepository
	notifier Notifier
}

// NewProposalService создаёт сервис предложений.
func NewProposalService(repo ProposalRepository, projects ProposalProjectRepository, users ProposalUserRepository, notifier Notifier) *ProposalService {
	return &ProposalService{
		repo:     repo,
		projects: projects,
		users:    users,
		notifier: notifier,
	}
}

// SubmitProposalInput описывает отклик фрилансера.
type SubmitProposalInput struct {
	ProjectID    uuid.UUID
	FreelancerID uuid.UUID
	CoverLetter  string
	BidAmount    decimal.Decimal
}

// Submit подаёт предложение по открытому проекту.
func (s *ProposalService) Submit(ctx context.Context, in SubmitProposalInput) (*models.Proposal, error) {
	if err := validation.ValidateLength("сопроводительное письмо", in.CoverLetter, validation.MinCoverLetterLength, validation.MaxCoverLetterLength); err != nil {
		return nil, err
	}
	if err := money.Validate(in.BidAmount); err != nil {
		return nil, err
	}

	project, err := s.projects.GetByID(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.Status != models.ProjectStatusOpen {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "проект не принимает предложения")
	}
	if project.ClientID == in.FreelancerID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "нельзя откликнуться на собственный проект")
	}

	// Откликаются только фрилансеры.
	author, err := s.users.GetByID(ctx, in.FreelancerID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureRole(author, models.RoleFreelancer); err != nil {
		return nil, err
	}

	proposal := &models.Proposal{
		ProjectID:    in.ProjectID,
		FreelancerID: in.FreelancerID,
		CoverLetter:  in.CoverLetter,
		BidAmount:    money.Round(in.BidAmount),
		Status:       models.ProposalStatusSubmitted,
	}
	if err := s.repo.Create(ctx, proposal); err != nil {
		return nil, err
	}
	return proposal, nil
}

// Get возвращает предложение. Видно автору и владельцу проекта.
func (s *ProposalService) Get(ctx context.Context, proposalID, userID uuid.UUID) (*models.Proposal, error) {
	proposal, err := s.repo.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.FreelancerID != userID {
		project, err := s.projects.GetByID(ctx, proposal.ProjectID)
		if err != nil {
			return nil, err
		}
		if err := authz.EnsureProjectOwner(project, userID); err != nil {
			return nil, err
		}
	}
	return proposal, nil
}

// ListByProject возвращает предложения проекта. Доступно владельцу.
func (s *ProposalService) ListByProject(ctx context.Context, projectID, userID uuid.UUID) ([]models.Proposal, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureProjectOwner(project, userID); err != nil {
		return nil, err
	}
	return s.repo.ListByProject(ctx, projectID)
}

// ListMy возвращает предложения текущего фрилансера.
func (s *ProposalService) ListMy(ctx context.Context, freelancerID uuid.UUID) ([]models.Proposal, error) {
	return s.repo.ListByFreelancer(ctx, freelancerID)
}

// Accept принимает предложение. Проигравшие авторы получают уведомление
// об отклонении, победитель — о принятии.
func (s *ProposalService) Accept(ctx context.Context, proposalID, clientID uuid.UUID) (*models.Proposal, error) {
	current, err := s.repo.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	losing, err := s.repo.ListByProject(ctx, current.ProjectID)
	if err != nil {
		return nil, err
	}

	proposal, err := s.repo.Accept(ctx, proposalID, clientID)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(proposal.FreelancerID, EventProposalAccepted, proposal)
	for i := range losing {
		p := &losing[i]
		if p.ID != proposalID && p.Status == models.ProposalStatusSubmitted {
			s.notifier.Notify(p.FreelancerID, EventProposalRejected, p)
		}
	}

	return proposal, nil
}

// Reject отклоняет предложение владельцем проекта.
func (s *ProposalService) Reject(ctx context.Context, proposalID, clientID uuid.UUID) (*models.Proposal, error) {
	proposal, err := s.repo.Reject(ctx, proposalID, clientID)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(proposal.FreelancerID, EventProposalRejected, proposal)
	return proposal, nil
}

// Withdraw отзывает предложение его автором.
func (s *ProposalService) Withdraw(ctx context.Context, proposalID, freelancerID uuid.UUID) (*models.Proposal, error) {
	return s.repo.Withdraw(ctx, proposalID, freelancerID)
}
