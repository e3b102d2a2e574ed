package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/freelance-core/internal/models"
	"github.com/ignatzorin/freelance-core/internal/pkg/apperror"
)

type mockProposalRepo struct {
	mock.Mock
}

func (m *mockProposalRepo) Create(ctx context.Context, p *models.Proposal) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockProposalRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Proposal), args.Error(1)
}

func (m *mockProposalRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Proposal, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]models.Proposal), args.Error(1)
}

func (m *mockProposalRepo) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Proposal, error) {
	args := m.Called(ctx, freelancerID)
	return args.Get(0).([]models.Proposal), args.Error(1)
}

func (m *mockProposalRepo) Accept(ctx context.Context, proposalID, clientID uuid.UUID) (*models.Proposal, error) {
	args := m.Called(ctx, proposalID, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Proposal), args.Error(1)
}

func (m *mockProposalRepo) Reject(ctx context.Context, proposalID, clientID uuid.UUID) (*models.Proposal, error) {
	args := m.Called(ctx, proposalID, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Proposal), args.Error(1)
}

func (m *mockProposalRepo) Withdraw(ctx context.Context, proposalID, freelancerID uuid.UUID) (*models.Proposal, error) {
	args := m.Called(ctx, proposalID, freelancerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Proposal), args.Error(1)
}

func TestProposalService_Submit_Success(t *testing.T) {
	repo := new(mockProposalRepo)
	projects := new(mockProjectReader)
	users := new(mockUserReader)
	svc := NewProposalService(repo, projects, users, relaxedNotifier())
	ctx := context.Background()

	projectID := uuid.New()
	freelancerID := uuid.New()
	projects.On("GetByID", ctx, projectID).Return(&models.Project{
		ID: projectID, ClientID: uuid.New(), Status: models.ProjectStatusOpen,
	}, nil)
	users.On("GetByID", ctx, freelancerID).Return(&models.User{ID: freelancerID, Role: models.RoleFreelancer}, nil)
	repo.On("Create", ctx, mock.MatchedBy(func(p *models.Proposal) bool {
		return p.ProjectID == projectID &&
			p.FreelancerID == freelancerID &&
			p.Status == models.ProposalStatusSubmitted &&
			p.BidAmount.Equal(decimal.NewFromInt(2000))
	})).Return(nil)

	proposal, err := svc.Submit(ctx, SubmitProposalInput{
		ProjectID:    projectID,
		FreelancerID: freelancerID,
		CoverLetter:  "Готов выполнить проект в срок",
		BidAmount:    decimal.NewFromInt(2000),
	})
	assert.NoError(t, err)
	assert.Equal(t, models.ProposalStatusSubmitted, proposal.Status)
	repo.AssertExpectations(t)
}

func TestProposalService_Submit_OwnProject(t *testing.T) {
	projects := new(mockProjectReader)
	svc := NewProposalService(new(mockProposalRepo), projects, new(mockUserReader), relaxedNotifier())
	ctx := context.Background()

	projectID := uuid.New()
	clientID := uuid.New()
	projects.On("GetByID", ctx, projectID).Return(&models.Project{
		ID: projectID, ClientID: clientID, Status: models.ProjectStatusOpen,
	}, nil)

	_, err := svc.Submit(ctx, SubmitProposalInput{
		ProjectID:    projectID,
		FreelancerID: clientID,
		CoverLetter:  "Откликаюсь на собственный проект",
		BidAmount:    decimal.NewFromInt(100),
	})
	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestProposalService_Submit_ProjectNotOpen(t *testing.T) {
	projects := new(mockProjectReader)
	svc := NewProposalService(new(mockProposalRepo), projects, new(mockUserReader), relaxedNotifier())
	ctx := context.Background()

	projectID := uuid.New()
	projects.On("GetByID", ctx, projectID).Return(&models.Project{
		ID: projectID, ClientID: uuid.New(), Status: models.ProjectStatusInProgress,
	}, nil)

	_, err := svc.Submit(ctx, SubmitProposalInput{
		ProjectID:    projectID,
		FreelancerID: uuid.New(),
		CoverLetter:  "Хочу присоединиться к работе",
		BidAmount:    decimal.NewFromInt(100),
	})
	assert.Error(t, err)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestProposalService_Submit_ShortCoverLetter(t *testing.T) {
	svc := NewProposalService(new(mockProposalRepo), new(mockProjectReader), new(mockUserReader), relaxedNotifier())

	_, err := svc.Submit(context.Background(), SubmitProposalInput{
		ProjectID:    uuid.New(),
		FreelancerID: uuid.New(),
		CoverLetter:  "коротко",
		BidAmount:    decimal.NewFromInt(100),
	})
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestProposalService_Submit_ClientRoleForbidden(t *testing.T) {
	repo := new(mockProposalRepo)
	projects := new(mockProjectReader)
	users := new(mockUserReader)
	svc := NewProposalService(repo, projects, users, relaxedNotifier())
	ctx := context.Background()

	projectID := uuid.New()
	authorID := uuid.New()
	projects.On("GetByID", ctx, projectID).Return(&models.Project{
		ID: projectID, ClientID: uuid.New(), Status: models.ProjectStatusOpen,
	}, nil)
	users.On("GetByID", ctx, authorID).Return(&models.User{ID: authorID, Role: models.RoleClient}, nil)

	_, err := svc.Submit(ctx, SubmitProposalInput{
		ProjectID:    projectID,
		FreelancerID: authorID,
		CoverLetter:  "Готов выполнить проект в срок",
		BidAmount:    decimal.NewFromInt(500),
	})
	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProposalService_Accept_NotifiesLosers(t *testing.T) {
	repo := new(mockProposalRepo)
	projects := new(mockProjectReader)
	notifier := new(mockNotifier)
	svc := NewProposalService(repo, projects, new(mockUserReader), notifier)
	ctx := context.Background()

	projectID := uuid.New()
	clientID := uuid.New()
	winnerID := uuid.New()
	loserID := uuid.New()
	withdrawnID := uuid.New()
	proposalID := uuid.New()

	winner := models.Proposal{ID: proposalID, ProjectID: projectID, FreelancerID: winnerID, Status: models.ProposalStatusSubmitted}
	loser := models.Proposal{ID: uuid.New(), ProjectID: projectID, FreelancerID: loserID, Status: models.ProposalStatusSubmitted}
	withdrawn := models.Proposal{ID: uuid.New(), ProjectID: projectID, FreelancerID: withdrawnID, Status: models.ProposalStatusWithdrawn}

	repo.On("GetByID", ctx, proposalID).Return(&winner, nil)
	repo.On("ListByProject", ctx, projectID).Return([]models.Proposal{winner, loser, withdrawn}, nil)

	accepted := winner
	accepted.Status = models.ProposalStatusAccepted
	repo.On("Accept", ctx, proposalID, clientID).Return(&accepted, nil)

	notifier.On("Notify", winnerID, EventProposalAccepted, &accepted).Once()
	notifier.On("Notify", loserID, EventProposalRejected, mock.Anything).Once()

	got, err := svc.Accept(ctx, proposalID, clientID)
	assert.NoError(t, err)
	assert.Equal(t, models.ProposalStatusAccepted, got.Status)
	// Отозвавшийся автор уведомление не получает.
	notifier.AssertNumberOfCalls(t, "Notify", 2)
	notifier.AssertExpectations(t)
}
