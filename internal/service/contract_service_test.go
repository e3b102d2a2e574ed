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

type mockContractRepo struct {
	mock.Mock
}

func (m *mockContractRepo) Create(ctx context.Context, c *models.Contract) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockContractRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contract), args.Error(1)
}

func (m *mockContractRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contract, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Contract), args.Error(1)
}

func (m *mockContractRepo) TransitionStatus(ctx context.Context, id uuid.UUID, next models.ContractStatus) (*models.Contract, error) {
	args := m.Called(ctx, id, next)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contract), args.Error(1)
}

type mockProposalReader struct {
	mock.Mock
}

func (m *mockProposalReader) GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Proposal), args.Error(1)
}

type mockProjectReader struct {
	mock.Mock
}

func (m *mockProjectReader) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *mockProjectReader) UpdateStatus(ctx context.Context, id uuid.UUID, next models.ProjectStatus) (*models.Project, error) {
	args := m.Called(ctx, id, next)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

type mockUserReader struct {
	mock.Mock
}

func (m *mockUserReader) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func TestContractService_CreateFromProposal_Success(t *testing.T) {
	repo := new(mockContractRepo)
	proposals := new(mockProposalReader)
	projects := new(mockProjectReader)
	users := new(mockUserReader)
	notifier := relaxedNotifier()
	svc := NewContractService(repo, proposals, projects, users, notifier, testFeeRate)
	ctx := context.Background()

	clientID := uuid.New()
	freelancerID := uuid.New()
	projectID := uuid.New()
	proposalID := uuid.New()

	proposals.On("GetByID", ctx, proposalID).Return(&models.Proposal{
		ID:           proposalID,
		ProjectID:    projectID,
		FreelancerID: freelancerID,
		BidAmount:    decimal.NewFromInt(2000),
		Status:       models.ProposalStatusAccepted,
	}, nil)
	projects.On("GetByID", ctx, projectID).Return(&models.Project{ID: projectID, ClientID: clientID}, nil)
	users.On("GetByID", ctx, clientID).Return(&models.User{ID: clientID, Role: models.RoleClient}, nil)
	users.On("GetByID", ctx, freelancerID).Return(&models.User{ID: freelancerID, Role: models.RoleFreelancer}, nil)
	repo.On("Create", ctx, mock.MatchedBy(func(c *models.Contract) bool {
		return c.WinningBidID == proposalID &&
			c.ClientID == clientID &&
			c.FreelancerID == freelancerID &&
			c.Amount.Equal(decimal.NewFromInt(2000)) &&
			c.PlatformFee.Equal(decimal.NewFromInt(200)) &&
			c.Status == models.ContractStatusPending
	})).Return(nil)

	contract, err := svc.CreateFromProposal(ctx, CreateContractInput{
		ProposalID: proposalID,
		ClientID:   clientID,
		Type:       models.ContractTypeFixed,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.ContractStatusPending, contract.Status)
	repo.AssertExpectations(t)
}

func TestContractService_CreateFromProposal_NotAccepted(t *testing.T) {
	proposals := new(mockProposalReader)
	svc := NewContractService(new(mockContractRepo), proposals, new(mockProjectReader), new(mockUserReader), relaxedNotifier(), testFeeRate)
	ctx := context.Background()

	proposalID := uuid.New()
	proposals.On("GetByID", ctx, proposalID).Return(&models.Proposal{
		ID:     proposalID,
		Status: models.ProposalStatusSubmitted,
	}, nil)

	_, err := svc.CreateFromProposal(ctx, CreateContractInput{
		ProposalID: proposalID,
		ClientID:   uuid.New(),
		Type:       models.ContractTypeFixed,
	})
	assert.Error(t, err)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestContractService_CreateFromProposal_NotOwner(t *testing.T) {
	proposals := new(mockProposalReader)
	projects := new(mockProjectReader)
	svc := NewContractService(new(mockContractRepo), proposals, projects, new(mockUserReader), relaxedNotifier(), testFeeRate)
	ctx := context.Background()

	projectID := uuid.New()
	proposalID := uuid.New()
	proposals.On("GetByID", ctx, proposalID).Return(&models.Proposal{
		ID:        proposalID,
		ProjectID: projectID,
		Status:    models.ProposalStatusAccepted,
	}, nil)
	projects.On("GetByID", ctx, projectID).Return(&models.Project{ID: projectID, ClientID: uuid.New()}, nil)

	_, err := svc.CreateFromProposal(ctx, CreateContractInput{
		ProposalID: proposalID,
		ClientID:   uuid.New(),
		Type:       models.ContractTypeFixed,
	})
	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestContractService_CreateFromProposal_HourlyRequiresRate(t *testing.T) {
	proposals := new(mockProposalReader)
	projects := new(mockProjectReader)
	users := new(mockUserReader)
	svc := NewContractService(new(mockContractRepo), proposals, projects, users, relaxedNotifier(), testFeeRate)
	ctx := context.Background()

	clientID := uuid.New()
	freelancerID := uuid.New()
	projectID := uuid.New()
	proposalID := uuid.New()
	proposals.On("GetByID", ctx, proposalID).Return(&models.Proposal{
		ID:           proposalID,
		ProjectID:    projectID,
		FreelancerID: freelancerID,
		Status:       models.ProposalStatusAccepted,
		BidAmount:    decimal.NewFromInt(5000),
	}, nil)
	projects.On("GetByID", ctx, projectID).Return(&models.Project{ID: projectID, ClientID: clientID}, nil)
	users.On("GetByID", ctx, clientID).Return(&models.User{ID: clientID, Role: models.RoleClient}, nil)
	users.On("GetByID", ctx, freelancerID).Return(&models.User{ID: freelancerID, Role: models.RoleFreelancer}, nil)

	_, err := svc.CreateFromProposal(ctx, CreateContractInput{
		ProposalID: proposalID,
		ClientID:   clientID,
		Type:       models.ContractTypeHourly,
	})
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestContractService_CreateFromProposal_ClientRoleMismatch(t *testing.T) {
	proposals := new(mockProposalReader)
	projects := new(mockProjectReader)
	users := new(mockUserReader)
	svc := NewContractService(new(mockContractRepo), proposals, projects, users, relaxedNotifier(), testFeeRate)
	ctx := context.Background()

	clientID := uuid.New()
	projectID := uuid.New()
	proposalID := uuid.New()
	proposals.On("GetByID", ctx, proposalID).Return(&models.Proposal{
		ID:           proposalID,
		ProjectID:    projectID,
		FreelancerID: uuid.New(),
		Status:       models.ProposalStatusAccepted,
		BidAmount:    decimal.NewFromInt(2000),
	}, nil)
	projects.On("GetByID", ctx, projectID).Return(&models.Project{ID: projectID, ClientID: clientID}, nil)
	users.On("GetByID", ctx, clientID).Return(&models.User{ID: clientID, Role: models.RoleFreelancer}, nil)

	_, err := svc.CreateFromProposal(ctx, CreateContractInput{
		ProposalID: proposalID,
		ClientID:   clientID,
		Type:       models.ContractTypeFixed,
	})
	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestContractService_CreateFromProposal_FreelancerRoleMismatch(t *testing.T) {
	proposals := new(mockProposalReader)
	projects := new(mockProjectReader)
	users := new(mockUserReader)
	svc := NewContractService(new(mockContractRepo), proposals, projects, users, relaxedNotifier(), testFeeRate)
	ctx := context.Background()

	clientID := uuid.New()
	freelancerID := uuid.New()
	projectID := uuid.New()
	proposalID := uuid.New()
	proposals.On("GetByID", ctx, proposalID).Return(&models.Proposal{
		ID:           proposalID,
		ProjectID:    projectID,
		FreelancerID: freelancerID,
		Status:       models.ProposalStatusAccepted,
		BidAmount:    decimal.NewFromInt(2000),
	}, nil)
	projects.On("GetByID", ctx, projectID).Return(&models.Project{ID: projectID, ClientID: clientID}, nil)
	users.On("GetByID", ctx, clientID).Return(&models.User{ID: clientID, Role: models.RoleClient}, nil)
	users.On("GetByID", ctx, freelancerID).Return(&models.User{ID: freelancerID, Role: models.RoleClient}, nil)

	_, err := svc.CreateFromProposal(ctx, CreateContractInput{
		ProposalID: proposalID,
		ClientID:   clientID,
		Type:       models.ContractTypeFixed,
	})
	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestContractService_Cancel_PendingByFreelancer(t *testing.T) {
	repo := new(mockContractRepo)
	svc := NewContractService(repo, new(mockProposalReader), new(mockProjectReader), new(mockUserReader), relaxedNotifier(), testFeeRate)
	ctx := context.Background()

	contractID := uuid.New()
	freelancerID := uuid.New()
	contract := &models.Contract{ID: contractID, ClientID: uuid.New(), FreelancerID: freelancerID, Status: models.ContractStatusPending}
	repo.On("GetByID", ctx, contractID).Return(contract, nil)
	cancelled := &models.Contract{ID: contractID, ClientID: contract.ClientID, FreelancerID: freelancerID, Status: models.ContractStatusCancelled}
	repo.On("TransitionStatus", ctx, contractID, models.ContractStatusCancelled).Return(cancelled, nil)

	got, err := svc.Cancel(ctx, contractID, freelancerID)
	assert.NoError(t, err)
	assert.Equal(t, models.ContractStatusCancelled, got.Status)
}

func TestContractService_Cancel_ActiveByFreelancerForbidden(t *testing.T) {
	repo := new(mockContractRepo)
	svc := NewContractService(repo, new(mockProposalReader), new(mockProjectReader), new(mockUserReader), relaxedNotifier(), testFeeRate)
	ctx := context.Background()

	contractID := uuid.New()
	freelancerID := uuid.New()
	repo.On("GetByID", ctx, contractID).Return(&models.Contract{
		ID: contractID, ClientID: uuid.New(), FreelancerID: freelancerID, Status: models.ContractStatusActive,
	}, nil)

	_, err := svc.Cancel(ctx, contractID, freelancerID)
	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestContractService_Terminate_AdminOnly(t *testing.T) {
	repo := new(mockContractRepo)
	svc := NewContractService(repo, new(mockProposalReader), new(mockProjectReader), new(mockUserReader), relaxedNotifier(), testFeeRate)
	ctx := context.Background()

	contractID := uuid.New()
	reason := "систематическое нарушение условий контракта"

	_, err := svc.Terminate(ctx, contractID, models.RoleClient, reason)
	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))

	_, err = svc.Terminate(ctx, contractID, models.RoleAdmin, "мало")
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	terminated := &models.Contract{ID: contractID, ClientID: uuid.New(), FreelancerID: uuid.New(), Status: models.ContractStatusTerminated}
	repo.On("TransitionStatus", ctx, contractID, models.ContractStatusTerminated).Return(terminated, nil)

	got, err := svc.Terminate(ctx, contractID, models.RoleAdmin, reason)
	assert.NoError(t, err)
	assert.Equal(t, models.ContractStatusTerminated, got.Status)
}

func TestContractService_Get_StrangerForbidden(t *testing.T) {
	repo := new(mockContractRepo)
	svc := NewContractService(repo, new(mockProposalReader), new(mockProjectReader), new(mockUserReader), relaxedNotifier(), testFeeRate)
	ctx := context.Background()

	contractID := uuid.New()
	repo.On("GetByID", ctx, contractID).Return(&models.Contract{
		ID: contractID, ClientID: uuid.New(), FreelancerID: uuid.New(),
	}, nil)

	_, err := svc.Get(ctx, contractID, uuid.New(), models.RoleClient)
	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))

	// Администратору контракт виден.
	_, err = svc.Get(ctx, contractID, uuid.New(), models.RoleAdmin)
	assert.NoError(t, err)
}
