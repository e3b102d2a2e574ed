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
	"github.com/ignatzorin/freelance-core/internal/repository"
)

type mockMilestoneRepo struct {
	mock.Mock
}

func (m *mockMilestoneRepo) Create(ctx context.Context, milestone *models.Milestone, clientID uuid.UUID) error {
	args := m.Called(ctx, milestone, clientID)
	return args.Error(0)
}

func (m *mockMilestoneRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Milestone, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Milestone), args.Error(1)
}

func (m *mockMilestoneRepo) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Milestone, error) {
	args := m.Called(ctx, contractID)
	return args.Get(0).([]models.Milestone), args.Error(1)
}

func (m *mockMilestoneRepo) Start(ctx context.Context, milestoneID, freelancerID uuid.UUID) (*models.Milestone, error) {
	args := m.Called(ctx, milestoneID, freelancerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Milestone), args.Error(1)
}

func (m *mockMilestoneRepo) Submit(ctx context.Context, milestoneID, freelancerID uuid.UUID, deliverables string) (*models.Milestone, error) {
	args := m.Called(ctx, milestoneID, freelancerID, deliverables)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Milestone), args.Error(1)
}

func (m *mockMilestoneRepo) Reject(ctx context.Context, milestoneID, clientID uuid.UUID, feedback string) (*models.Milestone, error) {
	args := m.Called(ctx, milestoneID, clientID, feedback)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Milestone), args.Error(1)
}

type mockEscrowReleaser struct {
	mock.Mock
}

func (m *mockEscrowReleaser) GetEscrowByContract(ctx context.Context, contractID uuid.UUID) (*models.Escrow, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowReleaser) ReleaseEscrow(ctx context.Context, in repository.ReleaseInput) (*models.Payment, *models.Escrow, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Payment), args.Get(1).(*models.Escrow), args.Error(2)
}

func TestMilestoneService_Approve_ReleasesEscrow(t *testing.T) {
	repo := new(mockMilestoneRepo)
	contracts := new(mockContractReader)
	payments := new(mockEscrowReleaser)
	notifier := relaxedNotifier()
	svc := NewMilestoneService(repo, contracts, payments, notifier, testFeeRate)
	ctx := context.Background()

	contractID := uuid.New()
	clientID := uuid.New()
	freelancerID := uuid.New()
	milestoneID := uuid.New()
	escrowID := uuid.New()
	amount := decimal.NewFromInt(1000)

	submitted := &models.Milestone{ID: milestoneID, ContractID: contractID, Amount: amount, Status: models.MilestoneStatusSubmitted}
	paid := &models.Milestone{ID: milestoneID, ContractID: contractID, Amount: amount, Status: models.MilestoneStatusPaid}
	repo.On("GetByID", ctx, milestoneID).Return(submitted, nil).Once()
	payments.On("GetEscrowByContract", ctx, contractID).Return(&models.Escrow{ID: escrowID, ContractID: contractID}, nil)
	payment := &models.Payment{
		ID:               uuid.New(),
		ToUserID:         freelancerID,
		Amount:           amount,
		PlatformFee:      decimal.NewFromInt(100),
		FreelancerAmount: decimal.NewFromInt(900),
		Status:           models.PaymentStatusCompleted,
	}
	payments.On("ReleaseEscrow", ctx, mock.MatchedBy(func(in repository.ReleaseInput) bool {
		return in.EscrowID == escrowID &&
			in.ClientID == clientID &&
			in.Amount.Equal(amount) &&
			in.Fee.Equal(decimal.NewFromInt(100)) &&
			in.MilestoneID != nil && *in.MilestoneID == milestoneID
	})).Return(payment, &models.Escrow{}, nil)
	repo.On("GetByID", ctx, milestoneID).Return(paid, nil).Once()

	milestone, gotPayment, err := svc.Approve(ctx, milestoneID, clientID, "принято без замечаний")
	assert.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusPaid, milestone.Status)
	assert.Equal(t, payment, gotPayment)
	payments.AssertExpectations(t)
}

func TestMilestoneService_Reject_RequiresFeedback(t *testing.T) {
	svc := NewMilestoneService(new(mockMilestoneRepo), new(mockContractReader), new(mockEscrowReleaser), relaxedNotifier(), testFeeRate)

	_, err := svc.Reject(context.Background(), uuid.New(), uuid.New(), "мало")
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestMilestoneService_Submit_RequiresDeliverables(t *testing.T) {
	svc := NewMilestoneService(new(mockMilestoneRepo), new(mockContractReader), new(mockEscrowReleaser), relaxedNotifier(), testFeeRate)

	_, err := svc.Submit(context.Background(), uuid.New(), uuid.New(), "")
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestMilestoneService_Create_Validation(t *testing.T) {
	svc := NewMilestoneService(new(mockMilestoneRepo), new(mockContractReader), new(mockEscrowReleaser), relaxedNotifier(), testFeeRate)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateMilestoneInput{ContractID: uuid.New(), ClientID: uuid.New(), Title: "ab", Amount: decimal.NewFromInt(100)})
	assert.Error(t, err)

	_, err = svc.Create(ctx, CreateMilestoneInput{ContractID: uuid.New(), ClientID: uuid.New(), Title: "Этап 1", Amount: decimal.Zero})
	assert.Error(t, err)
}

func TestMilestoneService_Create_Success(t *testing.T) {
	repo := new(mockMilestoneRepo)
	svc := NewMilestoneService(repo, new(mockContractReader), new(mockEscrowReleaser), relaxedNotifier(), testFeeRate)
	ctx := context.Background()

	clientID := uuid.New()
	contractID := uuid.New()
	repo.On("Create", ctx, mock.MatchedBy(func(m *models.Milestone) bool {
		return m.ContractID == contractID &&
			m.Amount.Equal(decimal.NewFromFloat(1500.50)) &&
			m.Status == models.MilestoneStatusPending
	}), clientID).Return(nil)

	milestone, err := svc.Create(ctx, CreateMilestoneInput{
		ContractID: contractID,
		ClientID:   clientID,
		Title:      "Дизайн главной страницы",
		Amount:     decimal.NewFromFloat(1500.504),
	})
	assert.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusPending, milestone.Status)
	repo.AssertExpectations(t)
}
