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

type mockDisputeRepo struct {
	mock.Mock
}

func (m *mockDisputeRepo) Open(ctx context.Context, contractID, userID uuid.UUID, reason string) (*models.Dispute, *models.Contract, error) {
	args := m.Called(ctx, contractID, userID, reason)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Dispute), args.Get(1).(*models.Contract), args.Error(2)
}

func (m *mockDisputeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Dispute, error) {
	args := m.Called(ctx, contractID)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) ListOpen(ctx context.Context, limit, offset int) ([]models.Dispute, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) Review(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, disputeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) Escalate(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, disputeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) Close(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, disputeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) Resolve(ctx context.Context, in repository.ResolveInput) (*models.Dispute, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func TestDisputeService_Open_RequiresReason(t *testing.T) {
	svc := NewDisputeService(new(mockDisputeRepo), new(mockContractReader), relaxedNotifier(), testFeeRate)

	_, err := svc.Open(context.Background(), uuid.New(), uuid.New(), "мало")
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestDisputeService_Open_NotifiesCounterparty(t *testing.T) {
	repo := new(mockDisputeRepo)
	notifier := new(mockNotifier)
	svc := NewDisputeService(repo, new(mockContractReader), notifier, testFeeRate)
	ctx := context.Background()

	contractID := uuid.New()
	clientID := uuid.New()
	freelancerID := uuid.New()
	reason := "работа не сдана в оговорённый срок"
	dispute := &models.Dispute{ID: uuid.New(), ContractID: contractID, Status: models.DisputeStatusOpen}
	contract := &models.Contract{ID: contractID, ClientID: clientID, FreelancerID: freelancerID}
	repo.On("Open", ctx, contractID, clientID, reason).Return(dispute, contract, nil)
	notifier.On("Notify", freelancerID, EventDisputeOpened, dispute).Once()

	got, err := svc.Open(ctx, contractID, clientID, reason)
	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusOpen, got.Status)
	notifier.AssertExpectations(t)
}

func TestDisputeService_Resolve_NotAdmin(t *testing.T) {
	svc := NewDisputeService(new(mockDisputeRepo), new(mockContractReader), relaxedNotifier(), testFeeRate)

	_, err := svc.Resolve(context.Background(), ResolveDisputeInput{
		DisputeID:  uuid.New(),
		AdminID:    uuid.New(),
		Role:       models.RoleClient,
		Outcome:    models.DisputeOutcomeResume,
		Resolution: "стороны договорились продолжить работу",
	})
	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestDisputeService_Resolve_ResumeWithAmount(t *testing.T) {
	svc := NewDisputeService(new(mockDisputeRepo), new(mockContractReader), relaxedNotifier(), testFeeRate)

	_, err := svc.Resolve(context.Background(), ResolveDisputeInput{
		DisputeID:  uuid.New(),
		AdminID:    uuid.New(),
		Role:       models.RoleAdmin,
		Outcome:    models.DisputeOutcomeResume,
		Amount:     decimal.NewFromInt(100),
		Resolution: "стороны договорились продолжить работу",
	})
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestDisputeService_Resolve_RefundZeroAmount(t *testing.T) {
	svc := NewDisputeService(new(mockDisputeRepo), new(mockContractReader), relaxedNotifier(), testFeeRate)

	_, err := svc.Resolve(context.Background(), ResolveDisputeInput{
		DisputeID:  uuid.New(),
		AdminID:    uuid.New(),
		Role:       models.RoleAdmin,
		Outcome:    models.DisputeOutcomeRefund,
		Amount:     decimal.Zero,
		Resolution: "возврат средств заказчику в полном объёме",
	})
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestDisputeService_Resolve_UnknownOutcome(t *testing.T) {
	svc := NewDisputeService(new(mockDisputeRepo), new(mockContractReader), relaxedNotifier(), testFeeRate)

	_, err := svc.Resolve(context.Background(), ResolveDisputeInput{
		DisputeID:  uuid.New(),
		AdminID:    uuid.New(),
		Role:       models.RoleAdmin,
		Outcome:    "split",
		Resolution: "разделить сумму между сторонами поровну",
	})
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestDisputeService_Resolve_TerminateAppliesFee(t *testing.T) {
	repo := new(mockDisputeRepo)
	contracts := new(mockContractReader)
	svc := NewDisputeService(repo, contracts, relaxedNotifier(), testFeeRate)
	ctx := context.Background()

	disputeID := uuid.New()
	adminID := uuid.New()
	contractID := uuid.New()
	resolved := &models.Dispute{ID: disputeID, ContractID: contractID, Status: models.DisputeStatusResolved}
	repo.On("Resolve", ctx, mock.MatchedBy(func(in repository.ResolveInput) bool {
		return in.DisputeID == disputeID &&
			in.AdminID == adminID &&
			in.Outcome == models.DisputeOutcomeTerminate &&
			in.Amount.Equal(decimal.NewFromInt(1200)) &&
			in.Fee.Equal(decimal.NewFromInt(120))
	})).Return(resolved, nil)
	contracts.On("GetByID", ctx, contractID).Return(&models.Contract{
		ID: contractID, ClientID: uuid.New(), FreelancerID: uuid.New(),
	}, nil)

	got, err := svc.Resolve(ctx, ResolveDisputeInput{
		DisputeID:  disputeID,
		AdminID:    adminID,
		Role:       models.RoleAdmin,
		Outcome:    models.DisputeOutcomeTerminate,
		Amount:     decimal.NewFromInt(1200),
		Resolution: "частичная выплата за выполненный объём",
	})
	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusResolved, got.Status)
	repo.AssertExpectations(t)
}

func TestDisputeService_Resolve_TerminateWithoutPayout(t *testing.T) {
	repo := new(mockDisputeRepo)
	contracts := new(mockContractReader)
	svc := NewDisputeService(repo, contracts, relaxedNotifier(), testFeeRate)
	ctx := context.Background()

	disputeID := uuid.New()
	contractID := uuid.New()
	resolved := &models.Dispute{ID: disputeID, ContractID: contractID, Status: models.DisputeStatusResolved}
	repo.On("Resolve", ctx, mock.MatchedBy(func(in repository.ResolveInput) bool {
		return in.Amount.IsZero() && in.Fee.IsZero()
	})).Return(resolved, nil)
	contracts.On("GetByID", ctx, contractID).Return(&models.Contract{
		ID: contractID, ClientID: uuid.New(), FreelancerID: uuid.New(),
	}, nil)

	_, err := svc.Resolve(ctx, ResolveDisputeInput{
		DisputeID:  disputeID,
		AdminID:    uuid.New(),
		Role:       models.RoleAdmin,
		Outcome:    models.DisputeOutcomeTerminate,
		Amount:     decimal.Zero,
		Resolution: "контракт расторгнут без выплат",
	})
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestDisputeService_ListOpen_AdminOnly(t *testing.T) {
	repo := new(mockDisputeRepo)
	svc := NewDisputeService(repo, new(mockContractReader), relaxedNotifier(), testFeeRate)
	ctx := context.Background()

	_, err := svc.ListOpen(ctx, models.RoleFreelancer, 20, 0)
	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))

	repo.On("ListOpen", ctx, 20, 0).Return([]models.Dispute{}, nil)
	_, err = svc.ListOpen(ctx, models.RoleAdmin, 0, 0)
	assert.NoError(t, err)
}
