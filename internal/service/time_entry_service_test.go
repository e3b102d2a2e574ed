package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/freelance-core/internal/models"
	"github.com/ignatzorin/freelance-core/internal/pkg/apperror"
)

type mockTimeEntryRepo struct {
	mock.Mock
}

func (m *mockTimeEntryRepo) Start(ctx context.Context, e *models.TimeEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *mockTimeEntryRepo) Stop(ctx context.Context, entryID, userID uuid.UUID, at time.Time) (*models.TimeEntry, error) {
	args := m.Called(ctx, entryID, userID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TimeEntry), args.Error(1)
}

func (m *mockTimeEntryRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.TimeEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TimeEntry), args.Error(1)
}

func (m *mockTimeEntryRepo) ListByContract(ctx context.Context, contractID uuid.UUID, status *models.TimeEntryStatus) ([]models.TimeEntry, error) {
	args := m.Called(ctx, contractID, status)
	return args.Get(0).([]models.TimeEntry), args.Error(1)
}

func (m *mockTimeEntryRepo) UpdateDraft(ctx context.Context, entryID, userID uuid.UUID, description string, billable bool) (*models.TimeEntry, error) {
	args := m.Called(ctx, entryID, userID, description, billable)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TimeEntry), args.Error(1)
}

func (m *mockTimeEntryRepo) DeleteDraft(ctx context.Context, entryID, userID uuid.UUID) error {
	args := m.Called(ctx, entryID, userID)
	return args.Error(0)
}

func (m *mockTimeEntryRepo) SubmitBatch(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) ([]models.TimeEntry, *models.Contract, error) {
	args := m.Called(ctx, ids, userID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]models.TimeEntry), args.Get(1).(*models.Contract), args.Error(2)
}

func (m *mockTimeEntryRepo) RejectBatch(ctx context.Context, ids []uuid.UUID, clientID uuid.UUID, reason string) ([]models.TimeEntry, *models.Contract, error) {
	args := m.Called(ctx, ids, clientID, reason)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]models.TimeEntry), args.Get(1).(*models.Contract), args.Error(2)
}

func (m *mockTimeEntryRepo) ResetToDraft(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) ([]models.TimeEntry, error) {
	args := m.Called(ctx, ids, userID)
	return args.Get(0).([]models.TimeEntry), args.Error(1)
}

func hourlyContract(freelancerID uuid.UUID, rate decimal.Decimal) *models.Contract {
	return &models.Contract{
		ID:           uuid.New(),
		ClientID:     uuid.New(),
		FreelancerID: freelancerID,
		ContractType: models.ContractTypeHourly,
		HourlyRate:   &rate,
		Status:       models.ContractStatusActive,
	}
}

func TestTimeEntryService_Start_Success(t *testing.T) {
	repo := new(mockTimeEntryRepo)
	contracts := new(mockContractReader)
	svc := NewTimeEntryService(repo, contracts, relaxedNotifier())
	ctx := context.Background()

	freelancerID := uuid.New()
	rate := decimal.NewFromInt(60)
	contract := hourlyContract(freelancerID, rate)
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	repo.On("Start", ctx, mock.MatchedBy(func(e *models.TimeEntry) bool {
		return e.ContractID == contract.ID &&
			e.UserID == freelancerID &&
			e.HourlyRate.Equal(rate) &&
			e.Status == models.TimeEntryStatusDraft &&
			e.EndTime == nil
	})).Return(nil)

	entry, err := svc.Start(ctx, StartTimerInput{ContractID: contract.ID, UserID: freelancerID, Billable: true})
	assert.NoError(t, err)
	assert.True(t, entry.IsRunning())
	repo.AssertExpectations(t)
}

func TestTimeEntryService_Start_FixedContract(t *testing.T) {
	contracts := new(mockContractReader)
	svc := NewTimeEntryService(new(mockTimeEntryRepo), contracts, relaxedNotifier())
	ctx := context.Background()

	freelancerID := uuid.New()
	contract := &models.Contract{
		ID:           uuid.New(),
		ClientID:     uuid.New(),
		FreelancerID: freelancerID,
		ContractType: models.ContractTypeFixed,
		Status:       models.ContractStatusActive,
	}
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := svc.Start(ctx, StartTimerInput{ContractID: contract.ID, UserID: freelancerID})
	assert.Error(t, err)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestTimeEntryService_Start_FrozenContract(t *testing.T) {
	contracts := new(mockContractReader)
	svc := NewTimeEntryService(new(mockTimeEntryRepo), contracts, relaxedNotifier())
	ctx := context.Background()

	freelancerID := uuid.New()
	rate := decimal.NewFromInt(60)
	contract := hourlyContract(freelancerID, rate)
	contract.Status = models.ContractStatusDisputed
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := svc.Start(ctx, StartTimerInput{ContractID: contract.ID, UserID: freelancerID})
	assert.Error(t, err)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestTimeEntryService_Start_NotFreelancer(t *testing.T) {
	contracts := new(mockContractReader)
	svc := NewTimeEntryService(new(mockTimeEntryRepo), contracts, relaxedNotifier())
	ctx := context.Background()

	contract := hourlyContract(uuid.New(), decimal.NewFromInt(60))
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := svc.Start(ctx, StartTimerInput{ContractID: contract.ID, UserID: contract.ClientID})
	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestTimeEntryService_SubmitBatch_EmptyBatch(t *testing.T) {
	svc := NewTimeEntryService(new(mockTimeEntryRepo), new(mockContractReader), relaxedNotifier())

	_, err := svc.SubmitBatch(context.Background(), nil, uuid.New())
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestTimeEntryService_SubmitBatch_NotifiesClient(t *testing.T) {
	repo := new(mockTimeEntryRepo)
	notifier := new(mockNotifier)
	svc := NewTimeEntryService(repo, new(mockContractReader), notifier)
	ctx := context.Background()

	freelancerID := uuid.New()
	clientID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	entries := []models.TimeEntry{
		{ID: ids[0], Status: models.TimeEntryStatusSubmitted},
		{ID: ids[1], Status: models.TimeEntryStatusSubmitted},
	}
	contract := &models.Contract{ID: uuid.New(), ClientID: clientID, FreelancerID: freelancerID}
	repo.On("SubmitBatch", ctx, ids, freelancerID).Return(entries, contract, nil)
	notifier.On("Notify", clientID, EventTimesheetSubmit, entries).Once()

	got, err := svc.SubmitBatch(ctx, ids, freelancerID)
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	notifier.AssertExpectations(t)
}

func TestTimeEntryService_RejectBatch_RequiresReason(t *testing.T) {
	svc := NewTimeEntryService(new(mockTimeEntryRepo), new(mockContractReader), relaxedNotifier())

	_, err := svc.RejectBatch(context.Background(), []uuid.UUID{uuid.New()}, uuid.New(), "")
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}
