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
	"github.com/ignatzorin/freelance-core/internal/validation"
)

type mockInvoiceRepo struct {
	mock.Mock
}

func (m *mockInvoiceRepo) GenerateFromTimeEntries(ctx context.Context, entryIDs []uuid.UUID, clientID uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, entryIDs, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) Create(ctx context.Context, contractID, issuerID uuid.UUID, items []models.InvoiceItem, tax decimal.Decimal) (*models.Invoice, error) {
	args := m.Called(ctx, contractID, issuerID, items, tax)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Invoice, error) {
	args := m.Called(ctx, contractID)
	return args.Get(0).([]models.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) TransitionStatus(ctx context.Context, id uuid.UUID, next models.InvoiceStatus) (*models.Invoice, error) {
	args := m.Called(ctx, id, next)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func TestInvoiceService_ApproveTimeEntries_NotifiesFreelancer(t *testing.T) {
	repo := new(mockInvoiceRepo)
	notifier := new(mockNotifier)
	svc := NewInvoiceService(repo, new(mockContractReader), notifier)
	ctx := context.Background()

	clientID := uuid.New()
	freelancerID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	invoice := &models.Invoice{
		ID:         uuid.New(),
		FromUserID: freelancerID,
		ToUserID:   clientID,
		Total:      decimal.NewFromInt(450),
		Status:     models.InvoiceStatusDue,
	}
	repo.On("GenerateFromTimeEntries", ctx, ids, clientID).Return(invoice, nil)
	notifier.On("Notify", freelancerID, EventInvoiceCreated, invoice).Once()

	got, err := svc.ApproveTimeEntries(ctx, ids, clientID)
	assert.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusDue, got.Status)
	notifier.AssertExpectations(t)
}

func TestInvoiceService_ApproveTimeEntries_BatchTooLarge(t *testing.T) {
	svc := NewInvoiceService(new(mockInvoiceRepo), new(mockContractReader), relaxedNotifier())

	ids := make([]uuid.UUID, validation.MaxBatchSize+1)
	for i := range ids {
		ids[i] = uuid.New()
	}
	_, err := svc.ApproveTimeEntries(context.Background(), ids, uuid.New())
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestInvoiceService_Create_Validation(t *testing.T) {
	svc := NewInvoiceService(new(mockInvoiceRepo), new(mockContractReader), relaxedNotifier())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInvoiceInput{ContractID: uuid.New(), IssuerID: uuid.New()})
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Create(ctx, CreateInvoiceInput{
		ContractID: uuid.New(),
		IssuerID:   uuid.New(),
		Items:      []models.InvoiceItem{{Description: "", Amount: decimal.NewFromInt(100)}},
	})
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Create(ctx, CreateInvoiceInput{
		ContractID: uuid.New(),
		IssuerID:   uuid.New(),
		Items:      []models.InvoiceItem{{Description: "Консультация", Amount: decimal.Zero}},
	})
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestInvoiceService_MarkPaid_OnlyRecipient(t *testing.T) {
	repo := new(mockInvoiceRepo)
	svc := NewInvoiceService(repo, new(mockContractReader), relaxedNotifier())
	ctx := context.Background()

	invoiceID := uuid.New()
	clientID := uuid.New()
	freelancerID := uuid.New()
	due := &models.Invoice{ID: invoiceID, FromUserID: freelancerID, ToUserID: clientID, Status: models.InvoiceStatusDue}
	repo.On("GetByID", ctx, invoiceID).Return(due, nil)

	// Выставивший не может пометить собственный счёт оплаченным.
	_, err := svc.MarkPaid(ctx, invoiceID, freelancerID, models.RoleFreelancer)
	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))

	paid := &models.Invoice{ID: invoiceID, FromUserID: freelancerID, ToUserID: clientID, Status: models.InvoiceStatusPaid}
	repo.On("TransitionStatus", ctx, invoiceID, models.InvoiceStatusPaid).Return(paid, nil)

	got, err := svc.MarkPaid(ctx, invoiceID, clientID, models.RoleClient)
	assert.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, got.Status)
}

func TestInvoiceService_Cancel_OnlyIssuer(t *testing.T) {
	repo := new(mockInvoiceRepo)
	svc := NewInvoiceService(repo, new(mockContractReader), relaxedNotifier())
	ctx := context.Background()

	invoiceID := uuid.New()
	freelancerID := uuid.New()
	due := &models.Invoice{ID: invoiceID, FromUserID: freelancerID, ToUserID: uuid.New(), Status: models.InvoiceStatusDue}
	repo.On("GetByID", ctx, invoiceID).Return(due, nil)

	_, err := svc.Cancel(ctx, invoiceID, due.ToUserID, models.RoleClient)
	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestInvoiceService_MarkOverdue_AdminOnly(t *testing.T) {
	svc := NewInvoiceService(new(mockInvoiceRepo), new(mockContractReader), relaxedNotifier())

	_, err := svc.MarkOverdue(context.Background(), uuid.New(), models.RoleClient)
	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}
