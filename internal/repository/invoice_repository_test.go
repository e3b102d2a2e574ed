package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/freelance-core/internal/pkg/apperror"
)

func TestInvoiceRepository_GenerateFromTimeEntries_MixedContractsRollBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInvoiceRepository(db)

	userID := uuid.New()
	clientID := uuid.New()
	entryIDs := []uuid.UUID{uuid.New(), uuid.New()}

	// Записи из разных контрактов: транзакция откатывается до любых
	// изменений, принятых записей без счёта не остаётся.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM time_entries WHERE id = ANY($1) ORDER BY id FOR UPDATE`)).
		WithArgs(pq.Array(entryIDs)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "contract_id", "duration_minutes", "hourly_rate", "billable", "amount", "status"}).
			AddRow(entryIDs[0].String(), userID.String(), uuid.New().String(), 60, "50", true, "50", "submitted").
			AddRow(entryIDs[1].String(), userID.String(), uuid.New().String(), 120, "50", true, "100", "submitted"))
	mock.ExpectRollback()

	_, err := repo.GenerateFromTimeEntries(context.Background(), entryIDs, clientID)
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepository_GenerateFromTimeEntries_NotSubmittedRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInvoiceRepository(db)

	userID := uuid.New()
	contractID := uuid.New()
	entryIDs := []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM time_entries WHERE id = ANY($1) ORDER BY id FOR UPDATE`)).
		WithArgs(pq.Array(entryIDs)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "contract_id", "duration_minutes", "hourly_rate", "billable", "amount", "status"}).
			AddRow(entryIDs[0].String(), userID.String(), contractID.String(), 60, "50", true, "50", "submitted").
			AddRow(entryIDs[1].String(), userID.String(), contractID.String(), 120, "50", true, "100", "draft"))
	mock.ExpectRollback()

	_, err := repo.GenerateFromTimeEntries(context.Background(), entryIDs, uuid.New())
	assert.Error(t, err)
	assert.True(t, apperror.IsInvalidState(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
