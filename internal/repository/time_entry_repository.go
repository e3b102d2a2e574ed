package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-core/internal/authz"
	"github.com/ignatzorin/freelance-core/internal/models"
	"github.com/ignatzorin/freelance-core/internal/money"
	"github.com/ignatzorin/freelance-core/internal/pkg/apperror"
)

type TimeEntryRepository struct {
	db *sqlx.DB
}

func NewTimeEntryRepository(db *sqlx.DB) *TimeEntryRepository {
	return &TimeEntryRepository{db: db}
}

// Start запускает таймер. Частичный уникальный индекс по (user_id, contract_id)
// с end_time IS NULL не даёт запустить второй таймер по тому же контракту —
// гонка двух параллельных запусков решается на уровне БД, а не кода.
func (r *TimeEntryRepository) Start(ctx context.Context, e *models.TimeEntry) error {
	query := `
		INSERT INTO time_entries (user_id, contract_id, description, start_time, hourly_rate, billable, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, duration_minutes, amount, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		e.UserID, e.ContractID, e.Description, e.StartTime, e.HourlyRate, e.Billable, e.Status).
		Scan(&e.ID, &e.DurationMinutes, &e.Amount, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.New(apperror.ErrCodeConflict, "по этому контракту уже запущен таймер")
		}
		return fmt.Errorf("time entry repository: start %w", err)
	}
	return nil
}

// Stop останавливает работающий таймер и фиксирует длительность и сумму.
func (r *TimeEntryRepository) Stop(ctx context.Context, entryID, userID uuid.UUID, at time.Time) (*models.TimeEntry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var entry models.TimeEntry
	if err := tx.GetContext(ctx, &entry, `SELECT * FROM time_entries WHERE id = $1 FOR UPDATE`, entryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrTimeEntryNotFound
		}
		return nil, fmt.Errorf("time entry repository: lock %w", err)
	}

	if err := authz.EnsureOwner(entry.UserID, userID); err != nil {
		return nil, err
	}
	if !entry.IsRunning() {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "таймер уже остановлен")
	}
	if at.Before(entry.StartTime) {
		return nil, apperror.New(apperror.ErrCodeValidation, "время окончания раньше времени начала")
	}

	duration := int(at.Sub(entry.StartTime).Round(time.Minute) / time.Minute)
	amount := decimal.Zero
	if entry.Billable {
		amount = money.HourlyAmount(duration, entry.HourlyRate)
	}

	if err := tx.GetContext(ctx, &entry, `
		UPDATE time_entries
		SET end_time = $2, duration_minutes = $3, amount = $4, updated_at = NOW()
		WHERE id = $1 RETURNING *
	`, entryID, at, duration, amount); err != nil {
		return nil, fmt.Errorf("time entry repository: stop %w", err)
	}

	return &entry, tx.Commit()
}

func (r *TimeEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TimeEntry, error) {
	var entry models.TimeEntry
	if err := r.db.GetContext(ctx, &entry, `SELECT * FROM time_entries WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrTimeEntryNotFound
		}
		return nil, fmt.Errorf("time entry repository: get by id %w", err)
	}
	return &entry, nil
}

// ListByContract возвращает записи времени контракта, опционально по статусу.
func (r *TimeEntryRepository) ListByContract(ctx context.Context, contractID uuid.UUID, status *models.TimeEntryStatus) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	if status != nil {
		err := r.db.SelectContext(ctx, &entries, `
			SELECT * FROM time_entries WHERE contract_id = $1 AND status = $2 ORDER BY start_time
		`, contractID, *status)
		return entries, err
	}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM time_entries WHERE contract_id = $1 ORDER BY start_time
	`, contractID)
	return entries, err
}

// UpdateDraft правит черновик: описание, признак оплачиваемости, ставку.
// Сумма пересчитывается от сохранённой длительности.
func (r *TimeEntryRepository) UpdateDraft(ctx context.Context, entryID, userID uuid.UUID, description string, billable bool) (*models.TimeEntry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entry, err := r.lockDraft(ctx, tx, entryID, userID)
	if err != nil {
		return nil, err
	}

	amount := decimal.Zero
	if billable {
		amount = money.HourlyAmount(entry.DurationMinutes, entry.HourlyRate)
	}

	if err := tx.GetContext(ctx, entry, `
		UPDATE time_entries
		SET description = $2, billable = $3, amount = $4, updated_at = NOW()
		WHERE id = $1 RETURNING *
	`, entryID, description, billable, amount); err != nil {
		return nil, fmt.Errorf("time entry repository: update draft %w", err)
	}

	return entry, tx.Commit()
}

// DeleteDraft удаляет черновик. Отправленные записи удалить нельзя.
func (r *TimeEntryRepository) DeleteDraft(ctx context.Context, entryID, userID uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := r.lockDraft(ctx, tx, entryID, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM time_entries WHERE id = $1`, entryID); err != nil {
		return fmt.Errorf("time entry repository: delete draft %w", err)
	}

	return tx.Commit()
}

// SubmitBatch отправляет пакет черновиков клиенту на согласование.
// Все записи обязаны принадлежать вызывающему, одному контракту и быть
// остановленными черновиками.
func (r *TimeEntryRepository) SubmitBatch(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) ([]models.TimeEntry, *models.Contract, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	entries, err := lockEntriesTx(ctx, tx, ids)
	if err != nil {
		return nil, nil, err
	}

	contractID := entries[0].ContractID
	for i := range entries {
		e := &entries[i]
		if err := authz.EnsureOwner(e.UserID, userID); err != nil {
			return nil, nil, err
		}
		if e.ContractID != contractID {
			return nil, nil, apperror.New(apperror.ErrCodeValidation, "записи относятся к разным контрактам")
		}
		if e.IsRunning() {
			return nil, nil, apperror.New(apperror.ErrCodeInvalidState, "нельзя отправить работающий таймер")
		}
		if e.Status != models.TimeEntryStatusDraft {
			return nil, nil, apperror.New(apperror.ErrCodeInvalidState, "запись уже отправлена")
		}
	}

	contract, err := lockContractTx(ctx, tx, contractID)
	if err != nil {
		return nil, nil, err
	}
	if err := authz.EnsureContractNotFrozen(contract); err != nil {
		return nil, nil, err
	}

	if err := tx.SelectContext(ctx, &entries, `
		UPDATE time_entries SET status = $2, updated_at = NOW()
		WHERE id = ANY($1) RETURNING *
	`, pq.Array(ids), models.TimeEntryStatusSubmitted); err != nil {
		return nil, nil, fmt.Errorf("time entry repository: submit batch %w", err)
	}

	return entries, contract, tx.Commit()
}

// RejectBatch отклоняет пакет отправленных записей с указанием причины.
// Доступно клиенту контракта.
func (r *TimeEntryRepository) RejectBatch(ctx context.Context, ids []uuid.UUID, clientID uuid.UUID, reason string) ([]models.TimeEntry, *models.Contract, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	entries, err := lockEntriesTx(ctx, tx, ids)
	if err != nil {
		return nil, nil, err
	}

	contractID := entries[0].ContractID
	for i := range entries {
		if entries[i].ContractID != contractID {
			return nil, nil, apperror.New(apperror.ErrCodeValidation, "записи относятся к разным контрактам")
		}
		if entries[i].Status != models.TimeEntryStatusSubmitted {
			return nil, nil, apperror.New(apperror.ErrCodeInvalidState, "запись не ожидает согласования")
		}
	}

	contract, err := lockContractTx(ctx, tx, contractID)
	if err != nil {
		return nil, nil, err
	}
	if err := authz.EnsureContractClient(contract, clientID); err != nil {
		return nil, nil, err
	}

	if err := tx.SelectContext(ctx, &entries, `
		UPDATE time_entries SET status = $2, reject_reason = $3, updated_at = NOW()
		WHERE id = ANY($1) RETURNING *
	`, pq.Array(ids), models.TimeEntryStatusRejected, reason); err != nil {
		return nil, nil, fmt.Errorf("time entry repository: reject batch %w", err)
	}

	return entries, contract, tx.Commit()
}

// ResetToDraft возвращает отклонённые записи владельца в черновики
// для правки и повторной отправки.
func (r *TimeEntryRepository) ResetToDraft(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) ([]models.TimeEntry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entries, err := lockEntriesTx(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if err := authz.EnsureOwner(entries[i].UserID, userID); err != nil {
			return nil, err
		}
		if entries[i].Status != models.TimeEntryStatusRejected {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "в черновик возвращаются только отклонённые записи")
		}
	}

	if err := tx.SelectContext(ctx, &entries, `
		UPDATE time_entries SET status = $2, reject_reason = NULL, updated_at = NOW()
		WHERE id = ANY($1) RETURNING *
	`, pq.Array(ids), models.TimeEntryStatusDraft); err != nil {
		return nil, fmt.Errorf("time entry repository: reset to draft %w", err)
	}

	return entries, tx.Commit()
}

// lockDraft блокирует черновик записи владельца.
func (r *TimeEntryRepository) lockDraft(ctx context.Context, tx *sqlx.Tx, entryID, userID uuid.UUID) (*models.TimeEntry, error) {
	var entry models.TimeEntry
	if err := tx.GetContext(ctx, &entry, `SELECT * FROM time_entries WHERE id = $1 FOR UPDATE`, entryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrTimeEntryNotFound
		}
		return nil, fmt.Errorf("time entry repository: lock %w", err)
	}
	if err := authz.EnsureOwner(entry.UserID, userID); err != nil {
		return nil, err
	}
	if entry.Status != models.TimeEntryStatusDraft {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "изменять можно только черновики")
	}
	return &entry, nil
}

// lockEntriesTx блокирует пакет записей в стабильном порядке.
// Порядок по id исключает взаимные блокировки двух пакетных операций.
func lockEntriesTx(ctx context.Context, tx *sqlx.Tx, ids []uuid.UUID) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	if err := tx.SelectContext(ctx, &entries, `
		SELECT * FROM time_entries WHERE id = ANY($1) ORDER BY id FOR UPDATE
	`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("time entry repository: lock batch %w", err)
	}
	if len(entries) != len(ids) {
		return nil, apperror.ErrTimeEntryNotFound
	}
	return entries, nil
}
