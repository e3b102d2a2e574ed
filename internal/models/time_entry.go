package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TimeEntry — запись почасового трекера. Пока таймер идёт, end_time равен
// NULL; на пару (user_id, contract_id) одновременно может быть только одна
// такая запись (частичный уникальный индекс в базе).
type TimeEntry struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	UserID          uuid.UUID       `db:"user_id" json:"user_id"`
	ContractID      uuid.UUID       `db:"contract_id" json:"contract_id"`
	Description     *string         `db:"description" json:"description,omitempty"`
	StartTime       time.Time       `db:"start_time" json:"start_time"`
	EndTime         *time.Time      `db:"end_time" json:"end_time,omitempty"`
	DurationMinutes int             `db:"duration_minutes" json:"duration_minutes"`
	HourlyRate      decimal.Decimal `db:"hourly_rate" json:"hourly_rate"`
	Billable        bool            `db:"billable" json:"billable"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	Status          TimeEntryStatus `db:"status" json:"status"`
	RejectReason    *string         `db:"reject_reason" json:"reject_reason,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// IsRunning сообщает, что таймер записи ещё не остановлен.
func (t *TimeEntry) IsRunning() bool {
	return t.EndTime == nil
}
