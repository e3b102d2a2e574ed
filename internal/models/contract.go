package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Contract фиксирует договорённость клиента и исполнителя по принятому
// предложению. Стороны после создания не меняются; winning_bid_id уникален —
// повторная попытка создать контракт по тому же предложению отбивается базой.
type Contract struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	ProjectID    uuid.UUID       `db:"project_id" json:"project_id"`
	WinningBidID uuid.UUID       `db:"winning_bid_id" json:"winning_bid_id"`
	ClientID     uuid.UUID       `db:"client_id" json:"client_id"`
	FreelancerID uuid.UUID       `db:"freelancer_id" json:"freelancer_id"`
	ContractType ContractType    `db:"contract_type" json:"contract_type"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	PlatformFee  decimal.Decimal `db:"platform_fee" json:"platform_fee"`
	HourlyRate   *decimal.Decimal `db:"hourly_rate" json:"hourly_rate,omitempty"`
	Status       ContractStatus  `db:"status" json:"status"`
	StartedAt    *time.Time      `db:"started_at" json:"started_at,omitempty"`
	EndedAt      *time.Time      `db:"ended_at" json:"ended_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// Milestone — этап с фиксированной стоимостью внутри контракта.
// order_index задаёт порядок, но строго не форсируется: параллельные этапы
// допустимы.
type Milestone struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	ContractID   uuid.UUID       `db:"contract_id" json:"contract_id"`
	Title        string          `db:"title" json:"title"`
	Description  *string         `db:"description" json:"description,omitempty"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	OrderIndex   int             `db:"order_index" json:"order_index"`
	Status       MilestoneStatus `db:"status" json:"status"`
	Deliverables *string         `db:"deliverables" json:"deliverables,omitempty"`
	Feedback     *string         `db:"feedback" json:"feedback,omitempty"`
	SubmittedAt  *time.Time      `db:"submitted_at" json:"submitted_at,omitempty"`
	ApprovedAt   *time.Time      `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}
