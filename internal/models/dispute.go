package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Dispute замораживает контракт: пока спор открыт, переходы по этапам,
// записям времени и выплатам из escrow запрещены.
type Dispute struct {
	ID               uuid.UUID        `db:"id" json:"id"`
	ContractID       uuid.UUID        `db:"contract_id" json:"contract_id"`
	RaisedBy         uuid.UUID        `db:"raised_by" json:"raised_by"`
	Reason           string           `db:"reason" json:"reason"`
	Status           DisputeStatus    `db:"status" json:"status"`
	ResolutionAmount *decimal.Decimal `db:"resolution_amount" json:"resolution_amount,omitempty"`
	Resolution       *string          `db:"resolution" json:"resolution,omitempty"`
	ResolvedBy       *uuid.UUID       `db:"resolved_by" json:"resolved_by,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	ResolvedAt       *time.Time       `db:"resolved_at" json:"resolved_at,omitempty"`
}

// Исходы разрешения спора.
const (
	DisputeOutcomeResume    = "resume"
	DisputeOutcomeRefund    = "refund"
	DisputeOutcomeTerminate = "terminate"
)
