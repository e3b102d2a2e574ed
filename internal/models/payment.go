package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Escrow — средства клиента, удерживаемые площадкой до приёмки работы.
// released_amount монотонно растёт и вместе с refunded_amount никогда не
// превышает amount.
type Escrow struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	ContractID     uuid.UUID       `db:"contract_id" json:"contract_id"`
	ClientID       uuid.UUID       `db:"client_id" json:"client_id"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	ReleasedAmount decimal.Decimal `db:"released_amount" json:"released_amount"`
	RefundedAmount decimal.Decimal `db:"refunded_amount" json:"refunded_amount"`
	Status         EscrowStatus    `db:"status" json:"status"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Remaining возвращает нераспределённый остаток escrow.
func (e *Escrow) Remaining() decimal.Decimal {
	return e.Amount.Sub(e.ReleasedAmount).Sub(e.RefundedAmount)
}

// Payment — строка платёжной книги. freelancer_amount = amount - platform_fee.
type Payment struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	ContractID       *uuid.UUID      `db:"contract_id" json:"contract_id,omitempty"`
	EscrowID         *uuid.UUID      `db:"escrow_id" json:"escrow_id,omitempty"`
	MilestoneID      *uuid.UUID      `db:"milestone_id" json:"milestone_id,omitempty"`
	FromUserID       uuid.UUID       `db:"from_user_id" json:"from_user_id"`
	ToUserID         uuid.UUID       `db:"to_user_id" json:"to_user_id"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	PlatformFee      decimal.Decimal `db:"platform_fee" json:"platform_fee"`
	FreelancerAmount decimal.Decimal `db:"freelancer_amount" json:"freelancer_amount"`
	Status           PaymentStatus   `db:"status" json:"status"`
	TxHash           *string         `db:"tx_hash" json:"tx_hash,omitempty"`
	Description      *string         `db:"description" json:"description,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	CompletedAt      *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}

// Refund — возврат по конкретному платежу. На платёж допускается только один
// возврат в статусе processed.
type Refund struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	PaymentID   uuid.UUID       `db:"payment_id" json:"payment_id"`
	RequestedBy uuid.UUID       `db:"requested_by" json:"requested_by"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Reason      string          `db:"reason" json:"reason"`
	Status      RefundStatus    `db:"status" json:"status"`
	ProcessedAt *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// ContractPaymentTotal — агрегат по платёжной книге контракта.
// Считается запросом по таблице payments, не кешируется.
type ContractPaymentTotal struct {
	ContractID uuid.UUID       `db:"contract_id" json:"contract_id"`
	Paid       decimal.Decimal `db:"paid" json:"paid"`
	Pending    decimal.Decimal `db:"pending" json:"pending"`
	Refunded   decimal.Decimal `db:"refunded" json:"refunded"`
}
