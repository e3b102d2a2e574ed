package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice — неизменяемая финансовая запись по принятой работе.
// После создания меняется только статус.
type Invoice struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	Number     string          `db:"number" json:"number"`
	ContractID uuid.UUID       `db:"contract_id" json:"contract_id"`
	FromUserID uuid.UUID       `db:"from_user_id" json:"from_user_id"`
	ToUserID   uuid.UUID       `db:"to_user_id" json:"to_user_id"`
	Subtotal   decimal.Decimal `db:"subtotal" json:"subtotal"`
	Tax        decimal.Decimal `db:"tax" json:"tax"`
	Total      decimal.Decimal `db:"total" json:"total"`
	Status     InvoiceStatus   `db:"status" json:"status"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
	Items      []InvoiceItem   `json:"items,omitempty"`
}

// InvoiceItem — строка счёта. Для почасовых счетов ссылается на запись времени.
type InvoiceItem struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	InvoiceID   uuid.UUID       `db:"invoice_id" json:"invoice_id"`
	TimeEntryID *uuid.UUID      `db:"time_entry_id" json:"time_entry_id,omitempty"`
	Description string          `db:"description" json:"description"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
}
