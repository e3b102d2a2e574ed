package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrorResponse — стандартный ответ с ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse — стандартный успешный ответ с сообщением.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// RegisterRequest — регистрация пользователя.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginRequest — вход.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest — обновление пары токенов.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateProjectRequest — публикация проекта.
type CreateProjectRequest struct {
	Title       string           `json:"title" binding:"required"`
	Description string           `json:"description" binding:"required"`
	Budget      *decimal.Decimal `json:"budget"`
	DeadlineAt  *time.Time       `json:"deadline_at"`
}

// UpdateProjectStatusRequest — смена статуса проекта владельцем.
type UpdateProjectStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SubmitProposalRequest — отклик фрилансера на проект.
type SubmitProposalRequest struct {
	CoverLetter string          `json:"cover_letter" binding:"required"`
	BidAmount   decimal.Decimal `json:"bid_amount" binding:"required"`
}

// CreateContractRequest — создание контракта по принятому предложению.
type CreateContractRequest struct {
	ProposalID   uuid.UUID        `json:"proposal_id" binding:"required"`
	ContractType string           `json:"contract_type" binding:"required"`
	HourlyRate   *decimal.Decimal `json:"hourly_rate"`
}

// CreateMilestoneRequest — новый этап контракта.
type CreateMilestoneRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description *string         `json:"description"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	OrderIndex  int             `json:"order_index"`
}

// SubmitMilestoneRequest — отправка результата этапа на приёмку.
type SubmitMilestoneRequest struct {
	Deliverables string `json:"deliverables" binding:"required"`
}

// ReviewMilestoneRequest — приёмка или отклонение этапа клиентом.
type ReviewMilestoneRequest struct {
	Feedback string `json:"feedback"`
}

// StartTimerRequest — запуск таймера по почасовому контракту.
type StartTimerRequest struct {
	ContractID  uuid.UUID `json:"contract_id" binding:"required"`
	Description *string   `json:"description"`
	Billable    *bool     `json:"billable"`
}

// UpdateTimeEntryRequest — правка черновика записи времени.
type UpdateTimeEntryRequest struct {
	Description string `json:"description"`
	Billable    bool   `json:"billable"`
}

// TimeEntryBatchRequest — пакетная операция над записями времени.
type TimeEntryBatchRequest struct {
	EntryIDs []uuid.UUID `json:"entry_ids" binding:"required"`
	Reason   string      `json:"reason"`
}

// FundEscrowRequest — пополнение escrow контракта.
type FundEscrowRequest struct {
	ContractID uuid.UUID       `json:"contract_id" binding:"required"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
}

// ReleaseEscrowRequest — выплата из escrow исполнителю.
type ReleaseEscrowRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Reason string          `json:"reason"`
}

// RefundEscrowRequest — возврат из escrow клиенту.
type RefundEscrowRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Reason string          `json:"reason" binding:"required"`
}

// ConfirmPaymentRequest — подтверждение платежа внешним идентификатором.
type ConfirmPaymentRequest struct {
	TxHash string `json:"tx_hash" binding:"required"`
}

// RefundPaymentRequest — возврат по завершённому платежу.
type RefundPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Reason string          `json:"reason" binding:"required"`
}

// InvoiceItemRequest — строка счёта при ручном выставлении.
type InvoiceItemRequest struct {
	Description string          `json:"description" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
}

// CreateInvoiceRequest — ручное выставление счёта исполнителем.
type CreateInvoiceRequest struct {
	ContractID uuid.UUID            `json:"contract_id" binding:"required"`
	Items      []InvoiceItemRequest `json:"items" binding:"required"`
	Tax        decimal.Decimal      `json:"tax"`
}

// TerminateContractRequest — расторжение контракта администратором.
type TerminateContractRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// OpenDisputeRequest — открытие спора по контракту.
type OpenDisputeRequest struct {
	ContractID uuid.UUID `json:"contract_id" binding:"required"`
	Reason     string    `json:"reason" binding:"required"`
}

// ResolveDisputeRequest — резолюция спора администратором.
type ResolveDisputeRequest struct {
	Outcome    string          `json:"outcome" binding:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Resolution string          `json:"resolution" binding:"required"`
}
