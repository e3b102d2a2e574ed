package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-core/internal/authz"
	"github.com/ignatzorin/freelance-core/internal/models"
	"github.com/ignatzorin/freelance-core/internal/money"
	"github.com/ignatzorin/freelance-core/internal/pkg/apperror"
)

// PaymentRepository — единственное место, где двигаются деньги. Каждая
// операция — одна транзакция: блокировка строк escrow/контракта/этапа,
// проверка инвариантов, запись в платёжную книгу, обновление остатка.
type PaymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// ReleaseInput — параметры выплаты из escrow исполнителю.
type ReleaseInput struct {
	EscrowID    uuid.UUID
	ClientID    uuid.UUID
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	MilestoneID *uuid.UUID
	Reason      string
}

// FundEscrow пополняет escrow контракта. Escrow создаётся сразу активным,
// уникальность contract_id не допускает второго escrow по контракту.
func (r *PaymentRepository) FundEscrow(ctx context.Context, contractID, clientID uuid.UUID, amount decimal.Decimal) (*models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	contract, err := lockContractTx(ctx, tx, contractID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureContractClient(contract, clientID); err != nil {
		return nil, err
	}
	if contract.Status != models.ContractStatusPending && contract.Status != models.ContractStatusActive {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "контракт не допускает пополнение escrow")
	}

	var escrow models.Escrow
	if err := tx.GetContext(ctx, &escrow, `
		INSERT INTO escrows (contract_id, client_id, amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, contractID, clientID, amount, models.EscrowStatusActive); err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.New(apperror.ErrCodeConflict, "escrow по этому контракту уже создан")
		}
		return nil, fmt.Errorf("payment repository: fund escrow %w", err)
	}

	// Пополнение активирует контракт, созданный в pending.
	if contract.Status == models.ContractStatusPending {
		if err := applyContractTransitionTx(ctx, tx, contract, models.ContractStatusActive); err != nil {
			return nil, err
		}
	}

	return &escrow, tx.Commit()
}

// ReleaseEscrow выплачивает часть escrow исполнителю. При указании этапа —
// это приёмка: этап submitted -> paid, сумма выплат по этапам не может
// превысить сумму контракта. Остаток escrow не может уйти в минус.
func (r *PaymentRepository) ReleaseEscrow(ctx context.Context, in ReleaseInput) (*models.Payment, *models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	escrow, err := lockEscrowTx(ctx, tx, in.EscrowID)
	if err != nil {
		return nil, nil, err
	}
	contract, err := lockContractTx(ctx, tx, escrow.ContractID)
	if err != nil {
		return nil, nil, err
	}
	if err := authz.EnsureContractClient(contract, in.ClientID); err != nil {
		return nil, nil, err
	}
	if err := authz.EnsureContractNotFrozen(contract); err != nil {
		return nil, nil, err
	}
	if escrow.Status != models.EscrowStatusActive {
		return nil, nil, apperror.New(apperror.ErrCodeInvalidState, "escrow не активен")
	}
	if in.Amount.GreaterThan(escrow.Remaining()) {
		return nil, nil, apperror.New(apperror.ErrCodeInvalidState, "сумма выплаты превышает остаток escrow")
	}

	if in.MilestoneID != nil {
		if err := approveMilestoneTx(ctx, tx, *in.MilestoneID, contract, in.Amount, in.Reason); err != nil {
			return nil, nil, err
		}
	}

	payment := &models.Payment{
		ContractID:       &contract.ID,
		EscrowID:         &escrow.ID,
		MilestoneID:      in.MilestoneID,
		FromUserID:       contract.ClientID,
		ToUserID:         contract.FreelancerID,
		Amount:           in.Amount,
		PlatformFee:      in.Fee,
		FreelancerAmount: money.FreelancerNet(in.Amount, in.Fee),
		Status:           models.PaymentStatusCompleted,
	}
	if in.Reason != "" {
		payment.Description = &in.Reason
	}
	if err := insertPaymentTx(ctx, tx, payment); err != nil {
		return nil, nil, err
	}

	if err := applyEscrowReleaseTx(ctx, tx, escrow, in.Amount); err != nil {
		return nil, nil, err
	}

	return payment, escrow, tx.Commit()
}

// RefundFromEscrow возвращает часть escrow клиенту. Возврат пишется в
// платёжную книгу строкой со статусом refunded в каноническом направлении
// клиент -> исполнитель, чтобы агрегаты по контракту считались единообразно.
func (r *PaymentRepository) RefundFromEscrow(ctx context.Context, escrowID uuid.UUID, amount decimal.Decimal, reason string) (*models.Payment, *models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	escrow, err := lockEscrowTx(ctx, tx, escrowID)
	if err != nil {
		return nil, nil, err
	}
	contract, err := lockContractTx(ctx, tx, escrow.ContractID)
	if err != nil {
		return nil, nil, err
	}

	payment, err := refundEscrowTx(ctx, tx, escrow, contract, amount, reason)
	if err != nil {
		return nil, nil, err
	}

	return payment, escrow, tx.Commit()
}

// ConfirmPayment подтверждает платёж внешним идентификатором транзакции.
// Повторное подтверждение завершённого платежа — запланированный no-op:
// провайдеры присылают колбэки с повторами.
func (r *PaymentRepository) ConfirmPayment(ctx context.Context, paymentID uuid.UUID, txHash string) (*models.Payment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var payment models.Payment
	if err := tx.GetContext(ctx, &payment, `SELECT * FROM payments WHERE id = $1 FOR UPDATE`, paymentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment repository: lock payment %w", err)
	}

	if payment.Status == models.PaymentStatusCompleted {
		return &payment, tx.Commit()
	}
	if !payment.Status.CanTransitionTo(models.PaymentStatusCompleted) {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "платёж нельзя подтвердить из текущего статуса")
	}

	if err := tx.GetContext(ctx, &payment, `
		UPDATE payments SET status = $2, tx_hash = $3, completed_at = NOW()
		WHERE id = $1 RETURNING *
	`, paymentID, models.PaymentStatusCompleted, txHash); err != nil {
		return nil, fmt.Errorf("payment repository: confirm %w", err)
	}

	return &payment, tx.Commit()
}

// RefundPayment оформляет возврат по завершённому платежу. Частичный
// уникальный индекс не допускает второго processed возврата на платёж.
func (r *PaymentRepository) RefundPayment(ctx context.Context, paymentID, requestedBy uuid.UUID, amount decimal.Decimal, reason string) (*models.Refund, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var payment models.Payment
	if err := tx.GetContext(ctx, &payment, `SELECT * FROM payments WHERE id = $1 FOR UPDATE`, paymentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment repository: lock payment %w", err)
	}

	if !payment.Status.CanTransitionTo(models.PaymentStatusRefunded) {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "возврат возможен только по завершённому платежу")
	}
	if amount.GreaterThan(payment.Amount) {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма возврата превышает сумму платежа")
	}

	var refund models.Refund
	if err := tx.GetContext(ctx, &refund, `
		INSERT INTO refunds (payment_id, requested_by, amount, reason, status, processed_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING *
	`, paymentID, requestedBy, amount, reason, models.RefundStatusProcessed); err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.New(apperror.ErrCodeConflict, "возврат по этому платежу уже оформлен")
		}
		return nil, fmt.Errorf("payment repository: create refund %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE payments SET status = $2 WHERE id = $1
	`, paymentID, models.PaymentStatusRefunded); err != nil {
		return nil, fmt.Errorf("payment repository: mark refunded %w", err)
	}

	return &refund, tx.Commit()
}

func (r *PaymentRepository) GetEscrowByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error) {
	var escrow models.Escrow
	if err := r.db.GetContext(ctx, &escrow, `SELECT * FROM escrows WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrEscrowNotFound
		}
		return nil, fmt.Errorf("payment repository: get escrow %w", err)
	}
	return &escrow, nil
}

func (r *PaymentRepository) GetEscrowByContract(ctx context.Context, contractID uuid.UUID) (*models.Escrow, error) {
	var escrow models.Escrow
	if err := r.db.GetContext(ctx, &escrow, `SELECT * FROM escrows WHERE contract_id = $1`, contractID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrEscrowNotFound
		}
		return nil, fmt.Errorf("payment repository: get escrow by contract %w", err)
	}
	return &escrow, nil
}

func (r *PaymentRepository) GetPaymentByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, `SELECT * FROM payments WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment repository: get payment %w", err)
	}
	return &payment, nil
}

// ListPaymentsByContract возвращает платёжную книгу контракта.
func (r *PaymentRepository) ListPaymentsByContract(ctx context.Context, contractID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.SelectContext(ctx, &payments, `
		SELECT * FROM payments WHERE contract_id = $1 ORDER BY created_at
	`, contractID)
	return payments, err
}

// ContractTotals считает агрегаты платёжной книги контракта одним запросом.
func (r *PaymentRepository) ContractTotals(ctx context.Context, contractID uuid.UUID) (*models.ContractPaymentTotal, error) {
	var totals models.ContractPaymentTotal
	err := r.db.GetContext(ctx, &totals, `
		SELECT
			$1::uuid AS contract_id,
			COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0) AS paid,
			COALESCE(SUM(amount) FILTER (WHERE status IN ('pending', 'processing')), 0) AS pending,
			COALESCE(SUM(amount) FILTER (WHERE status = 'refunded'), 0) AS refunded
		FROM payments WHERE contract_id = $1
	`, contractID)
	if err != nil {
		return nil, fmt.Errorf("payment repository: contract totals %w", err)
	}
	return &totals, nil
}

// lockEscrowTx блокирует строку escrow в рамках транзакции.
func lockEscrowTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Escrow, error) {
	var escrow models.Escrow
	if err := tx.GetContext(ctx, &escrow, `SELECT * FROM escrows WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrEscrowNotFound
		}
		return nil, fmt.Errorf("payment repository: lock escrow %w", err)
	}
	return &escrow, nil
}

// lockEscrowByContractTx блокирует escrow по контракту.
func lockEscrowByContractTx(ctx context.Context, tx *sqlx.Tx, contractID uuid.UUID) (*models.Escrow, error) {
	var escrow models.Escrow
	if err := tx.GetContext(ctx, &escrow, `SELECT * FROM escrows WHERE contract_id = $1 FOR UPDATE`, contractID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrEscrowNotFound
		}
		return nil, fmt.Errorf("payment repository: lock escrow by contract %w", err)
	}
	return &escrow, nil
}

// insertPaymentTx пишет строку в платёжную книгу. Завершённые строки
// получают completed_at сразу.
func insertPaymentTx(ctx context.Context, tx *sqlx.Tx, p *models.Payment) error {
	query := `
		INSERT INTO payments (contract_id, escrow_id, milestone_id, from_user_id, to_user_id,
			amount, platform_fee, freelancer_amount, status, description, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			CASE WHEN $9 IN ('completed', 'refunded') THEN NOW() END)
		RETURNING *
	`
	if err := tx.GetContext(ctx, p, query,
		p.ContractID, p.EscrowID, p.MilestoneID, p.FromUserID, p.ToUserID,
		p.Amount, p.PlatformFee, p.FreelancerAmount, p.Status, p.Description); err != nil {
		return fmt.Errorf("payment repository: insert payment %w", err)
	}
	return nil
}

// applyEscrowReleaseTx увеличивает выплаченную часть escrow. Полностью
// распределённый escrow закрывается статусом released.
func applyEscrowReleaseTx(ctx context.Context, tx *sqlx.Tx, escrow *models.Escrow, amount decimal.Decimal) error {
	released := escrow.ReleasedAmount.Add(amount)
	status := escrow.Status
	if released.Add(escrow.RefundedAmount).Equal(escrow.Amount) {
		status = models.EscrowStatusReleased
	}
	if err := tx.GetContext(ctx, escrow, `
		UPDATE escrows SET released_amount = $2, status = $3, updated_at = NOW()
		WHERE id = $1 RETURNING *
	`, escrow.ID, released, status); err != nil {
		return fmt.Errorf("payment repository: apply release %w", err)
	}
	return nil
}

// applyEscrowRefundTx увеличивает возвращённую часть escrow. Если возврат
// исчерпал остаток, escrow закрывается статусом refunded.
func applyEscrowRefundTx(ctx context.Context, tx *sqlx.Tx, escrow *models.Escrow, amount decimal.Decimal) error {
	refunded := escrow.RefundedAmount.Add(amount)
	status := escrow.Status
	if escrow.ReleasedAmount.Add(refunded).Equal(escrow.Amount) {
		status = models.EscrowStatusRefunded
	}
	if err := tx.GetContext(ctx, escrow, `
		UPDATE escrows SET refunded_amount = $2, status = $3, updated_at = NOW()
		WHERE id = $1 RETURNING *
	`, escrow.ID, refunded, status); err != nil {
		return fmt.Errorf("payment repository: apply refund %w", err)
	}
	return nil
}

// refundEscrowTx выполняет возврат из заблокированного escrow: проверка
// остатка, строка возврата в платёжной книге, обновление остатка.
// Используется и прямым возвратом, и резолюцией спора.
func refundEscrowTx(ctx context.Context, tx *sqlx.Tx, escrow *models.Escrow, contract *models.Contract, amount decimal.Decimal, reason string) (*models.Payment, error) {
	if escrow.Status != models.EscrowStatusActive {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "escrow не активен")
	}
	if amount.GreaterThan(escrow.Remaining()) {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "сумма возврата превышает остаток escrow")
	}

	payment := &models.Payment{
		ContractID:       &contract.ID,
		EscrowID:         &escrow.ID,
		FromUserID:       contract.ClientID,
		ToUserID:         contract.FreelancerID,
		Amount:           amount,
		PlatformFee:      money.Zero,
		FreelancerAmount: money.Zero,
		Status:           models.PaymentStatusRefunded,
	}
	if reason != "" {
		payment.Description = &reason
	}
	if err := insertPaymentTx(ctx, tx, payment); err != nil {
		return nil, err
	}
	if err := applyEscrowRefundTx(ctx, tx, escrow, amount); err != nil {
		return nil, err
	}
	return payment, nil
}

// approveMilestoneTx принимает этап в рамках выплаты: submitted -> paid,
// с контролем принадлежности контракту и потолка суммы контракта.
func approveMilestoneTx(ctx context.Context, tx *sqlx.Tx, milestoneID uuid.UUID, contract *models.Contract, amount decimal.Decimal, feedback string) error {
	var milestone models.Milestone
	if err := tx.GetContext(ctx, &milestone, `SELECT * FROM milestones WHERE id = $1 FOR UPDATE`, milestoneID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.ErrMilestoneNotFound
		}
		return fmt.Errorf("payment repository: lock milestone %w", err)
	}

	if milestone.ContractID != contract.ID {
		return apperror.New(apperror.ErrCodeValidation, "этап не относится к контракту escrow")
	}
	if milestone.Status != models.MilestoneStatusSubmitted {
		return apperror.New(apperror.ErrCodeInvalidState, "этап не ожидает приёмки")
	}

	var paidTotal decimal.Decimal
	if err := tx.GetContext(ctx, &paidTotal, `
		SELECT COALESCE(SUM(amount), 0) FROM milestones
		WHERE contract_id = $1 AND status = $2
	`, contract.ID, models.MilestoneStatusPaid); err != nil {
		return fmt.Errorf("payment repository: paid total %w", err)
	}
	if paidTotal.Add(amount).GreaterThan(contract.Amount) {
		return apperror.New(apperror.ErrCodeInvalidState, "выплаты по этапам превысят сумму контракта")
	}

	query := `
		UPDATE milestones SET status = $2, feedback = NULLIF($3, ''), approved_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, query, milestoneID, models.MilestoneStatusPaid, feedback); err != nil {
		return fmt.Errorf("payment repository: mark paid %w", err)
	}
	return nil
}
