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

type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// ResolveInput — параметры резолюции спора администратором.
type ResolveInput struct {
	DisputeID  uuid.UUID
	AdminID    uuid.UUID
	Outcome    string
	Amount     decimal.Decimal
	Fee        decimal.Decimal
	Resolution string
}

// Open открывает спор стороной контракта и замораживает контракт.
// Частичный уникальный индекс не допускает второго незакрытого спора.
func (r *DisputeRepository) Open(ctx context.Context, contractID, userID uuid.UUID, reason string) (*models.Dispute, *models.Contract, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	contract, err := lockContractTx(ctx, tx, contractID)
	if err != nil {
		return nil, nil, err
	}
	if err := authz.EnsureContractParty(contract, userID); err != nil {
		return nil, nil, err
	}
	if !contract.Status.CanTransitionTo(models.ContractStatusDisputed) {
		return nil, nil, apperror.New(apperror.ErrCodeInvalidState, "спор можно открыть только по активному контракту")
	}

	var dispute models.Dispute
	if err := tx.GetContext(ctx, &dispute, `
		INSERT INTO disputes (contract_id, raised_by, reason, status)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, contractID, userID, reason, models.DisputeStatusOpen); err != nil {
		if isUniqueViolation(err) {
			return nil, nil, apperror.New(apperror.ErrCodeConflict, "по контракту уже открыт спор")
		}
		return nil, nil, fmt.Errorf("dispute repository: open %w", err)
	}

	if err := applyContractTransitionTx(ctx, tx, contract, models.ContractStatusDisputed); err != nil {
		return nil, nil, err
	}

	return &dispute, contract, tx.Commit()
}

func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := r.db.GetContext(ctx, &dispute, `SELECT * FROM disputes WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrDisputeNotFound
		}
		return nil, fmt.Errorf("dispute repository: get by id %w", err)
	}
	return &dispute, nil
}

// ListByContract возвращает споры контракта.
func (r *DisputeRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT * FROM disputes WHERE contract_id = $1 ORDER BY created_at DESC
	`, contractID)
	return disputes, err
}

// ListOpen возвращает споры, ожидающие внимания администратора.
func (r *DisputeRepository) ListOpen(ctx context.Context, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT * FROM disputes WHERE status IN ('open', 'in_review', 'escalated')
		ORDER BY created_at LIMIT $1 OFFSET $2
	`, limit, offset)
	return disputes, err
}

// Review берёт спор в рассмотрение.
func (r *DisputeRepository) Review(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	return r.transition(ctx, disputeID, models.DisputeStatusInReview)
}

// Escalate помечает спор требующим вмешательства выше.
func (r *DisputeRepository) Escalate(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	return r.transition(ctx, disputeID, models.DisputeStatusEscalated)
}

// Close закрывает спор без резолюции и размораживает контракт.
func (r *DisputeRepository) Close(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	dispute, err := lockDisputeTx(ctx, tx, disputeID)
	if err != nil {
		return nil, err
	}
	if !dispute.Status.CanTransitionTo(models.DisputeStatusClosed) {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "спор уже закрыт")
	}

	contract, err := lockContractTx(ctx, tx, dispute.ContractID)
	if err != nil {
		return nil, err
	}
	if contract.Status == models.ContractStatusDisputed {
		if err := applyContractTransitionTx(ctx, tx, contract, models.ContractStatusActive); err != nil {
			return nil, err
		}
	}

	if err := tx.GetContext(ctx, dispute, `
		UPDATE disputes SET status = $2 WHERE id = $1 RETURNING *
	`, disputeID, models.DisputeStatusClosed); err != nil {
		return nil, fmt.Errorf("dispute repository: close %w", err)
	}

	return dispute, tx.Commit()
}

// Resolve применяет резолюцию администратора одной транзакцией:
// resume размораживает контракт, refund возвращает сумму клиенту из escrow
// и закрывает контракт как refunded, terminate опционально выплачивает
// исполнителю за выполненную часть и закрывает контракт как terminated.
func (r *DisputeRepository) Resolve(ctx context.Context, in ResolveInput) (*models.Dispute, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	dispute, err := lockDisputeTx(ctx, tx, in.DisputeID)
	if err != nil {
		return nil, err
	}
	if !dispute.Status.CanTransitionTo(models.DisputeStatusResolved) {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "спор не находится в рассмотрении")
	}

	contract, err := lockContractTx(ctx, tx, dispute.ContractID)
	if err != nil {
		return nil, err
	}

	switch in.Outcome {
	case models.DisputeOutcomeResume:
		if err := applyContractTransitionTx(ctx, tx, contract, models.ContractStatusActive); err != nil {
			return nil, err
		}

	case models.DisputeOutcomeRefund:
		escrow, err := lockEscrowByContractTx(ctx, tx, contract.ID)
		if err != nil {
			return nil, err
		}
		payment, err := refundEscrowTx(ctx, tx, escrow, contract, in.Amount, in.Resolution)
		if err != nil {
			return nil, err
		}
		if err := insertProcessedRefundTx(ctx, tx, payment.ID, in.AdminID, in.Amount, in.Resolution); err != nil {
			return nil, err
		}
		if err := applyContractTransitionTx(ctx, tx, contract, models.ContractStatusRefunded); err != nil {
			return nil, err
		}

	case models.DisputeOutcomeTerminate:
		if in.Amount.IsPositive() {
			escrow, err := lockEscrowByContractTx(ctx, tx, contract.ID)
			if err != nil {
				return nil, err
			}
			if escrow.Status != models.EscrowStatusActive {
				return nil, apperror.New(apperror.ErrCodeInvalidState, "escrow не активен")
			}
			if in.Amount.GreaterThan(escrow.Remaining()) {
				return nil, apperror.New(apperror.ErrCodeInvalidState, "сумма выплаты превышает остаток escrow")
			}
			payment := &models.Payment{
				ContractID:       &contract.ID,
				EscrowID:         &escrow.ID,
				FromUserID:       contract.ClientID,
				ToUserID:         contract.FreelancerID,
				Amount:           in.Amount,
				PlatformFee:      in.Fee,
				FreelancerAmount: money.FreelancerNet(in.Amount, in.Fee),
				Status:           models.PaymentStatusCompleted,
			}
			if in.Resolution != "" {
				payment.Description = &in.Resolution
			}
			if err := insertPaymentTx(ctx, tx, payment); err != nil {
				return nil, err
			}
			if err := applyEscrowReleaseTx(ctx, tx, escrow, in.Amount); err != nil {
				return nil, err
			}
		}
		if err := applyContractTransitionTx(ctx, tx, contract, models.ContractStatusTerminated); err != nil {
			return nil, err
		}

	default:
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный исход спора")
	}

	var resolutionAmount *decimal.Decimal
	if in.Amount.IsPositive() {
		resolutionAmount = &in.Amount
	}
	if err := tx.GetContext(ctx, dispute, `
		UPDATE disputes
		SET status = $2, resolution_amount = $3, resolution = NULLIF($4, ''), resolved_by = $5, resolved_at = NOW()
		WHERE id = $1 RETURNING *
	`, in.DisputeID, models.DisputeStatusResolved, resolutionAmount, in.Resolution, in.AdminID); err != nil {
		return nil, fmt.Errorf("dispute repository: resolve %w", err)
	}

	return dispute, tx.Commit()
}

// transition выполняет простой переход статуса спора под блокировкой.
func (r *DisputeRepository) transition(ctx context.Context, disputeID uuid.UUID, next models.DisputeStatus) (*models.Dispute, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	dispute, err := lockDisputeTx(ctx, tx, disputeID)
	if err != nil {
		return nil, err
	}
	if !dispute.Status.CanTransitionTo(next) {
		return nil, apperror.New(apperror.ErrCodeInvalidState,
			fmt.Sprintf("переход спора из %s в %s невозможен", dispute.Status, next))
	}

	if err := tx.GetContext(ctx, dispute, `
		UPDATE disputes SET status = $2 WHERE id = $1 RETURNING *
	`, disputeID, next); err != nil {
		return nil, fmt.Errorf("dispute repository: transition %w", err)
	}

	return dispute, tx.Commit()
}

func lockDisputeTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := tx.GetContext(ctx, &dispute, `SELECT * FROM disputes WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrDisputeNotFound
		}
		return nil, fmt.Errorf("dispute repository: lock %w", err)
	}
	return &dispute, nil
}

// insertProcessedRefundTx фиксирует оформленный возврат по платежу.
func insertProcessedRefundTx(ctx context.Context, tx *sqlx.Tx, paymentID, requestedBy uuid.UUID, amount decimal.Decimal, reason string) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO refunds (payment_id, requested_by, amount, reason, status, processed_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, paymentID, requestedBy, amount, reason, models.RefundStatusProcessed); err != nil {
		return fmt.Errorf("dispute repository: insert refund %w", err)
	}
	return nil
}
