package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-core/internal/models"
	"github.com/ignatzorin/freelance-core/internal/pkg/apperror"
)

type ContractRepository struct {
	db *sqlx.DB
}

func NewContractRepository(db *sqlx.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// Create сохраняет контракт по принятому предложению. Уникальность
// winning_bid_id гарантирует не более одного контракта на предложение.
func (r *ContractRepository) Create(ctx context.Context, c *models.Contract) error {
	query := `
		INSERT INTO contracts (project_id, winning_bid_id, client_id, freelancer_id, contract_type, amount, platform_fee, hourly_rate, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		c.ProjectID, c.WinningBidID, c.ClientID, c.FreelancerID,
		c.ContractType, c.Amount, c.PlatformFee, c.HourlyRate, c.Status).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.New(apperror.ErrCodeConflict, "контракт по этому предложению уже создан")
		}
		return fmt.Errorf("contract repository: create %w", err)
	}
	return nil
}

func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	if err := r.db.GetContext(ctx, &contract, `SELECT * FROM contracts WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, fmt.Errorf("contract repository: get by id %w", err)
	}
	return &contract, nil
}

// ListByUser возвращает контракты, где пользователь является стороной.
func (r *ContractRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contract, error) {
	var contracts []models.Contract
	err := r.db.SelectContext(ctx, &contracts, `
		SELECT * FROM contracts
		WHERE client_id = $1 OR freelancer_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return contracts, err
}

// TransitionStatus переводит контракт в новый статус с проверкой таблицы
// переходов под блокировкой строки. Активация проставляет started_at,
// терминальные статусы проставляют ended_at.
func (r *ContractRepository) TransitionStatus(ctx context.Context, id uuid.UUID, next models.ContractStatus) (*models.Contract, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	contract, err := lockContractTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := applyContractTransitionTx(ctx, tx, contract, next); err != nil {
		return nil, err
	}

	return contract, tx.Commit()
}

// lockContractTx блокирует строку контракта в рамках транзакции.
func lockContractTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	if err := tx.GetContext(ctx, &contract, `SELECT * FROM contracts WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, fmt.Errorf("contract repository: lock %w", err)
	}
	return &contract, nil
}

// applyContractTransitionTx выполняет переход статуса заблокированного
// контракта, обновляя отметки started_at/ended_at.
func applyContractTransitionTx(ctx context.Context, tx *sqlx.Tx, contract *models.Contract, next models.ContractStatus) error {
	if !contract.Status.CanTransitionTo(next) {
		return apperror.New(apperror.ErrCodeInvalidState,
			fmt.Sprintf("переход контракта из %s в %s невозможен", contract.Status, next))
	}

	query := `UPDATE contracts SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING *`
	switch {
	case next == models.ContractStatusActive && contract.StartedAt == nil:
		query = `UPDATE contracts SET status = $2, started_at = NOW(), updated_at = NOW() WHERE id = $1 RETURNING *`
	case next.IsTerminal():
		query = `UPDATE contracts SET status = $2, ended_at = NOW(), updated_at = NOW() WHERE id = $1 RETURNING *`
	}

	if err := tx.GetContext(ctx, contract, query, contract.ID, next); err != nil {
		return fmt.Errorf("contract repository: transition %w", err)
	}
	return nil
}
