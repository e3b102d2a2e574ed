package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-core/internal/authz"
	"github.com/ignatzorin/freelance-core/internal/models"
	"github.com/ignatzorin/freelance-core/internal/pkg/apperror"
)

type MilestoneRepository struct {
	db *sqlx.DB
}

func NewMilestoneRepository(db *sqlx.DB) *MilestoneRepository {
	return &MilestoneRepository{db: db}
}

// Create добавляет этап к контракту. Доступно клиенту, пока контракт
// не в терминальном статусе и не в споре.
func (r *MilestoneRepository) Create(ctx context.Context, m *models.Milestone, clientID uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	contract, err := lockContractTx(ctx, tx, m.ContractID)
	if err != nil {
		return err
	}
	if err := authz.EnsureContractClient(contract, clientID); err != nil {
		return err
	}
	if contract.Status.IsTerminal() || contract.Status == models.ContractStatusDisputed {
		return apperror.New(apperror.ErrCodeInvalidState, "контракт не допускает изменения этапов")
	}

	query := `
		INSERT INTO milestones (contract_id, title, description, amount, order_index, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	if err := tx.QueryRowxContext(ctx, query, m.ContractID, m.Title, m.Description, m.Amount, m.OrderIndex, m.Status).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return fmt.Errorf("milestone repository: create %w", err)
	}

	return tx.Commit()
}

func (r *MilestoneRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Milestone, error) {
	var milestone models.Milestone
	if err := r.db.GetContext(ctx, &milestone, `SELECT * FROM milestones WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrMilestoneNotFound
		}
		return nil, fmt.Errorf("milestone repository: get by id %w", err)
	}
	return &milestone, nil
}

// ListByContract возвращает этапы контракта в порядке order_index.
func (r *MilestoneRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Milestone, error) {
	var milestones []models.Milestone
	err := r.db.SelectContext(ctx, &milestones, `
		SELECT * FROM milestones WHERE contract_id = $1 ORDER BY order_index, created_at
	`, contractID)
	return milestones, err
}

// Start переводит этап в работу. Доступно исполнителю контракта.
func (r *MilestoneRepository) Start(ctx context.Context, milestoneID, freelancerID uuid.UUID) (*models.Milestone, error) {
	return r.transition(ctx, milestoneID, models.MilestoneStatusInProgress, `
		UPDATE milestones SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING *
	`, func(contract *models.Contract) error {
		if err := authz.EnsureContractFreelancer(contract, freelancerID); err != nil {
			return err
		}
		return authz.EnsureContractNotFrozen(contract)
	})
}

// Submit отправляет результат этапа на приёмку клиентом.
func (r *MilestoneRepository) Submit(ctx context.Context, milestoneID, freelancerID uuid.UUID, deliverables string) (*models.Milestone, error) {
	return r.transition(ctx, milestoneID, models.MilestoneStatusSubmitted, `
		UPDATE milestones SET status = $2, deliverables = $3, submitted_at = NOW(), updated_at = NOW()
		WHERE id = $1 RETURNING *
	`, func(contract *models.Contract) error {
		if err := authz.EnsureContractFreelancer(contract, freelancerID); err != nil {
			return err
		}
		return authz.EnsureContractNotFrozen(contract)
	}, deliverables)
}

// Reject возвращает этап в работу с замечаниями клиента.
func (r *MilestoneRepository) Reject(ctx context.Context, milestoneID, clientID uuid.UUID, feedback string) (*models.Milestone, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	milestone, contract, err := lockMilestoneTx(ctx, tx, milestoneID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureContractClient(contract, clientID); err != nil {
		return nil, err
	}
	if milestone.Status != models.MilestoneStatusSubmitted {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "этап не ожидает приёмки")
	}

	if err := tx.GetContext(ctx, milestone, `
		UPDATE milestones SET status = $2, feedback = $3, updated_at = NOW() WHERE id = $1 RETURNING *
	`, milestoneID, models.MilestoneStatusRejected, feedback); err != nil {
		return nil, fmt.Errorf("milestone repository: reject %w", err)
	}

	return milestone, tx.Commit()
}

// transition выполняет переход этапа под блокировкой этапа и контракта.
func (r *MilestoneRepository) transition(ctx context.Context, milestoneID uuid.UUID, next models.MilestoneStatus, query string, check func(*models.Contract) error, args ...any) (*models.Milestone, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	milestone, contract, err := lockMilestoneTx(ctx, tx, milestoneID)
	if err != nil {
		return nil, err
	}
	if err := check(contract); err != nil {
		return nil, err
	}
	if !milestone.Status.CanTransitionTo(next) {
		return nil, apperror.New(apperror.ErrCodeInvalidState,
			fmt.Sprintf("переход этапа из %s в %s невозможен", milestone.Status, next))
	}

	queryArgs := append([]any{milestoneID, next}, args...)
	if err := tx.GetContext(ctx, milestone, query, queryArgs...); err != nil {
		return nil, fmt.Errorf("milestone repository: transition %w", err)
	}

	return milestone, tx.Commit()
}

// lockMilestoneTx блокирует этап и его контракт в рамках транзакции.
func lockMilestoneTx(ctx context.Context, tx *sqlx.Tx, milestoneID uuid.UUID) (*models.Milestone, *models.Contract, error) {
	var milestone models.Milestone
	if err := tx.GetContext(ctx, &milestone, `SELECT * FROM milestones WHERE id = $1 FOR UPDATE`, milestoneID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, apperror.ErrMilestoneNotFound
		}
		return nil, nil, fmt.Errorf("milestone repository: lock milestone %w", err)
	}

	contract, err := lockContractTx(ctx, tx, milestone.ContractID)
	if err != nil {
		return nil, nil, err
	}
	return &milestone, contract, nil
}
