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

type ProposalRepository struct {
	db *sqlx.DB
}

func NewProposalRepository(db *sqlx.DB) *ProposalRepository {
	return &ProposalRepository{db: db}
}

// Create сохраняет новое предложение по открытому проекту.
func (r *ProposalRepository) Create(ctx context.Context, p *models.Proposal) error {
	query := `
		INSERT INTO proposals (project_id, freelancer_id, cover_letter, bid_amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, p.ProjectID, p.FreelancerID, p.CoverLetter, p.BidAmount, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.New(apperror.ErrCodeConflict, "предложение по этому проекту уже подано")
		}
		return fmt.Errorf("proposal repository: create %w", err)
	}
	return nil
}

func (r *ProposalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var proposal models.Proposal
	if err := r.db.GetContext(ctx, &proposal, `SELECT * FROM proposals WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProposalNotFound
		}
		return nil, fmt.Errorf("proposal repository: get by id %w", err)
	}
	return &proposal, nil
}

// ListByProject возвращает предложения по проекту.
func (r *ProposalRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := r.db.SelectContext(ctx, &proposals, `
		SELECT * FROM proposals WHERE project_id = $1 ORDER BY created_at DESC
	`, projectID)
	return proposals, err
}

// ListByFreelancer возвращает предложения исполнителя.
func (r *ProposalRepository) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := r.db.SelectContext(ctx, &proposals, `
		SELECT * FROM proposals WHERE freelancer_id = $1 ORDER BY created_at DESC
	`, freelancerID)
	return proposals, err
}

// Accept принимает предложение одной транзакцией: проект блокируется FOR UPDATE,
// чтобы два параллельных принятия не породили два контракта. Остальные поданные
// предложения по проекту отклоняются, проект переходит в in_progress.
func (r *ProposalRepository) Accept(ctx context.Context, proposalID, clientID uuid.UUID) (*models.Proposal, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var proposal models.Proposal
	if err := tx.GetContext(ctx, &proposal, `SELECT * FROM proposals WHERE id = $1 FOR UPDATE`, proposalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProposalNotFound
		}
		return nil, fmt.Errorf("proposal repository: lock proposal %w", err)
	}

	var project models.Project
	if err := tx.GetContext(ctx, &project, `SELECT * FROM projects WHERE id = $1 FOR UPDATE`, proposal.ProjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, fmt.Errorf("proposal repository: lock project %w", err)
	}

	if err := authz.EnsureProjectOwner(&project, clientID); err != nil {
		return nil, err
	}
	if proposal.Status != models.ProposalStatusSubmitted {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "предложение уже рассмотрено")
	}
	if project.Status != models.ProjectStatusOpen {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "проект не принимает предложения")
	}

	if err := tx.GetContext(ctx, &proposal, `
		UPDATE proposals SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING *
	`, proposalID, models.ProposalStatusAccepted); err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.New(apperror.ErrCodeConflict, "по проекту уже принято предложение")
		}
		return nil, fmt.Errorf("proposal repository: accept %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE proposals SET status = $3, updated_at = NOW()
		WHERE project_id = $1 AND id <> $2 AND status = $4
	`, proposal.ProjectID, proposalID, models.ProposalStatusRejected, models.ProposalStatusSubmitted); err != nil {
		return nil, fmt.Errorf("proposal repository: reject siblings %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE projects SET status = $2, updated_at = NOW() WHERE id = $1
	`, proposal.ProjectID, models.ProjectStatusInProgress); err != nil {
		return nil, fmt.Errorf("proposal repository: move project %w", err)
	}

	return &proposal, tx.Commit()
}

// Reject отклоняет поданное предложение. Доступно владельцу проекта.
func (r *ProposalRepository) Reject(ctx context.Context, proposalID, clientID uuid.UUID) (*models.Proposal, error) {
	return r.resolve(ctx, proposalID, models.ProposalStatusRejected, func(proposal *models.Proposal, project *models.Project) error {
		return authz.EnsureProjectOwner(project, clientID)
	})
}

// Withdraw отзывает поданное предложение. Доступно его автору.
func (r *ProposalRepository) Withdraw(ctx context.Context, proposalID, freelancerID uuid.UUID) (*models.Proposal, error) {
	return r.resolve(ctx, proposalID, models.ProposalStatusWithdrawn, func(proposal *models.Proposal, project *models.Project) error {
		return authz.EnsureOwner(proposal.FreelancerID, freelancerID)
	})
}

// resolve переводит поданное предложение в терминальный статус под блокировкой.
func (r *ProposalRepository) resolve(ctx context.Context, proposalID uuid.UUID, next models.ProposalStatus, check func(*models.Proposal, *models.Project) error) (*models.Proposal, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var proposal models.Proposal
	if err := tx.GetContext(ctx, &proposal, `SELECT * FROM proposals WHERE id = $1 FOR UPDATE`, proposalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProposalNotFound
		}
		return nil, fmt.Errorf("proposal repository: lock proposal %w", err)
	}

	var project models.Project
	if err := tx.GetContext(ctx, &project, `SELECT * FROM projects WHERE id = $1`, proposal.ProjectID); err != nil {
		return nil, fmt.Errorf("proposal repository: get project %w", err)
	}

	if err := check(&proposal, &project); err != nil {
		return nil, err
	}
	if !proposal.Status.CanTransitionTo(next) {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "предложение уже рассмотрено")
	}

	if err := tx.GetContext(ctx, &proposal, `
		UPDATE proposals SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING *
	`, proposalID, next); err != nil {
		return nil, fmt.Errorf("proposal repository: resolve %w", err)
	}

	return &proposal, tx.Commit()
}
