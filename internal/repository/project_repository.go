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

type ProjectRepository struct {
	db *sqlx.DB
}

func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create сохраняет новый проект в статусе open.
func (r *ProjectRepository) Create(ctx context.Context, p *models.Project) error {
	query := `
		INSERT INTO projects (client_id, title, description, budget, status, deadline_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, p.ClientID, p.Title, p.Description, p.Budget, p.Status, p.DeadlineAt).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("project repository: create %w", err)
	}
	return nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.db.GetContext(ctx, &project, `SELECT * FROM projects WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, fmt.Errorf("project repository: get by id %w", err)
	}
	return &project, nil
}

// List возвращает проекты с опциональным фильтром по статусу.
func (r *ProjectRepository) List(ctx context.Context, status *models.ProjectStatus, limit, offset int) ([]models.Project, error) {
	var projects []models.Project
	if status != nil {
		err := r.db.SelectContext(ctx, &projects, `
			SELECT * FROM projects WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
		`, *status, limit, offset)
		return projects, err
	}
	err := r.db.SelectContext(ctx, &projects, `
		SELECT * FROM projects ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	return projects, err
}

// ListByClient возвращает проекты клиента.
func (r *ProjectRepository) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.SelectContext(ctx, &projects, `
		SELECT * FROM projects WHERE client_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, clientID, limit, offset)
	return projects, err
}

// UpdateStatus переводит проект в новый статус с проверкой таблицы переходов.
func (r *ProjectRepository) UpdateStatus(ctx context.Context, id uuid.UUID, next models.ProjectStatus) (*models.Project, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var project models.Project
	if err := tx.GetContext(ctx, &project, `SELECT * FROM projects WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, fmt.Errorf("project repository: lock %w", err)
	}

	if !project.Status.CanTransitionTo(next) {
		return nil, apperror.New(apperror.ErrCodeInvalidState,
			fmt.Sprintf("переход проекта из %s в %s невозможен", project.Status, next))
	}

	if err := tx.GetContext(ctx, &project, `
		UPDATE projects SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING *
	`, id, next); err != nil {
		return nil, fmt.Errorf("project repository: update status %w", err)
	}

	return &project, tx.Commit()
}
