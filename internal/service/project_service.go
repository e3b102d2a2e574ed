package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-core/internal/authz"
	"github.com/ignatzorin/freelance-core/internal/models"
	"github.com/ignatzorin/freelance-core/internal/money"
	"github.com/ignatzorin/freelance-core/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-core/internal/validation"
)

// ProjectRepository описывает взаимодействие сервиса с хранилищем проектов.
type ProjectRepository interface {
	Create(ctx context.Context, p *models.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	List(ctx context.Context, status *models.ProjectStatus, limit, offset int) ([]models.Project, error)
	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Project, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next models.ProjectStatus) (*models.Project, error)
}

// ProjectService содержит бизнес-логику работы с проектами.
type ProjectService struct {
	repo ProjectRepository
}

// NewProjectService создаёт сервис проектов.
func NewProjectService(repo ProjectRepository) *ProjectService {
	return &ProjectService{repo: repo}
}

// CreateProjectInput описывает входные данные нового проекта.
type CreateProjectInput struct {
	ClientID    uuid.UUID
	Title       string
	Description string
	Budget      *decimal.Decimal
	DeadlineAt  *time.Time
}

// Create публикует проект.
func (s *ProjectService) Create(ctx context.Context, in CreateProjectInput) (*models.Project, error) {
	if err := validation.ValidateLength("заголовок", in.Title, validation.MinProjectTitleLength, validation.MaxProjectTitleLength); err != nil {
		return nil, err
	}
	if err := validation.ValidateLength("описание", in.Description, validation.MinProjectDescriptionLength, validation.MaxProjectDescriptionLength); err != nil {
		return nil, err
	}
	if in.Budget != nil {
		if err := money.Validate(*in.Budget); err != nil {
			return nil, err
		}
	}
	if in.DeadlineAt != nil && in.DeadlineAt.Before(time.Now()) {
		return nil, apperror.New(apperror.ErrCodeValidation, "дедлайн не может быть в прошлом")
	}

	project := &models.Project{
		ClientID:    in.ClientID,
		Title:       in.Title,
		Description: in.Description,
		Budget:      in.Budget,
		Status:      models.ProjectStatusOpen,
		DeadlineAt:  in.DeadlineAt,
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// Get возвращает проект по идентификатору.
func (s *ProjectService) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return s.repo.GetByID(ctx, id)
}

// List возвращает проекты с фильтром по статусу.
func (s *ProjectService) List(ctx context.Context, status *models.ProjectStatus, limit, offset int) ([]models.Project, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.List(ctx, status, limit, offset)
}

// ListMy возвращает проекты клиента.
func (s *ProjectService) ListMy(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Project, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByClient(ctx, clientID, limit, offset)
}

// UpdateStatus переводит проект в новый статус. Доступно владельцу.
func (s *ProjectService) UpdateStatus(ctx context.Context, projectID, userID uuid.UUID, next models.ProjectStatus) (*models.Project, error) {
	if !next.IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректный статус проекта")
	}

	project, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := authz.EnsureProjectOwner(project, userID); err != nil {
		return nil, err
	}

	return s.repo.UpdateStatus(ctx, projectID, next)
}
