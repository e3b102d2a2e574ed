package service

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/freelance-core/internal/models"
	"github.com/ignatzorin/freelance-core/internal/pkg/apperror"
)

type mockAuthRepo struct {
	mock.Mock
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockAuthRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthRepo) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockAuthRepo) CreateSession(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockAuthRepo) GetSessionByToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *mockAuthRepo) DeleteSession(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func testTokenManager() *TokenManager {
	return NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	ctx := context.Background()

	repo.On("Create", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == "ivan@example.com" &&
			u.Username == "ivan" &&
			u.Role == models.RoleFreelancer &&
			u.PasswordHash != "secret123"
	})).Return(nil)
	repo.On("CreateSession", ctx, mock.Anything).Return(nil)

	result, err := svc.Register(ctx, RegisterInput{
		Email:    "Ivan@Example.com",
		Password: "secret123",
	}, map[string]string{"user_agent": "tests", "ip_address": "127.0.0.1"})
	assert.NoError(t, err)
	assert.NotEmpty(t, result.TokenPair.AccessToken)
	assert.NotEmpty(t, result.TokenPair.RefreshToken)
	repo.AssertExpectations(t)
}

func TestAuthService_Register_InvalidEmail(t *testing.T) {
	svc := NewAuthService(new(mockAuthRepo), testTokenManager())

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "не-почта",
		Password: "secret123",
	}, nil)
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestAuthService_Register_ShortPassword(t *testing.T) {
	svc := NewAuthService(new(mockAuthRepo), testTokenManager())

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "ivan@example.com",
		Password: "123",
	}, nil)
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestAuthService_Register_AdminRoleRejected(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "ivan@example.com",
		Password: "strongpassword",
		Role:     "admin",
	}, nil)
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	assert.NoError(t, err)
	repo.On("GetByEmail", ctx, "ivan@example.com").Return(&models.User{
		ID:           uuid.New(),
		Email:        "ivan@example.com",
		PasswordHash: string(hash),
		IsActive:     true,
	}, nil)

	_, err = svc.Login(ctx, LoginInput{Email: "ivan@example.com", Password: "другой"}, nil)
	assert.Error(t, err)
	assert.Equal(t, "неверный email или пароль", apperror.MessageOf(err))
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, apperror.New(apperror.ErrCodeNotFound, "пользователь не найден"))

	// Ответ не раскрывает, существует ли учётная запись.
	_, err := svc.Login(ctx, LoginInput{Email: "Ghost@example.com", Password: "secret123"}, nil)
	assert.Error(t, err)
	assert.Equal(t, "неверный email или пароль", apperror.MessageOf(err))
}

func TestAuthService_Login_InactiveAccount(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "ivan@example.com").Return(&models.User{
		ID:       uuid.New(),
		Email:    "ivan@example.com",
		IsActive: false,
	}, nil)

	_, err := svc.Login(ctx, LoginInput{Email: "ivan@example.com", Password: "secret123"}, nil)
	assert.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	ctx := context.Background()

	userID := uuid.New()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	assert.NoError(t, err)
	user := &models.User{
		ID:           userID,
		Email:        "ivan@example.com",
		Username:     "ivan",
		PasswordHash: string(hash),
		Role:         models.RoleFreelancer,
		IsActive:     true,
	}
	repo.On("GetByEmail", ctx, "ivan@example.com").Return(user, nil)
	repo.On("UpdateLastLoginAt", ctx, userID).Return(nil)
	repo.On("CreateSession", ctx, mock.MatchedBy(func(s *models.Session) bool {
		return s.UserID == userID && s.RefreshToken != "" && s.ExpiresAt.After(time.Now())
	})).Return(nil)

	result, err := svc.Login(ctx, LoginInput{Email: "Ivan@example.com", Password: "secret123"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, userID, result.User.ID)
	assert.NotEmpty(t, result.TokenPair.AccessToken)
	repo.AssertExpectations(t)
}

func TestAuthService_Refresh_ExpiredSession(t *testing.T) {
	repo := new(mockAuthRepo)
	tm := testTokenManager()
	svc := NewAuthService(repo, tm)
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Email: "ivan@example.com", Role: models.RoleFreelancer}
	pair, _, err := tm.GeneratePair(user)
	assert.NoError(t, err)

	repo.On("GetSessionByToken", ctx, pair.RefreshToken).Return(&models.Session{
		UserID:       user.ID,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    time.Now().Add(-time.Hour),
	}, nil)
	repo.On("DeleteSession", ctx, pair.RefreshToken).Return(nil)

	_, err = svc.Refresh(ctx, pair.RefreshToken, nil)
	assert.Error(t, err)
	assert.Equal(t, "срок действия сессии истёк", apperror.MessageOf(err))
}

func TestAuthService_Refresh_RotatesSession(t *testing.T) {
	repo := new(mockAuthRepo)
	tm := testTokenManager()
	svc := NewAuthService(repo, tm)
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Email: "ivan@example.com", Role: models.RoleClient, IsActive: true}
	pair, refreshExp, err := tm.GeneratePair(user)
	assert.NoError(t, err)

	repo.On("GetSessionByToken", ctx, pair.RefreshToken).Return(&models.Session{
		UserID:       user.ID,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    refreshExp,
	}, nil)
	repo.On("GetByID", ctx, user.ID).Return(user, nil)
	repo.On("DeleteSession", ctx, pair.RefreshToken).Return(nil)
	repo.On("CreateSession", ctx, mock.MatchedBy(func(s *models.Session) bool {
		return s.UserID == user.ID && s.RefreshToken != ""
	})).Return(nil)

	result, err := svc.Refresh(ctx, pair.RefreshToken, nil)
	assert.NoError(t, err)
	assert.NotEmpty(t, result.TokenPair.RefreshToken)
	repo.AssertExpectations(t)
}
