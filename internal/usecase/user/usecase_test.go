package user

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	domain "mailgate/internal/domain/user"
	apperrors "mailgate/pkg/errors"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, u *domain.User) (string, error) {
	args := m.Called(ctx, u)
	return args.String(0), args.Error(1)
}

func (m *MockRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func setupTestService(t *testing.T) (*Service, *MockRepository) {
	mockRepo := new(MockRepository)
	svc := New(mockRepo, zaptest.NewLogger(t), WithHashCost(bcrypt.MinCost))
	return svc, mockRepo
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

// ==================== SIGN UP ====================

func TestSignUp_Success(t *testing.T) {
	svc, mockRepo := setupTestService(t)
	ctx := context.Background()

	req := SignUpRequest{Name: "John Doe", Email: "john@example.com", Password: "s3cret"}

	mockRepo.On("GetByEmail", ctx, req.Email).Return(nil, nil)
	mockRepo.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.Name == req.Name &&
			u.Email == req.Email &&
			u.Password != req.Password &&
			bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)) == nil
	})).Return("user-1", nil)

	resp, err := svc.SignUp(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, "user-1", resp.ID)
	mockRepo.AssertExpectations(t)
}

func TestSignUp_TrimsInput(t *testing.T) {
	svc, mockRepo := setupTestService(t)
	ctx := context.Background()

	mockRepo.On("GetByEmail", ctx, "john@example.com").Return(nil, nil)
	mockRepo.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.Name == "John" && u.Email == "john@example.com"
	})).Return("user-1", nil)

	_, err := svc.SignUp(ctx, SignUpRequest{Name: "  John ", Email: " john@example.com ", Password: "pw"})

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestSignUp_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		req  SignUpRequest
	}{
		{name: "missing name", req: SignUpRequest{Email: "john@example.com", Password: "pw"}},
		{name: "blank name", req: SignUpRequest{Name: "   ", Email: "john@example.com", Password: "pw"}},
		{name: "missing email", req: SignUpRequest{Name: "John", Password: "pw"}},
		{name: "missing password", req: SignUpRequest{Name: "John", Email: "john@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mockRepo := setupTestService(t)

			resp, err := svc.SignUp(context.Background(), tt.req)

			assert.Nil(t, resp)
			require.Error(t, err)
			assert.Equal(t, "Name, email and password are required", err.Error())
			var vErr *apperrors.ValidationError
			assert.ErrorAs(t, err, &vErr)
			mockRepo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
		})
	}
}

func TestSignUp_InvalidEmail(t *testing.T) {
	svc, _ := setupTestService(t)

	resp, err := svc.SignUp(context.Background(), SignUpRequest{Name: "John", Email: "not-an-email", Password: "pw"})

	assert.Nil(t, resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email must be a valid email")
}

func TestSignUp_PasswordTooLong(t *testing.T) {
	svc, _ := setupTestService(t)

	resp, err := svc.SignUp(context.Background(), SignUpRequest{
		Name:     "John",
		Email:    "john@example.com",
		Password: strings.Repeat("x", 73),
	})

	assert.Nil(t, resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Password must be at most 72 characters")
}

func TestSignUp_EmailAlreadyExists(t *testing.T) {
	svc, mockRepo := setupTestService(t)
	ctx := context.Background()

	mockRepo.On("GetByEmail", ctx, "john@example.com").Return(&domain.User{ID: "existing", Email: "JOHN@example.com"}, nil)

	resp, err := svc.SignUp(ctx, SignUpRequest{Name: "John", Email: "john@example.com", Password: "pw"})

	assert.Nil(t, resp)
	require.Error(t, err)
	assert.Equal(t, "User already exists with this email", err.Error())
	var exists *apperrors.AlreadyExistsError
	assert.ErrorAs(t, err, &exists)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSignUp_RepositoryLookupError(t *testing.T) {
	svc, mockRepo := setupTestService(t)
	ctx := context.Background()

	mockRepo.On("GetByEmail", ctx, "john@example.com").Return(nil, errors.New("store offline"))

	resp, err := svc.SignUp(ctx, SignUpRequest{Name: "John", Email: "john@example.com", Password: "pw"})

	assert.Nil(t, resp)
	var internal *apperrors.InternalError
	require.ErrorAs(t, err, &internal)
	assert.Contains(t, err.Error(), "failed to validate email uniqueness")
}

func TestSignUp_CreateError(t *testing.T) {
	svc, mockRepo := setupTestService(t)
	ctx := context.Background()

	mockRepo.On("GetByEmail", ctx, "john@example.com").Return(nil, nil)
	mockRepo.On("Create", ctx, mock.Anything).Return("", errors.New("append failed"))

	resp, err := svc.SignUp(ctx, SignUpRequest{Name: "John", Email: "john@example.com", Password: "pw"})

	assert.Nil(t, resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create user")
}

// ==================== AUTHORIZE ====================

func TestAuthorize_Success(t *testing.T) {
	svc, mockRepo := setupTestService(t)
	ctx := context.Background()

	stored := &domain.User{ID: "user-1", Name: "John", Email: "John@Example.com", Password: hashed(t, "s3cret")}
	mockRepo.On("GetByEmail", ctx, "john@example.com").Return(stored, nil)

	u, err := svc.Authorize(ctx, Credentials{Email: "john@example.com", Password: "s3cret"})

	require.NoError(t, err)
	assert.Equal(t, "user-1", u.ID)
	assert.Equal(t, "John", u.Name)
	assert.Equal(t, "John@Example.com", u.Email)
	assert.Empty(t, u.Password)
}

func TestAuthorize_WrongPassword(t *testing.T) {
	svc, mockRepo := setupTestService(t)
	ctx := context.Background()

	stored := &domain.User{ID: "user-1", Email: "john@example.com", Password: hashed(t, "s3cret")}
	mockRepo.On("GetByEmail", ctx, "john@example.com").Return(stored, nil)

	u, err := svc.Authorize(ctx, Credentials{Email: "john@example.com", Password: "wrong"})

	assert.Nil(t, u)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestAuthorize_UnknownEmail(t *testing.T) {
	svc, mockRepo := setupTestService(t)
	ctx := context.Background()

	mockRepo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, nil)

	u, err := svc.Authorize(ctx, Credentials{Email: "ghost@example.com", Password: "pw"})

	assert.Nil(t, u)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestAuthorize_MissingFields(t *testing.T) {
	svc, mockRepo := setupTestService(t)

	for _, creds := range []Credentials{
		{Email: "", Password: "pw"},
		{Email: "john@example.com", Password: ""},
		{Email: "   ", Password: "pw"},
	} {
		u, err := svc.Authorize(context.Background(), creds)
		assert.Nil(t, u)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	}
	mockRepo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestAuthorize_RepositoryError(t *testing.T) {
	svc, mockRepo := setupTestService(t)
	ctx := context.Background()

	mockRepo.On("GetByEmail", ctx, "john@example.com").Return(nil, errors.New("store offline"))

	u, err := svc.Authorize(ctx, Credentials{Email: "john@example.com", Password: "pw"})

	assert.Nil(t, u)
	var internal *apperrors.InternalError
	assert.ErrorAs(t, err, &internal)
}
