package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"swapdeck/internal/auth"
	"swapdeck/internal/models"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockRepository) GetByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) GetByUsername(username string) (*models.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) Update(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func TestRegisterCreatesUser(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, auth.NewSessionStore())

	repo.On("GetByUsername", "alice").Return(nil, nil)
	repo.On("Create", mock.AnythingOfType("*models.User")).Return(nil)

	u, err := svc.Register("alice", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice", u.Username)
	repo.AssertExpectations(t)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, auth.NewSessionStore())

	repo.On("GetByUsername", "alice").Return(&models.User{ID: "u1", Username: "alice"}, nil)

	_, err := svc.Register("alice", "hunter2")
	require.Error(t, err)
	assert.Equal(t, "username already taken", err.Error())
}

func TestRegisterRequiresCredentials(t *testing.T) {
	svc := NewService(new(MockRepository), auth.NewSessionStore())

	_, err := svc.Register("", "pw")
	require.Error(t, err)

	_, err = svc.Register("alice", "")
	require.Error(t, err)
}

func TestLoginIssuesResolvableSession(t *testing.T) {
	repo := new(MockRepository)
	sessions := auth.NewSessionStore()
	svc := NewService(repo, sessions)

	repo.On("GetByUsername", "alice").Return(&models.User{
		ID:       "u1",
		Username: "alice",
		Password: "hunter2",
	}, nil)

	u, token, err := svc.Login("alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	require.NotEmpty(t, token)

	userID, ok := sessions.Resolve(token)
	require.True(t, ok)
	assert.Equal(t, "u1", userID)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, auth.NewSessionStore())

	repo.On("GetByUsername", "alice").Return(&models.User{
		ID:       "u1",
		Username: "alice",
		Password: "hunter2",
	}, nil)
	repo.On("GetByUsername", "nobody").Return(nil, nil)

	_, _, err := svc.Login("alice", "wrong")
	require.Error(t, err)
	assert.Equal(t, "invalid credentials", err.Error())

	_, _, err = svc.Login("nobody", "pw")
	require.Error(t, err)
	assert.Equal(t, "invalid credentials", err.Error(), "unknown user and bad password are indistinguishable")
}

func TestBindWalletValidatesAddress(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, auth.NewSessionStore())

	_, err := svc.BindWallet("u1", "not-an-address")
	require.Error(t, err)
	assert.Equal(t, "invalid wallet address", err.Error())

	repo.On("GetByID", "u1").Return(&models.User{ID: "u1", Username: "alice"}, nil)
	repo.On("Update", mock.AnythingOfType("*models.User")).Return(nil)

	u, err := svc.BindWallet("u1", "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", u.WalletAddress)
}

func TestBindWalletUnknownUser(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, auth.NewSessionStore())

	repo.On("GetByID", "ghost").Return(nil, nil)

	_, err := svc.BindWallet("ghost", "0x1111111111111111111111111111111111111111")
	require.Error(t, err)
	assert.Equal(t, "user not found", err.Error())
}
