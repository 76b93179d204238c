package user

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"swapdeck/internal/auth"
	"swapdeck/internal/models"
)

// Service defines user operations. Login is a plaintext demo flow;
// the returned token is an opaque session handle, not a credential
// system.
type Service interface {
	Register(username, password string) (*models.User, error)
	Login(username, password string) (*models.User, string, error)
	BindWallet(userID, address string) (*models.User, error)
	Get(userID string) (*models.User, error)
}

type service struct {
	repo     Repository
	sessions *auth.SessionStore
}

// NewService creates a user service issuing sessions into the store.
func NewService(repo Repository, sessions *auth.SessionStore) Service {
	return &service{repo: repo, sessions: sessions}
}

func (s *service) Register(username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, errors.New("username and password required")
	}

	existing, err := s.repo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("username already taken")
	}

	u := &models.User{
		ID:       uuid.NewString(),
		Username: username,
		Password: password,
	}
	if err := s.repo.Create(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Login(username, password string) (*models.User, string, error) {
	u, err := s.repo.GetByUsername(username)
	if err != nil {
		return nil, "", err
	}
	if u == nil || u.Password != password {
		return nil, "", errors.New("invalid credentials")
	}

	token := s.sessions.Issue(u.ID)
	return u, token, nil
}

func (s *service) BindWallet(userID, address string) (*models.User, error) {
	if !common.IsHexAddress(address) {
		return nil, errors.New("invalid wallet address")
	}

	u, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.New("user not found")
	}

	u.WalletAddress = address
	if err := s.repo.Update(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Get(userID string) (*models.User, error) {
	return s.repo.GetByID(userID)
}
