package service

import (
	"context"
	"strings"

	"projectboard/internal/access"
	"projectboard/internal/models"
	"projectboard/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// UserSearchLimit bounds user search results.
const UserSearchLimit = 20

// UserService exposes the host user directory to board members.
type UserService struct {
	dir   access.UserDirectory
	users repository.UserRepository
}

// NewUserService creates a UserService. dir answers lookups and searches; users lists accounts.
func NewUserService(dir access.UserDirectory, users repository.UserRepository) *UserService {
	return &UserService{dir: dir, users: users}
}

// ListUsers pages through the directory by name.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.users.List(ctx, limit, offset)
}

// GetUserByID returns one user.
func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.dir.FindByID(ctx, id)
}

// Search matches users by name or email, for member pickers.
func (s *UserService) Search(ctx context.Context, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.User{}, nil
	}
	users, err := s.dir.Search(ctx, query, UserSearchLimit)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// Authenticate checks an email and password against the stored bcrypt hash. Unknown
// emails, accounts without a password and wrong passwords all fail the same way.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	denied := models.NewUnauthorizedError("Invalid credentials")
	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case models.HasCode(err, models.CodeNotFound):
		return nil, denied
	case err != nil:
		return nil, err
	case user.Password == "":
		return nil, denied
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, denied
	}
	return user, nil
}
