package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"koubyte-be/internal/logger"
	"koubyte-be/internal/utils"

	"go.uber.org/zap"
)

const minPasswordLength = 8

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Generate(userID uint, email, role string) (string, time.Time, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(password, hash string) bool
}

type Service interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Me(ctx context.Context, userID uint) (*User, error)
	List(ctx context.Context, filter ListFilter) (*UserList, error)
	Update(ctx context.Context, actorID, id uint, input UpdateInput) (*User, error)
	Delete(ctx context.Context, actorID, id uint) error
}

type service struct {
	repo   Repository
	tokens TokenIssuer
	hasher PasswordHasher
}

func NewService(repo Repository, tokens TokenIssuer, hasher PasswordHasher) Service {
	return &service{repo: repo, tokens: tokens, hasher: hasher}
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	log := logger.Scoped(ctx, "service", "Register")

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	email, ok := utils.NormalizeEmail(input.Email)
	if !ok {
		return nil, ErrInvalidEmail
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return nil, err
	}

	u, err := s.repo.Create(ctx, name, email, hashed, utils.RoleClient)
	if err != nil {
		if !errors.Is(err, ErrEmailExists) {
			log.Error("failed to create user", zap.String("email", email), zap.Error(err))
		}
		return nil, err
	}

	log.Info("user registered", zap.Uint("user_id", u.ID))
	return s.issue(u)
}

func (s *service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	log := logger.Scoped(ctx, "service", "Login")

	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Info("login with unknown email")
			return nil, ErrInvalidCredentials
		}
		log.Error("failed to load user", zap.Error(err))
		return nil, err
	}

	if !s.hasher.Compare(password, u.Password) {
		log.Info("password mismatch", zap.Uint("user_id", u.ID))
		return nil, ErrInvalidCredentials
	}

	return s.issue(u)
}

func (s *service) issue(u *User) (*AuthResult, error) {
	token, expires, err := s.tokens.Generate(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: expires, User: u}, nil
}

func (s *service) Me(ctx context.Context, userID uint) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *service) List(ctx context.Context, filter ListFilter) (*UserList, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &UserList{Users: users, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *service) Update(ctx context.Context, actorID, id uint, input UpdateInput) (*User, error) {
	log := logger.Scoped(ctx, "service", "Update", zap.Uint("actor_id", actorID), zap.Uint("user_id", id))

	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			return nil, ErrNameRequired
		}
		input.Name = &trimmed
	}

	if input.Role != nil {
		if *input.Role != utils.RoleClient && *input.Role != utils.RoleAdmin {
			return nil, ErrInvalidRole
		}

		target, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if target.Role == utils.RoleAdmin && *input.Role != utils.RoleAdmin {
			if err := s.ensureAnotherAdmin(ctx); err != nil {
				return nil, err
			}
		}
	}

	u, err := s.repo.Update(ctx, id, input)
	if err != nil {
		return nil, err
	}

	log.Info("user updated", zap.String("role", u.Role))
	return u, nil
}

func (s *service) Delete(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return ErrCannotDeleteSelf
	}

	target, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if target.Role == utils.RoleAdmin {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return err
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	logger.Scoped(ctx, "service", "Delete").Info("user deleted",
		zap.Uint("actor_id", actorID), zap.Uint("user_id", id))
	return nil
}

func (s *service) ensureAnotherAdmin(ctx context.Context) error {
	admins, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}
