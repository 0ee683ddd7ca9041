package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/libralend/libralend-backend/pkg/errors"
	"github.com/libralend/libralend-backend/pkg/pagination"
)

// Service exposes member management operations.
type Service interface {
	CreateMember(ctx context.Context, input CreateMemberInput) (*UserDTO, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	ListUsers(ctx context.Context, input ListUsersInput) (*UserList, error)
	SetUserActive(ctx context.Context, userID uuid.UUID, active bool) (*UserDTO, error)
}

// CreateMemberInput carries the fields required to register a borrower.
type CreateMemberInput struct {
	Email string
	Name  string
}

// ListUsersInput carries member listing filters.
type ListUsersInput struct {
	Limit  int
	Cursor string
	Search string
}

type service struct {
	repo *Repository
}

// NewService builds a member service backed by the provided repository.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateMember(ctx context.Context, input CreateMemberInput) (*UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid email is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	if existing, err := s.repo.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if err != nil && err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email")
	}

	user, err := s.repo.Create(ctx, CreateUserDTO{Email: email, Name: name})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist member")
	}
	return FromModel(user), nil
}

func (s *service) GetUser(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) ListUsers(ctx context.Context, input ListUsersInput) (*UserList, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	rows, next, err := s.repo.List(ctx, listUsersParams{
		Limit:  input.Limit,
		Cursor: cursor,
		Search: strings.TrimSpace(input.Search),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}

	result := &UserList{Items: fromModels(rows)}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) SetUserActive(ctx context.Context, userID uuid.UUID, active bool) (*UserDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user.IsActive == active {
		return FromModel(user), nil
	}
	if err := s.repo.SetActive(ctx, userID, active); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
	}
	user.IsActive = active
	return FromModel(user), nil
}
