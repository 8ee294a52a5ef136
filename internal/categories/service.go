package categories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/pos-catalog-backend/pkg/db"
	"github.com/angelmondragon/pos-catalog-backend/pkg/db/models"
	"github.com/angelmondragon/pos-catalog-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-catalog-backend/pkg/errors"
	"github.com/google/uuid"
)

// Service is the category registry. Inactive categories are invisible to
// every operation except the name uniqueness check.
type Service interface {
	Create(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error)
	ListActive(ctx context.Context) ([]CategoryDTO, error)
	GetActiveByID(ctx context.Context, id uuid.UUID) (*CategoryDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type CreateCategoryInput struct {
	Name        string
	Description *string
}

// UpdateCategoryInput carries only the fields the caller sent; nil means
// keep the stored value.
type UpdateCategoryInput struct {
	Name        *string
	Description *string
}

type service struct {
	repo *Repository
	now  func() time.Time
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) Create(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required").
			WithDetails(map[string]string{"name": "required"})
	}
	if err := ensureNameFree(ctx, s.repo, name, nil); err != nil {
		return nil, err
	}

	now := s.now()
	category := &models.Category{
		Name:        name,
		Description: input.Description,
		Status:      enums.CategoryStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, duplicateName(name)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert category")
	}
	return NewCategoryDTO(category), nil
}

func (s *service) ListActive(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewCategoryDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) GetActiveByID(ctx context.Context, id uuid.UUID) (*CategoryDTO, error) {
	category, err := loadActive(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return NewCategoryDTO(category), nil
}

// Update checks the category is live, checks the new name is free, and
// writes within one transaction.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error) {
	fields := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank").
				WithDetails(map[string]string{"name": "required"})
		}
		fields["name"] = name
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}

	var updated *models.Category
	err := s.repo.InTx(ctx, func(tx *Repository) error {
		category, err := loadActive(ctx, tx, id)
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			updated = category
			return nil
		}
		if name, ok := fields["name"].(string); ok {
			if err := ensureNameFree(ctx, tx, name, &id); err != nil {
				return err
			}
		}
		fields["updated_at"] = s.now()
		matched, err := tx.UpdateFields(ctx, id, fields)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return duplicateName(fields["name"].(string))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update category")
		}
		if !matched {
			return notFound(id)
		}
		updated, err = loadActive(ctx, tx, id)
		return err
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update category")
	}
	return NewCategoryDTO(updated), nil
}

func (s *service) SoftDelete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.SoftDelete(ctx, id, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete category")
	}
	if !deleted {
		return notFound(id)
	}
	return nil
}

// Exists reports whether id names an active category.
func (s *service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, err := loadActive(ctx, s.repo, id); err != nil {
		if pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func loadActive(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Category, error) {
	category, err := repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, notFound(id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load category")
	}
	if category.Status != enums.CategoryStatusActive {
		return nil, notFound(id)
	}
	return category, nil
}

func ensureNameFree(ctx context.Context, repo *Repository, name string, exclude *uuid.UUID) error {
	taken, err := repo.NameTaken(ctx, name, exclude)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check category name")
	}
	if taken {
		return duplicateName(name)
	}
	return nil
}

func notFound(id uuid.UUID) error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "category %s not found", id)
}

func duplicateName(name string) error {
	return pkgerrors.Newf(pkgerrors.CodeConflict, "category %q already exists", name).
		WithDetails(map[string]string{"name": "duplicate"})
}
