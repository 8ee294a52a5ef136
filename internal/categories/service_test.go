package categories

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/pos-catalog-backend/pkg/db/models"
	"github.com/angelmondragon/pos-catalog-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-catalog-backend/pkg/errors"
	"github.com/google/uuid"
)

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if got := pkgerrors.CodeOf(err); got != code {
		t.Fatalf("expected %s, got %s (%v)", code, got, err)
	}
}

func TestNewServiceRequiresRepository(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error for nil repository")
	}
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateCategoryInput{Name: "Snacks"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != enums.CategoryStatusActive.String() {
		t.Fatalf("expected active status, got %s", created.Status)
	}
	if created.DeletedAt != nil {
		t.Fatalf("new category should not carry deleted_at")
	}

	_, err = svc.Create(ctx, CreateCategoryInput{Name: "Snacks"})
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestCreateNameCheckIsCaseSensitiveAndSpansInactive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	drinks, err := svc.Create(ctx, CreateCategoryInput{Name: "Drinks"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, CreateCategoryInput{Name: "drinks"}); err != nil {
		t.Fatalf("different case should be accepted: %v", err)
	}

	if err := svc.SoftDelete(ctx, drinks.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = svc.Create(ctx, CreateCategoryInput{Name: "Drinks"})
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestCreateRequiresName(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), CreateCategoryInput{Name: "   "})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestListActiveOrdersByInsertionAndHidesDeleted(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"Bakery", "Dairy", "Frozen"} {
		row := &models.Category{Name: name, Status: enums.CategoryStatusActive, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := conn.Create(row).Error; err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
		if name == "Dairy" {
			if err := svc.SoftDelete(ctx, row.ID); err != nil {
				t.Fatalf("delete: %v", err)
			}
		}
	}

	list, err := svc.ListActive(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Bakery" || list[1].Name != "Frozen" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestGetActiveByIDHidesInactive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateCategoryInput{Name: "Produce", Description: strPtr("fruit and veg")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := svc.GetActiveByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Description == nil || *got.Description != "fruit and veg" {
		t.Fatalf("unexpected description %v", got.Description)
	}

	if err := svc.SoftDelete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = svc.GetActiveByID(ctx, created.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.GetActiveByID(ctx, uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateAppliesOnlyPresentFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateCategoryInput{Name: "Cleaning", Description: strPtr("soap")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(ctx, created.ID, UpdateCategoryInput{Name: strPtr("Household")})
	if err != nil {
		t.Fatalf("update name: %v", err)
	}
	if updated.Name != "Household" || updated.Description == nil || *updated.Description != "soap" {
		t.Fatalf("unexpected update result %+v", updated)
	}

	// An empty description is a real value, not an omission.
	updated, err = svc.Update(ctx, created.ID, UpdateCategoryInput{Description: strPtr("")})
	if err != nil {
		t.Fatalf("update description: %v", err)
	}
	if updated.Name != "Household" || updated.Description == nil || *updated.Description != "" {
		t.Fatalf("expected cleared description, got %+v", updated)
	}
}

func TestUpdateRejectsMissingDeletedAndDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateCategoryInput{Name: "A"})
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	b, err := svc.Create(ctx, CreateCategoryInput{Name: "B"})
	if err != nil {
		t.Fatalf("create b: %v", err)
	}

	_, err = svc.Update(ctx, a.ID, UpdateCategoryInput{Name: strPtr("B")})
	requireCode(t, err, pkgerrors.CodeConflict)

	_, err = svc.Update(ctx, a.ID, UpdateCategoryInput{Name: strPtr(" ")})
	requireCode(t, err, pkgerrors.CodeValidation)

	// Renaming to its own name is not a conflict.
	if _, err := svc.Update(ctx, a.ID, UpdateCategoryInput{Name: strPtr("A")}); err != nil {
		t.Fatalf("self rename: %v", err)
	}

	if err := svc.SoftDelete(ctx, b.ID); err != nil {
		t.Fatalf("delete b: %v", err)
	}
	_, err = svc.Update(ctx, b.ID, UpdateCategoryInput{Description: strPtr("x")})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.Update(ctx, uuid.New(), UpdateCategoryInput{})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestSoftDeleteSecondCallReportsNotFound(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateCategoryInput{Name: "Seasonal"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.SoftDelete(ctx, created.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	requireCode(t, svc.SoftDelete(ctx, created.ID), pkgerrors.CodeNotFound)

	var row models.Category
	if err := conn.First(&row, "id = ?", created.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if row.Status != enums.CategoryStatusInactive || row.DeletedAt == nil {
		t.Fatalf("expected inactive with deleted_at, got %+v", row)
	}
}

func TestExistsOnlyForActiveCategories(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateCategoryInput{Name: "Dairy"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ok, err := svc.Exists(ctx, created.ID); err != nil || !ok {
		t.Fatalf("expected active category to exist, got %v %v", ok, err)
	}
	if ok, err := svc.Exists(ctx, uuid.New()); err != nil || ok {
		t.Fatalf("expected unknown id to be absent, got %v %v", ok, err)
	}

	if err := svc.SoftDelete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, err := svc.Exists(ctx, created.ID); err != nil || ok {
		t.Fatalf("expected deleted category to be absent, got %v %v", ok, err)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	drinks, err := svc.Create(ctx, CreateCategoryInput{Name: "Drinks"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = svc.repo.InTx(ctx, func(tx *Repository) error {
		if _, err := tx.UpdateFields(ctx, drinks.ID, map[string]any{"name": "Beverages"}); err != nil {
			return err
		}
		return notFound(uuid.New())
	})
	requireCode(t, err, pkgerrors.CodeNotFound)

	var stored models.Category
	if err := conn.First(&stored, "id = ?", drinks.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Name != "Drinks" {
		t.Fatalf("expected rollback to keep Drinks, got %q", stored.Name)
	}
}

func TestUpdateReturnsWrittenValues(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	drinks, err := svc.Create(ctx, CreateCategoryInput{Name: "Drinks"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(ctx, drinks.ID, UpdateCategoryInput{Name: strPtr("  Beverages "), Description: strPtr("cold")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Beverages" || updated.Description == nil || *updated.Description != "cold" {
		t.Fatalf("unexpected update result %+v", updated)
	}

	same, err := svc.Update(ctx, drinks.ID, UpdateCategoryInput{})
	if err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if same.Name != "Beverages" {
		t.Fatalf("empty update changed name to %q", same.Name)
	}
}
