package product

import (
	"context"
	"math"

	pkgerrors "github.com/angelmondragon/pos-catalog-backend/pkg/errors"
	"github.com/angelmondragon/pos-catalog-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const stockUpdatedMessage = "stock updated"

// AdjustStock applies a signed quantity delta atomically. It fails with a
// validation error when the result would be negative or exceed the stock
// ceiling, not found when the
// product does not exist, and a state conflict when the product is
// soft-deleted. Quantity is unchanged on every failure.
func (s *service) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*StockAdjustmentDTO, error) {
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a non-zero integer").
			WithDetails(map[string]string{"quantity": "non-zero"})
	}
	if delta < math.MinInt32 || delta > math.MaxInt32 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity is out of range").
			WithDetails(map[string]string{"quantity": "must be between -2147483648 and 2147483647"})
	}

	var result StockAdjustmentDTO
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		newQty, applied, err := txRepo.AdjustQuantity(ctx, id, delta, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: adjust stock")
		}
		if !applied {
			return s.explainRejectedAdjustment(ctx, txRepo, id, delta)
		}

		result = StockAdjustmentDTO{
			Message:          stockUpdatedMessage,
			PreviousQuantity: newQty - delta,
			NewQuantity:      newQty,
		}
		return nil
	})
	if err != nil {
		s.metrics.ObserveAdjustment(stockOutcome(err), delta)
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
	}

	s.metrics.ObserveAdjustment(metrics.StockApplied, delta)
	return &result, nil
}

func (s *service) explainRejectedAdjustment(ctx context.Context, repo *Repository, id uuid.UUID, delta int) error {
	product, err := repo.FindByID(ctx, id)
	if err != nil {
		return s.lookupError(err, id)
	}
	if product.IsDeleted() {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "product %s is deleted; stock cannot change", id).
			WithDetails(map[string]string{"status": product.Status.String()})
	}
	if product.Quantity+delta > maxCount {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "stock limit exceeded: have %d, adjustment %d", product.Quantity, delta).
			WithDetails(map[string]int{"current_quantity": product.Quantity, "requested_delta": delta, "max_quantity": maxCount})
	}
	return pkgerrors.Newf(pkgerrors.CodeValidation, "insufficient stock: have %d, adjustment %d", product.Quantity, delta).
		WithDetails(map[string]int{"current_quantity": product.Quantity, "requested_delta": delta})
}

func stockOutcome(err error) string {
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeValidation:
		return metrics.StockInsufficient
	case pkgerrors.CodeNotFound:
		return metrics.StockNotFound
	case pkgerrors.CodeStateConflict:
		return metrics.StockDeleted
	default:
		return metrics.StockError
	}
}
