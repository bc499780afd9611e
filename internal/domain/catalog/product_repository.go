package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/valveaudio/backend/internal/domain/shared"
)

// ProductRepository defines persistence for catalog products
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindBySlug(ctx context.Context, slug string) (*Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, int64, error)
	Save(ctx context.Context, product *Product) error
	// AdjustStock atomically adds delta to the product's stock quantity.
	// A negative delta that would drive stock below zero must fail with
	// shared.ErrInsufficientStock and leave the row unchanged.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) error
}
