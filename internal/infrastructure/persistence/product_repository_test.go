package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/valveaudio/backend/internal/domain/catalog"
	"github.com/valveaudio/backend/internal/domain/shared"
)

func setupProductTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&catalog.Product{})
	require.NoError(t, err)

	return db
}

func newTestProduct(t *testing.T, name, slug string, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(name, slug, 45000000)
	require.NoError(t, err)
	p.Brand = "Audio Note"
	p.StockQuantity = stock
	p.Reservable = true
	return p
}

func TestGormProductRepository_SaveAndFind(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	t.Run("round-trips a product", func(t *testing.T) {
		p := newTestProduct(t, "300B Single-Ended Amplifier", "300b-single-ended", 5)
		require.NoError(t, repo.Save(ctx, p))

		found, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "300b-single-ended", found.Slug)
		assert.Equal(t, 5, found.StockQuantity)

		bySlug, err := repo.FindBySlug(ctx, "300b-single-ended")
		require.NoError(t, err)
		assert.Equal(t, p.ID, bySlug.ID)
	})

	t.Run("returns ErrNotFound for unknown slug", func(t *testing.T) {
		_, err := repo.FindBySlug(ctx, "no-such-amp")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("finds products by IDs", func(t *testing.T) {
		p1 := newTestProduct(t, "EL34 Integrated", "el34-integrated", 3)
		p2 := newTestProduct(t, "2A3 Stereo Amp", "2a3-stereo", 2)
		require.NoError(t, repo.Save(ctx, p1))
		require.NoError(t, repo.Save(ctx, p2))

		products, err := repo.FindByIDs(ctx, []uuid.UUID{p1.ID, p2.ID, uuid.New()})
		require.NoError(t, err)
		assert.Len(t, products, 2)

		empty, err := repo.FindByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

func TestGormProductRepository_AdjustStock(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	t.Run("deducts and restores stock", func(t *testing.T) {
		p := newTestProduct(t, "KT88 Push-Pull", "kt88-push-pull", 4)
		require.NoError(t, repo.Save(ctx, p))

		require.NoError(t, repo.AdjustStock(ctx, p.ID, -3))
		require.NoError(t, repo.AdjustStock(ctx, p.ID, 2))

		found, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, found.StockQuantity)
	})

	t.Run("refuses to drive stock negative", func(t *testing.T) {
		p := newTestProduct(t, "845 SET Monoblock", "845-set-monoblock", 1)
		require.NoError(t, repo.Save(ctx, p))

		err := repo.AdjustStock(ctx, p.ID, -2)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)

		found, findErr := repo.FindByID(ctx, p.ID)
		require.NoError(t, findErr)
		assert.Equal(t, 1, found.StockQuantity)
	})

	t.Run("returns ErrNotFound for unknown product", func(t *testing.T) {
		err := repo.AdjustStock(ctx, uuid.New(), -1)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
