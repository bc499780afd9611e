package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valveaudio/backend/internal/domain/order"
	"github.com/valveaudio/backend/internal/domain/shared"
)

// GormTransferProofRepository implements order.TransferProofRepository using GORM
type GormTransferProofRepository struct {
	db *gorm.DB
}

// NewGormTransferProofRepository creates a new GormTransferProofRepository
func NewGormTransferProofRepository(db *gorm.DB) *GormTransferProofRepository {
	return &GormTransferProofRepository{db: db}
}

// FindByID finds a transfer proof with its images
func (r *GormTransferProofRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.TransferProof, error) {
	var proof order.TransferProof
	if err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&proof, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &proof, nil
}

// FindByOrder returns all proofs submitted for an order, newest first
func (r *GormTransferProofRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]order.TransferProof, error) {
	var proofs []order.TransferProof
	if err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("order_id = ?", orderID).
		Order("submitted_at DESC").
		Find(&proofs).Error; err != nil {
		return nil, err
	}
	return proofs, nil
}

// FindPendingByOrder returns the pending proof for an order, if any.
// At most one proof may be pending per order at a time.
func (r *GormTransferProofRepository) FindPendingByOrder(ctx context.Context, orderID uuid.UUID) (*order.TransferProof, error) {
	var proof order.TransferProof
	if err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("order_id = ? AND status = ?", orderID, order.ProofStatusPending).
		First(&proof).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &proof, nil
}

// Save writes the proof and its full image list in one transaction.
// A proof's images are immutable once submitted, so rows are only created.
func (r *GormTransferProofRepository) Save(ctx context.Context, proof *order.TransferProof) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Images").Save(proof).Error; err != nil {
			return err
		}

		for i := range proof.Images {
			proof.Images[i].ProofID = proof.ID
			if err := tx.Where("id = ?", proof.Images[i].ID).
				FirstOrCreate(&proof.Images[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// Ensure GormTransferProofRepository implements order.TransferProofRepository
var _ order.TransferProofRepository = (*GormTransferProofRepository)(nil)
