package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/valveaudio/backend/internal/domain/shared"
)

// ProofStatus represents the review state of a deposit transfer proof
type ProofStatus string

const (
	ProofStatusPending  ProofStatus = "pending"
	ProofStatusApproved ProofStatus = "approved"
	ProofStatusRejected ProofStatus = "rejected"
)

// IsValid checks if the status is a valid ProofStatus
func (s ProofStatus) IsValid() bool {
	switch s {
	case ProofStatusPending, ProofStatusApproved, ProofStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of ProofStatus
func (s ProofStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s ProofStatus) CanTransitionTo(target ProofStatus) bool {
	switch s {
	case ProofStatusPending:
		return target == ProofStatusApproved || target == ProofStatusRejected
	case ProofStatusApproved:
		return false
	case ProofStatusRejected:
		// Rejection permits a fresh submission, not reuse of this record
		return false
	}
	return false
}

// ProofImage is one stored image of a transfer proof. Images form an
// explicit ordered list; position 0 is the primary image. The whole list is
// written in a single transaction with its proof record.
type ProofImage struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProofID     uuid.UUID `gorm:"type:uuid;not null;index"`
	ObjectKey   string    `gorm:"not null"`
	ContentType string    `gorm:"not null"`
	SizeBytes   int64     `gorm:"not null"`
	Position    int       `gorm:"not null"`
	CreatedAt   time.Time
}

// TableName returns the table name for GORM
func (ProofImage) TableName() string {
	return "transfer_proof_images"
}

// TransferProof is a customer-submitted bank-transfer receipt awaiting admin
// review. One proof may be pending per order at a time; a rejected proof does
// not block a new submission.
type TransferProof struct {
	shared.BaseAggregateRoot
	OrderID      uuid.UUID   `gorm:"type:uuid;not null;index"`
	Status       ProofStatus `gorm:"not null;index"`
	Note         string
	Images       []ProofImage `gorm:"foreignKey:ProofID"`
	ReviewerID   *uuid.UUID   `gorm:"type:uuid"`
	ReviewerNote string
	SubmittedAt  time.Time `gorm:"not null"`
	ReviewedAt   *time.Time
}

// NewTransferProof creates a pending proof with its ordered image list
func NewTransferProof(orderID uuid.UUID, note string, images []ProofImage) (*TransferProof, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	if len(images) == 0 {
		return nil, shared.NewDomainError("INVALID_PROOF", "At least one image is required")
	}

	proof := &TransferProof{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderID:           orderID,
		Status:            ProofStatusPending,
		Note:              note,
		SubmittedAt:       time.Now(),
	}
	for i := range images {
		images[i].ProofID = proof.ID
		images[i].Position = i
	}
	proof.Images = images

	proof.AddDomainEvent(NewProofSubmittedEvent(proof))

	return proof, nil
}

// PrimaryImage returns the first image of the ordered list
func (p *TransferProof) PrimaryImage() *ProofImage {
	if len(p.Images) == 0 {
		return nil
	}
	return &p.Images[0]
}

// Approve accepts the proof after admin review
func (p *TransferProof) Approve(reviewerID uuid.UUID, note string) error {
	if !p.Status.CanTransitionTo(ProofStatusApproved) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot approve proof in %s status", p.Status))
	}

	now := time.Now()
	p.Status = ProofStatusApproved
	p.ReviewerID = &reviewerID
	p.ReviewerNote = note
	p.ReviewedAt = &now
	p.Touch()

	p.AddDomainEvent(NewProofReviewedEvent(p, true))

	return nil
}

// Reject declines the proof; the customer may submit a new one
func (p *TransferProof) Reject(reviewerID uuid.UUID, note string) error {
	if !p.Status.CanTransitionTo(ProofStatusRejected) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reject proof in %s status", p.Status))
	}
	if note == "" {
		return shared.NewDomainError("INVALID_REASON", "A rejection note is required")
	}

	now := time.Now()
	p.Status = ProofStatusRejected
	p.ReviewerID = &reviewerID
	p.ReviewerNote = note
	p.ReviewedAt = &now
	p.Touch()

	p.AddDomainEvent(NewProofReviewedEvent(p, false))

	return nil
}
