package order

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/valveaudio/backend/internal/domain/shared"
)

// Repository defines persistence for orders
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByCode(ctx context.Context, code string) (*Order, error)
	FindByStripeSession(ctx context.Context, sessionID string) (*Order, error)
	FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*Order, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, int64, error)
	// FindDepositOverdue returns deposit reservations still awaiting a
	// deposit whose due date is before now.
	FindDepositOverdue(ctx context.Context, now time.Time) ([]Order, error)
	Save(ctx context.Context, o *Order) error
	// SaveWithLock persists using the aggregate version as an optimistic
	// lock; returns shared.ErrConcurrencyConflict on a lost race.
	SaveWithLock(ctx context.Context, o *Order) error
	// TransitionStatus performs a conditional status write: the update
	// applies only if the stored status still equals from, and the given
	// history row is inserted in the same transaction. Returns false when
	// another writer already moved the order.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status, paymentStatus *PaymentStatus, history *StatusHistory) (bool, error)
	// AppendHistory inserts a single audit-trail row without touching the
	// order row, so it can never clobber a concurrent transition.
	AppendHistory(ctx context.Context, history *StatusHistory) error
	// GenerateCode produces the next human-readable order code
	GenerateCode(ctx context.Context) (string, error)
}

// TransferProofRepository defines persistence for deposit transfer proofs
type TransferProofRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*TransferProof, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]TransferProof, error)
	FindPendingByOrder(ctx context.Context, orderID uuid.UUID) (*TransferProof, error)
	// Save writes the proof and its full image list in one transaction
	Save(ctx context.Context, proof *TransferProof) error
}

// PaymentTransactionRepository defines persistence for gateway events.
// Record must fail with shared.ErrAlreadyExists when the gateway event ID
// was seen before; callers rely on that for idempotency.
type PaymentTransactionRepository interface {
	FindByEventID(ctx context.Context, gatewayEventID string) (*PaymentTransaction, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]PaymentTransaction, error)
	Record(ctx context.Context, tx *PaymentTransaction) error
}
