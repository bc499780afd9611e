package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/valveaudio/backend/internal/domain/order"
	"github.com/valveaudio/backend/internal/domain/shared"
	"github.com/valveaudio/backend/internal/infrastructure/auth"
)

const (
	// maxProofFiles bounds how many images one proof may carry
	maxProofFiles = 3
	// maxProofFileSize bounds each image at 5 MB
	maxProofFileSize = 5 << 20
	// proofURLTTL is how long admin view links stay valid
	proofURLTTL = 15 * time.Minute
)

// allowedProofTypes are the accepted image content types. The declared type
// and the sniffed type must both appear here and agree with each other.
var allowedProofTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ProofUpload is one uploaded proof image, already read into memory by the
// handler (the size cap makes buffering safe)
type ProofUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ProofService handles deposit transfer proof submission and admin review
type ProofService struct {
	orders  order.Repository
	proofs  order.TransferProofRepository
	storage ObjectStorage
	tokens  auth.TrackingTokenStore
	mailer  Mailer
	logger  *zap.Logger
}

// NewProofService creates a proof service
func NewProofService(orders order.Repository, proofs order.TransferProofRepository, storage ObjectStorage, tokens auth.TrackingTokenStore, mailer Mailer, logger *zap.Logger) *ProofService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProofService{
		orders:  orders,
		proofs:  proofs,
		storage: storage,
		tokens:  tokens,
		mailer:  mailer,
		logger:  logger,
	}
}

// Submit validates and stores a transfer proof for a reservation awaiting
// its deposit. Objects are written one by one; if any write fails, every
// object already stored for this submission is deleted so no orphans remain.
func (s *ProofService) Submit(ctx context.Context, code, token string, uploads []ProofUpload, note string) (*ProofResponse, error) {
	code = normalizeCode(code)
	if code == "" || token == "" {
		return nil, shared.ErrNotFound
	}

	o, err := s.orders.FindByCode(ctx, code)
	if err != nil {
		return nil, shared.ErrNotFound
	}
	ok, err := s.tokens.Validate(ctx, o.ID, token)
	if err != nil || !ok {
		return nil, shared.ErrNotFound
	}

	if !o.AcceptsTransferProof() {
		return nil, shared.NewDomainError("INVALID_STATE",
			"This order is not awaiting a deposit transfer")
	}

	if err := validateUploads(uploads); err != nil {
		return nil, err
	}

	// One proof may be under review at a time; a rejection unblocks resubmission
	if _, err := s.proofs.FindPendingByOrder(ctx, o.ID); err == nil {
		return nil, shared.NewDomainError("PROOF_PENDING",
			"A transfer proof is already awaiting review for this order")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to check pending proofs for %s: %w", code, err)
	}

	images, storedKeys, err := s.storeUploads(ctx, o.ID, uploads)
	if err != nil {
		s.rollbackUploads(ctx, storedKeys)
		return nil, err
	}

	proof, err := order.NewTransferProof(o.ID, note, images)
	if err != nil {
		s.rollbackUploads(ctx, storedKeys)
		return nil, err
	}

	if err := s.proofs.Save(ctx, proof); err != nil {
		s.rollbackUploads(ctx, storedKeys)
		return nil, fmt.Errorf("failed to save transfer proof for %s: %w", code, err)
	}

	s.logger.Info("Transfer proof submitted",
		zap.String("code", code),
		zap.Int("images", len(images)))

	return ToProofResponse(proof), nil
}

// Review applies the admin decision to a pending proof. Approval marks the
// order's deposit received through a guarded transition, so a reservation
// that expired between load and decision stays expired.
func (s *ProofService) Review(ctx context.Context, proofID uuid.UUID, req ReviewProofRequest, reviewerID uuid.UUID) (*ProofResponse, error) {
	proof, err := s.proofs.FindByID(ctx, proofID)
	if err != nil {
		return nil, err
	}

	o, err := s.orders.FindByID(ctx, proof.OrderID)
	if err != nil {
		return nil, err
	}

	if !req.Approve {
		if err := proof.Reject(reviewerID, req.Note); err != nil {
			return nil, err
		}
		if err := s.proofs.Save(ctx, proof); err != nil {
			return nil, fmt.Errorf("failed to save proof review: %w", err)
		}

		// History-only insert; the order row stays untouched so a transition
		// racing this review is never clobbered.
		cur := o.Status
		if err := s.orders.AppendHistory(ctx, order.NewStatusHistory(o.ID, &cur, cur,
			"Transfer proof rejected: "+req.Note, &reviewerID)); err != nil {
			s.logger.Error("Failed to record proof rejection on order",
				zap.String("code", o.Code),
				zap.Error(err))
		}

		s.sendReviewMail(ctx, o, false, req.Note)
		return ToProofResponse(proof), nil
	}

	if err := proof.Approve(reviewerID, req.Note); err != nil {
		return nil, err
	}
	if o.PaymentStatus != order.PaymentStatusDepositPending {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Order payment is %s, not awaiting a deposit", o.PaymentStatus))
	}

	from := o.Status
	deposited := order.PaymentStatusDeposited
	hist := order.NewStatusHistory(o.ID, &from, order.StatusDeposited,
		"Deposit received, transfer proof approved", &reviewerID)
	won, err := s.orders.TransitionStatus(ctx, o.ID, from, order.StatusDeposited, &deposited, hist)
	if err != nil {
		return nil, fmt.Errorf("failed to mark order %s deposited: %w", o.Code, err)
	}
	if !won {
		return nil, shared.ErrConcurrencyConflict
	}

	if err := s.proofs.Save(ctx, proof); err != nil {
		// The order already advanced; surface the proof save failure loudly
		s.logger.Error("Order deposited but proof approval not saved",
			zap.String("code", o.Code),
			zap.String("proof_id", proof.ID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to save proof review: %w", err)
	}

	// Record the capture time on a fresh copy under the version lock so the
	// guarded write above is never overwritten with stale fields
	if fresh, ferr := s.orders.FindByID(ctx, o.ID); ferr == nil {
		now := time.Now()
		fresh.DepositReceivedAt = &now
		if serr := s.orders.SaveWithLock(ctx, fresh); serr != nil {
			s.logger.Warn("Failed to record deposit received time",
				zap.String("code", o.Code),
				zap.Error(serr))
		}
	}

	s.logger.Info("Transfer proof approved",
		zap.String("code", o.Code),
		zap.String("reviewer_id", reviewerID.String()))

	s.sendReviewMail(ctx, o, true, req.Note)
	return ToProofResponse(proof), nil
}

// ListForOrder returns an order's proofs with short-lived image view URLs
func (s *ProofService) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]ProofResponse, error) {
	proofs, err := s.proofs.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	out := make([]ProofResponse, 0, len(proofs))
	for i := range proofs {
		resp := ToProofResponse(&proofs[i])
		for j := range resp.Images {
			key := proofs[i].Images[j].ObjectKey
			url, expires, err := s.storage.GenerateDownloadURL(ctx, key, proofURLTTL)
			if err != nil {
				s.logger.Warn("Failed to presign proof image",
					zap.String("object_key", key),
					zap.Error(err))
				continue
			}
			resp.Images[j].URL = url
			resp.Images[j].URLExpires = expires
		}
		out = append(out, *resp)
	}
	return out, nil
}

// validateUploads enforces the count, size, and content-type rules. The
// declared type must be an allowed image type AND match what the bytes
// actually look like; a renamed PDF fails here regardless of its header.
func validateUploads(uploads []ProofUpload) error {
	if len(uploads) == 0 {
		return shared.NewDomainError("INVALID_PROOF", "At least one image is required")
	}
	if len(uploads) > maxProofFiles {
		return shared.NewDomainError("TOO_MANY_FILES",
			fmt.Sprintf("At most %d images are allowed per proof", maxProofFiles))
	}

	for i := range uploads {
		u := &uploads[i]
		if len(u.Data) == 0 {
			return shared.NewDomainError("INVALID_PROOF", "Empty file uploaded")
		}
		if len(u.Data) > maxProofFileSize {
			return shared.ErrPayloadTooLarge
		}
		if _, ok := allowedProofTypes[u.ContentType]; !ok {
			return shared.NewDomainError("UNSUPPORTED_MEDIA_TYPE",
				"Only JPEG, PNG, and WebP images are accepted")
		}
		if sniffed := http.DetectContentType(u.Data); sniffed != u.ContentType {
			return shared.NewDomainError("UNSUPPORTED_MEDIA_TYPE",
				"File content does not match its declared type")
		}
	}
	return nil
}

// storeUploads writes every upload to object storage and returns the image
// rows plus the keys written so far (for rollback on failure)
func (s *ProofService) storeUploads(ctx context.Context, orderID uuid.UUID, uploads []ProofUpload) ([]order.ProofImage, []string, error) {
	images := make([]order.ProofImage, 0, len(uploads))
	stored := make([]string, 0, len(uploads))

	for i := range uploads {
		u := &uploads[i]
		key := fmt.Sprintf("proofs/%s/%s%s", orderID, uuid.New(), allowedProofTypes[u.ContentType])

		if err := s.storage.Upload(ctx, key, u.Data, u.ContentType); err != nil {
			return nil, stored, fmt.Errorf("failed to store proof image: %w", err)
		}
		stored = append(stored, key)

		images = append(images, order.ProofImage{
			ID:          uuid.New(),
			ObjectKey:   key,
			ContentType: u.ContentType,
			SizeBytes:   int64(len(u.Data)),
			CreatedAt:   time.Now(),
		})
	}
	return images, stored, nil
}

// rollbackUploads deletes objects stored by a failed submission, best effort
func (s *ProofService) rollbackUploads(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.storage.DeleteObject(ctx, key); err != nil {
			s.logger.Error("Failed to delete orphaned proof image",
				zap.String("object_key", key),
				zap.Error(err))
		}
	}
}

// sendReviewMail notifies the customer of the review outcome, best effort
func (s *ProofService) sendReviewMail(ctx context.Context, o *order.Order, approved bool, note string) {
	if s.mailer == nil || o.Contact.Email == "" {
		return
	}

	var subject, body string
	if approved {
		subject = "Deposit received for order " + o.Code
		body = fmt.Sprintf("We confirmed your deposit for order %s. The remaining %d VND is due on delivery.",
			o.Code, o.RemainingAmount)
	} else {
		subject = "Transfer proof for order " + o.Code + " needs attention"
		body = fmt.Sprintf("Your transfer proof for order %s was not accepted: %s\nPlease upload a new receipt.",
			o.Code, note)
	}

	if err := s.mailer.Send(ctx, o.Contact.Email, subject, body); err != nil {
		s.logger.Warn("Failed to send proof review mail",
			zap.String("code", o.Code),
			zap.Error(err))
	}
}
