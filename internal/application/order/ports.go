package order

import (
	"context"
	"time"
)

// ObjectStorage stores proof images. Implementations live in
// infrastructure/storage; uploads happen server-side after content sniffing,
// so no upload URLs are ever handed to clients.
type ObjectStorage interface {
	// Upload stores data under storageKey with the given content type
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error

	// GenerateDownloadURL returns a short-lived GET URL for the object
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)

	// DeleteObject removes the object; deleting a missing key is not an error
	DeleteObject(ctx context.Context, storageKey string) error

	// ObjectExists reports whether the object is stored
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}

// Mailer sends customer-facing notifications. All sends are best effort:
// a failed mail never fails the operation that triggered it.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
