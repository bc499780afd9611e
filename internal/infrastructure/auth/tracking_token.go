package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TrackingTokenStore issues and validates the opaque tokens mailed to guests
// for passwordless order access. Tokens are bound to exactly one order and
// expire after a fixed TTL. Issuing a new token does not revoke earlier ones,
// so a customer can open the link from more than one device.
type TrackingTokenStore interface {
	// Issue creates a new token for the order and returns its secret
	Issue(ctx context.Context, orderID uuid.UUID) (string, error)

	// Validate reports whether the token is live and bound to the given
	// order. A wrong secret, an expired token, and a token for a different
	// order all return false without distinguishing the cases.
	Validate(ctx context.Context, orderID uuid.UUID, token string) (bool, error)

	// Close releases store resources
	Close() error
}

// tokenSecretBytes gives 256 bits of entropy per token
const tokenSecretBytes = 32

// newTokenSecret returns a URL-safe random secret
func newTokenSecret() (string, error) {
	buf := make([]byte, tokenSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// InMemoryTrackingTokenStore keeps tokens in process memory. Losing the map
// on restart only forces re-issuance; order data itself is unaffected.
type InMemoryTrackingTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]trackingTokenEntry
	ttl    time.Duration
	// cleanup runs opportunistically on writes; validation never depends
	// on it having run
	opsSinceCleanup int
}

type trackingTokenEntry struct {
	orderID   uuid.UUID
	expiresAt time.Time
}

// NewInMemoryTrackingTokenStore creates an in-memory store with the given TTL
func NewInMemoryTrackingTokenStore(ttl time.Duration) *InMemoryTrackingTokenStore {
	return &InMemoryTrackingTokenStore{
		tokens: make(map[string]trackingTokenEntry),
		ttl:    ttl,
	}
}

// Issue creates a new token for the order
func (s *InMemoryTrackingTokenStore) Issue(_ context.Context, orderID uuid.UUID) (string, error) {
	if orderID == uuid.Nil {
		return "", fmt.Errorf("order ID cannot be empty")
	}

	secret, err := newTokenSecret()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[secret] = trackingTokenEntry{
		orderID:   orderID,
		expiresAt: time.Now().Add(s.ttl),
	}

	s.opsSinceCleanup++
	if s.opsSinceCleanup >= 100 {
		s.removeExpiredLocked()
		s.opsSinceCleanup = 0
	}

	return secret, nil
}

// Validate checks token liveness and order binding
func (s *InMemoryTrackingTokenStore) Validate(_ context.Context, orderID uuid.UUID, token string) (bool, error) {
	if token == "" || orderID == uuid.Nil {
		return false, nil
	}

	s.mu.RLock()
	entry, exists := s.tokens[token]
	s.mu.RUnlock()

	if !exists {
		return false, nil
	}
	if time.Now().After(entry.expiresAt) {
		return false, nil
	}
	// A leaked or colliding secret must never open a different order
	return entry.orderID == orderID, nil
}

// removeExpiredLocked drops expired entries; caller holds the write lock
func (s *InMemoryTrackingTokenStore) removeExpiredLocked() {
	now := time.Now()
	for token, entry := range s.tokens {
		if now.After(entry.expiresAt) {
			delete(s.tokens, token)
		}
	}
}

// Len returns the number of live and not-yet-collected entries
func (s *InMemoryTrackingTokenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// Close implements TrackingTokenStore
func (s *InMemoryTrackingTokenStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]trackingTokenEntry)
	return nil
}

var _ TrackingTokenStore = (*InMemoryTrackingTokenStore)(nil)

// RedisTrackingTokenStore shares tokens across processes through Redis;
// expiry is delegated to key TTLs.
type RedisTrackingTokenStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisTrackingTokenStore creates a token store on an existing Redis client
func NewRedisTrackingTokenStore(client *redis.Client, ttl time.Duration) *RedisTrackingTokenStore {
	return &RedisTrackingTokenStore{
		client:    client,
		keyPrefix: "tracking:token:",
		ttl:       ttl,
	}
}

func (s *RedisTrackingTokenStore) key(token string) string {
	return s.keyPrefix + token
}

// Issue creates a new token for the order
func (s *RedisTrackingTokenStore) Issue(ctx context.Context, orderID uuid.UUID) (string, error) {
	if orderID == uuid.Nil {
		return "", fmt.Errorf("order ID cannot be empty")
	}

	secret, err := newTokenSecret()
	if err != nil {
		return "", err
	}

	if err := s.client.Set(ctx, s.key(secret), orderID.String(), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store tracking token: %w", err)
	}

	return secret, nil
}

// Validate checks token liveness and order binding
func (s *RedisTrackingTokenStore) Validate(ctx context.Context, orderID uuid.UUID, token string) (bool, error) {
	if token == "" || orderID == uuid.Nil {
		return false, nil
	}

	stored, err := s.client.Get(ctx, s.key(token)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up tracking token: %w", err)
	}

	return stored == orderID.String(), nil
}

// Close closes the Redis client
func (s *RedisTrackingTokenStore) Close() error {
	return s.client.Close()
}

var _ TrackingTokenStore = (*RedisTrackingTokenStore)(nil)
