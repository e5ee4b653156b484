// Package auth implements the refresh-token session store: opaque
// tokens mapped to their owner and expiry, with rotation keeping at most
// one live token per user.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/novamart/novamart-commerce-service/internal/apperrors"
)

const tokenKeyPrefix = "refresh_token:"

const invalidTokenMessage = "Invalid or expired refresh token"

// tokenRecord is the stored value for one refresh token.
type tokenRecord struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionTokenStore issues, rotates and validates refresh tokens on top
// of an injected KV. Mutating operations for one user are serialized by a
// per-user lock, so a rotation's delete-all-then-insert is atomic with
// respect to other rotations for the same user.
type SessionTokenStore struct {
	kv     KV
	ttl    time.Duration
	locks  *userLocks
	logger *zap.Logger
	now    func() time.Time
}

// NewSessionTokenStore creates a token store. ttlDays is the token
// lifetime in days.
func NewSessionTokenStore(kv KV, ttlDays int, logger *zap.Logger) *SessionTokenStore {
	return &SessionTokenStore{
		kv:     kv,
		ttl:    time.Duration(ttlDays) * 24 * time.Hour,
		locks:  newUserLocks(),
		logger: logger.Named("token-store"),
		now:    time.Now,
	}
}

// Issue generates a new opaque token for the user and stores it with the
// configured TTL. Existing tokens are untouched; use Rotate to replace
// them.
func (s *SessionTokenStore) Issue(ctx context.Context, userID string) (string, error) {
	unlock := s.locks.lock(userID)
	defer unlock()
	return s.issueLocked(ctx, userID)
}

// Rotate removes every token owned by the user and issues a single new
// one. Held under the user's lock end to end: two concurrent rotations
// cannot interleave and leave two live tokens.
func (s *SessionTokenStore) Rotate(ctx context.Context, userID string) (string, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	keys, err := s.kv.Keys(ctx, tokenKeyPrefix)
	if err != nil {
		return "", err
	}

	var owned []string
	for _, key := range keys {
		record, ok, err := s.getRecord(ctx, key)
		if err != nil {
			return "", err
		}
		if ok && record.UserID == userID {
			owned = append(owned, key)
		}
	}
	if err := s.kv.Del(ctx, owned...); err != nil {
		return "", err
	}

	s.logger.Debug("Rotated refresh tokens",
		zap.String("user_id", userID),
		zap.Int("revoked", len(owned)))

	return s.issueLocked(ctx, userID)
}

// Validate resolves a token to its owning user. Absent or expired tokens
// fail with a security error; expired records are deleted lazily on this
// probe.
func (s *SessionTokenStore) Validate(ctx context.Context, token string) (string, error) {
	record, ok, err := s.getRecord(ctx, tokenKey(token))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperrors.Security(invalidTokenMessage)
	}
	if record.ExpiresAt.Before(s.now()) {
		if err := s.kv.Del(ctx, tokenKey(token)); err != nil {
			s.logger.Error("Failed to delete expired token", zap.Error(err))
		}
		return "", apperrors.Security(invalidTokenMessage)
	}
	return record.UserID, nil
}

// Revoke removes a token. Revoking an absent token is a no-op.
func (s *SessionTokenStore) Revoke(ctx context.Context, token string) error {
	return s.kv.Del(ctx, tokenKey(token))
}

// IsValidForUser reports whether the token exists, belongs to the user
// and has not expired. It never mutates the store; sign-out uses it to
// refuse revoking a token on behalf of the wrong user.
func (s *SessionTokenStore) IsValidForUser(ctx context.Context, token, userID string) (bool, error) {
	record, ok, err := s.getRecord(ctx, tokenKey(token))
	if err != nil {
		return false, err
	}
	return ok && record.UserID == userID && record.ExpiresAt.After(s.now()), nil
}

// Sweep removes every expired record and returns how many it deleted.
// Validate's lazy delete only reclaims records that get probed; the sweep
// bounds growth from tokens nobody presents again.
func (s *SessionTokenStore) Sweep(ctx context.Context) (int, error) {
	keys, err := s.kv.Keys(ctx, tokenKeyPrefix)
	if err != nil {
		return 0, err
	}

	var expired []string
	now := s.now()
	for _, key := range keys {
		record, ok, err := s.getRecord(ctx, key)
		if err != nil {
			return 0, err
		}
		if ok && record.ExpiresAt.Before(now) {
			expired = append(expired, key)
		}
	}

	if err := s.kv.Del(ctx, expired...); err != nil {
		return 0, err
	}
	if len(expired) > 0 {
		s.logger.Info("Swept expired refresh tokens", zap.Int("count", len(expired)))
	}
	return len(expired), nil
}

// StartSweeper runs Sweep at the given interval until ctx is done.
func (s *SessionTokenStore) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Sweep(ctx); err != nil {
					s.logger.Error("Token sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

func (s *SessionTokenStore) issueLocked(ctx context.Context, userID string) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}

	record := tokenRecord{
		UserID:    userID,
		ExpiresAt: s.now().Add(s.ttl),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return "", err
	}

	if err := s.kv.Set(ctx, tokenKey(token), data, s.ttl); err != nil {
		return "", err
	}

	s.logger.Debug("Issued refresh token", zap.String("user_id", userID))
	return token, nil
}

func (s *SessionTokenStore) getRecord(ctx context.Context, key string) (tokenRecord, bool, error) {
	data, ok, err := s.kv.Get(ctx, key)
	if err != nil || !ok {
		return tokenRecord{}, false, err
	}
	var record tokenRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return tokenRecord{}, false, err
	}
	return record, true, nil
}

func tokenKey(token string) string {
	return tokenKeyPrefix + token
}

// newToken returns 256 bits of cryptographic randomness, url-safe
// encoded.
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// userLocks hands out one mutex per user id. Entries are never reclaimed,
// so the map grows with the number of distinct user ids seen by this
// process: one mutex per user, small and bounded by the user base. Swap in
// a striped-lock scheme if that footprint ever matters.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *userLocks) lock(userID string) (unlock func()) {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
