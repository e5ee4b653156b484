package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/novamart/novamart-commerce-service/internal/apperrors"
)

func newTestStore(t *testing.T) (*SessionTokenStore, *MemoryKV) {
	t.Helper()
	kv := NewMemoryKV()
	store := NewSessionTokenStore(kv, 7, zap.NewNop())
	return store, kv
}

// advance shifts the store's clock forward.
func advance(store *SessionTokenStore, d time.Duration) {
	base := store.now()
	store.now = func() time.Time { return base.Add(d) }
}

func TestIssueAndValidate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, "u1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := store.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
}

func TestIssue_TokensAreUnique(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := store.Issue(ctx, "u1")
		require.NoError(t, err)
		require.False(t, seen[token], "duplicate token issued")
		seen[token] = true
	}
}

func TestValidate_UnknownToken(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Validate(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindSecurity))
	assert.EqualError(t, err, "Invalid or expired refresh token")
}

func TestValidate_ExpiredTokenIsLazilyDeleted(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, "u1")
	require.NoError(t, err)

	advance(store, 8*24*time.Hour)

	_, err = store.Validate(ctx, token)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindSecurity))

	// The probe deleted the record.
	_, ok, err := kv.Get(ctx, tokenKey(token))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRotate_InvalidatesAllPreviousTokens(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.Issue(ctx, "u1")
	require.NoError(t, err)
	second, err := store.Issue(ctx, "u1")
	require.NoError(t, err)

	rotated, err := store.Rotate(ctx, "u1")
	require.NoError(t, err)

	for _, old := range []string{first, second} {
		_, err := store.Validate(ctx, old)
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.KindSecurity))
	}

	userID, err := store.Validate(ctx, rotated)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
}

func TestRotate_LeavesOtherUsersAlone(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	otherToken, err := store.Issue(ctx, "u2")
	require.NoError(t, err)

	_, err = store.Rotate(ctx, "u1")
	require.NoError(t, err)

	userID, err := store.Validate(ctx, otherToken)
	require.NoError(t, err)
	assert.Equal(t, "u2", userID)
}

func TestRotate_ConcurrentRotationsLeaveOneLiveToken(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()

	_, err := store.Issue(ctx, "u1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Rotate(ctx, "u1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// However the rotations interleaved, exactly one token for the user
	// survives.
	keys, err := kv.Keys(ctx, tokenKeyPrefix)
	require.NoError(t, err)

	var live int
	for _, key := range keys {
		record, ok, err := store.getRecord(ctx, key)
		require.NoError(t, err)
		if ok && record.UserID == "u1" {
			live++
		}
	}
	assert.Equal(t, 1, live)
}

func TestRevoke_IsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, store.Revoke(ctx, token))
	require.NoError(t, store.Revoke(ctx, token))
	require.NoError(t, store.Revoke(ctx, "never-existed"))

	_, err = store.Validate(ctx, token)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindSecurity))
}

func TestIsValidForUser(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, "u1")
	require.NoError(t, err)

	valid, err := store.IsValidForUser(ctx, token, "u1")
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = store.IsValidForUser(ctx, token, "u2")
	require.NoError(t, err)
	assert.False(t, valid)

	valid, err = store.IsValidForUser(ctx, "nope", "u1")
	require.NoError(t, err)
	assert.False(t, valid)

	advance(store, 8*24*time.Hour)

	valid, err = store.IsValidForUser(ctx, token, "u1")
	require.NoError(t, err)
	assert.False(t, valid)

	// Unlike Validate, the check never mutates the store.
	_, ok, err := kv.Get(ctx, tokenKey(token))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSweep_RemovesOnlyExpiredRecords(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()

	stale, err := store.Issue(ctx, "u1")
	require.NoError(t, err)

	advance(store, 8*24*time.Hour)

	fresh, err := store.Issue(ctx, "u2")
	require.NoError(t, err)

	removed, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok, err := kv.Get(ctx, tokenKey(stale))
	require.NoError(t, err)
	assert.False(t, ok)

	userID, err := store.Validate(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, "u2", userID)
}

func TestNewToken_Entropy(t *testing.T) {
	token, err := newToken()
	require.NoError(t, err)
	// 32 random bytes, url-safe base64 without padding.
	assert.Len(t, token, 43)
}
