package service

import (
	"context"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	apikeydomain "github.com/smallbiznis/kado/internal/apikey/domain"
	apikeyrepo "github.com/smallbiznis/kado/internal/apikey/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newAPIKeyService(t *testing.T, dsn string) (apikeydomain.Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Exec(`CREATE TABLE api_keys (
		id INTEGER PRIMARY KEY,
		key_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		scopes TEXT,
		key_hash TEXT NOT NULL,
		is_active BOOLEAN NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		last_used_at DATETIME,
		expires_at DATETIME,
		rotated_from_key_id TEXT
	)`).Error)

	node, err := snowflake.NewNode(6)
	require.NoError(t, err)
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  apikeyrepo.Provide(),
	})
	return svc, db
}

func TestKeyIDTravelsInsidePlainKey(t *testing.T) {
	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	keyID := newKeyID(node.Generate())
	assert.True(t, strings.HasPrefix(keyID, "key_"))

	plain, hash, err := generateAPIKey(keyID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(plain, apiKeyPrefix))
	assert.Equal(t, apikeydomain.HashAPIKey(plain), hash)

	recovered, ok := keyIDFromPlain(plain)
	require.True(t, ok)
	assert.Equal(t, keyID, recovered)

	for _, bad := range []string{"", "kado_live_key_", "sk_live_abc_def", "kado_live_key_nodivider"} {
		_, ok := keyIDFromPlain(bad)
		assert.False(t, ok, bad)
	}
}

func TestCreateVerifyRevoke(t *testing.T) {
	svc, _ := newAPIKeyService(t, "file:apikeysvc_verify?mode=memory&cache=shared")
	ctx := context.Background()

	_, err := svc.Create(ctx, apikeydomain.CreateRequest{Name: "  "})
	assert.ErrorIs(t, err, apikeydomain.ErrInvalidName)

	secret, err := svc.Create(ctx, apikeydomain.CreateRequest{Name: "gateway"})
	require.NoError(t, err)

	key, err := svc.Verify(ctx, secret.APIKey)
	require.NoError(t, err)
	assert.Equal(t, secret.KeyID, key.KeyID)
	assert.Equal(t, []string{apikeydomain.ScopeGateway}, []string(key.Scopes))
	assert.NotNil(t, key.LastUsedAt)

	_, err = svc.Verify(ctx, secret.APIKey+"tampered")
	assert.ErrorIs(t, err, apikeydomain.ErrInvalidKey)
	_, err = svc.Verify(ctx, "not-a-key")
	assert.ErrorIs(t, err, apikeydomain.ErrInvalidKey)

	require.NoError(t, svc.Revoke(ctx, secret.KeyID))
	_, err = svc.Verify(ctx, secret.APIKey)
	assert.ErrorIs(t, err, apikeydomain.ErrInvalidKey)

	assert.ErrorIs(t, svc.Revoke(ctx, "key_missing"), apikeydomain.ErrNotFound)
}

func TestRotateKeepsOldKeyInGrace(t *testing.T) {
	svc, _ := newAPIKeyService(t, "file:apikeysvc_rotate?mode=memory&cache=shared")
	ctx := context.Background()

	secret, err := svc.Create(ctx, apikeydomain.CreateRequest{
		Name:   "admin",
		Scopes: []string{apikeydomain.ScopeAdmin},
	})
	require.NoError(t, err)

	rotated, err := svc.Rotate(ctx, secret.KeyID)
	require.NoError(t, err)
	assert.NotEqual(t, secret.KeyID, rotated.KeyID)

	// The old key keeps working through the grace window; the new one
	// carries over the scopes and the lineage.
	_, err = svc.Verify(ctx, secret.APIKey)
	require.NoError(t, err)
	next, err := svc.Verify(ctx, rotated.APIKey)
	require.NoError(t, err)
	assert.Equal(t, []string{apikeydomain.ScopeAdmin}, []string(next.Scopes))
	require.NotNil(t, next.RotatedFromKeyID)
	assert.Equal(t, secret.KeyID, *next.RotatedFromKeyID)

	// A rotated-out key cannot be rotated again.
	require.NoError(t, svc.Revoke(ctx, secret.KeyID))
	_, err = svc.Rotate(ctx, secret.KeyID)
	assert.ErrorIs(t, err, apikeydomain.ErrNotFound)

	keys, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}
