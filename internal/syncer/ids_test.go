package syncer

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"valetcore/internal/database"
	"valetcore/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.New(os.Stdout)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMintShortID(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC)

	id := MintShortID(now)
	assert.True(t, strings.HasPrefix(id, models.ShortIDPrefix+"-20240115103045-"))

	// two ids in the same second differ by serial
	other := MintShortID(now)
	assert.NotEqual(t, id, other)
}

func TestNormalizeDeterministic(t *testing.T) {
	store := setupStore(t)
	norm := NewNormalizer(store)
	ctx := context.Background()

	first, err := norm.Normalize(ctx, "VLT-20240115103045-001")
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err)

	second, err := norm.Normalize(ctx, "VLT-20240115103045-001")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := norm.Normalize(ctx, "VLT-20240115103045-002")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestNormalizeStoredMappingWins(t *testing.T) {
	store := setupStore(t)
	norm := NewNormalizer(store)
	ctx := context.Background()

	// an existing mapping, e.g. from an older deployment, takes precedence
	// over anything derivation would produce
	legacy := "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"
	require.NoError(t, store.PutIDMapping(ctx, "VLT-legacy", legacy))

	got, err := norm.Normalize(ctx, "VLT-legacy")
	require.NoError(t, err)
	assert.Equal(t, legacy, got)
}

func TestNormalizeEmptyID(t *testing.T) {
	norm := NewNormalizer(setupStore(t))

	_, err := norm.Normalize(context.Background(), "")
	assert.Error(t, err)
}
