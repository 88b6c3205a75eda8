package syncer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"valetcore/internal/domain"
	"valetcore/internal/models"

	"github.com/google/uuid"
)

// idNamespace seeds the SHA1 UUID derivation. Fixed so the same short id
// always derives the same UUID, on any process.
var idNamespace = uuid.MustParse("7a9c1de4-52b0-4f0e-9e5b-3c6d8a41f2b7")

var shortIDSeq atomic.Uint64

// MintShortID produces a human-legible booking id: prefix, timestamp, and a
// serial to disambiguate ids minted within the same second.
func MintShortID(now time.Time) string {
	seq := shortIDSeq.Add(1) % 1000
	return fmt.Sprintf("%s-%s-%03d", models.ShortIDPrefix, now.Format("20060102150405"), seq)
}

// Normalizer resolves short booking ids to the canonical UUIDs the remote
// store is keyed by. The persisted mapping is the source of truth: derivation
// only ever runs for a short id that has no stored row, and its result is
// stored before use.
type Normalizer struct {
	store domain.RemoteStore
}

func NewNormalizer(store domain.RemoteStore) *Normalizer {
	return &Normalizer{store: store}
}

func (n *Normalizer) Normalize(ctx context.Context, shortID string) (string, error) {
	if shortID == "" {
		return "", fmt.Errorf("empty short id")
	}

	remoteID, err := n.store.GetIDMapping(ctx, shortID)
	if err != nil {
		return "", err
	}
	if remoteID != "" {
		return remoteID, nil
	}

	derived := uuid.NewSHA1(idNamespace, []byte(shortID)).String()
	if err := n.store.PutIDMapping(ctx, shortID, derived); err != nil {
		return "", err
	}

	// Re-read after the insert: on a lost race the first writer's row wins.
	remoteID, err = n.store.GetIDMapping(ctx, shortID)
	if err != nil {
		return "", err
	}
	if remoteID == "" {
		return "", fmt.Errorf("id mapping for %s not stored", shortID)
	}
	return remoteID, nil
}
