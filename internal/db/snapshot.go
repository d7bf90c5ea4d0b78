package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/opensuse/bootkitd/pkg/utils"
)

// Snapshot is one historical copy of the serialized grub configuration.
type Snapshot struct {
	ID        string        // UUID of this snapshot
	Digest    digest.Digest // content digest of Config
	Config    string        // the full serialized configuration file
	CreatedAt time.Time
}

// InsertSnapshot saves a new snapshot of the serialized configuration.
func InsertSnapshot(ctx context.Context, sdb *sql.DB, config string) (*Snapshot, error) {
	id, err := utils.NewUUID7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate snapshot id: %w", err)
	}

	snap := &Snapshot{
		ID:        id,
		Digest:    digest.FromString(config),
		Config:    config,
		CreatedAt: time.Now(),
	}

	query := `INSERT INTO grub_snapshots (id, digest, config, created_at) VALUES (?, ?, ?, ?)`
	_, err = sdb.ExecContext(ctx, query,
		snap.ID, snap.Digest.String(), snap.Config, snap.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return snap, nil
}

// LatestSnapshot returns the most recent snapshot, or nil when the store is
// empty.
func LatestSnapshot(ctx context.Context, sdb *sql.DB) (*Snapshot, error) {
	query := `SELECT id, digest, config, created_at FROM grub_snapshots ORDER BY created_at DESC, id DESC LIMIT 1`
	row := sdb.QueryRowContext(ctx, query)

	var (
		snap      Snapshot
		dgst      string
		createdAt int64
	)
	err := row.Scan(&snap.ID, &dgst, &snap.Config, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}

	snap.Digest = digest.Digest(dgst)
	snap.CreatedAt = time.Unix(createdAt, 0)
	return &snap, nil
}

// CountSnapshots reports how many snapshots have ever been saved. Used at
// startup to decide whether the store needs seeding from the on-disk file.
func CountSnapshots(ctx context.Context, sdb *sql.DB) (int, error) {
	var count int
	err := sdb.QueryRowContext(ctx, `SELECT COUNT(*) FROM grub_snapshots`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return count, nil
}
