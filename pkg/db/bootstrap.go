package db

import (
	"context"
	"fmt"
)

// DefaultProfileName is the profile created on first run.
const DefaultProfileName = "default"

// Bootstrap creates and activates the default profile when the database has
// none. It is a no-op afterwards.
func (db *DB) Bootstrap(ctx context.Context) error {
	needs, err := db.NeedsBootstrap(ctx)
	if err != nil {
		return fmt.Errorf("failed to check profiles: %w", err)
	}
	if !needs {
		return nil
	}

	p := &Profile{Name: DefaultProfileName, IsActive: true}
	if err := db.Profiles().Create(ctx, p); err != nil {
		return fmt.Errorf("failed to create default profile: %w", err)
	}
	return nil
}

// NeedsBootstrap reports whether the database has no profiles yet.
func (db *DB) NeedsBootstrap(ctx context.Context) (bool, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}
