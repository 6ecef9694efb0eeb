package ledger

import (
	"context"
	"fmt"
	"time"
)

// Lease names used by the scheduled entry points.
const (
	LeaseFetch    = "fetch"
	LeaseRecovery = "recovery"
)

// AcquireLease attempts to take a named lease for the given holder. It
// succeeds when the slot is free, already held by the same holder, or the
// previous holder's lease has expired (the safety valve for a crashed
// invocation). Returns false without error when another live holder owns it.
func (s *Store) AcquireLease(ctx context.Context, name, holder string, ttl time.Duration) (bool, error) {
	if name == "" || holder == "" {
		return false, fmt.Errorf("lease name and holder are required")
	}
	now := time.Now().UTC()
	expires := now.Add(ttl)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO leases (name, holder, expires_at) VALUES (?, ?, ?)
        ON CONFLICT(name) DO UPDATE SET holder = excluded.holder, expires_at = excluded.expires_at
        WHERE leases.holder = excluded.holder OR leases.expires_at < ?`,
		name,
		holder,
		formatTime(expires),
		formatTime(now),
	)
	if err != nil {
		return false, fmt.Errorf("acquire lease %q: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("lease rows affected: %w", err)
	}
	return affected > 0, nil
}

// ReleaseLease drops a lease if the holder still owns it.
func (s *Store) ReleaseLease(ctx context.Context, name, holder string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM leases WHERE name = ? AND holder = ?`, name, holder); err != nil {
		return fmt.Errorf("release lease %q: %w", name, err)
	}
	return nil
}
