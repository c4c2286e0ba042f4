package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
)

const credentialSettingsKey = "ebay_keys"

// LoadCredentialSettings reads the credential set from the settings
// collection. A missing row yields an empty set, not an error.
func (s *Store) LoadCredentialSettings(ctx context.Context) (model.CredentialSettings, error) {
	var settings model.CredentialSettings
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value_json FROM settings WHERE key = $1`, credentialSettingsKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("store: load credential settings: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return settings, fmt.Errorf("store: decode credential settings: %w", err)
	}
	return settings, nil
}

// SaveCredentialSettings writes the full credential set back to settings.
func (s *Store) SaveCredentialSettings(ctx context.Context, settings model.CredentialSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("store: encode credential settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value_json, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value_json=excluded.value_json, updated_at=excluded.updated_at`,
		credentialSettingsKey, string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: save credential settings: %w", err)
	}
	return nil
}

// UpdateCredentialStatus transitions one credential's persisted status.
// Used on 401 during token acquisition; only a human edit restores it.
func (s *Store) UpdateCredentialStatus(ctx context.Context, appID string, status model.CredentialStatus) error {
	return s.mutateCredential(ctx, appID, func(c *model.Credential) {
		c.Status = status
	})
}

// UpsertCredentialUsage records a credential's per-day call count. This is
// observability only; nothing gates on it at runtime.
func (s *Store) UpsertCredentialUsage(ctx context.Context, appID string, callsToday int, resetDate string) error {
	return s.mutateCredential(ctx, appID, func(c *model.Credential) {
		c.CallsToday = callsToday
		c.CallsResetDate = resetDate
	})
}

func (s *Store) mutateCredential(ctx context.Context, appID string, mutate func(*model.Credential)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: mutate credential: begin: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx,
		`SELECT value_json FROM settings WHERE key = $1`, credentialSettingsKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return fmt.Errorf("store: mutate credential %s: no credential settings", appID)
	}
	if err != nil {
		return fmt.Errorf("store: mutate credential %s: %w", appID, err)
	}

	var settings model.CredentialSettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return fmt.Errorf("store: mutate credential %s: decode: %w", appID, err)
	}

	found := false
	for i := range settings.Keys {
		if settings.Keys[i].AppID == appID {
			mutate(&settings.Keys[i])
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("store: mutate credential: unknown app_id %s", appID)
	}

	updated, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("store: mutate credential %s: encode: %w", appID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE settings SET value_json = $1, updated_at = $2 WHERE key = $3`,
		string(updated), time.Now().UTC(), credentialSettingsKey); err != nil {
		return fmt.Errorf("store: mutate credential %s: write: %w", appID, err)
	}
	return tx.Commit()
}

// AppendAPIUsage writes one append-only usage log row.
func (s *Store) AppendAPIUsage(ctx context.Context, u model.APIUsage) error {
	if u.Calls <= 0 {
		u.Calls = 1
	}
	loggedAt := u.LoggedAt
	if loggedAt.IsZero() {
		loggedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_usage (app_id, endpoint, calls, day, logged_at) VALUES ($1, $2, $3, $4, $5)`,
		u.AppID, u.Endpoint, u.Calls, u.Day, loggedAt)
	if err != nil {
		return fmt.Errorf("store: append api usage: %w", err)
	}
	return nil
}

// CountAPIUsageForDay sums logged calls for one credential on one day.
func (s *Store) CountAPIUsageForDay(ctx context.Context, appID, day string) (int, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT SUM(calls) FROM api_usage WHERE app_id = $1 AND day = $2`, appID, day).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("store: count api usage: %w", err)
	}
	return int(total.Int64), nil
}
