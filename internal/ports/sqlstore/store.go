// Package sqlstore implements the ledger, economy, profile and config ports
// on an embedded SQLite database. It backs the offline simulator and tests
// that need a real transactional store outside Nakama.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"degendecks/internal/domain"
	"degendecks/internal/ports"

	_ "modernc.org/sqlite"
)

// Store is a SQLite backed ledger.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the database at path. Use ":memory:" for a
// throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// One connection serialises writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) LoadGame(ctx context.Context, ref string) (*ports.GameRecord, error) {
	return s.load(ctx, "games", ref)
}

func (s *Store) LoadVenueGame(ctx context.Context, ref string) (*ports.GameRecord, error) {
	return s.load(ctx, "venue_games", ref)
}

func (s *Store) load(ctx context.Context, table, ref string) (*ports.GameRecord, error) {
	var (
		value   string
		version int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT value, version FROM "+table+" WHERE ref = ?", ref,
	).Scan(&value, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", table, ref, err)
	}

	var g domain.Game
	if err := json.Unmarshal([]byte(value), &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s %s: %w", table, ref, err)
	}
	return &ports.GameRecord{Game: &g, Version: strconv.FormatInt(version, 10)}, nil
}

func (s *Store) ListRandomnessRequests(ctx context.Context, limit int) ([]ports.RandomnessRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT ref, request_id, requested_at FROM randomness_requests ORDER BY requested_at, ref LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list randomness requests: %w", err)
	}
	defer rows.Close()

	var out []ports.RandomnessRequest
	for rows.Next() {
		var (
			req   ports.RandomnessRequest
			nanos int64
		)
		if err := rows.Scan(&req.GameRef, &req.RequestID, &nanos); err != nil {
			return nil, fmt.Errorf("failed to scan randomness request: %w", err)
		}
		req.RequestedAt = time.Unix(0, nanos).UTC()
		out = append(out, req)
	}
	return out, rows.Err()
}

// Apply stores cs in one transaction.
func (s *Store) Apply(ctx context.Context, cs ports.Changeset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if cs.Game != nil {
		if err := writeGame(ctx, tx, "games", cs.Game); err != nil {
			return err
		}
	}
	if cs.Venue != nil {
		if err := writeGame(ctx, tx, "venue_games", cs.Venue); err != nil {
			return err
		}
	}
	if cs.DeleteVenue != nil {
		version, err := strconv.ParseInt(cs.DeleteVenue.Version, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: bad version %q", ports.ErrVersionConflict, cs.DeleteVenue.Version)
		}
		res, err := tx.ExecContext(ctx,
			"DELETE FROM venue_games WHERE ref = ? AND version = ?",
			cs.DeleteVenue.Ref, version,
		)
		if err := expectOneRow(res, err, "venue_games", cs.DeleteVenue.Ref); err != nil {
			return err
		}
	}
	if req := cs.OpenRandomness; req != nil {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO randomness_requests (ref, request_id, requested_at) VALUES (?, ?, ?) ON CONFLICT(ref) DO NOTHING",
			req.GameRef, req.RequestID, req.RequestedAt.UnixNano(),
		)
		if err := expectOneRow(res, err, "randomness_requests", req.GameRef); err != nil {
			return err
		}
	}
	if cs.CloseRandomness != "" {
		if _, err := tx.ExecContext(ctx, "DELETE FROM randomness_requests WHERE ref = ?", cs.CloseRandomness); err != nil {
			return fmt.Errorf("failed to close randomness request: %w", err)
		}
	}
	for _, t := range cs.Transfers {
		if err := transfer(ctx, tx, t); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// writeGame inserts a record when w.Version is empty and otherwise updates
// it only at the expected version.
func writeGame(ctx context.Context, tx *sql.Tx, table string, w *ports.GameWrite) error {
	data, err := json.Marshal(w.Game)
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", table, w.Game.Ref, err)
	}

	if w.Version == "" {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO "+table+" (ref, value, version) VALUES (?, ?, 1) ON CONFLICT(ref) DO NOTHING",
			w.Game.Ref, string(data),
		)
		return expectOneRow(res, err, table, w.Game.Ref)
	}

	version, err := strconv.ParseInt(w.Version, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad version %q", ports.ErrVersionConflict, w.Version)
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE "+table+" SET value = ?, version = version + 1 WHERE ref = ? AND version = ?",
		string(data), w.Game.Ref, version,
	)
	return expectOneRow(res, err, table, w.Game.Ref)
}

func expectOneRow(res sql.Result, err error, table, ref string) error {
	if err != nil {
		return fmt.Errorf("failed to write %s %s: %w", table, ref, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to write %s %s: %w", table, ref, err)
	}
	if n != 1 {
		return fmt.Errorf("%w: %s %s", ports.ErrVersionConflict, table, ref)
	}
	return nil
}

func transfer(ctx context.Context, tx *sql.Tx, t domain.Transfer) error {
	if t.Amount == 0 {
		return nil
	}
	var balance int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO wallets (user_id, asset, balance) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, asset) DO UPDATE SET balance = balance + excluded.balance
		 RETURNING balance`,
		t.UserID, t.Asset, t.Amount,
	).Scan(&balance)
	if err != nil {
		return fmt.Errorf("failed to update wallet of %s: %w", t.UserID, err)
	}
	if balance < 0 {
		return fmt.Errorf("%w: %s short by %d %s", domain.ErrInsufficientFunds, t.UserID, -balance, t.Asset)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO wallet_ledger (user_id, asset, amount, reason, game_ref) VALUES (?, ?, ?, ?, ?)",
		t.UserID, t.Asset, t.Amount, string(t.Reason), t.GameRef,
	)
	if err != nil {
		return fmt.Errorf("failed to record transfer for %s: %w", t.UserID, err)
	}
	return nil
}

// GetBalance returns the wallet balance of userID in asset, zero if the
// wallet was never credited.
func (s *Store) GetBalance(ctx context.Context, userID, asset string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx,
		"SELECT balance FROM wallets WHERE user_id = ? AND asset = ?", userID, asset,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// Credit adds amount to a wallet outside of any game, for faucets and seeding.
func (s *Store) Credit(ctx context.Context, userID, asset string, amount int64, reason string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := transfer(ctx, tx, domain.Transfer{
		UserID: userID,
		Asset:  asset,
		Amount: amount,
		Reason: domain.TransferReason(reason),
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var p domain.Profile
	found, err := s.readJSON(ctx, "SELECT value FROM profiles WHERE owner = ?", userID, &p)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrProfileNotFound
	}
	return &p, nil
}

func (s *Store) CreateProfile(ctx context.Context, p *domain.Profile) error {
	created, err := s.insertJSON(ctx, "INSERT INTO profiles (owner, value) VALUES (?, ?) ON CONFLICT(owner) DO NOTHING", p.Owner, p)
	if err != nil {
		return err
	}
	if !created {
		return domain.ErrProfileExists
	}
	return nil
}

func (s *Store) GetConfig(ctx context.Context) (*domain.PlatformConfig, error) {
	var c domain.PlatformConfig
	found, err := s.readJSON(ctx, "SELECT value FROM platform_config WHERE id = ?", 1, &c)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrConfigNotFound
	}
	return &c, nil
}

func (s *Store) CreateConfig(ctx context.Context, c *domain.PlatformConfig) error {
	created, err := s.insertJSON(ctx, "INSERT INTO platform_config (id, value) VALUES (?, ?) ON CONFLICT(id) DO NOTHING", 1, c)
	if err != nil {
		return err
	}
	if !created {
		return domain.ErrConfigExists
	}
	return nil
}

func (s *Store) readJSON(ctx context.Context, query string, key any, out any) (bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %v: %w", key, err)
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %v: %w", key, err)
	}
	return true, nil
}

func (s *Store) insertJSON(ctx context.Context, query string, key any, value any) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to marshal %v: %w", key, err)
	}
	res, err := s.db.ExecContext(ctx, query, key, string(data))
	if err != nil {
		return false, fmt.Errorf("failed to insert %v: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

var (
	_ ports.LedgerPort  = (*Store)(nil)
	_ ports.EconomyPort = (*Store)(nil)
	_ ports.ProfilePort = (*Store)(nil)
	_ ports.ConfigPort  = (*Store)(nil)
)
