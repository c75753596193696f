package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/beka-birhanu/vinom-treasure-maze/economy"
	"github.com/beka-birhanu/vinom-treasure-maze/maze"
	"github.com/beka-birhanu/vinom-treasure-maze/payment"
	"github.com/google/uuid"
)

const (
	gameStartKey = "game_start_epoch_ms"
	// Fixed width so that text order matches time order.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store errors.
var (
	ErrEmptyPath = errors.New("empty db path")
)

// SQLiteStore is the local session cache.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the cache at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			user_id TEXT PRIMARY KEY,
			nickname TEXT NOT NULL,
			round INTEGER NOT NULL,
			round_started_ms INTEGER,
			pos_col INTEGER,
			pos_row INTEGER,
			has_claimed INTEGER NOT NULL,
			gold INTEGER NOT NULL,
			profit INTEGER NOT NULL,
			loss INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			player TEXT NOT NULL,
			action TEXT NOT NULL,
			amount INTEGER NOT NULL,
			currency TEXT NOT NULL,
			recipient TEXT,
			status TEXT NOT NULL,
			error TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_player ON transactions(player, created_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// EnsureGameStartEpoch returns the persisted game start, persisting now on first launch.
func (s *SQLiteStore) EnsureGameStartEpoch(ctx context.Context, now time.Time) (time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key=?`, gameStartKey).Scan(&raw)
	switch {
	case err == nil:
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing %s: %w", gameStartKey, err)
		}
		return time.UnixMilli(ms), nil
	case errors.Is(err, sql.ErrNoRows):
		if err := s.ResetGameStartEpoch(ctx, now); err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(now.UnixMilli()), nil
	default:
		return time.Time{}, err
	}
}

// ResetGameStartEpoch overwrites the game start. This restarts round numbering for every client.
func (s *SQLiteStore) ResetGameStartEpoch(ctx context.Context, t time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta(key,value) VALUES(?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		gameStartKey, strconv.FormatInt(t.UnixMilli(), 10))
	return err
}

// SaveSession upserts a player's cached session.
func (s *SQLiteStore) SaveSession(ctx context.Context, snap economy.Snapshot) error {
	var col, row, started sql.NullInt64
	if !snap.RoundStartedAt.IsZero() {
		started = sql.NullInt64{Int64: snap.RoundStartedAt.UnixMilli(), Valid: true}
	}
	if snap.Position != nil {
		col = sql.NullInt64{Int64: int64(snap.Position.Col), Valid: true}
		row = sql.NullInt64{Int64: int64(snap.Position.Row), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions(user_id,nickname,round,round_started_ms,pos_col,pos_row,has_claimed,gold,profit,loss,updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(user_id) DO UPDATE SET
			nickname=excluded.nickname, round=excluded.round, round_started_ms=excluded.round_started_ms, pos_col=excluded.pos_col, pos_row=excluded.pos_row,
			has_claimed=excluded.has_claimed, gold=excluded.gold, profit=excluded.profit, loss=excluded.loss,
			updated_at=excluded.updated_at`,
		snap.PlayerID.String(), snap.Nickname, snap.Round, started, col, row, boolToInt(snap.HasClaimedPlot),
		snap.Gold, snap.Profit, snap.Loss, time.Now().UTC().Format(timeLayout))
	return err
}

// LoadSession returns a player's cached session, if any.
func (s *SQLiteStore) LoadSession(ctx context.Context, id uuid.UUID) (economy.Snapshot, bool, error) {
	var (
		snap       economy.Snapshot
		col, row   sql.NullInt64
		started    sql.NullInt64
		hasClaimed int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT nickname,round,round_started_ms,pos_col,pos_row,has_claimed,gold,profit,loss FROM sessions WHERE user_id=?`,
		id.String()).Scan(&snap.Nickname, &snap.Round, &started, &col, &row, &hasClaimed, &snap.Gold, &snap.Profit, &snap.Loss)
	if errors.Is(err, sql.ErrNoRows) {
		return economy.Snapshot{}, false, nil
	}
	if err != nil {
		return economy.Snapshot{}, false, err
	}
	snap.PlayerID = id
	snap.HasClaimedPlot = hasClaimed != 0
	if started.Valid {
		snap.RoundStartedAt = time.UnixMilli(started.Int64).UTC()
	}
	if col.Valid && row.Valid {
		snap.Position = &maze.Position{Col: int(col.Int64), Row: int(row.Int64)}
	}
	return snap, true, nil
}

// Record upserts a transaction. It satisfies payment.Recorder.
func (s *SQLiteStore) Record(tx payment.Transaction) error {
	var recipient sql.NullString
	if tx.Recipient != nil {
		recipient = sql.NullString{String: tx.Recipient.String(), Valid: true}
	}
	_, err := s.db.Exec(`INSERT INTO transactions(id,player,action,amount,currency,recipient,status,error,created_at,updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET status=excluded.status, error=excluded.error, updated_at=excluded.updated_at`,
		tx.ID.String(), tx.Player.String(), string(tx.Action), tx.Amount, tx.Currency, recipient,
		string(tx.Status), tx.Error,
		tx.CreatedAt.UTC().Format(timeLayout), tx.UpdatedAt.UTC().Format(timeLayout))
	return err
}

// Transactions lists a player's recorded transactions, newest first.
func (s *SQLiteStore) Transactions(ctx context.Context, player uuid.UUID) ([]payment.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,action,amount,currency,recipient,status,error,created_at,updated_at
		 FROM transactions WHERE player=? ORDER BY created_at DESC`, player.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]payment.Transaction, 0)
	for rows.Next() {
		var (
			id, action, currency, status, created, updated string
			recipient, txErr                               sql.NullString
			tx                                             payment.Transaction
		)
		if err := rows.Scan(&id, &action, &tx.Amount, &currency, &recipient, &status, &txErr, &created, &updated); err != nil {
			return nil, err
		}
		if tx.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if recipient.Valid {
			r, err := uuid.Parse(recipient.String)
			if err != nil {
				return nil, err
			}
			tx.Recipient = &r
		}
		tx.Player = player
		tx.Action = payment.Action(action)
		tx.Currency = currency
		tx.Status = payment.Status(status)
		tx.Error = txErr.String
		tx.CreatedAt, _ = time.Parse(timeLayout, created)
		tx.UpdatedAt, _ = time.Parse(timeLayout, updated)
		out = append(out, tx)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
