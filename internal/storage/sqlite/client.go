package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/rankontop/backend/internal/analysis"
	"github.com/rankontop/backend/internal/quota"
	"github.com/rankontop/backend/internal/storage/models"
	"github.com/rankontop/backend/pkg/logger"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	// Pragmas go in the DSN so every pooled connection gets them. Immediate
	// transactions take the write lock up front and wait on busy_timeout.
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		analysis_count INTEGER NOT NULL DEFAULT 0,
		subscription_tier TEXT NOT NULL DEFAULT 'free',
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS analysis_history (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		target TEXT NOT NULL,
		target_kind TEXT NOT NULL,
		overall_score REAL NOT NULL,
		results_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_history_user_created ON analysis_history(user_id, created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error) {
	now := time.Now().UTC()

	res, err := c.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, created_at) VALUES (?, ?, ?)`,
		email, passwordHash, now.Unix(),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read user id: %w", err)
	}

	logger.Info("User created", zap.Int64("user_id", id))

	return &models.User{
		ID:               id,
		Email:            email,
		PasswordHash:     passwordHash,
		SubscriptionTier: quota.TierFree,
		CreatedAt:        time.Unix(now.Unix(), 0).UTC(),
	}, nil
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, email, password_hash, analysis_count, subscription_tier, created_at FROM users WHERE email = ?`

	var user models.User
	var createdAt int64

	err := c.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.AnalysisCount,
		&user.SubscriptionTier,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &user, nil
}

// SetTier changes the subscription tier of a user.
func (c *Client) SetTier(ctx context.Context, userID int64, tier string) error {
	res, err := c.db.ExecContext(ctx, `UPDATE users SET subscription_tier = ? WHERE id = ?`, tier, userID)
	if err != nil {
		return fmt.Errorf("failed to update tier: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Client) LookupAccount(ctx context.Context, identity string) (quota.Account, error) {
	user, err := c.GetUserByEmail(ctx, identity)
	if errors.Is(err, ErrNotFound) {
		return quota.Account{}, fmt.Errorf("%w: %s", analysis.ErrAccountNotFound, identity)
	}
	if err != nil {
		return quota.Account{}, err
	}

	return quota.Account{
		ID:            user.ID,
		Email:         user.Email,
		Tier:          user.SubscriptionTier,
		AnalysisCount: user.AnalysisCount,
	}, nil
}

// SaveAndCount inserts rec and increments the owner's analysis count in one
// transaction. The increment only applies while a free-tier owner is below
// freeLimit; otherwise the insert is rolled back and the error wraps
// quota.ErrQuotaExceeded.
func (c *Client) SaveAndCount(ctx context.Context, ownerID int64, rec *analysis.Record, freeLimit int) (int, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("failed to encode analysis: %w", err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analysis_history (id, user_id, target, target_kind, overall_score, results_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		ownerID,
		rec.Target.Label(),
		rec.Target.Kind(),
		rec.OverallScore,
		string(payload),
		rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert analysis: %w", err)
	}

	// The foreign key on the insert guarantees the user exists, so no row
	// back means the free limit is reached.
	var count int
	err = tx.QueryRowContext(ctx, `
		UPDATE users SET analysis_count = analysis_count + 1
		WHERE id = ? AND (subscription_tier <> ? OR analysis_count < ?)
		RETURNING analysis_count
	`, ownerID, quota.TierFree, freeLimit).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w (limit %d)", quota.ErrQuotaExceeded, freeLimit)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment analysis count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit analysis: %w", err)
	}

	logger.Debug("Analysis saved",
		zap.String("analysis_id", rec.ID),
		zap.Int64("user_id", ownerID),
		zap.Int("analysis_count", count),
	)
	return count, nil
}

// ListAnalyses returns the newest analyses of a user first.
func (c *Client) ListAnalyses(ctx context.Context, userID int64, limit int) ([]models.AnalysisEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, user_id, target, target_kind, overall_score, results_json, created_at
		FROM analysis_history
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	entries := make([]models.AnalysisEntry, 0)
	for rows.Next() {
		var entry models.AnalysisEntry
		var result string
		var createdAt int64

		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Target,
			&entry.TargetKind,
			&entry.OverallScore,
			&result,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}

		entry.Result = json.RawMessage(result)
		entry.CreatedAt = time.UnixMilli(createdAt).UTC()
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
