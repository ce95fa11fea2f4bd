package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/evanschultz/filterdeck/internal/app"
	"github.com/evanschultz/filterdeck/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository represents repository data used by this package.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Positions are rewritten in multi-statement transactions; one writer keeps them dense.
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL DEFAULT 'user',
			disabled INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS filters (
			id TEXT PRIMARY KEY,
			subscription_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			text TEXT NOT NULL,
			disabled INTEGER NOT NULL DEFAULT 0,
			hit_count INTEGER NOT NULL DEFAULT 0,
			last_hit_at TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY(subscription_id) REFERENCES subscriptions(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS change_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			subscription_id TEXT NOT NULL,
			filter_id TEXT NOT NULL,
			operation TEXT NOT NULL,
			metadata_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			FOREIGN KEY(subscription_id) REFERENCES subscriptions(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_filters_subscription_position ON filters(subscription_id, position);`,
		`CREATE INDEX IF NOT EXISTS idx_change_events_subscription_created_at ON change_events(subscription_id, created_at DESC, id DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// CreateSubscription creates subscription.
func (r *Repository) CreateSubscription(ctx context.Context, s domain.Subscription) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions(id, title, url, kind, disabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Title, s.URL, string(s.Kind), boolToInt(s.Disabled), ts(s.CreatedAt), ts(s.UpdatedAt))
	return err
}

// UpdateSubscription updates state for the requested operation.
func (r *Repository) UpdateSubscription(ctx context.Context, s domain.Subscription) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET title = ?, url = ?, kind = ?, disabled = ?, updated_at = ?
		WHERE id = ?
	`, s.Title, s.URL, string(s.Kind), boolToInt(s.Disabled), ts(s.UpdatedAt), s.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetSubscription returns subscription.
func (r *Repository) GetSubscription(ctx context.Context, id string) (domain.Subscription, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, url, kind, disabled, created_at, updated_at
		FROM subscriptions
		WHERE id = ?
	`, id)
	return scanSubscription(row)
}

// ListSubscriptions lists subscriptions.
func (r *Repository) ListSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, url, kind, disabled, created_at, updated_at
		FROM subscriptions
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// InsertFilter inserts a filter at its position and shifts the filters after it.
func (r *Repository) InsertFilter(ctx context.Context, f domain.Filter) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	count, err := countFilters(ctx, tx, f.SubscriptionID)
	if err != nil {
		return err
	}
	if f.Position < 0 || f.Position > count {
		return fmt.Errorf("%w: insert at %d of %d", domain.ErrInvalidPosition, f.Position, count)
	}
	if _, err = tx.ExecContext(ctx, `
		UPDATE filters SET position = position + 1
		WHERE subscription_id = ? AND position >= ?
	`, f.SubscriptionID, f.Position); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO filters(id, subscription_id, position, text, disabled, hit_count, last_hit_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		f.ID,
		f.SubscriptionID,
		f.Position,
		f.Text,
		boolToInt(f.Disabled),
		f.HitCount,
		nullableTS(f.LastHitAt),
		ts(f.CreatedAt),
		ts(f.UpdatedAt),
	); err != nil {
		return err
	}

	err = insertChangeEvent(ctx, tx, domain.ChangeEvent{
		SubscriptionID: f.SubscriptionID,
		FilterID:       f.ID,
		Operation:      domain.ChangeOperationAdd,
		Metadata: map[string]string{
			"position": strconv.Itoa(f.Position),
			"text":     f.Text,
		},
		OccurredAt: f.CreatedAt,
	})
	if err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// UpdateFilter updates state for the requested operation.
func (r *Repository) UpdateFilter(ctx context.Context, f domain.Filter) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	prev, err := getFilterByID(ctx, tx, f.ID)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE filters
		SET text = ?, disabled = ?, hit_count = ?, last_hit_at = ?, updated_at = ?
		WHERE id = ?
	`, f.Text, boolToInt(f.Disabled), f.HitCount, nullableTS(f.LastHitAt), ts(f.UpdatedAt), f.ID)
	if err != nil {
		return err
	}
	if err = translateNoRows(res); err != nil {
		return err
	}

	op, metadata := classifyFilterUpdate(prev, f)
	if op != "" {
		err = insertChangeEvent(ctx, tx, domain.ChangeEvent{
			SubscriptionID: prev.SubscriptionID,
			FilterID:       f.ID,
			Operation:      op,
			Metadata:       metadata,
			OccurredAt:     f.UpdatedAt,
		})
		if err != nil {
			return err
		}
	}

	err = tx.Commit()
	return err
}

// GetFilter returns filter.
func (r *Repository) GetFilter(ctx context.Context, id string) (domain.Filter, error) {
	return getFilterByID(ctx, r.db, id)
}

// ListFilters lists filters.
func (r *Repository) ListFilters(ctx context.Context, subscriptionID string) ([]domain.Filter, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, subscription_id, position, text, disabled, hit_count, last_hit_at, created_at, updated_at
		FROM filters
		WHERE subscription_id = ?
		ORDER BY position ASC
	`, subscriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Filter{}
	for rows.Next() {
		filter, err := scanFilter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, filter)
	}
	return out, rows.Err()
}

// MoveFilter moves one filter and shifts the filters between its old and new position.
func (r *Repository) MoveFilter(ctx context.Context, id string, to int) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	f, err := getFilterByID(ctx, tx, id)
	if err != nil {
		return err
	}
	count, err := countFilters(ctx, tx, f.SubscriptionID)
	if err != nil {
		return err
	}
	if to < 0 || to >= count {
		return fmt.Errorf("%w: move to %d of %d", domain.ErrInvalidPosition, to, count)
	}
	from := f.Position
	if from == to {
		return tx.Commit()
	}
	if to < from {
		_, err = tx.ExecContext(ctx, `
			UPDATE filters SET position = position + 1
			WHERE subscription_id = ? AND position >= ? AND position < ?
		`, f.SubscriptionID, to, from)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE filters SET position = position - 1
			WHERE subscription_id = ? AND position > ? AND position <= ?
		`, f.SubscriptionID, from, to)
	}
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE filters SET position = ? WHERE id = ?`, to, id); err != nil {
		return err
	}

	err = insertChangeEvent(ctx, tx, domain.ChangeEvent{
		SubscriptionID: f.SubscriptionID,
		FilterID:       f.ID,
		Operation:      domain.ChangeOperationMove,
		Metadata: map[string]string{
			"from": strconv.Itoa(from),
			"to":   strconv.Itoa(to),
			"text": f.Text,
		},
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// DeleteFilter deletes filter.
func (r *Repository) DeleteFilter(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	f, err := getFilterByID(ctx, tx, id)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM filters WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err = translateNoRows(res); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `
		UPDATE filters SET position = position - 1
		WHERE subscription_id = ? AND position > ?
	`, f.SubscriptionID, f.Position); err != nil {
		return err
	}

	err = insertChangeEvent(ctx, tx, domain.ChangeEvent{
		SubscriptionID: f.SubscriptionID,
		FilterID:       f.ID,
		Operation:      domain.ChangeOperationRemove,
		Metadata: map[string]string{
			"position": strconv.Itoa(f.Position),
			"text":     f.Text,
		},
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// ListChangeEvents lists the newest change events for a subscription.
func (r *Repository) ListChangeEvents(ctx context.Context, subscriptionID string, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, subscription_id, filter_id, operation, metadata_json, created_at
		FROM change_events
		WHERE subscription_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, subscriptionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChangeEvent, 0)
	for rows.Next() {
		var (
			event       domain.ChangeEvent
			opRaw       string
			metadataRaw string
			createdRaw  string
		)
		if err := rows.Scan(&event.ID, &event.SubscriptionID, &event.FilterID, &opRaw, &metadataRaw, &createdRaw); err != nil {
			return nil, err
		}
		event.Operation = domain.ChangeOperation(strings.TrimSpace(opRaw))
		event.OccurredAt = parseTS(createdRaw)
		if strings.TrimSpace(metadataRaw) == "" {
			metadataRaw = "{}"
		}
		if err := json.Unmarshal([]byte(metadataRaw), &event.Metadata); err != nil {
			return nil, fmt.Errorf("decode change_events.metadata_json: %w", err)
		}
		if event.Metadata == nil {
			event.Metadata = map[string]string{}
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// queryRower represents a query-only DB contract used by DB and Tx implementations.
type queryRower interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// execerContext represents a write-only DB contract used by DB and Tx implementations.
type execerContext interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// getFilterByID returns one filter row.
func getFilterByID(ctx context.Context, q queryRower, id string) (domain.Filter, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, subscription_id, position, text, disabled, hit_count, last_hit_at, created_at, updated_at
		FROM filters
		WHERE id = ?
	`, id)
	return scanFilter(row)
}

// countFilters counts the filters of one subscription.
func countFilters(ctx context.Context, q queryRower, subscriptionID string) (int, error) {
	var count int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM filters WHERE subscription_id = ?`, subscriptionID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// insertChangeEvent inserts a change-event ledger record.
func insertChangeEvent(ctx context.Context, execer execerContext, event domain.ChangeEvent) error {
	metadataJSON, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("encode change event metadata: %w", err)
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	_, err = execer.ExecContext(ctx, `
		INSERT INTO change_events(subscription_id, filter_id, operation, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		event.SubscriptionID,
		event.FilterID,
		string(event.Operation),
		string(metadataJSON),
		ts(occurred),
	)
	if err != nil {
		return fmt.Errorf("insert change event: %w", err)
	}
	return nil
}

// classifyFilterUpdate picks the ledger operation for an in-place filter update.
func classifyFilterUpdate(prev, next domain.Filter) (domain.ChangeOperation, map[string]string) {
	switch {
	case prev.Text != next.Text:
		return domain.ChangeOperationUpdate, map[string]string{
			"from_text": prev.Text,
			"text":      next.Text,
		}
	case prev.Disabled != next.Disabled:
		return domain.ChangeOperationToggle, map[string]string{
			"disabled": strconv.FormatBool(next.Disabled),
			"text":     next.Text,
		}
	default:
		return "", nil
	}
}

// scanner represents scanner data used by this package.
type scanner interface {
	Scan(dest ...any) error
}

// scanSubscription handles scan subscription.
func scanSubscription(s scanner) (domain.Subscription, error) {
	var (
		sub        domain.Subscription
		kindRaw    string
		disabled   int
		createdRaw string
		updatedRaw string
	)
	if err := s.Scan(&sub.ID, &sub.Title, &sub.URL, &kindRaw, &disabled, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Subscription{}, app.ErrNotFound
		}
		return domain.Subscription{}, err
	}
	sub.Kind = domain.SubscriptionKind(kindRaw)
	sub.Disabled = disabled != 0
	sub.CreatedAt = parseTS(createdRaw)
	sub.UpdatedAt = parseTS(updatedRaw)
	return sub, nil
}

// scanFilter handles scan filter.
func scanFilter(s scanner) (domain.Filter, error) {
	var (
		f          domain.Filter
		disabled   int
		lastHitRaw sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := s.Scan(&f.ID, &f.SubscriptionID, &f.Position, &f.Text, &disabled, &f.HitCount, &lastHitRaw, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Filter{}, app.ErrNotFound
		}
		return domain.Filter{}, err
	}
	f.Disabled = disabled != 0
	f.LastHitAt = parseNullTS(lastHitRaw)
	f.CreatedAt = parseTS(createdRaw)
	f.UpdatedAt = parseTS(updatedRaw)
	return f, nil
}

// translateNoRows handles translate no rows.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// boolToInt stores booleans as sqlite integers.
func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// nullableTS handles nullable ts.
func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// parseNullTS parses input into a normalized form.
func parseNullTS(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	ts := parseTS(v.String)
	return &ts
}
