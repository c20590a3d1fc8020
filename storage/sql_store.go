package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"suggestguard/models"
)

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

// SQLStore implements Store on PostgreSQL or SQLite.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// Open picks the backend from dsn: postgres:// URLs and key=value DSNs go
// to PostgreSQL, anything else is treated as a SQLite file or URI.
func Open(dsn string) (*SQLStore, error) {
	if IsPostgresDSN(dsn) {
		return NewPostgresStore(dsn)
	}
	return NewSQLiteStore(dsn)
}

func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

// NewPostgresStore opens a connection to PostgreSQL, waits for it to accept
// connections and runs schema migrations.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	s := &SQLStore{db: db, dialect: dialectPostgres}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return s, nil
}

// NewSQLiteStore opens an embedded database. "file:name?mode=memory&cache=shared"
// gives an in-memory store.
func NewSQLiteStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	s := &SQLStore{db: db, dialect: dialectSQLite}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return s, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS brands (
		id         TEXT    PRIMARY KEY,
		name       TEXT    NOT NULL,
		keywords   TEXT    NOT NULL DEFAULT '[]',
		expand     BOOLEAN NOT NULL DEFAULT TRUE,
		active     BOOLEAN NOT NULL DEFAULT TRUE,
		language   TEXT    NOT NULL DEFAULT '',
		country    TEXT    NOT NULL DEFAULT '',
		created_at BIGINT  NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS snapshots (
		id       TEXT   PRIMARY KEY,
		brand_id TEXT   NOT NULL,
		taken_at BIGINT NOT NULL,
		seq      BIGINT NOT NULL,
		report   TEXT   NOT NULL DEFAULT '{}'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_brand_time ON snapshots(brand_id, taken_at)`,
	`CREATE TABLE IF NOT EXISTS suggestions (
		snapshot_id     TEXT    NOT NULL,
		suggestion_rank INTEGER NOT NULL,
		text            TEXT    NOT NULL,
		query_rank      INTEGER NOT NULL,
		query           TEXT    NOT NULL,
		sentiment       TEXT    NOT NULL,
		category        TEXT    NOT NULL DEFAULT '',
		matched_keyword TEXT    NOT NULL DEFAULT '',
		PRIMARY KEY (snapshot_id, suggestion_rank)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_suggestions_text ON suggestions(text)`,
	`CREATE TABLE IF NOT EXISTS campaigns (
		id                TEXT    PRIMARY KEY,
		brand_id          TEXT    NOT NULL,
		label             TEXT    NOT NULL,
		notes             TEXT    NOT NULL DEFAULT '',
		started_at        BIGINT  NOT NULL,
		ended_at          BIGINT,
		start_snapshot_id TEXT    NOT NULL DEFAULT '',
		end_snapshot_id   TEXT    NOT NULL DEFAULT '',
		archived          BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_campaigns_brand ON campaigns(brand_id)`,
}

func (s *SQLStore) migrate() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func toUnix(t time.Time) int64 {
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// ── brands ─────────────────────────────────────────────────────────────────

func (s *SQLStore) SaveBrand(ctx context.Context, b *models.Brand) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	keywords, err := json.Marshal(b.Keywords)
	if err != nil {
		return fmt.Errorf("store: encode keywords: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO brands (id, name, keywords, expand, active, language, country, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			keywords = excluded.keywords,
			expand = excluded.expand,
			active = excluded.active,
			language = excluded.language,
			country = excluded.country
	`), b.ID, b.Name, string(keywords), b.Expand, b.Active, b.Language, b.Country, toUnix(b.CreatedAt))
	if err != nil {
		return fmt.Errorf("store: save brand %s: %w", b.ID, err)
	}
	return nil
}

const brandColumns = `id, name, keywords, expand, active, language, country, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBrand(row rowScanner) (*models.Brand, error) {
	var (
		b        models.Brand
		keywords string
		created  int64
	)
	if err := row.Scan(&b.ID, &b.Name, &keywords, &b.Expand, &b.Active, &b.Language, &b.Country, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(keywords), &b.Keywords); err != nil {
		return nil, fmt.Errorf("decode keywords of %s: %w", b.ID, err)
	}
	b.CreatedAt = fromUnix(created)
	return &b, nil
}

func (s *SQLStore) LoadBrand(ctx context.Context, id string) (*models.Brand, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+brandColumns+` FROM brands WHERE id = ?`), id)
	b, err := scanBrand(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: load brand %s: %w", id, err)
	}
	return b, nil
}

func (s *SQLStore) ListBrands(ctx context.Context, activeOnly bool) ([]*models.Brand, error) {
	query := `SELECT ` + brandColumns + ` FROM brands`
	var args []any
	if activeOnly {
		query += ` WHERE active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY name, id`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("store: list brands: %w", err)
	}
	defer rows.Close()

	var brands []*models.Brand
	for rows.Next() {
		b, err := scanBrand(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan brand: %w", err)
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}

// ── snapshots ──────────────────────────────────────────────────────────────

func (s *SQLStore) SaveSnapshot(ctx context.Context, snap *models.Snapshot) (string, error) {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	report, err := json.Marshal(snap.Report)
	if err != nil {
		return "", fmt.Errorf("store: encode report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO snapshots (id, brand_id, taken_at, seq, report)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM snapshots), ?)
	`), snap.ID, snap.BrandID, toUnix(snap.TakenAt), string(report))
	if err != nil {
		return "", fmt.Errorf("store: insert snapshot %s: %w", snap.ID, err)
	}

	const batchSize = 50
	for i := 0; i < len(snap.Suggestions); i += batchSize {
		end := i + batchSize
		if end > len(snap.Suggestions) {
			end = len(snap.Suggestions)
		}
		if err := s.insertSuggestions(ctx, tx, snap.ID, snap.Suggestions[i:end]); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("store: commit snapshot %s: %w", snap.ID, err)
	}
	return snap.ID, nil
}

func (s *SQLStore) insertSuggestions(ctx context.Context, tx *sql.Tx, snapshotID string, batch []models.Suggestion) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*8)

	for _, sg := range batch {
		valueStrings = append(valueStrings, "(?, ?, ?, ?, ?, ?, ?, ?)")
		valueArgs = append(valueArgs,
			snapshotID, sg.Rank, sg.Text, sg.QueryRank, sg.Query,
			string(sg.Sentiment), string(sg.Category), sg.MatchedKeyword)
	}

	query := fmt.Sprintf(`
		INSERT INTO suggestions
			(snapshot_id, suggestion_rank, text, query_rank, query, sentiment, category, matched_keyword)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	if _, err := tx.ExecContext(ctx, s.rebind(query), valueArgs...); err != nil {
		return fmt.Errorf("store: insert suggestions: %w", err)
	}
	return nil
}

func (s *SQLStore) LoadSnapshot(ctx context.Context, id string) (*models.Snapshot, error) {
	var (
		snap    models.Snapshot
		takenAt int64
		report  string
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, brand_id, taken_at, report FROM snapshots WHERE id = ?
	`), id).Scan(&snap.ID, &snap.BrandID, &takenAt, &report)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: load snapshot %s: %w", id, err)
	}
	snap.TakenAt = fromUnix(takenAt)
	if err := json.Unmarshal([]byte(report), &snap.Report); err != nil {
		return nil, fmt.Errorf("store: decode report of %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT suggestion_rank, text, query_rank, query, sentiment, category, matched_keyword
		FROM suggestions
		WHERE snapshot_id = ?
		ORDER BY suggestion_rank
	`), id)
	if err != nil {
		return nil, fmt.Errorf("store: load suggestions of %s: %w", id, err)
	}
	defer rows.Close()

	snap.Suggestions = make([]models.Suggestion, 0)
	for rows.Next() {
		var sg models.Suggestion
		var sentiment, category string
		if err := rows.Scan(&sg.Rank, &sg.Text, &sg.QueryRank, &sg.Query, &sentiment, &category, &sg.MatchedKeyword); err != nil {
			return nil, fmt.Errorf("store: scan suggestion: %w", err)
		}
		sg.Sentiment = models.Sentiment(sentiment)
		sg.Category = models.Category(category)
		snap.Suggestions = append(snap.Suggestions, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// snapshotID runs a query selecting one snapshot id and loads it.
func (s *SQLStore) snapshotID(ctx context.Context, query string, args ...any) (*models.Snapshot, error) {
	var id string
	err := s.db.QueryRowContext(ctx, s.rebind(query), args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find snapshot: %w", err)
	}
	return s.LoadSnapshot(ctx, id)
}

func (s *SQLStore) SnapshotAt(ctx context.Context, brandID string, t time.Time) (*models.Snapshot, error) {
	return s.snapshotID(ctx, `
		SELECT id FROM snapshots
		WHERE brand_id = ? AND taken_at <= ?
		ORDER BY taken_at DESC, seq DESC
		LIMIT 1
	`, brandID, toUnix(t))
}

func (s *SQLStore) SnapshotAfter(ctx context.Context, brandID string, t time.Time) (*models.Snapshot, error) {
	return s.snapshotID(ctx, `
		SELECT id FROM snapshots
		WHERE brand_id = ? AND taken_at >= ?
		ORDER BY taken_at ASC, seq ASC
		LIMIT 1
	`, brandID, toUnix(t))
}

func (s *SQLStore) LatestSnapshot(ctx context.Context, brandID string) (*models.Snapshot, error) {
	return s.snapshotID(ctx, `
		SELECT id FROM snapshots
		WHERE brand_id = ?
		ORDER BY taken_at DESC, seq DESC
		LIMIT 1
	`, brandID)
}

func (s *SQLStore) ListSnapshots(ctx context.Context, brandID string, from, to time.Time) ([]*models.Snapshot, error) {
	query := `SELECT id FROM snapshots WHERE brand_id = ?`
	args := []any{brandID}
	if !from.IsZero() {
		query += ` AND taken_at >= ?`
		args = append(args, toUnix(from))
	}
	if !to.IsZero() {
		query += ` AND taken_at <= ?`
		args = append(args, toUnix(to))
	}
	query += ` ORDER BY taken_at ASC, seq ASC`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("store: list snapshots: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scan snapshot id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	snaps := make([]*models.Snapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := s.LoadSnapshot(ctx, id)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func (s *SQLStore) SuggestionHistory(ctx context.Context, brandID, text string) ([]models.SuggestionPoint, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT s.id, s.taken_at, g.suggestion_rank, g.query_rank, g.query, g.sentiment, g.category
		FROM suggestions g
		JOIN snapshots s ON s.id = g.snapshot_id
		WHERE s.brand_id = ? AND g.text = ?
		ORDER BY s.taken_at ASC, s.seq ASC
	`), brandID, text)
	if err != nil {
		return nil, fmt.Errorf("store: suggestion history: %w", err)
	}
	defer rows.Close()

	history := make([]models.SuggestionPoint, 0)
	for rows.Next() {
		var (
			p                   models.SuggestionPoint
			takenAt             int64
			sentiment, category string
		)
		if err := rows.Scan(&p.SnapshotID, &takenAt, &p.Rank, &p.QueryRank, &p.Query, &sentiment, &category); err != nil {
			return nil, fmt.Errorf("store: scan suggestion history: %w", err)
		}
		p.TakenAt = fromUnix(takenAt)
		p.Sentiment = models.Sentiment(sentiment)
		p.Category = models.Category(category)
		history = append(history, p)
	}
	return history, rows.Err()
}

// ── campaigns ──────────────────────────────────────────────────────────────

func (s *SQLStore) SaveCampaign(ctx context.Context, c *models.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	var ended sql.NullInt64
	if c.EndedAt != nil {
		ended = sql.NullInt64{Int64: toUnix(*c.EndedAt), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO campaigns
			(id, brand_id, label, notes, started_at, ended_at, start_snapshot_id, end_snapshot_id, archived)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			label = excluded.label,
			notes = excluded.notes,
			ended_at = excluded.ended_at,
			start_snapshot_id = excluded.start_snapshot_id,
			end_snapshot_id = excluded.end_snapshot_id,
			archived = excluded.archived
	`), c.ID, c.BrandID, c.Label, c.Notes, toUnix(c.StartedAt), ended,
		c.StartSnapshotID, c.EndSnapshotID, c.Archived)
	if err != nil {
		return fmt.Errorf("store: save campaign %s: %w", c.ID, err)
	}
	return nil
}

const campaignColumns = `id, brand_id, label, notes, started_at, ended_at, start_snapshot_id, end_snapshot_id, archived`

func scanCampaign(row rowScanner) (*models.Campaign, error) {
	var (
		c       models.Campaign
		started int64
		ended   sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.BrandID, &c.Label, &c.Notes, &started, &ended,
		&c.StartSnapshotID, &c.EndSnapshotID, &c.Archived); err != nil {
		return nil, err
	}
	c.StartedAt = fromUnix(started)
	if ended.Valid {
		t := fromUnix(ended.Int64)
		c.EndedAt = &t
	}
	return &c, nil
}

func (s *SQLStore) LoadCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`), id)
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: load campaign %s: %w", id, err)
	}
	return c, nil
}

// ListCampaigns lists the campaigns of brandID, or of every brand when
// brandID is empty, oldest first.
func (s *SQLStore) ListCampaigns(ctx context.Context, brandID string, includeArchived bool) ([]*models.Campaign, error) {
	var conds []string
	var args []any
	if brandID != "" {
		conds = append(conds, "brand_id = ?")
		args = append(args, brandID)
	}
	if !includeArchived {
		conds = append(conds, "archived = ?")
		args = append(args, false)
	}
	query := `SELECT ` + campaignColumns + ` FROM campaigns`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY started_at, id`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("store: list campaigns: %w", err)
	}
	defer rows.Close()

	var out []*models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

var _ Store = (*SQLStore)(nil)
