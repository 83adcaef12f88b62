package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eventrail/eventrail/pkg/types"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spaolacci/murmur3"
)

// SQLiteStore implements TableStore on a single SQLite database with one
// table per shard. The (partition_key, row_key) primary key gives the native
// scan order; segments are served with keyset paging over that key.
type SQLiteStore struct {
	db       *sql.DB // Write connection (single writer)
	readDB   *sql.DB // Read connection pool (concurrent readers)
	dbPath   string
	pageSize int

	mu sync.Mutex // Serializes writes

	existsMu sync.RWMutex
	exists   map[string]bool // Shard table existence cache
}

// NewSQLiteStore opens (or creates) a SQLite-backed store at dbPath.
// pageSize caps rows per scan segment; zero selects DefaultSegmentSize.
func NewSQLiteStore(dbPath string, pageSize int) (*SQLiteStore, error) {
	if pageSize <= 0 {
		pageSize = DefaultSegmentSize
	}

	// Write connection: single writer with WAL mode
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Read connection pool: concurrent readers
	readDB, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: open read database: %w", err)
	}
	readDB.SetMaxOpenConns(8)

	return &SQLiteStore{
		db:       db,
		readDB:   readDB,
		dbPath:   dbPath,
		pageSize: pageSize,
		exists:   make(map[string]bool),
	}, nil
}

// tableName maps a shard name onto a SQLite table identifier. Shard names
// are restricted to lowercase letters, digits, and hyphen: SQLite folds
// identifier case, so admitting uppercase or underscore would let distinct
// shard names ("Shard-A", "shard_a") land in one table. With that alphabet
// the hyphen-to-underscore mapping is one to one.
func tableName(shard string) (string, error) {
	if shard == "" {
		return "", types.NewValidationError("shard name is required")
	}
	for _, r := range shard {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
		default:
			return "", types.NewValidationError("shard name contains invalid character %q", r)
		}
	}
	return "events_" + strings.ReplaceAll(shard, "-", "_"), nil
}

// EnsureShard creates the shard's table if it does not exist.
func (s *SQLiteStore) EnsureShard(ctx context.Context, shard string) error {
	table, err := tableName(shard)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		partition_key TEXT NOT NULL,
		row_key       TEXT NOT NULL,
		id            TEXT NOT NULL,
		program_id    TEXT NOT NULL DEFAULT '',
		carrier_id    TEXT NOT NULL DEFAULT '',
		service_name  TEXT NOT NULL DEFAULT '',
		description   TEXT NOT NULL DEFAULT '',
		created_at    INTEGER NOT NULL,
		content       BLOB,
		PRIMARY KEY (partition_key, row_key)
	)`, table)

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite store: create shard %q: %w", shard, err)
	}

	s.existsMu.Lock()
	s.exists[shard] = true
	s.existsMu.Unlock()
	return nil
}

// ShardExists reports whether the shard's table exists.
func (s *SQLiteStore) ShardExists(ctx context.Context, shard string) (bool, error) {
	table, err := tableName(shard)
	if err != nil {
		return false, err
	}

	s.existsMu.RLock()
	cached := s.exists[shard]
	s.existsMu.RUnlock()
	if cached {
		return true, nil
	}

	var name string
	err = s.readDB.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite store: shard lookup %q: %w", shard, err)
	}

	s.existsMu.Lock()
	s.exists[shard] = true
	s.existsMu.Unlock()
	return true, nil
}

// Insert adds a single row to the shard's table.
func (s *SQLiteStore) Insert(ctx context.Context, shard string, row *types.EventRow) error {
	table, err := tableName(shard)
	if err != nil {
		return err
	}
	ok, err := s.ShardExists(ctx, shard)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("sqlite store: insert into %q: %w", shard, types.ErrShardNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stmt := fmt.Sprintf(`INSERT INTO %s
		(partition_key, row_key, id, program_id, carrier_id, service_name, description, created_at, content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, table)

	_, err = s.db.ExecContext(ctx, stmt,
		row.PartitionKey, row.RowKey, row.ID, row.ProgramID, row.CarrierID,
		row.ServiceName, row.Description, row.CreatedAt.UTC().UnixNano(), row.Content)
	if err != nil {
		return fmt.Errorf("sqlite store: insert into %q: %w", shard, err)
	}
	return nil
}

// Scan returns the next segment of rows matching the filter in primary-key
// order. The continuation token carries the last key served plus a murmur3
// signature of the shard and filter. The keyset cursor keeps the scan stable
// when rows are inserted between segments (reversed-ticks row keys sort new
// events before existing ones, which would shift every row offset); a token
// replayed against a different scan is rejected.
func (s *SQLiteStore) Scan(ctx context.Context, shard string, filter Filter, token string) (*Page, error) {
	table, err := tableName(shard)
	if err != nil {
		return nil, err
	}
	ok, err := s.ShardExists(ctx, shard)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("sqlite store: scan %q: %w", shard, types.ErrShardNotFound)
	}

	where, args, err := buildWhere(filter)
	if err != nil {
		return nil, err
	}

	if token != "" {
		afterPK, afterRK, err := decodeScanToken(token, shard, filter)
		if err != nil {
			return nil, err
		}
		cursor := "(partition_key > ? OR (partition_key = ? AND row_key > ?))"
		if where == "" {
			where = "WHERE " + cursor
		} else {
			where += " AND " + cursor
		}
		args = append(args, afterPK, afterPK, afterRK)
	}

	query := fmt.Sprintf(`SELECT partition_key, row_key, id, program_id, carrier_id,
		service_name, description, created_at, content
		FROM %s %s ORDER BY partition_key ASC, row_key ASC LIMIT ?`, table, where)
	args = append(args, s.pageSize+1)

	rows, err := s.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: scan %q: %w", shard, err)
	}
	defer rows.Close()

	page := &Page{}
	for rows.Next() {
		var r types.EventRow
		var createdNanos int64
		if err := rows.Scan(&r.PartitionKey, &r.RowKey, &r.ID, &r.ProgramID, &r.CarrierID,
			&r.ServiceName, &r.Description, &createdNanos, &r.Content); err != nil {
			return nil, fmt.Errorf("sqlite store: scan %q: %w", shard, err)
		}
		r.CreatedAt = time.Unix(0, createdNanos).UTC()
		page.Rows = append(page.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite store: scan %q: %w", shard, err)
	}

	// One extra row was requested to detect whether more segments remain.
	if len(page.Rows) > s.pageSize {
		page.Rows = page.Rows[:s.pageSize]
		last := page.Rows[len(page.Rows)-1]
		page.NextToken = encodeScanToken(last.PartitionKey, last.RowKey, shard, filter)
	}
	return page, nil
}

// Close closes both database connections.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		s.readDB.Close()
		return err
	}
	return s.readDB.Close()
}

// buildWhere renders filter conditions as a parameterized WHERE clause.
func buildWhere(filter Filter) (string, []interface{}, error) {
	if len(filter.Conditions) == 0 {
		return "", nil, nil
	}
	var clauses []string
	var args []interface{}
	for _, c := range filter.Conditions {
		col := "partition_key"
		if c.Field == FieldRowKey {
			col = "row_key"
		}
		switch c.Op {
		case OpEq, OpLt, OpLe, OpGt, OpGe:
		default:
			return "", nil, fmt.Errorf("%w: unsupported operator %q", ErrInvalidFilter, c.Op)
		}
		clauses = append(clauses, fmt.Sprintf("%s %s ?", col, c.Op))
		args = append(args, c.Value)
	}
	return "WHERE " + strings.Join(clauses, " AND "), args, nil
}

// scanSignature hashes the scan identity (shard + canonical filter) so stale
// or foreign tokens are detected instead of silently corrupting pagination.
func scanSignature(shard string, filter Filter) uint64 {
	return murmur3.Sum64([]byte(shard + "|" + filter.String()))
}

func encodeScanToken(pk, rk, shard string, filter Filter) string {
	return fmt.Sprintf("%s\x00%s\x00%016x", pk, rk, scanSignature(shard, filter))
}

func decodeScanToken(token, shard string, filter Filter) (pk, rk string, err error) {
	parts := strings.SplitN(token, "\x00", 3)
	if len(parts) != 3 {
		return "", "", ErrInvalidToken
	}
	sig, err := strconv.ParseUint(parts[2], 16, 64)
	if err != nil || sig != scanSignature(shard, filter) {
		return "", "", ErrInvalidToken
	}
	return parts[0], parts[1], nil
}
