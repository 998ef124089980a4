// Package rpclog journals processed RPC calls to SQLite.
//
// Store implements jsonrpc.Recorder: wire a Store into a transport and
// every processed call leaves a row with its method, outcome and
// latency. Recent reads the journal back, newest first, for
// inspection tooling.
package rpclog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	mathrand "math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/mnehpets/onerpc/jsonrpc"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// newCallID generates a ULID row key. ULIDs sort lexicographically in
// creation order, so the primary key doubles as the recency index.
func newCallID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Store owns the SQLite journal database.
type Store struct {
	db   *sql.DB
	path string
}

// Path returns the underlying SQLite file path.
func (s *Store) Path() string {
	return s.path
}

// Open initializes a SQLite database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Init ensures pragmas and schema are configured.
func (s *Store) Init(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("nil store")
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, stmt := range pragmas {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}
	return s.applySchema(ctx)
}

func (s *Store) applySchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`INSERT OR IGNORE INTO meta(key,value) VALUES ('schemaVersion','1');`,
		`CREATE TABLE IF NOT EXISTS calls (
			id TEXT PRIMARY KEY,
			request_id TEXT NOT NULL,
			method TEXT NOT NULL,
			success INTEGER NOT NULL,
			error_code INTEGER,
			duration_us INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_calls_created_at ON calls(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_calls_method ON calls(method);`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Call is one journaled RPC call.
type Call struct {
	// ID is the row's ULID.
	ID        string
	RequestID string
	Method    string
	Success   bool
	// ErrorCode is the wire error code for failed calls, zero
	// otherwise.
	ErrorCode int
	Duration  time.Duration
	CreatedAt time.Time
}

// Record implements jsonrpc.Recorder.
func (s *Store) Record(ctx context.Context, res *jsonrpc.Result, d time.Duration) error {
	if s == nil || s.db == nil {
		return errors.New("nil store")
	}

	var requestID string
	if res.Response != nil && res.Response.ID != nil {
		requestID = fmt.Sprint(res.Response.ID)
	}
	var method string
	if res.Request.OK {
		method = res.Request.Request.Method
	}
	var errorCode sql.NullInt64
	if res.Response != nil && res.Response.Error != nil {
		errorCode = sql.NullInt64{Int64: int64(res.Response.Error.Code), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO calls(id, request_id, method, success, error_code, duration_us, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?);`,
		newCallID(), requestID, method, res.Success, errorCode, d.Microseconds(), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert call: %w", err)
	}
	return nil
}

// Recent returns the newest n journaled calls, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Call, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("nil store")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, method, success, error_code, duration_us, created_at
		 FROM calls ORDER BY id DESC LIMIT ?;`, n)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	var calls []Call
	for rows.Next() {
		var c Call
		var errorCode sql.NullInt64
		var durationUS, createdAt int64
		if err := rows.Scan(&c.ID, &c.RequestID, &c.Method, &c.Success, &errorCode, &durationUS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		if errorCode.Valid {
			c.ErrorCode = int(errorCode.Int64)
		}
		c.Duration = time.Duration(durationUS) * time.Microsecond
		c.CreatedAt = time.UnixMilli(createdAt)
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

var _ jsonrpc.Recorder = (*Store)(nil)
