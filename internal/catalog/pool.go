package catalog

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// Pool is a bounded pool of reusable SQLite handles. The dialogue side of the
// agent is single-session, but the catalog may be shared, so the pool is safe
// for concurrent use. Handles are returned to the pool even when the wrapped
// query fails; over-capacity returns are closed instead of kept.
type Pool struct {
	path string
	max  int

	mu   sync.Mutex
	idle []*sql.DB
}

// NewPool creates a pool over the SQLite database at path, keeping at most
// maxConns idle handles.
func NewPool(path string, maxConns int) *Pool {
	if maxConns <= 0 {
		maxConns = 5
	}
	return &Pool{path: path, max: maxConns}
}

func (p *Pool) acquire() (*sql.DB, error) {
	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		db := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return db, nil
	}
	p.mu.Unlock()

	db, err := sql.Open("sqlite", p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	// One underlying connection per pooled handle.
	db.SetMaxOpenConns(1)
	return db, nil
}

func (p *Pool) release(db *sql.DB) {
	p.mu.Lock()
	if len(p.idle) < p.max {
		p.idle = append(p.idle, db)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	db.Close()
}

// WithConn runs fn with a pooled handle, guaranteeing the handle goes back to
// the pool (or is closed if the pool is full) even when fn fails.
func (p *Pool) WithConn(fn func(*sql.DB) error) error {
	db, err := p.acquire()
	if err != nil {
		return err
	}
	defer p.release(db)
	return fn(db)
}

// Close discards all idle handles.
func (p *Pool) Close() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()
	for _, db := range idle {
		db.Close()
	}
}

// idleCount is exposed for tests.
func (p *Pool) idleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}
