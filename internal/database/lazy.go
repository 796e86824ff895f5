package database

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
)

// ErrUnconfigured is returned by a Lazy without a database URL.
var ErrUnconfigured = errors.New("database: not configured")

// Connector opens a DB for url.
type Connector func(ctx context.Context, url string) (DB, error)

// Lazy is a DB that connects on first use. A failed connect is not
// remembered, so the next call tries again.
type Lazy struct {
	url     string
	connect Connector

	mu sync.Mutex
	db DB
}

func NewLazy(url string, connect Connector) *Lazy {
	return &Lazy{url: url, connect: connect}
}

// Configured reports whether a database URL was supplied.
func (l *Lazy) Configured() bool {
	return l.url != ""
}

func (l *Lazy) get(ctx context.Context) (DB, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db != nil {
		return l.db, nil
	}
	if l.url == "" {
		return nil, ErrUnconfigured
	}
	db, err := l.connect(ctx, l.url)
	if err != nil {
		return nil, fmt.Errorf("database connect: %w", err)
	}
	l.db = db
	return db, nil
}

func (l *Lazy) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	db, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return db.Query(ctx, sql, args...)
}

func (l *Lazy) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	db, err := l.get(ctx)
	if err != nil {
		return errRow{err: err}
	}
	return db.QueryRow(ctx, sql, args...)
}

func (l *Lazy) Ping(ctx context.Context) error {
	db, err := l.get(ctx)
	if err != nil {
		return err
	}
	return db.Ping(ctx)
}

func (l *Lazy) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db != nil {
		l.db.Close()
		l.db = nil
	}
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }
