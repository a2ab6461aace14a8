package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps a *sql.DB behind a readers-writer lock that is held only long
// enough to begin a transaction, so the pool itself is never serialized,
// only transaction acquisition is.
type DB struct {
	mu   sync.RWMutex
	pool *sql.DB
}

var (
	instance *DB
	once     sync.Once
)

// NewPostgresDB opens a connection pool and configures it from environment
// variables.
func NewPostgresDB(dsn string) (*DB, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := pool.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	maxOpenConns := getEnvInt("DB_MAX_OPEN_CONNS", 10)
	maxIdleConns := getEnvInt("DB_MAX_IDLE_CONNS", 5)
	connMaxLifetime := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	connMaxIdleTime := getEnvDuration("DB_CONN_MAX_IDLE_TIME", time.Minute)

	pool.SetMaxOpenConns(maxOpenConns)
	pool.SetMaxIdleConns(maxIdleConns)
	pool.SetConnMaxLifetime(connMaxLifetime)
	pool.SetConnMaxIdleTime(connMaxIdleTime)

	log.Printf("database connection pool configured: max_open=%d, max_idle=%d, max_lifetime=%s, max_idle_time=%s",
		maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	return &DB{pool: pool}, nil
}

// NewFromPool wraps an already-open *sql.DB, letting callers (tests,
// mainly) construct a DB around a sqlmock or other pre-configured pool
// without going through NewPostgresDB's DSN-based setup.
func NewFromPool(pool *sql.DB) *DB {
	return &DB{pool: pool}
}

// Init sets the process-wide DB handle exactly once; later calls are
// no-ops. The handle is immutable afterward — it is never reinitialized
// on reconfiguration.
func Init(db *DB) {
	once.Do(func() {
		instance = db
	})
}

// Instance returns the process-wide DB handle set by Init, or nil if
// boot hasn't called Init yet.
func Instance() *DB {
	return instance
}

// BeginTx acquires the read lock only long enough to start a transaction;
// the transaction itself then proceeds without holding the lock.
func (db *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}
	return db.pool.BeginTx(ctx, nil)
}

// Raw exposes the underlying *sql.DB for read-only helpers, e.g. health
// checks, that don't need transactional semantics.
func (db *DB) Raw() *sql.DB {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.pool
}

func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.pool == nil {
		return nil
	}
	return db.pool.Close()
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Printf("warning: invalid value for %s, using default: %d", key, defaultValue)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Printf("warning: invalid duration for %s, using default: %s", key, defaultValue)
	}
	return defaultValue
}
