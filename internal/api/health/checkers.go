package health

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteChecker checks SQLite database connectivity.
type SQLiteChecker struct {
	db *sql.DB
}

// NewSQLiteChecker creates a new SQLite health checker.
func NewSQLiteChecker(db *sql.DB) *SQLiteChecker {
	return &SQLiteChecker{db: db}
}

// Name returns the checker name.
func (c *SQLiteChecker) Name() string {
	return "sqlite"
}

// Check verifies the SQLite database is accessible.
func (c *SQLiteChecker) Check(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return c.db.PingContext(ctx)
}

// Pinger is implemented by backends that support a liveness ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisChecker checks the redis revocation store.
type RedisChecker struct {
	pinger Pinger
}

// NewRedisChecker creates a new redis health checker.
func NewRedisChecker(p Pinger) *RedisChecker {
	return &RedisChecker{pinger: p}
}

// Name returns the checker name.
func (c *RedisChecker) Name() string {
	return "redis"
}

// Check verifies redis answers a ping.
func (c *RedisChecker) Check(ctx context.Context) error {
	if c.pinger == nil {
		return fmt.Errorf("redis not configured")
	}
	return c.pinger.Ping(ctx)
}

// FuncChecker adapts a function to Checker.
type FuncChecker struct {
	name  string
	check func(ctx context.Context) error
}

// NewFuncChecker creates a checker named name that calls check.
func NewFuncChecker(name string, check func(ctx context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, check: check}
}

// Name returns the checker name.
func (c *FuncChecker) Name() string {
	return c.name
}

// Check calls the wrapped function.
func (c *FuncChecker) Check(ctx context.Context) error {
	if c.check == nil {
		return fmt.Errorf("%s check not configured", c.name)
	}
	return c.check(ctx)
}
