/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package db implements store.Store on PostgreSQL through pgx.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
)

// DB is the PostgreSQL-backed store.
type DB struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

var (
	_ store.Store = (*DB)(nil)
	_ store.Tx    = (*pgTx)(nil)
)

// Open connects, migrates and returns a ready store.
func Open(ctx context.Context, cfg *models.DatabaseConfig, log logger.Logger) (*DB, error) {
	pool, err := NewPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, pool, log); err != nil {
		pool.Close()
		return nil, err
	}

	return &DB{pool: pool, logger: log}, nil
}

func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) (err error) {
	pgxTx, err := d.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("db: begin: %w", err)
	}

	tx := &pgTx{tx: pgxTx}

	defer func() {
		if err != nil {
			if rbErr := pgxTx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
				d.logger.Warn().Err(rbErr).Msg("rollback failed")
			}
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}

	if err = pgxTx.Commit(ctx); err != nil {
		return fmt.Errorf("db: commit: %w", err)
	}

	for _, hook := range tx.hooks {
		hook()
	}

	return nil
}

// TryAdvisoryLock takes a session-level pg_try_advisory_lock on a dedicated
// connection that is held until release.
func (d *DB) TryAdvisoryLock(ctx context.Context, key string) (func(), bool, error) {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("db: acquire for advisory lock: %w", err)
	}

	lockKey := store.LockKey(key)

	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, lockKey).Scan(&ok); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("db: advisory lock %q: %w", key, err)
	}

	if !ok {
		conn.Release()
		return nil, false, nil
	}

	release := func() {
		if _, err := conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, lockKey); err != nil {
			d.logger.Warn().Err(err).Str("lock", key).Msg("advisory unlock failed")
		}

		conn.Release()
	}

	return release, true, nil
}

func (d *DB) Close() {
	d.pool.Close()
}

// pgTx binds the repositories to one pgx transaction.
type pgTx struct {
	tx    pgx.Tx
	hooks []func()
}

func (t *pgTx) AfterCommit(fn func()) {
	t.hooks = append(t.hooks, fn)
}
