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

// Package memory is an in-process store.Store. Transactions are serialised
// and run against a private copy of the data that replaces the committed
// state only when fn succeeds.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sgich/assetradar/pkg/store"
)

// Store implements store.Store in memory.
type Store struct {
	mu    sync.Mutex
	state *state

	locksMu sync.Mutex
	locks   map[string]struct{}
}

var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*memTx)(nil)
)

func New() *Store {
	return &Store{
		state: newState(),
		locks: make(map[string]struct{}),
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := s.run(ctx, fn)
	if err != nil {
		return err
	}

	for _, hook := range tx.hooks {
		hook()
	}

	return nil
}

func (s *Store) run(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) (*memTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{st: s.state.clone()}

	if err := fn(ctx, tx); err != nil {
		return nil, err
	}

	s.state = tx.st

	return tx, nil
}

func (s *Store) TryAdvisoryLock(_ context.Context, key string) (func(), bool, error) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	if _, held := s.locks[key]; held {
		return nil, false, nil
	}

	s.locks[key] = struct{}{}

	release := func() {
		s.locksMu.Lock()
		delete(s.locks, key)
		s.locksMu.Unlock()
	}

	return release, true, nil
}

func (*Store) Close() {}

type memTx struct {
	st    *state
	hooks []func()
}

func (t *memTx) AfterCommit(fn func()) {
	t.hooks = append(t.hooks, fn)
}

func (t *memTx) nextID() int64 {
	t.st.seq++
	return t.st.seq
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}

	c := *v

	return &c
}

func cloneIDs(ids []int64) []int64 {
	if ids == nil {
		return nil
	}

	return append([]int64(nil), ids...)
}

func cloneMap[T any](m map[int64]*T, cp func(*T) *T) map[int64]*T {
	out := make(map[int64]*T, len(m))
	for k, v := range m {
		out[k] = cp(v)
	}

	return out
}

func cloneLinks(m map[int64][]int64) map[int64][]int64 {
	out := make(map[int64][]int64, len(m))
	for k, v := range m {
		out[k] = cloneIDs(v)
	}

	return out
}

func sortedKeys[T any](m map[int64]*T) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return keys
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}

	return false
}
