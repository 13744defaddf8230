package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

const jobLockPrefix = "alize:"

// JobLockStore serializes periodic jobs across replicas with session-level Postgres
// advisory locks. The connection that took a lock is held until UnlockJob so the
// unlock runs in the same session.
type JobLockStore struct {
	db *sql.DB

	mu    sync.Mutex
	conns map[string]*sql.Conn
}

func NewJobLockStore(db *sql.DB) *JobLockStore {
	return &JobLockStore{db: db, conns: make(map[string]*sql.Conn)}
}

func (s *JobLockStore) TryLockJob(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, held := s.conns[name]; held {
		return false, nil
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection for job lock %s: %w", name, err)
	}

	var ok bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, jobLockPrefix+name).Scan(&ok); err != nil {
		_ = conn.Close()
		return false, err
	}

	if !ok {
		_ = conn.Close()
		return false, nil
	}

	s.conns[name] = conn

	return true, nil
}

func (s *JobLockStore) UnlockJob(ctx context.Context, name string) {
	s.mu.Lock()
	conn, held := s.conns[name]
	delete(s.conns, name)
	s.mu.Unlock()

	if !held {
		return
	}

	_, _ = conn.ExecContext(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, jobLockPrefix+name)
	_ = conn.Close()
}
