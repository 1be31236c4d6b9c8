package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"telegram_tapper/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditStore persists the economy audit trail.
type AuditStore interface {
	Create(ctx context.Context, e *domain.AuditEntry) error
	ListByPlayer(ctx context.Context, playerID uuid.UUID, limit int) ([]*domain.AuditEntry, error)
}

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewAuditRepository(db *pgxpool.Pool, timeout time.Duration) *AuditRepository {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &AuditRepository{db: db, timeout: timeout}
}

// Create inserts a new audit log entry
func (r *AuditRepository) Create(ctx context.Context, e *domain.AuditEntry) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	details, err := json.Marshal(e.Details)
	if err != nil || e.Details == nil {
		details = []byte("{}")
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO audit_logs (player_id, action, details)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, e.PlayerID, e.Action, details).Scan(&e.ID, &e.CreatedAt)
	return classify(err)
}

// ListByPlayer returns the newest entries of one player first.
func (r *AuditRepository) ListByPlayer(ctx context.Context, playerID uuid.UUID, limit int) ([]*domain.AuditEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, player_id, action, details, created_at
		FROM audit_logs
		WHERE player_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	entries, err := scanAuditEntries(rows)
	return entries, classify(err)
}

func scanAuditEntries(rows pgx.Rows) ([]*domain.AuditEntry, error) {
	entries := []*domain.AuditEntry{}
	for rows.Next() {
		var e domain.AuditEntry
		var details []byte
		if err := rows.Scan(&e.ID, &e.PlayerID, &e.Action, &details, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(details, &e.Details); err != nil {
			e.Details = map[string]any{}
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// MemoryAuditStore keeps the audit trail in process memory.
type MemoryAuditStore struct {
	mu      sync.Mutex
	entries []*domain.AuditEntry
	nextID  int64
	now     func() time.Time
}

func NewMemoryAuditStore(now func() time.Time) *MemoryAuditStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryAuditStore{now: now}
}

func (s *MemoryAuditStore) Create(ctx context.Context, e *domain.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return classify(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	e.ID = s.nextID
	e.CreatedAt = s.now()
	cp := *e
	s.entries = append(s.entries, &cp)
	return nil
}

func (s *MemoryAuditStore) ListByPlayer(ctx context.Context, playerID uuid.UUID, limit int) ([]*domain.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*domain.AuditEntry{}
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if s.entries[i].PlayerID == playerID {
			cp := *s.entries[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}
