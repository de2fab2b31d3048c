package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"docverify/internal/verification/models"
	"docverify/pkg/platform/sentinel"
)

// Schema creates the trail table. Trails are stored whole as JSONB; the
// indexed columns serve lookups by submitter and step.
const Schema = `
CREATE TABLE IF NOT EXISTS verification_trails (
	verification_id TEXT PRIMARY KEY,
	initiated_by    TEXT NOT NULL,
	document_class  TEXT NOT NULL,
	started_at      TIMESTAMPTZ NOT NULL,
	completed_at    TIMESTAMPTZ NOT NULL,
	step_names      TEXT[] NOT NULL,
	failed_steps    TEXT[] NOT NULL,
	trail           JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS verification_trails_initiated_by_idx
	ON verification_trails (initiated_by, started_at);
`

// PostgresStore persists trails in Postgres.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies Schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply trail schema: %w", err)
	}
	return nil
}

// Append inserts the trail. A second write for the same verification is a
// conflict, never an update.
func (s *PostgresStore) Append(ctx context.Context, trail *models.AuditTrail) error {
	if err := checkSealed(trail); err != nil {
		return err
	}
	body, err := json.Marshal(trail)
	if err != nil {
		return fmt.Errorf("marshal audit trail: %w", err)
	}

	steps, failed := stepColumns(trail)
	query := `
		INSERT INTO verification_trails (
			verification_id, initiated_by, document_class,
			started_at, completed_at, step_names, failed_steps, trail
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (verification_id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		trail.VerificationID,
		trail.InitiatedBy,
		string(trail.DocumentClass),
		trail.StartedAt,
		trail.CompletedAt,
		pq.Array(steps),
		pq.Array(failed),
		body,
	)
	if err != nil {
		return fmt.Errorf("insert audit trail: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert audit trail: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("trail %s: %w", trail.VerificationID, sentinel.ErrConflict)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, verificationID string) (*models.AuditTrail, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT trail FROM verification_trails WHERE verification_id = $1`,
		verificationID,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trail %s: %w", verificationID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query audit trail: %w", err)
	}
	return decodeTrail(body)
}

// ListBySubmitter returns the trails initiated by submitterID, oldest first.
func (s *PostgresStore) ListBySubmitter(ctx context.Context, submitterID string) ([]*models.AuditTrail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trail FROM verification_trails
		WHERE initiated_by = $1
		ORDER BY started_at
	`, submitterID)
	if err != nil {
		return nil, fmt.Errorf("query audit trails: %w", err)
	}
	defer rows.Close()

	var out []*models.AuditTrail
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan audit trail: %w", err)
		}
		trail, err := decodeTrail(body)
		if err != nil {
			return nil, err
		}
		out = append(out, trail)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit trails: %w", err)
	}
	return out, nil
}

// ListFailedAt returns the ids of verifications whose named step failed.
func (s *PostgresStore) ListFailedAt(ctx context.Context, step string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT verification_id FROM verification_trails
		WHERE $1 = ANY(failed_steps)
		ORDER BY started_at
	`, step)
	if err != nil {
		return nil, fmt.Errorf("query failed trails: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan verification id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failed trails: %w", err)
	}
	return ids, nil
}

func stepColumns(trail *models.AuditTrail) (names, failed []string) {
	names = make([]string, 0, len(trail.Steps))
	failed = []string{}
	for _, st := range trail.Steps {
		names = append(names, st.Name)
		if st.Status == models.StepFailed {
			failed = append(failed, st.Name)
		}
	}
	return names, failed
}

func decodeTrail(body []byte) (*models.AuditTrail, error) {
	var trail models.AuditTrail
	if err := json.Unmarshal(body, &trail); err != nil {
		return nil, fmt.Errorf("decode audit trail: %w", err)
	}
	return &trail, nil
}
