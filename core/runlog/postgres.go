package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	// registers the "pgx" database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS run_log (
	seq         BIGSERIAL PRIMARY KEY,
	id          TEXT NOT NULL,
	scenario    TEXT NOT NULL,
	status      TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	feasible    BOOLEAN NOT NULL,
	record      JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS run_log_id_idx ON run_log (id);
`

// PostgresStore keeps the run log in a PostgreSQL table. Filters are
// evaluated by the database; the full record is stored as JSONB.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresStore opens dsn with the pgx driver and creates the table
// when missing.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return &PostgresStore{db: db, timeout: 5 * time.Second}, nil
}

func (s *PostgresStore) Append(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	query := `
		INSERT INTO run_log (id, scenario, status, started_at, feasible, record)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(ctx, query, rec.ID, rec.Scenario, rec.Status, rec.StartedAt, rec.Feasible, string(data))
	return err
}

func (s *PostgresStore) Query(ctx context.Context, q Query) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if !q.Start.IsZero() {
		add("started_at >= $%d", q.Start)
	}
	if !q.End.IsZero() {
		add("started_at <= $%d", q.End)
	}
	if q.Scenario != "" {
		add("scenario = $%d", q.Scenario)
	}
	if q.Status != "" {
		add("status = $%d", q.Status)
	}
	if q.FeasibleOnly {
		add("feasible = $%d", true)
	}
	query := "SELECT seq, record FROM run_log"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	// most recent first, then back to append order
	query = "SELECT record FROM (" + query + ") AS recent ORDER BY seq"

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r Record
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT record FROM run_log WHERE id = $1 ORDER BY seq DESC LIMIT 1`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, err
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, err
	}
	return r, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }
