package convlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the conversation_turns table. Execute it via
// [PostgresSink.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS conversation_turns (
    id             BIGSERIAL PRIMARY KEY,
    session_id     TEXT NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    user_text      TEXT NOT NULL,
    assistant_text TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversation_turns_session ON conversation_turns(session_id, created_at);
`

// DB is the database interface used by [PostgresSink]. Both *pgxpool.Pool
// and *pgx.Conn satisfy it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSink stores turns in PostgreSQL.
type PostgresSink struct {
	db    DB
	close func()
}

var _ Sink = (*PostgresSink)(nil)

// NewPostgresSink returns a sink over db. The caller owns db unless a close
// function is attached with [PostgresSink.OnClose]. Call
// [PostgresSink.Migrate] before the first append.
func NewPostgresSink(db DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// OnClose registers fn to run from [PostgresSink.Close], typically the
// pool's Close method.
func (s *PostgresSink) OnClose(fn func()) { s.close = fn }

// Migrate executes the [Schema] DDL.
func (s *PostgresSink) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("convlog: migrate: %w", err)
	}
	return nil
}

// Append inserts t.
func (s *PostgresSink) Append(ctx context.Context, t Turn) error {
	const query = `
		INSERT INTO conversation_turns (session_id, created_at, user_text, assistant_text)
		VALUES ($1, $2, $3, $4)`
	if _, err := s.db.Exec(ctx, query, t.SessionID, t.Time, t.User, t.Assistant); err != nil {
		return fmt.Errorf("convlog: append: %w", err)
	}
	return nil
}

// Recent returns up to limit of the newest turns of a session, oldest first.
func (s *PostgresSink) Recent(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		return nil, nil
	}
	const query = `
		SELECT session_id, created_at, user_text, assistant_text
		FROM (
			SELECT session_id, created_at, user_text, assistant_text, id
			FROM conversation_turns
			WHERE session_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at, id`
	rows, err := s.db.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("convlog: recent: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.SessionID, &t.Time, &t.User, &t.Assistant); err != nil {
			return nil, fmt.Errorf("convlog: recent scan: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("convlog: recent rows: %w", err)
	}
	return turns, nil
}

// Close runs the function registered with [PostgresSink.OnClose], if any.
func (s *PostgresSink) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}
