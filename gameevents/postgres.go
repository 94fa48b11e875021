package gameevents

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresSequencer allocates event ids from a database sequence. nextval
// is atomic, so concurrent recorders can never be handed the same id; this
// replaces the read-max-then-add-one pattern, which double-allocates under
// concurrent writers.
type PostgresSequencer struct {
	db *sql.DB
}

func NewPostgresSequencer(db *sql.DB) *PostgresSequencer {
	return &PostgresSequencer{db: db}
}

func (s *PostgresSequencer) Next(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT nextval('game_events_event_id_seq')`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate event id: %w", err)
	}
	return id, nil
}

// PostgresEventLog implements EventLog backed by the game_events table.
type PostgresEventLog struct {
	db *sql.DB
}

func NewPostgresEventLog(db *sql.DB) *PostgresEventLog {
	return &PostgresEventLog{db: db}
}

func (l *PostgresEventLog) Append(ctx context.Context, ev *RecordedEvent) error {
	info, err := json.Marshal(ev.Info)
	if err != nil {
		return fmt.Errorf("failed to serialize event info: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO game_events (event_id, game_id, type, info, valid, date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ev.EventID, ev.GameID, ev.Type, info, ev.Valid, ev.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to insert game event: %w", err)
	}
	return nil
}

func (l *PostgresEventLog) ListByGame(ctx context.Context, gameID string) ([]RecordedEvent, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT event_id, game_id, type, info, valid, date
		FROM game_events
		WHERE game_id = $1
		ORDER BY event_id ASC
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list game events: %w", err)
	}
	defer rows.Close()

	var events []RecordedEvent
	for rows.Next() {
		var ev RecordedEvent
		var info []byte
		if err := rows.Scan(&ev.EventID, &ev.GameID, &ev.Type, &info,
			&ev.Valid, &ev.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan game event: %w", err)
		}
		// A single undecodable info blob nulls that event's payload
		// instead of failing the whole listing.
		if err := json.Unmarshal(info, &ev.Info); err != nil {
			ev.Info = nil
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game events: %w", err)
	}
	return events, nil
}
