package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// PostgresStore persists audit events in the audit_events table. The
// timestamp comes from the database clock (now()) and the sequence from a
// bigserial column, so ordering never depends on application clocks.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO audit_events (
			id, actor_id, event_type, subject_table, subject_record_id,
			payload, user_agent, client_ip, device, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.New(),
		event.ActorID,
		string(event.Type),
		event.SubjectTable,
		nullable(event.SubjectRecordID),
		payload,
		event.ClientContext.UserAgent,
		event.ClientContext.IP,
		event.ClientContext.Device,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit, offset int) ([]Event, error) {
	query := `
		SELECT id, seq, actor_id, event_type, subject_table, subject_record_id,
		       payload, user_agent, client_ip, device, created_at
		FROM audit_events
		ORDER BY created_at DESC, seq DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event     Event
			eventType string
			recordID  sql.NullString
			payload   []byte
		)
		err := rows.Scan(
			&event.ID,
			&event.Seq,
			&event.ActorID,
			&eventType,
			&event.SubjectTable,
			&recordID,
			&payload,
			&event.ClientContext.UserAgent,
			&event.ClientContext.IP,
			&event.ClientContext.Device,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Type = EventType(eventType)
		if recordID.Valid {
			event.SubjectRecordID = recordID.String
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &event.Payload); err != nil {
				return nil, fmt.Errorf("decode audit payload: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
