package users

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure ActivityEventType = "auth.login.failure"
	ActivityEventTokenIssued  ActivityEventType = "auth.token.issued"
	ActivityEventUserCreated  ActivityEventType = "user.created"
	ActivityEventUserRemoved  ActivityEventType = "user.removed"
	ActivityEventRoleCreated  ActivityEventType = "role.created"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType   ActivityEventType
	PrincipalID int64
	Identifier  string
	Metadata    map[string]any
	OccurredAt  time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// Sinks run best-effort; a failing sink never blocks authentication.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// ActivityRecord is the persisted form of an ActivityEvent.
type ActivityRecord struct {
	bun.BaseModel `bun:"table:activity_log,alias:act"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	EventType     string         `bun:"event_type,notnull" json:"event_type,omitempty"`
	PrincipalID   int64          `bun:"principal_id" json:"principal_id,omitempty"`
	Identifier    string         `bun:"identifier" json:"identifier,omitempty"`
	Metadata      map[string]any `bun:"metadata" json:"metadata,omitempty"`
	OccurredAt    time.Time      `bun:"occurred_at,notnull" json:"occurred_at,omitempty"`
}

func NewActivityRepository(db *bun.DB) repository.Repository[*ActivityRecord] {
	handlers := repository.ModelHandlers[*ActivityRecord]{
		NewRecord: func() *ActivityRecord {
			return &ActivityRecord{}
		},
		GetID: func(record *ActivityRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *ActivityRecord, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "identifier"
		},
	}
	return repository.NewRepository(db, handlers)
}

// StoreActivitySink persists events to the activity log.
type StoreActivitySink struct {
	records repository.Repository[*ActivityRecord]
	logger  Logger
}

func NewStoreActivitySink(db *bun.DB) *StoreActivitySink {
	return &StoreActivitySink{
		records: NewActivityRepository(db),
		logger:  defLogger{},
	}
}

func (s *StoreActivitySink) WithLogger(logger Logger) *StoreActivitySink {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *StoreActivitySink) Record(ctx context.Context, event ActivityEvent) error {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	record := &ActivityRecord{
		ID:          uuid.New(),
		EventType:   string(event.EventType),
		PrincipalID: event.PrincipalID,
		Identifier:  event.Identifier,
		Metadata:    event.Metadata,
		OccurredAt:  occurredAt,
	}

	if _, err := s.records.Create(ctx, record); err != nil {
		return err
	}

	return nil
}

var _ ActivitySink = (*StoreActivitySink)(nil)
