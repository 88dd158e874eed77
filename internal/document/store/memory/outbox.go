package memory

import (
	"context"
	"time"

	"notaria/internal/document/models"
	id "notaria/pkg/domain"
)

// PendingEvents returns up to limit audit events not yet relayed, oldest first.
func (s *InMemory) PendingEvents(_ context.Context, limit int) ([]*models.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.AuditEvent
	for _, e := range s.st.events {
		if _, done := s.st.published[e.ID]; done {
			continue
		}
		ev := *e
		out = append(out, &ev)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// MarkPublished stamps relayed events.
func (s *InMemory) MarkPublished(_ context.Context, ids []id.EventID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, eid := range ids {
		s.st.published[eid] = at
	}
	return nil
}

// RecordNotifications persists notification outcomes.
func (s *InMemory) RecordNotifications(_ context.Context, records []*models.NotificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		c := *r
		s.st.notices = append(s.st.notices, &c)
	}
	return nil
}

// Notifications returns every recorded notification outcome.
func (s *InMemory) Notifications(_ context.Context) ([]*models.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.NotificationRecord, 0, len(s.st.notices))
	for _, r := range s.st.notices {
		c := *r
		out = append(out, &c)
	}
	return out, nil
}
