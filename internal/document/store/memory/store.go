// Package memory is the in-process document store used for development and
// tests. A transaction works on a private copy of the state that replaces the
// shared state on commit; transactions are serialised by a single mutex.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"notaria/internal/document/models"
	"notaria/internal/document/service"
	id "notaria/pkg/domain"
	"notaria/pkg/platform/sentinel"
)

type codeClaim struct {
	holder string
	at     time.Time
}

type state struct {
	docs      map[id.DocumentID]*models.Document
	groups    map[id.GroupID]*models.DocumentGroup
	codes     map[string]codeClaim
	events    []*models.AuditEvent
	published map[id.EventID]time.Time
	notices   []*models.NotificationRecord
}

func newState() state {
	return state{
		docs:      make(map[id.DocumentID]*models.Document),
		groups:    make(map[id.GroupID]*models.DocumentGroup),
		codes:     make(map[string]codeClaim),
		published: make(map[id.EventID]time.Time),
	}
}

// clone copies everything a transaction may mutate. Events and notification
// records are append-only, so their slices are shared up to len.
func (s state) clone() state {
	c := newState()
	for k, v := range s.docs {
		c.docs[k] = v.Clone()
	}
	for k, v := range s.groups {
		g := *v
		g.MemberIDs = slices.Clone(v.MemberIDs)
		c.groups[k] = &g
	}
	for k, v := range s.codes {
		c.codes[k] = v
	}
	for k, v := range s.published {
		c.published[k] = v
	}
	c.events = s.events[:len(s.events):len(s.events)]
	c.notices = s.notices[:len(s.notices):len(s.notices)]
	return c
}

// InMemory implements service.Store plus the outbox and notification record
// ports.
type InMemory struct {
	mu sync.Mutex
	st state

	commitErr     error
	claimConflict int
}

func New() *InMemory {
	return &InMemory{st: newState()}
}

// Insert seeds documents. Existing IDs are overwritten.
func (s *InMemory) Insert(_ context.Context, docs ...*models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		s.st.docs[d.ID] = d.Clone()
		if d.Status == models.StatusReady && d.RetrievalCode != "" {
			if _, ok := s.st.codes[d.RetrievalCode]; !ok {
				s.st.codes[d.RetrievalCode] = codeClaim{holder: d.ID.String(), at: d.UpdatedAt}
			}
		}
	}
	return nil
}

// InjectCommitError makes the next commit fail with err after fn succeeded.
func (s *InMemory) InjectCommitError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitErr = err
}

// InjectClaimConflicts makes the next n code claims lose a race.
func (s *InMemory) InjectClaimConflicts(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claimConflict = n
}

func (s *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context, tx service.TxStore) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{owner: s, st: s.st.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if s.commitErr != nil {
		err := s.commitErr
		s.commitErr = nil
		return err
	}
	s.st = tx.st
	return nil
}

func (s *InMemory) FindByIDs(_ context.Context, ids []id.DocumentID) ([]*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return findByIDs(s.st, ids), nil
}

func (s *InMemory) FindReadyByCode(_ context.Context, code string) ([]*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return findReadyByCode(s.st, code), nil
}

// Get returns a copy of one document.
func (s *InMemory) Get(_ context.Context, docID id.DocumentID) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.st.docs[docID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return d.Clone(), nil
}

// Events returns the audit trail of one document in commit order.
func (s *InMemory) Events(_ context.Context, docID id.DocumentID) ([]*models.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.AuditEvent
	for _, e := range s.st.events {
		if e.DocumentID == docID {
			ev := *e
			out = append(out, &ev)
		}
	}
	return out, nil
}

// Groups returns every live group.
func (s *InMemory) Groups(_ context.Context) ([]*models.DocumentGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.DocumentGroup, 0, len(s.st.groups))
	for _, g := range s.st.groups {
		c := *g
		out = append(out, &c)
	}
	return out, nil
}

// RetrievalCodeInUse reports whether code is currently claimed.
func (s *InMemory) RetrievalCodeInUse(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.st.codes[code]
	return ok, nil
}

func findByIDs(st state, ids []id.DocumentID) []*models.Document {
	out := make([]*models.Document, 0, len(ids))
	for _, docID := range ids {
		if d, ok := st.docs[docID]; ok {
			out = append(out, d.Clone())
		}
	}
	return out
}

func findReadyByCode(st state, code string) []*models.Document {
	var out []*models.Document
	for _, d := range st.docs {
		if d.Status == models.StatusReady && d.RetrievalCode == code {
			out = append(out, d.Clone())
		}
	}
	sortDocs(out)
	return out
}

func sortDocs(docs []*models.Document) {
	slices.SortFunc(docs, func(a, b *models.Document) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		switch as, bs := a.ID.String(), b.ID.String(); {
		case as < bs:
			return -1
		case as > bs:
			return 1
		}
		return 0
	})
}
