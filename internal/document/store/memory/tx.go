package memory

import (
	"context"
	"slices"
	"time"

	"notaria/internal/document/models"
	id "notaria/pkg/domain"
	"notaria/pkg/platform/sentinel"
)

// memTx is the transactional view handed to the coordinator. The owner's
// mutex is held for its whole life.
type memTx struct {
	owner *InMemory
	st    state
}

func (t *memTx) FindByIDsForUpdate(_ context.Context, ids []id.DocumentID) ([]*models.Document, error) {
	return findByIDs(t.st, ids), nil
}

func (t *memTx) FindReadyByCode(_ context.Context, code string) ([]*models.Document, error) {
	return findReadyByCode(t.st, code), nil
}

func (t *memTx) RetrievalCodeInUse(_ context.Context, code string) (bool, error) {
	_, ok := t.st.codes[code]
	return ok, nil
}

func (t *memTx) ClaimRetrievalCode(_ context.Context, code, holder string, at time.Time) error {
	if t.owner.claimConflict > 0 {
		t.owner.claimConflict--
		return sentinel.ErrAlreadyUsed
	}
	if _, ok := t.st.codes[code]; ok {
		return sentinel.ErrAlreadyUsed
	}
	t.st.codes[code] = codeClaim{holder: holder, at: at}
	return nil
}

func (t *memTx) ReleaseRetrievalCode(_ context.Context, code string) error {
	for _, d := range t.st.docs {
		if d.Status == models.StatusReady && d.RetrievalCode == code {
			return nil
		}
	}
	delete(t.st.codes, code)
	return nil
}

func (t *memTx) GetGroup(_ context.Context, groupID id.GroupID) (*models.DocumentGroup, error) {
	g, ok := t.st.groups[groupID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *g
	c.MemberIDs = slices.Clone(g.MemberIDs)
	return &c, nil
}

func (t *memTx) ListGroupMembers(_ context.Context, groupID id.GroupID) ([]*models.Document, error) {
	var out []*models.Document
	for _, d := range t.st.docs {
		if d.GroupID == groupID {
			out = append(out, d.Clone())
		}
	}
	sortDocs(out)
	return out, nil
}

func (t *memTx) CreateGroup(_ context.Context, group *models.DocumentGroup) error {
	if _, ok := t.st.groups[group.ID]; ok {
		return sentinel.ErrConflict
	}
	g := *group
	g.MemberIDs = slices.Clone(group.MemberIDs)
	t.st.groups[group.ID] = &g
	return nil
}

func (t *memTx) DeleteGroup(_ context.Context, groupID id.GroupID) error {
	delete(t.st.groups, groupID)
	return nil
}

func (t *memTx) UpdateDocument(_ context.Context, doc *models.Document, expected models.Status) error {
	stored, ok := t.st.docs[doc.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Status != expected {
		return sentinel.ErrConflict
	}
	t.st.docs[doc.ID] = doc.Clone()
	return nil
}

func (t *memTx) AppendEvents(_ context.Context, events []*models.AuditEvent) error {
	for _, e := range events {
		ev := *e
		t.st.events = append(t.st.events, &ev)
	}
	return nil
}
