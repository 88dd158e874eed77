package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"notaria/internal/document/grouping"
	"notaria/internal/document/models"
	"notaria/internal/document/transition"
	id "notaria/pkg/domain"
	dErrors "notaria/pkg/domain-errors"
	"notaria/pkg/requestcontext"
)

// Apply validates a bulk transition and commits it atomically. Precondition
// failures refuse the whole batch before anything is written.
func (s *Service) Apply(ctx context.Context, req Request) (*BulkResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "document.bulk_transition", trace.WithAttributes(
		attribute.String("document.to_status", string(req.To)),
		attribute.Int("document.count", len(req.DocumentIDs)),
		attribute.String("actor.role", string(req.Actor.Role)),
	))
	result, err := s.apply(ctx, req)
	endSpan(span, err)
	s.metrics.ObserveBulkDuration(time.Since(start))
	s.metrics.IncrementBulk(string(req.To), outcomeOf(err))

	requestID := requestcontext.RequestID(ctx)
	if err != nil {
		level := s.logger.WarnContext
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			level = s.logger.ErrorContext
		}
		level(ctx, "bulk transition refused",
			"request_id", requestID,
			"actor_id", req.Actor.ID,
			"to", req.To,
			"document_count", len(req.DocumentIDs),
			"error", err,
		)
		return nil, err
	}

	s.metrics.AddDocumentsTransitioned(string(req.To), result.UpdatedCount)
	s.logger.InfoContext(ctx, "bulk transition committed",
		"log_type", "audit",
		"request_id", requestID,
		"actor_id", req.Actor.ID,
		"actor_role", req.Actor.Role,
		"to", req.To,
		"updated_count", result.UpdatedCount,
		"client_groups", len(result.Groups),
		"groups_created", len(result.CreatedGroups),
		"groups_dissolved", len(result.DissolvedGroups),
	)
	return result, nil
}

func (s *Service) apply(ctx context.Context, req Request) (*BulkResult, error) {
	ids, err := s.checkRequest(req)
	if err != nil {
		return nil, err
	}
	if len(req.Observed) == 0 {
		loaded, err := s.store.FindByIDs(ctx, ids)
		if err != nil {
			return nil, translate(err, "load documents")
		}
		req.Observed = ObservedOf(loaded)
	}
	var result *BulkResult
	err = s.runCommit(ctx, func(ctx context.Context, tx TxStore) error {
		r, err := s.applyInTx(ctx, tx, ids, req)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, translate(err, "commit status change")
	}
	return result, nil
}

// checkRequest runs the checks that need no stored state.
func (s *Service) checkRequest(req Request) ([]id.DocumentID, error) {
	ids := dedupeIDs(req.DocumentIDs)
	if len(ids) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "documentIds must not be empty")
	}
	if len(ids) > s.maxBatch {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("at most %d documents can be changed in one operation", s.maxBatch))
	}
	if !req.To.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown target status "+string(req.To))
	}
	if req.Actor.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !transition.CanRoleTarget(req.Actor.Role, req.To) {
		return nil, dErrors.New(dErrors.CodeForbidden,
			fmt.Sprintf("role %s may not move documents to %s", req.Actor.Role, req.To))
	}
	if req.To == models.StatusDelivered && (req.Delivery == nil || strings.TrimSpace(req.Delivery.DeliveredTo) == "") {
		return nil, dErrors.New(dErrors.CodeValidation, "deliveredTo is required")
	}
	return ids, nil
}

func (s *Service) applyInTx(ctx context.Context, tx TxStore, ids []id.DocumentID, req Request) (*BulkResult, error) {
	loaded, err := tx.FindByIDsForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}
	docs, missing := orderByIDs(ids, loaded)
	if missing > 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("%d document(s) not found", missing))
	}
	if err := checkOwnership(docs, req.Actor); err != nil {
		return nil, err
	}
	if err := checkTransitions(docs, req.To, req.Reason); err != nil {
		if moved := movedSince(docs, req.Observed, req.To, req.Reason); moved > 0 {
			return nil, dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("%d document(s) changed since they were read; reload and retry", moved))
		}
		return nil, err
	}

	now := s.now()
	result := &BulkResult{To: req.To, Actor: req.Actor, CommittedAt: now}
	batch := s.issuer.NewBatch(tx)
	bulk := len(docs) > 1

	var (
		events      []*models.AuditEvent
		leftGroups  []id.GroupID
		leftSeen    = make(map[id.GroupID]bool)
		releasable  []string
		releaseSeen = make(map[string]bool)
	)
	release := func(code string) {
		if code != "" && !releaseSeen[code] {
			releaseSeen[code] = true
			releasable = append(releasable, code)
		}
	}

	for _, part := range grouping.PartitionDocuments(docs) {
		group := ClientGroupResult{
			Key:       part.Key,
			ClientKey: part.Key.String(),
			Client:    part.Documents[0].Client,
			Policy:    policyOf(part.Documents),
		}

		var code string
		var groupID id.GroupID
		if req.To == models.StatusReady {
			code, groupID, err = s.assignCode(ctx, tx, batch, part, now, result)
			if err != nil {
				return nil, err
			}
			group.RetrievalCode = code
			group.GroupID = groupID
			group.Grouped = part.IsGroup()
		}

		for _, doc := range part.Documents {
			from := doc.Status
			before := doc.GroupFields()

			switch {
			case req.To == models.StatusReady:
				doc.RetrievalCode = code
				doc.IsGrouped = part.IsGroup()
				doc.GroupID = groupID
			case from == models.StatusReady && req.To == models.StatusInProgress:
				if doc.IsGrouped && !leftSeen[doc.GroupID] {
					leftSeen[doc.GroupID] = true
					leftGroups = append(leftGroups, doc.GroupID)
				}
				release(doc.RetrievalCode)
				doc.ClearGroupFields()
			case req.To == models.StatusDelivered:
				doc.Delivery = &models.Delivery{
					DeliveredTo:      strings.TrimSpace(req.Delivery.DeliveredTo),
					ReceiverIDNumber: strings.TrimSpace(req.Delivery.ReceiverIDNumber),
					Relationship:     strings.TrimSpace(req.Delivery.Relationship),
					Observations:     strings.TrimSpace(req.Delivery.Observations),
					DeliveredAt:      now,
					DeliveredBy:      req.Actor.ID,
				}
				release(doc.RetrievalCode)
				if group.RetrievalCode == "" {
					group.RetrievalCode = doc.RetrievalCode
				}
			}
			doc.Status = req.To
			doc.UpdatedAt = now

			if err := tx.UpdateDocument(ctx, doc, from); err != nil {
				return nil, err
			}

			details := models.EventDetails{
				Bulk:          bulk,
				BatchSize:     len(docs),
				GroupID:       doc.GroupID,
				RetrievalCode: code,
				Reason:        strings.TrimSpace(req.Reason),
			}
			if part.IsGroup() && req.To == models.StatusReady {
				details.GroupSize = len(part.Documents)
			}
			if doc.Delivery != nil && req.To == models.StatusDelivered {
				details.DeliveredTo = doc.Delivery.DeliveredTo
			}
			if details.GroupID.IsNil() {
				details.GroupID = before.GroupID
			}
			events = append(events, newEvent(doc.ID, req.Actor, from, req.To, details, now))

			result.Changes = append(result.Changes, DocumentChange{
				DocumentID:    doc.ID,
				From:          from,
				To:            req.To,
				Before:        before,
				After:         doc.GroupFields(),
				StatusChanged: true,
				CodeIssued:    req.To == models.StatusReady,
			})
			group.Documents = append(group.Documents, doc.Clone())
		}
		result.Groups = append(result.Groups, group)
	}

	for _, gid := range leftGroups {
		if err := s.settleGroup(ctx, tx, gid, docs, result); err != nil {
			return nil, err
		}
	}
	for _, code := range releasable {
		if err := tx.ReleaseRetrievalCode(ctx, code); err != nil {
			return nil, err
		}
	}
	if err := tx.AppendEvents(ctx, events); err != nil {
		return nil, err
	}
	result.UpdatedCount = len(docs)
	return result, nil
}

// assignCode mints the partition's retrieval code and, for multi-document
// partitions, the group that shares it.
func (s *Service) assignCode(ctx context.Context, tx TxStore, batch retrievalBatch, part grouping.Partition, now time.Time, result *BulkResult) (string, id.GroupID, error) {
	if !part.IsGroup() {
		code, err := batch.IssueForSingle(ctx)
		if err != nil {
			return "", id.GroupID{}, err
		}
		if err := tx.ClaimRetrievalCode(ctx, code, part.Documents[0].ID.String(), now); err != nil {
			return "", id.GroupID{}, err
		}
		return code, id.GroupID{}, nil
	}

	code, err := batch.IssueForGroup(ctx)
	if err != nil {
		return "", id.GroupID{}, err
	}
	group := models.DocumentGroup{
		ID:        id.NewGroupID(),
		Code:      code,
		MemberIDs: idsOf(part.Documents),
		CreatedAt: now,
	}
	if err := tx.CreateGroup(ctx, &group); err != nil {
		return "", id.GroupID{}, err
	}
	if err := tx.ClaimRetrievalCode(ctx, code, group.ID.String(), now); err != nil {
		return "", id.GroupID{}, err
	}
	result.CreatedGroups = append(result.CreatedGroups, group)
	return code, group.ID, nil
}

// settleGroup dissolves a group that members just left if fewer than two
// documents remain in it. A remaining member keeps the code as its own.
func (s *Service) settleGroup(ctx context.Context, tx TxStore, gid id.GroupID, moved []*models.Document, result *BulkResult) error {
	remaining, err := tx.ListGroupMembers(ctx, gid)
	if err != nil {
		return err
	}
	if len(remaining) >= 2 {
		return nil
	}
	group, err := tx.GetGroup(ctx, gid)
	if err != nil {
		return err
	}
	snapshot := *group
	snapshot.MemberIDs = nil
	for _, c := range result.Changes {
		if c.Before.GroupID == gid {
			snapshot.MemberIDs = append(snapshot.MemberIDs, c.DocumentID)
		}
	}
	for _, m := range remaining {
		before := m.GroupFields()
		m.Ungroup()
		m.UpdatedAt = result.CommittedAt
		if err := tx.UpdateDocument(ctx, m, m.Status); err != nil {
			return err
		}
		snapshot.MemberIDs = append(snapshot.MemberIDs, m.ID)
		result.Changes = append(result.Changes, DocumentChange{
			DocumentID: m.ID,
			From:       m.Status,
			To:         m.Status,
			Before:     before,
			After:      m.GroupFields(),
		})
	}
	if err := tx.DeleteGroup(ctx, gid); err != nil {
		return err
	}
	result.DissolvedGroups = append(result.DissolvedGroups, snapshot)
	s.logger.InfoContext(ctx, "document group dissolved",
		"group_id", gid,
		"remaining_members", len(remaining),
		"moved_documents", len(moved),
	)
	return nil
}

type retrievalBatch interface {
	IssueForGroup(ctx context.Context) (string, error)
	IssueForSingle(ctx context.Context) (string, error)
}

func checkOwnership(docs []*models.Document, actor id.Actor) error {
	if !transition.RequiresOwnership(actor.Role) {
		return nil
	}
	foreign := 0
	for _, d := range docs {
		if d.IsAssigned() && d.AssignedTo != actor.ID {
			foreign++
		}
	}
	if foreign > 0 {
		return dErrors.New(dErrors.CodeForbidden,
			fmt.Sprintf("%d document(s) are assigned to another user", foreign))
	}
	return nil
}

func checkTransitions(docs []*models.Document, to models.Status, reason string) error {
	failed := 0
	var first error
	for _, d := range docs {
		if err := transition.Validate(d.Status, to, reason); err != nil {
			failed++
			if first == nil {
				first = err
			}
		}
	}
	switch {
	case failed == 0:
		return nil
	case to == models.StatusReady:
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("%d document(s) not in status %s", failed, models.StatusInProgress))
	case failed == 1:
		return first
	default:
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("%d documents cannot move to %s: %s", failed, to, dErrors.Message(first)))
	}
}

// movedSince counts documents whose status changed after it was observed and
// whose move would have been legal from the observed status. Those are lost
// races, not invalid requests.
func movedSince(docs []*models.Document, observed []Observed, to models.Status, reason string) int {
	seen := make(map[id.DocumentID]models.Status, len(observed))
	for _, o := range observed {
		seen[o.DocumentID] = o.Status
	}
	moved := 0
	for _, d := range docs {
		was, ok := seen[d.ID]
		if !ok || was == d.Status {
			continue
		}
		if transition.Validate(was, to, reason) == nil && transition.Validate(d.Status, to, reason) != nil {
			moved++
		}
	}
	return moved
}

func newEvent(docID id.DocumentID, actor id.Actor, from, to models.Status, details models.EventDetails, now time.Time) *models.AuditEvent {
	eventType := models.EventStatusChanged
	if transition.IsReversion(from, to) {
		eventType = models.EventStatusReverted
	}
	return &models.AuditEvent{
		ID:         id.NewEventID(),
		DocumentID: docID,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Type:       eventType,
		From:       from,
		To:         to,
		Details:    details,
		CreatedAt:  now,
	}
}

// policyOf is silent when any document of the client asks not to be notified.
func policyOf(docs []*models.Document) models.NotificationPolicy {
	for _, d := range docs {
		if d.NotificationPolicy.IsSilent() {
			return models.PolicySilent
		}
	}
	return models.PolicyNotify
}

func dedupeIDs(ids []id.DocumentID) []id.DocumentID {
	seen := make(map[id.DocumentID]struct{}, len(ids))
	out := make([]id.DocumentID, 0, len(ids))
	for _, d := range ids {
		if d.IsNil() {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

// orderByIDs returns documents in request order and the number of IDs that
// did not resolve.
func orderByIDs(ids []id.DocumentID, loaded []*models.Document) ([]*models.Document, int) {
	byID := make(map[id.DocumentID]*models.Document, len(loaded))
	for _, d := range loaded {
		byID[d.ID] = d
	}
	out := make([]*models.Document, 0, len(ids))
	missing := 0
	for _, docID := range ids {
		d, ok := byID[docID]
		if !ok {
			missing++
			continue
		}
		out = append(out, d)
	}
	return out, missing
}

func idsOf(docs []*models.Document) []id.DocumentID {
	out := make([]id.DocumentID, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "committed"
	case dErrors.HasCode(err, dErrors.CodeConflict):
		return "conflict"
	case dErrors.HasCode(err, dErrors.CodeInternal), dErrors.HasCode(err, dErrors.CodeTimeout):
		return "error"
	default:
		return "rejected"
	}
}
