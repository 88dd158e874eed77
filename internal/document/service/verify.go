package service

import (
	"context"
	"fmt"
	"strings"

	"notaria/internal/document/models"
	dErrors "notaria/pkg/domain-errors"
)

// VerifyRetrievalCode returns the READY documents a client may collect with
// code. A group code returns every member still waiting for pickup.
func (s *Service) VerifyRetrievalCode(ctx context.Context, code string) ([]*models.Document, error) {
	code = strings.TrimSpace(code)
	if err := s.issuer.Validate(code); err != nil {
		return nil, err
	}
	docs, err := s.store.FindReadyByCode(ctx, code)
	if err != nil {
		return nil, translate(err, "verify retrieval code")
	}
	if len(docs) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "code not found or documents not available for pickup")
	}
	return docs, nil
}

// Precheck runs every check Apply would run against the current state without
// writing anything. The gate uses it before asking a user to confirm.
func (s *Service) Precheck(ctx context.Context, req Request) ([]*models.Document, error) {
	ids, err := s.checkRequest(req)
	if err != nil {
		return nil, err
	}
	loaded, err := s.store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, translate(err, "load documents")
	}
	docs, missing := orderByIDs(ids, loaded)
	if missing > 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("%d document(s) not found", missing))
	}
	if err := checkOwnership(docs, req.Actor); err != nil {
		return nil, err
	}
	if err := checkTransitions(docs, req.To, req.Reason); err != nil {
		return nil, err
	}
	return docs, nil
}
