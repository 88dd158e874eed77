// Package transition holds the document lifecycle graph, the role permission
// table and the confirmation policy. Everything here is pure: no I/O, no clock.
package transition

import (
	"fmt"
	"strings"

	"notaria/internal/document/models"
	dErrors "notaria/pkg/domain-errors"
)

var forwardEdges = map[models.Status]models.Status{
	models.StatusReceived:   models.StatusInProgress,
	models.StatusInProgress: models.StatusReady,
	models.StatusReady:      models.StatusDelivered,
}

var backwardEdges = map[models.Status]models.Status{
	models.StatusInProgress: models.StatusReceived,
	models.StatusReady:      models.StatusInProgress,
}

// IsValid reports whether from -> to is an edge of the lifecycle graph,
// forward or backward.
func IsValid(from, to models.Status) bool {
	if next, ok := forwardEdges[from]; ok && next == to {
		return true
	}
	return IsReversion(from, to)
}

// IsReversion reports whether from -> to is a legal backward edge.
func IsReversion(from, to models.Status) bool {
	prev, ok := backwardEdges[from]
	return ok && prev == to
}

// IsCritical reports whether from -> to is a forward change that triggers a
// customer-facing notification.
func IsCritical(from, to models.Status) bool {
	return (from == models.StatusInProgress && to == models.StatusReady) ||
		(from == models.StatusReady && to == models.StatusDelivered)
}

// IsTerminal reports whether s has no outgoing edges.
func IsTerminal(s models.Status) bool {
	_, fwd := forwardEdges[s]
	_, back := backwardEdges[s]
	return !fwd && !back
}

// Validate checks one edge for one document. Any backward move needs a
// non-blank reason; the reason is checked before the edge itself.
func Validate(from, to models.Status, reason string) error {
	if IsTerminal(from) {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("transition from %s to %s is not allowed: %s has no outgoing transitions", from, to, from))
	}
	if IsBackward(from, to) && strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeValidation, "reason required")
	}
	if !IsValid(from, to) {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("transition from %s to %s is not allowed", from, to))
	}
	return nil
}

var rank = map[models.Status]int{
	models.StatusReceived:   0,
	models.StatusInProgress: 1,
	models.StatusReady:      2,
	models.StatusDelivered:  3,
}

// IsBackward reports whether to lies earlier in the lifecycle than from,
// whether or not the edge itself is legal.
func IsBackward(from, to models.Status) bool {
	rf, okF := rank[from]
	rt, okT := rank[to]
	return okF && okT && rt < rf
}
