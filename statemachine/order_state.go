package statemachine

import (
	"strings"
	"time"

	"canteen-api/apperr"
	"canteen-api/models"
)

// CancellationWindow is how long after placement the owner may self-cancel.
const CancellationWindow = 90 * time.Second

// Transition defines a lifecycle edge and who normally drives it
type Transition struct {
	From  models.OrderStatus `json:"from"`
	To    models.OrderStatus `json:"to"`
	Actor string             `json:"actor"` // "staff", "student"
}

// lifecycle is the documented happy path plus the cancellation edges.
var lifecycle = []Transition{
	{From: models.StatusPlaced, To: models.StatusPreparing, Actor: "staff"},
	{From: models.StatusPreparing, To: models.StatusReady, Actor: "staff"},
	{From: models.StatusReady, To: models.StatusServed, Actor: "staff"},
	{From: models.StatusPlaced, To: models.StatusCancelled, Actor: "student"},
	{From: models.StatusPlaced, To: models.StatusCancelled, Actor: "staff"},
	{From: models.StatusPreparing, To: models.StatusCancelled, Actor: "staff"},
	{From: models.StatusReady, To: models.StatusCancelled, Actor: "staff"},
}

var allStatuses = []models.OrderStatus{
	models.StatusPlaced,
	models.StatusPreparing,
	models.StatusReady,
	models.StatusServed,
	models.StatusCancelled,
}

// AllStatuses returns the fixed status enum in lifecycle order.
func AllStatuses() []models.OrderStatus {
	out := make([]models.OrderStatus, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus validates a client-supplied status string against the enum.
func ParseStatus(s string) (models.OrderStatus, error) {
	candidate := models.OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range allStatuses {
		if st == candidate {
			return st, nil
		}
	}
	names := make([]string, len(allStatuses))
	for i, st := range allStatuses {
		names[i] = string(st)
	}
	return "", apperr.New(apperr.KindValidation, "status must be one of %s", strings.Join(names, ", "))
}

// IsTerminal reports whether no further transition may leave status.
func IsTerminal(status models.OrderStatus) bool {
	return status == models.StatusServed || status == models.StatusCancelled
}

// ValidTransitionsFrom returns the documented next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	seen := map[models.OrderStatus]bool{}
	for _, t := range lifecycle {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// CanStaffTransition checks a staff-driven status change. Kitchen staff may
// skip steps (placed -> served) but nothing leaves a terminal state.
func CanStaffTransition(from, to models.OrderStatus) error {
	if IsTerminal(from) {
		return apperr.New(apperr.KindInvalidStatusTransition,
			"order is already %s; no further status changes are allowed", from)
	}
	if from == to {
		return apperr.New(apperr.KindInvalidStatusTransition, "order is already %s", from)
	}
	return nil
}

// CanUserCancel applies the owner self-cancel rule against the latest state.
// Wrong status and an expired window are reported as different kinds.
func CanUserCancel(status models.OrderStatus, createdAt, now time.Time) error {
	if status != models.StatusPlaced {
		return apperr.New(apperr.KindOrderNotCancellable, "Order cannot be cancelled at this stage")
	}
	if now.Sub(createdAt) > CancellationWindow {
		return apperr.New(apperr.KindCancellationWindowExpired, "Cancellation window expired")
	}
	return nil
}

// GetAllTransitions returns the documented lifecycle
func GetAllTransitions() []Transition {
	out := make([]Transition, len(lifecycle))
	copy(out, lifecycle)
	return out
}
