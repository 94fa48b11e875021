package gameevents

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrGameNotFound reports a game id with no backing game, or a game
	// that does not belong to the league named by the caller.
	ErrGameNotFound = errors.New("game not found")

	// ErrLeagueNotFound reports a league name with no backing league.
	ErrLeagueNotFound = errors.New("league not found")

	// ErrInvalidPayload reports a structurally unusable event payload,
	// such as a missing or blank event_type.
	ErrInvalidPayload = errors.New("invalid event payload")
)

// NoRuleError reports an event type the league has no rule configured
// for. Available carries the configured event types so the caller can
// correct the submission.
type NoRuleError struct {
	EventType string
	Available []string
}

func (e *NoRuleError) Error() string {
	return fmt.Sprintf("no rule defined for event type %q (configured: %s)",
		e.EventType, strings.Join(e.Available, ", "))
}
