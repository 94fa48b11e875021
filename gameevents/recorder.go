package gameevents

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LeagueResolver is the engine's view of league/game storage.
type LeagueResolver interface {
	// LeagueForGame maps a game id to the league that owns it.
	// Returns ErrGameNotFound for an unknown game.
	LeagueForGame(ctx context.Context, gameID string) (string, error)

	// HasLeague reports whether a league exists.
	HasLeague(ctx context.Context, name string) (bool, error)
}

// RuleSource loads a league's serialized rule document. An empty string
// means no rules have been configured yet.
type RuleSource interface {
	RuleDocument(ctx context.Context, league string) (string, error)
}

// Recorder runs the validation/recording pipeline for incoming game
// events: sanitize, resolve the game's league, load and parse the rule
// set, evaluate, then append the event with a freshly sequenced id.
//
// The rule document is read exactly once per event, so a concurrent rule
// update can never expose a half-merged rule set to an evaluation in
// flight. Nothing is written to the log until evaluation has finished;
// any failure before that point leaves no trace.
type Recorder struct {
	resolver LeagueResolver
	rules    RuleSource
	seq      Sequencer
	log      EventLog
	logger   *slog.Logger
	now      func() time.Time
}

func NewRecorder(resolver LeagueResolver, rules RuleSource, seq Sequencer, log EventLog, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		resolver: resolver,
		rules:    rules,
		seq:      seq,
		log:      log,
		logger:   logger,
		now:      time.Now,
	}
}

// Record validates gameEvent against the owning league's rules and
// appends it to the event log. The event is persisted whether or not it
// passes validation; an invalid event is a successful recording with
// Verdict.Valid == false, not an error. The returned error is non-nil
// only for structural failures (bad payload, unknown game, corrupt or
// missing rule), in which case nothing was persisted.
func (r *Recorder) Record(ctx context.Context, gameID string, gameEvent map[string]any) (*RecordedEvent, *Verdict, error) {
	if gameID == "" || len(gameEvent) == 0 {
		return nil, nil, fmt.Errorf("%w: missing game_id or game_event", ErrInvalidPayload)
	}

	sanitized, ok := SanitizePayload(gameEvent).(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("%w: game_event is not an object", ErrInvalidPayload)
	}

	eventType, ok := sanitized["event_type"].(string)
	if !ok || eventType == "" {
		return nil, nil, fmt.Errorf("%w: missing event_type in game_event", ErrInvalidPayload)
	}

	// The stored payload excludes the event_type key; it lives in its
	// own column and is re-attached on listing.
	data := make(map[string]any, len(sanitized)-1)
	for k, v := range sanitized {
		if k != "event_type" {
			data[k] = v
		}
	}

	league, err := r.resolver.LeagueForGame(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}

	document, err := r.rules.RuleDocument(ctx, league)
	if err != nil {
		return nil, nil, err
	}
	ruleSet, err := ParseRuleSet(document)
	if err != nil {
		r.logger.Error("corrupt rule document", "league", league, "error", err)
		return nil, nil, err
	}

	rule, ok := ruleSet[eventType]
	if !ok {
		return nil, nil, &NoRuleError{EventType: eventType, Available: ruleSet.EventTypes()}
	}

	verdict := rule.Evaluate(data)

	id, err := r.seq.Next(ctx)
	if err != nil {
		return nil, nil, err
	}

	ev := &RecordedEvent{
		EventID:    id,
		GameID:     gameID,
		Type:       eventType,
		Info:       data,
		Valid:      verdict.Valid,
		RecordedAt: r.now(),
	}
	if err := r.log.Append(ctx, ev); err != nil {
		return nil, nil, err
	}

	r.logger.Info("game event recorded",
		"event_id", id, "game_id", gameID, "league", league,
		"type", eventType, "valid", verdict.Valid)

	return ev, &verdict, nil
}

// PlayByPlay reconstructs a game's event log in event-id order. The
// league must exist and the game must belong to it, matching the lookup
// contract of the read side.
func (r *Recorder) PlayByPlay(ctx context.Context, league, gameID string) ([]RecordedEvent, error) {
	exists, err := r.resolver.HasLeague(ctx, league)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrLeagueNotFound
	}

	owner, err := r.resolver.LeagueForGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if owner != league {
		return nil, fmt.Errorf("%w: game %q is not in league %q", ErrGameNotFound, gameID, league)
	}

	return r.log.ListByGame(ctx, gameID)
}
