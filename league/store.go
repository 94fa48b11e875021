// Package league holds the management-side storage for leagues, teams,
// scorekeepers and games. The event validation engine in package
// gameevents sees this storage only through narrow interfaces (game to
// league lookup, rule document load); everything else here is plain CRUD
// with credential gates.
package league

import (
	"context"
	"errors"
)

var (
	// ErrNotFound reports a missing league, team, scorekeeper or game.
	ErrNotFound = errors.New("not found")

	// ErrForbidden reports a credential mismatch. It is reported
	// distinctly from ErrNotFound so callers can tell "wrong password"
	// from "no such league"; the one documented exception is rule
	// updates, where the two are deliberately conflated (see
	// AuthenticateLeague callers).
	ErrForbidden = errors.New("invalid credentials")

	// ErrDuplicate reports a unique-key violation on create.
	ErrDuplicate = errors.New("already exists")

	// ErrLeagueFinalized reports a mutation refused because the league
	// has been finalized.
	ErrLeagueFinalized = errors.New("league is finalized")
)

// League is a named competition owning teams, games and one rule set.
type League struct {
	Name      string `json:"name"`
	Sport     string `json:"sport"`
	Finalized bool   `json:"finalized"`
}

// Team plays in exactly one league.
type Team struct {
	Name     string `json:"name"`
	League   string `json:"league"`
	Location string `json:"location"`
}

// Scorekeeper records events for games in a league. Registered tracks
// whether the league has accepted them.
type Scorekeeper struct {
	Name       string `json:"name"`
	League     string `json:"league"`
	Registered bool   `json:"registration_status"`
}

// Game is one scheduled match. Views counts retrievals for the admin
// access report.
type Game struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	League    string `json:"league"`
	Location  string `json:"location"`
	HomeTeam  string `json:"home_team"`
	AwayTeam  string `json:"away_team"`
	HomeScore int    `json:"home_score"`
	AwayScore int    `json:"away_score"`
	Finalized bool   `json:"finalized"`
	Views     int64  `json:"views,omitempty"`
}

// GameViews is one row of the per-game access report.
type GameViews struct {
	ID       string `json:"id"`
	League   string `json:"league"`
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`
	Views    int64  `json:"views"`
}

// LeagueViews aggregates views per league.
type LeagueViews struct {
	League     string `json:"league"`
	TotalViews int64  `json:"total_views"`
	TotalGames int    `json:"total_games"`
}

// AccessReport is the admin-facing view aggregation.
type AccessReport struct {
	Games   []GameViews   `json:"games"`
	Leagues []LeagueViews `json:"leagues"`
}

// Store is the full management storage surface. Two implementations
// exist: MemoryStore for tests and PostgresStore for production.
type Store interface {
	// Admin.
	AuthenticateAdmin(ctx context.Context, credentials string) error

	// Leagues.
	CreateLeague(ctx context.Context, name, sport, credentials string) error
	GetLeague(ctx context.Context, name string) (*League, error)
	ListLeagues(ctx context.Context) ([]League, error)
	DeleteLeague(ctx context.Context, name, credentials string) error
	FinalizeLeague(ctx context.Context, name, credentials string) error
	AuthenticateLeague(ctx context.Context, name, credentials string) error
	HasLeague(ctx context.Context, name string) (bool, error)

	// Rule documents (one serialized JSON document per league).
	RuleDocument(ctx context.Context, leagueName string) (string, error)
	PutRuleDocument(ctx context.Context, leagueName, document string) error

	// Teams.
	CreateTeam(ctx context.Context, team *Team) error
	DeleteTeam(ctx context.Context, name, leagueName string) error
	ListTeams(ctx context.Context, leagueName string) ([]Team, error)

	// Scorekeepers.
	CreateScorekeeper(ctx context.Context, name, leagueName, credentials string) error
	RegisterScorekeeper(ctx context.Context, name string) error
	UnregisterScorekeeper(ctx context.Context, name string) error
	UnregisterScorekeeperFromLeague(ctx context.Context, name, leagueName string) error
	ListScorekeepers(ctx context.Context) ([]Scorekeeper, error)
	AuthenticateScorekeeper(ctx context.Context, name, leagueName, credentials string) error
	AssignScorekeeper(ctx context.Context, gameID, name string) error
	UnassignScorekeeper(ctx context.Context, gameID, name string) error

	// Games.
	CreateGame(ctx context.Context, game *Game) error
	RetrieveGame(ctx context.Context, id, leagueName string) (*Game, error)
	ListGames(ctx context.Context) ([]Game, error)
	DeleteGame(ctx context.Context, id, leagueName string) error
	SetGameFinalized(ctx context.Context, id, leagueName string, finalized bool) error
	LeagueForGame(ctx context.Context, gameID string) (string, error)
	AccessReport(ctx context.Context) (*AccessReport, error)
}
