package main

import (
	"github.com/courtside/leagued/gameevents"
	"github.com/courtside/leagued/league"
)

// API request and response models.

type CreateLeagueRequest struct {
	Name             string `json:"name"`
	Sport            string `json:"sport"`
	Credentials      string `json:"credentials"`
	AdminCredentials string `json:"admin_credentials"`
}

type LeagueCredentialsRequest struct {
	Credentials string `json:"credentials"`
}

type SetRulesRequest struct {
	Credentials string             `json:"credentials"`
	Rules       gameevents.RuleSet `json:"rules"`
}

type RulesResponse struct {
	League string             `json:"league"`
	Rules  gameevents.RuleSet `json:"rules"`
}

type LeagueSummaryResponse struct {
	League       league.League        `json:"league"`
	Teams        []league.Team        `json:"teams"`
	Scorekeepers []league.Scorekeeper `json:"scorekeepers"`
}

type CreateTeamRequest struct {
	Name              string `json:"name"`
	Location          string `json:"location"`
	LeagueCredentials string `json:"league_credentials"`
}

type CreateScorekeeperRequest struct {
	Name        string `json:"name"`
	League      string `json:"league"`
	Credentials string `json:"credentials"`
}

type UnregisterScorekeeperRequest struct {
	AdminCredentials string `json:"admin_credentials"`
}

type UnregisterFromLeagueRequest struct {
	LeagueName        string `json:"league_name"`
	LeagueCredentials string `json:"league_credentials"`
}

type AssignScorekeeperRequest struct {
	Name string `json:"name"`
}

type CreateGameRequest struct {
	ID       string `json:"id,omitempty"`
	Date     string `json:"date"`
	League   string `json:"league"`
	Location string `json:"location"`
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`
}

type FinalizeGameRequest struct {
	League      string `json:"league"`
	Scorekeeper string `json:"scorekeeper"`
	Credentials string `json:"credentials"`
}

type UnfinalizeGameRequest struct {
	League           string `json:"league"`
	AdminCredentials string `json:"admin_credentials"`
}

type CreateGameEventRequest struct {
	GameEvent map[string]any `json:"game_event"`
}

// GameEventResponse is returned for both verdicts; Conditions carries the
// per-condition diagnostics when the event failed validation.
type GameEventResponse struct {
	Message    string                       `json:"message"`
	EventID    int64                        `json:"event_id"`
	EventType  string                       `json:"event_type"`
	GameID     string                       `json:"game_id"`
	League     string                       `json:"league"`
	Valid      bool                         `json:"valid"`
	Conditions []gameevents.ConditionResult `json:"conditions,omitempty"`
}

type PlayByPlayResponse struct {
	League     string                    `json:"league"`
	GameID     string                    `json:"game_id"`
	PlayByPlay []gameevents.RecordedEvent `json:"play_by_play"`
}

type ErrorResponse struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}
