package main

import (
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/courtside/leagued/gameevents"
	"github.com/courtside/leagued/league"
)

var dateTimeFormat = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// --- Leagues ---

func (s *Server) handleCreateLeague(w http.ResponseWriter, r *http.Request) {
	var req CreateLeagueRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if req.Name == "" || req.Sport == "" || req.Credentials == "" || req.AdminCredentials == "" {
		s.respondError(w, fmt.Errorf("%w: name, sport, credentials and admin_credentials are required", gameevents.ErrInvalidPayload))
		return
	}

	if err := s.store.AuthenticateAdmin(r.Context(), req.AdminCredentials); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.store.CreateLeague(r.Context(), req.Name, req.Sport, req.Credentials); err != nil {
		s.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"name":  req.Name,
		"sport": req.Sport,
	})
}

func (s *Server) handleListLeagues(w http.ResponseWriter, r *http.Request) {
	if err := s.store.AuthenticateAdmin(r.Context(), r.Header.Get("X-Admin-Credentials")); err != nil {
		s.respondError(w, err)
		return
	}
	leagues, err := s.store.ListLeagues(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(leagues),
		"leagues": leagues,
	})
}

func (s *Server) handleLeagueSummary(w http.ResponseWriter, r *http.Request) {
	leagueName := chi.URLParam(r, "leagueName")

	l, err := s.store.GetLeague(r.Context(), leagueName)
	if err != nil {
		s.respondError(w, err)
		return
	}
	teams, err := s.store.ListTeams(r.Context(), leagueName)
	if err != nil {
		s.respondError(w, err)
		return
	}
	scorekeepers, err := s.store.ListScorekeepers(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	registered := make([]league.Scorekeeper, 0)
	for _, sk := range scorekeepers {
		if sk.League == leagueName && sk.Registered {
			registered = append(registered, sk)
		}
	}

	respondJSON(w, http.StatusOK, LeagueSummaryResponse{
		League:       *l,
		Teams:        teams,
		Scorekeepers: registered,
	})
}

func (s *Server) handleDeleteLeague(w http.ResponseWriter, r *http.Request) {
	var req LeagueCredentialsRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.store.DeleteLeague(r.Context(), chi.URLParam(r, "leagueName"), req.Credentials); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "league deleted"})
}

func (s *Server) handleFinalizeLeague(w http.ResponseWriter, r *http.Request) {
	var req LeagueCredentialsRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.store.FinalizeLeague(r.Context(), chi.URLParam(r, "leagueName"), req.Credentials); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "league finalized"})
}

// --- Rules ---

// handleSetRules applies the merge discipline: event types named in the
// request overwrite or extend the stored document, everything else is
// kept. A corrupt stored document is a hard error here, same as on the
// validation path.
func (s *Server) handleSetRules(w http.ResponseWriter, r *http.Request) {
	leagueName := chi.URLParam(r, "leagueName")

	var req SetRulesRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if req.Credentials == "" || req.Rules == nil {
		s.respondError(w, fmt.Errorf("%w: credentials and rules are required", gameevents.ErrInvalidPayload))
		return
	}

	if err := s.store.AuthenticateLeague(r.Context(), leagueName, req.Credentials); err != nil {
		s.respondError(w, err)
		return
	}

	document, err := s.store.RuleDocument(r.Context(), leagueName)
	if err != nil {
		s.respondError(w, err)
		return
	}
	existing, err := gameevents.ParseRuleSet(document)
	if err != nil {
		s.respondError(w, err)
		return
	}

	existing.Merge(req.Rules)
	merged, err := existing.Document()
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.store.PutRuleDocument(r.Context(), leagueName, merged); err != nil {
		s.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, RulesResponse{League: leagueName, Rules: existing})
}

func (s *Server) handleGetRules(w http.ResponseWriter, r *http.Request) {
	leagueName := chi.URLParam(r, "leagueName")

	document, err := s.store.RuleDocument(r.Context(), leagueName)
	if err != nil {
		s.respondError(w, err)
		return
	}
	rs, err := gameevents.ParseRuleSet(document)
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, RulesResponse{League: leagueName, Rules: rs})
}

// --- Teams ---

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	leagueName := chi.URLParam(r, "leagueName")

	var req CreateTeamRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if req.Name == "" || req.Location == "" || req.LeagueCredentials == "" {
		s.respondError(w, fmt.Errorf("%w: name, location and league_credentials are required", gameevents.ErrInvalidPayload))
		return
	}

	if err := s.store.AuthenticateLeague(r.Context(), leagueName, req.LeagueCredentials); err != nil {
		s.respondError(w, err)
		return
	}
	team := &league.Team{Name: req.Name, League: leagueName, Location: req.Location}
	if err := s.store.CreateTeam(r.Context(), team); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, team)
}

func (s *Server) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	leagueName := chi.URLParam(r, "leagueName")
	teamName := chi.URLParam(r, "teamName")

	var req struct {
		LeagueCredentials string `json:"league_credentials"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	if err := s.store.AuthenticateLeague(r.Context(), leagueName, req.LeagueCredentials); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.store.DeleteTeam(r.Context(), teamName, leagueName); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "team deleted"})
}

// --- Scorekeepers ---

func (s *Server) handleCreateScorekeeper(w http.ResponseWriter, r *http.Request) {
	var req CreateScorekeeperRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if req.Name == "" || req.League == "" || req.Credentials == "" {
		s.respondError(w, fmt.Errorf("%w: name, league and credentials are required", gameevents.ErrInvalidPayload))
		return
	}
	if err := s.store.CreateScorekeeper(r.Context(), req.Name, req.League, req.Credentials); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"message": "scorekeeper created"})
}

func (s *Server) handleListScorekeepers(w http.ResponseWriter, r *http.Request) {
	scorekeepers, err := s.store.ListScorekeepers(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":        len(scorekeepers),
		"scorekeepers": scorekeepers,
	})
}

func (s *Server) handleRegisterScorekeeper(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.store.RegisterScorekeeper(r.Context(), name); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("scorekeeper %q registered", name),
	})
}

func (s *Server) handleUnregisterScorekeeper(w http.ResponseWriter, r *http.Request) {
	var req UnregisterScorekeeperRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.store.AuthenticateAdmin(r.Context(), req.AdminCredentials); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.store.UnregisterScorekeeper(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "scorekeeper unregistered"})
}

func (s *Server) handleUnregisterScorekeeperFromLeague(w http.ResponseWriter, r *http.Request) {
	var req UnregisterFromLeagueRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.store.AuthenticateLeague(r.Context(), req.LeagueName, req.LeagueCredentials); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.store.UnregisterScorekeeperFromLeague(r.Context(), chi.URLParam(r, "name"), req.LeagueName); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "scorekeeper unregistered from league"})
}

func (s *Server) handleAssignScorekeeper(w http.ResponseWriter, r *http.Request) {
	var req AssignScorekeeperRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.store.AssignScorekeeper(r.Context(), chi.URLParam(r, "gameId"), req.Name); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "scorekeeper assigned"})
}

func (s *Server) handleUnassignScorekeeper(w http.ResponseWriter, r *http.Request) {
	if err := s.store.UnassignScorekeeper(r.Context(), chi.URLParam(r, "gameId"), chi.URLParam(r, "name")); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "scorekeeper unassigned"})
}

// --- Games ---

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if req.Date == "" || req.League == "" || req.Location == "" || req.HomeTeam == "" || req.AwayTeam == "" {
		s.respondError(w, fmt.Errorf("%w: date, league, location, home_team and away_team are required", gameevents.ErrInvalidPayload))
		return
	}
	if !dateTimeFormat.MatchString(req.Date) {
		s.respondError(w, fmt.Errorf("%w: date must be in YYYY-MM-DD HH:MM:SS format", gameevents.ErrInvalidPayload))
		return
	}

	game := &league.Game{
		ID:       req.ID,
		Date:     req.Date,
		League:   req.League,
		Location: req.Location,
		HomeTeam: req.HomeTeam,
		AwayTeam: req.AwayTeam,
	}
	if game.ID == "" {
		game.ID = uuid.New().String()
	}
	if err := s.store.CreateGame(r.Context(), game); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, game)
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.store.ListGames(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count": len(games),
		"games": games,
	})
}

func (s *Server) handleRetrieveGame(w http.ResponseWriter, r *http.Request) {
	leagueName := r.URL.Query().Get("league")
	if leagueName == "" {
		s.respondError(w, fmt.Errorf("%w: league query parameter is required", gameevents.ErrInvalidPayload))
		return
	}
	game, err := s.store.RetrieveGame(r.Context(), chi.URLParam(r, "gameId"), leagueName)
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, game)
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		League string `json:"league"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.store.DeleteGame(r.Context(), chi.URLParam(r, "gameId"), req.League); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "game deleted"})
}

func (s *Server) handleFinalizeGame(w http.ResponseWriter, r *http.Request) {
	var req FinalizeGameRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.store.AuthenticateScorekeeper(r.Context(), req.Scorekeeper, req.League, req.Credentials); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.store.SetGameFinalized(r.Context(), chi.URLParam(r, "gameId"), req.League, true); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "game finalized"})
}

func (s *Server) handleUnfinalizeGame(w http.ResponseWriter, r *http.Request) {
	var req UnfinalizeGameRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.store.AuthenticateAdmin(r.Context(), req.AdminCredentials); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.store.SetGameFinalized(r.Context(), chi.URLParam(r, "gameId"), req.League, false); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "game unfinalized"})
}

// --- Game events ---

// handleCreateGameEvent runs the validation pipeline. An event that
// violates its rule is still recorded; the status code distinguishes the
// verdicts (200 valid, 400 invalid), both carrying the allocated id.
func (s *Server) handleCreateGameEvent(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameId")

	var req CreateGameEventRequest
	if err := decodeBody(r, &req); err != nil {
		s.metrics.ObserveRejected()
		s.respondError(w, err)
		return
	}

	start := time.Now()
	ev, verdict, err := s.recorder.Record(r.Context(), gameID, req.GameEvent)
	if err != nil {
		s.metrics.ObserveRejected()
		s.respondError(w, err)
		return
	}
	s.metrics.ObserveRecorded(verdict.Valid, time.Since(start))

	leagueName, err := s.store.LeagueForGame(r.Context(), gameID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	resp := GameEventResponse{
		EventID:   ev.EventID,
		EventType: ev.Type,
		GameID:    gameID,
		League:    leagueName,
		Valid:     verdict.Valid,
	}
	if verdict.Valid {
		resp.Message = "Event is valid and has been created"
		respondJSON(w, http.StatusOK, resp)
		return
	}
	resp.Message = "Event is not valid according to league rules but has been recorded"
	resp.Conditions = verdict.Results
	respondJSON(w, http.StatusBadRequest, resp)
}

func (s *Server) handlePlayByPlay(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameId")
	leagueName := r.URL.Query().Get("league")
	if leagueName == "" {
		s.respondError(w, fmt.Errorf("%w: league query parameter is required", gameevents.ErrInvalidPayload))
		return
	}

	events, err := s.recorder.PlayByPlay(r.Context(), leagueName, gameID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if events == nil {
		events = []gameevents.RecordedEvent{}
	}
	respondJSON(w, http.StatusOK, PlayByPlayResponse{
		League:     leagueName,
		GameID:     gameID,
		PlayByPlay: events,
	})
}

// --- Reports ---

func (s *Server) handleAccessReport(w http.ResponseWriter, r *http.Request) {
	if err := s.store.AuthenticateAdmin(r.Context(), r.Header.Get("X-Admin-Credentials")); err != nil {
		s.respondError(w, err)
		return
	}
	report, err := s.store.AccessReport(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
