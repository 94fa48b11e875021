package league

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type memLeague struct {
	League
	credentials string
	rules       string
}

type memScorekeeper struct {
	Scorekeeper
	credentials string
}

// MemoryStore is an in-memory Store, thread-safe, for tests and local
// development.
type MemoryStore struct {
	mu           sync.RWMutex
	adminCreds   map[string]bool
	leagues      map[string]*memLeague
	teams        map[string]*Team // key name+"/"+league
	scorekeepers map[string]*memScorekeeper
	games        map[string]*Game
	assignments  map[string]map[string]bool // gameID -> scorekeeper names
}

func NewMemoryStore(adminCredentials ...string) *MemoryStore {
	creds := make(map[string]bool, len(adminCredentials))
	for _, c := range adminCredentials {
		creds[c] = true
	}
	return &MemoryStore{
		adminCreds:   creds,
		leagues:      make(map[string]*memLeague),
		teams:        make(map[string]*Team),
		scorekeepers: make(map[string]*memScorekeeper),
		games:        make(map[string]*Game),
		assignments:  make(map[string]map[string]bool),
	}
}

func (s *MemoryStore) AuthenticateAdmin(ctx context.Context, credentials string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.adminCreds[credentials] {
		return fmt.Errorf("admin: %w", ErrForbidden)
	}
	return nil
}

func (s *MemoryStore) CreateLeague(ctx context.Context, name, sport, credentials string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.leagues[name]; exists {
		return fmt.Errorf("league %q: %w", name, ErrDuplicate)
	}
	s.leagues[name] = &memLeague{
		League:      League{Name: name, Sport: sport},
		credentials: credentials,
	}
	return nil
}

func (s *MemoryStore) GetLeague(ctx context.Context, name string) (*League, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.leagues[name]
	if !ok {
		return nil, fmt.Errorf("league %q: %w", name, ErrNotFound)
	}
	out := l.League
	return &out, nil
}

func (s *MemoryStore) ListLeagues(ctx context.Context) ([]League, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]League, 0, len(s.leagues))
	for _, l := range s.leagues {
		out = append(out, l.League)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) DeleteLeague(ctx context.Context, name, credentials string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leagues[name]
	if !ok {
		return fmt.Errorf("league %q: %w", name, ErrNotFound)
	}
	if l.credentials != credentials {
		return fmt.Errorf("league %q: %w", name, ErrForbidden)
	}
	delete(s.leagues, name)
	return nil
}

func (s *MemoryStore) FinalizeLeague(ctx context.Context, name, credentials string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leagues[name]
	if !ok {
		return fmt.Errorf("league %q: %w", name, ErrNotFound)
	}
	if l.credentials != credentials {
		return fmt.Errorf("league %q: %w", name, ErrForbidden)
	}
	l.Finalized = true
	return nil
}

func (s *MemoryStore) AuthenticateLeague(ctx context.Context, name, credentials string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.leagues[name]
	if !ok || l.credentials != credentials {
		// Conflated on purpose: rule updates respond identically for a
		// bad league name and a bad credential.
		return fmt.Errorf("league %q: %w", name, ErrForbidden)
	}
	return nil
}

func (s *MemoryStore) HasLeague(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.leagues[name]
	return ok, nil
}

func (s *MemoryStore) RuleDocument(ctx context.Context, leagueName string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.leagues[leagueName]
	if !ok {
		return "", fmt.Errorf("league %q: %w", leagueName, ErrNotFound)
	}
	return l.rules, nil
}

func (s *MemoryStore) PutRuleDocument(ctx context.Context, leagueName, document string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leagues[leagueName]
	if !ok {
		return fmt.Errorf("league %q: %w", leagueName, ErrNotFound)
	}
	l.rules = document
	return nil
}

func teamKey(name, leagueName string) string {
	return name + "/" + leagueName
}

func (s *MemoryStore) CreateTeam(ctx context.Context, team *Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leagues[team.League]
	if !ok {
		return fmt.Errorf("league %q: %w", team.League, ErrNotFound)
	}
	if l.Finalized {
		return fmt.Errorf("cannot create team in %q: %w", team.League, ErrLeagueFinalized)
	}
	key := teamKey(team.Name, team.League)
	if _, exists := s.teams[key]; exists {
		return fmt.Errorf("team %q: %w", team.Name, ErrDuplicate)
	}
	t := *team
	s.teams[key] = &t
	return nil
}

func (s *MemoryStore) DeleteTeam(ctx context.Context, name, leagueName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leagues[leagueName]
	if !ok {
		return fmt.Errorf("league %q: %w", leagueName, ErrNotFound)
	}
	if l.Finalized {
		return fmt.Errorf("cannot delete team in %q: %w", leagueName, ErrLeagueFinalized)
	}
	key := teamKey(name, leagueName)
	if _, exists := s.teams[key]; !exists {
		return fmt.Errorf("team %q: %w", name, ErrNotFound)
	}
	delete(s.teams, key)
	return nil
}

func (s *MemoryStore) ListTeams(ctx context.Context, leagueName string) ([]Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Team
	for _, t := range s.teams {
		if t.League == leagueName {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) CreateScorekeeper(ctx context.Context, name, leagueName, credentials string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.scorekeepers[name]; exists {
		return fmt.Errorf("scorekeeper %q: %w", name, ErrDuplicate)
	}
	s.scorekeepers[name] = &memScorekeeper{
		Scorekeeper: Scorekeeper{Name: name, League: leagueName},
		credentials: credentials,
	}
	return nil
}

func (s *MemoryStore) RegisterScorekeeper(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, ok := s.scorekeepers[name]
	if !ok || sk.Registered {
		return fmt.Errorf("scorekeeper %q: %w", name, ErrNotFound)
	}
	sk.Registered = true
	return nil
}

func (s *MemoryStore) UnregisterScorekeeper(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.scorekeepers {
		if strings.EqualFold(key, name) {
			delete(s.scorekeepers, key)
			return nil
		}
	}
	return fmt.Errorf("scorekeeper %q: %w", name, ErrNotFound)
}

func (s *MemoryStore) UnregisterScorekeeperFromLeague(ctx context.Context, name, leagueName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, sk := range s.scorekeepers {
		if strings.EqualFold(key, name) && sk.League == leagueName {
			sk.Registered = false
			return nil
		}
	}
	return fmt.Errorf("scorekeeper %q: %w", name, ErrNotFound)
}

func (s *MemoryStore) ListScorekeepers(ctx context.Context) ([]Scorekeeper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Scorekeeper, 0, len(s.scorekeepers))
	for _, sk := range s.scorekeepers {
		out = append(out, sk.Scorekeeper)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) AuthenticateScorekeeper(ctx context.Context, name, leagueName, credentials string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sk, ok := s.scorekeepers[name]
	if !ok || sk.League != leagueName || sk.credentials != credentials {
		return fmt.Errorf("scorekeeper %q: %w", name, ErrForbidden)
	}
	return nil
}

func (s *MemoryStore) AssignScorekeeper(ctx context.Context, gameID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[gameID]; !ok {
		return fmt.Errorf("game %q: %w", gameID, ErrNotFound)
	}
	if _, ok := s.scorekeepers[name]; !ok {
		return fmt.Errorf("scorekeeper %q: %w", name, ErrNotFound)
	}
	if s.assignments[gameID] == nil {
		s.assignments[gameID] = make(map[string]bool)
	}
	s.assignments[gameID][name] = true
	return nil
}

func (s *MemoryStore) UnassignScorekeeper(ctx context.Context, gameID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[gameID]; !ok {
		return fmt.Errorf("game %q: %w", gameID, ErrNotFound)
	}
	if _, ok := s.scorekeepers[name]; !ok {
		return fmt.Errorf("scorekeeper %q: %w", name, ErrNotFound)
	}
	if !s.assignments[gameID][name] {
		return fmt.Errorf("scorekeeper %q not assigned to game %q: %w", name, gameID, ErrNotFound)
	}
	delete(s.assignments[gameID], name)
	return nil
}

func (s *MemoryStore) CreateGame(ctx context.Context, game *Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leagues[game.League]; !ok {
		return fmt.Errorf("league %q: %w", game.League, ErrNotFound)
	}
	if _, exists := s.games[game.ID]; exists {
		return fmt.Errorf("game %q: %w", game.ID, ErrDuplicate)
	}
	g := *game
	s.games[game.ID] = &g
	return nil
}

func (s *MemoryStore) RetrieveGame(ctx context.Context, id, leagueName string) (*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok || g.League != leagueName {
		return nil, fmt.Errorf("game %q in league %q: %w", id, leagueName, ErrNotFound)
	}
	g.Views++
	out := *g
	return &out, nil
}

func (s *MemoryStore) ListGames(ctx context.Context) ([]Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Game, 0, len(s.games))
	for _, g := range s.games {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) DeleteGame(ctx context.Context, id, leagueName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok || g.League != leagueName {
		return fmt.Errorf("game %q in league %q: %w", id, leagueName, ErrNotFound)
	}
	delete(s.games, id)
	return nil
}

func (s *MemoryStore) SetGameFinalized(ctx context.Context, id, leagueName string, finalized bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok || g.League != leagueName {
		return fmt.Errorf("game %q in league %q: %w", id, leagueName, ErrNotFound)
	}
	g.Finalized = finalized
	return nil
}

func (s *MemoryStore) LeagueForGame(ctx context.Context, gameID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[gameID]
	if !ok {
		return "", fmt.Errorf("game %q: %w", gameID, ErrNotFound)
	}
	return g.League, nil
}

func (s *MemoryStore) AccessReport(ctx context.Context) (*AccessReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := &AccessReport{}
	perLeague := make(map[string]*LeagueViews)
	for _, g := range s.games {
		report.Games = append(report.Games, GameViews{
			ID: g.ID, League: g.League,
			HomeTeam: g.HomeTeam, AwayTeam: g.AwayTeam,
			Views: g.Views,
		})
		lv, ok := perLeague[g.League]
		if !ok {
			lv = &LeagueViews{League: g.League}
			perLeague[g.League] = lv
		}
		lv.TotalViews += g.Views
		lv.TotalGames++
	}
	sort.Slice(report.Games, func(i, j int) bool {
		if report.Games[i].League != report.Games[j].League {
			return report.Games[i].League < report.Games[j].League
		}
		return report.Games[i].ID < report.Games[j].ID
	})
	for _, lv := range perLeague {
		report.Leagues = append(report.Leagues, *lv)
	}
	sort.Slice(report.Leagues, func(i, j int) bool {
		return report.Leagues[i].TotalViews > report.Leagues[j].TotalViews
	})
	return report, nil
}
