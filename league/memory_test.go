package league

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreAdminAuth(t *testing.T) {
	s := NewMemoryStore("root-secret")
	ctx := context.Background()

	if err := s.AuthenticateAdmin(ctx, "root-secret"); err != nil {
		t.Errorf("expected valid credentials to pass: %v", err)
	}
	if err := s.AuthenticateAdmin(ctx, "guess"); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if err := s.AuthenticateAdmin(ctx, ""); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for empty credentials, got %v", err)
	}
}

func TestMemoryStoreLeagues(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.CreateLeague(ctx, "premier", "soccer", "secret"); err != nil {
		t.Fatalf("create league: %v", err)
	}
	if err := s.CreateLeague(ctx, "premier", "soccer", "other"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	l, err := s.GetLeague(ctx, "premier")
	if err != nil {
		t.Fatalf("get league: %v", err)
	}
	if l.Name != "premier" || l.Sport != "soccer" || l.Finalized {
		t.Errorf("unexpected league: %+v", l)
	}
	if _, err := s.GetLeague(ctx, "nowhere"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Bad name and bad credential are indistinguishable on purpose.
	if err := s.AuthenticateLeague(ctx, "premier", "wrong"); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for bad credential, got %v", err)
	}
	if err := s.AuthenticateLeague(ctx, "nowhere", "secret"); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for unknown league, got %v", err)
	}

	if err := s.DeleteLeague(ctx, "premier", "wrong"); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden on delete with bad credential, got %v", err)
	}
	if err := s.DeleteLeague(ctx, "premier", "secret"); err != nil {
		t.Errorf("delete league: %v", err)
	}
	if ok, _ := s.HasLeague(ctx, "premier"); ok {
		t.Error("league should be gone after delete")
	}
}

func TestMemoryStoreRuleDocument(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.CreateLeague(ctx, "premier", "soccer", "secret"); err != nil {
		t.Fatalf("create league: %v", err)
	}

	doc, err := s.RuleDocument(ctx, "premier")
	if err != nil {
		t.Fatalf("rule document: %v", err)
	}
	if doc != "" {
		t.Errorf("new league should have an empty rule document, got %q", doc)
	}

	const stored = `{"goal":{"conditions":[]}}`
	if err := s.PutRuleDocument(ctx, "premier", stored); err != nil {
		t.Fatalf("put rule document: %v", err)
	}
	doc, err = s.RuleDocument(ctx, "premier")
	if err != nil {
		t.Fatalf("rule document: %v", err)
	}
	if doc != stored {
		t.Errorf("expected %q, got %q", stored, doc)
	}

	if _, err := s.RuleDocument(ctx, "nowhere"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.PutRuleDocument(ctx, "nowhere", "{}"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreTeams(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.CreateLeague(ctx, "premier", "soccer", "secret"); err != nil {
		t.Fatalf("create league: %v", err)
	}
	if err := s.CreateLeague(ctx, "minors", "soccer", "secret2"); err != nil {
		t.Fatalf("create league: %v", err)
	}

	if err := s.CreateTeam(ctx, &Team{Name: "Hawks", League: "premier", Location: "North End"}); err != nil {
		t.Fatalf("create team: %v", err)
	}
	if err := s.CreateTeam(ctx, &Team{Name: "Hawks", League: "premier", Location: "Elsewhere"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for same name in same league, got %v", err)
	}
	// Team names are scoped per league.
	if err := s.CreateTeam(ctx, &Team{Name: "Hawks", League: "minors", Location: "South End"}); err != nil {
		t.Errorf("same name in another league should be allowed: %v", err)
	}

	teams, err := s.ListTeams(ctx, "premier")
	if err != nil {
		t.Fatalf("list teams: %v", err)
	}
	if len(teams) != 1 || teams[0].Name != "Hawks" {
		t.Errorf("unexpected teams: %+v", teams)
	}

	if err := s.FinalizeLeague(ctx, "premier", "secret"); err != nil {
		t.Fatalf("finalize league: %v", err)
	}
	if err := s.CreateTeam(ctx, &Team{Name: "Otters", League: "premier", Location: "East"}); !errors.Is(err, ErrLeagueFinalized) {
		t.Errorf("expected ErrLeagueFinalized on create, got %v", err)
	}
	if err := s.DeleteTeam(ctx, "Hawks", "premier"); !errors.Is(err, ErrLeagueFinalized) {
		t.Errorf("expected ErrLeagueFinalized on delete, got %v", err)
	}
	if err := s.DeleteTeam(ctx, "Hawks", "minors"); err != nil {
		t.Errorf("delete in non-finalized league: %v", err)
	}
}

func TestMemoryStoreScorekeepers(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.CreateScorekeeper(ctx, "kim", "premier", "sk-secret"); err != nil {
		t.Fatalf("create scorekeeper: %v", err)
	}
	if err := s.CreateScorekeeper(ctx, "kim", "minors", "x"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	if err := s.RegisterScorekeeper(ctx, "kim"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.RegisterScorekeeper(ctx, "kim"); !errors.Is(err, ErrNotFound) {
		t.Errorf("double register should fail, got %v", err)
	}

	if err := s.AuthenticateScorekeeper(ctx, "kim", "premier", "sk-secret"); err != nil {
		t.Errorf("authenticate: %v", err)
	}
	if err := s.AuthenticateScorekeeper(ctx, "kim", "minors", "sk-secret"); !errors.Is(err, ErrForbidden) {
		t.Errorf("wrong league should be forbidden, got %v", err)
	}
	if err := s.AuthenticateScorekeeper(ctx, "kim", "premier", "wrong"); !errors.Is(err, ErrForbidden) {
		t.Errorf("wrong credentials should be forbidden, got %v", err)
	}

	if err := s.UnregisterScorekeeperFromLeague(ctx, "kim", "premier"); err != nil {
		t.Fatalf("unregister from league: %v", err)
	}
	sks, err := s.ListScorekeepers(ctx)
	if err != nil {
		t.Fatalf("list scorekeepers: %v", err)
	}
	if len(sks) != 1 || sks[0].Registered {
		t.Errorf("expected kim unregistered but present, got %+v", sks)
	}

	if err := s.UnregisterScorekeeper(ctx, "KIM"); err != nil {
		t.Errorf("unregister is case-insensitive on name: %v", err)
	}
	if err := s.UnregisterScorekeeper(ctx, "kim"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after removal, got %v", err)
	}
}

func TestMemoryStoreGames(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.CreateLeague(ctx, "premier", "soccer", "secret"); err != nil {
		t.Fatalf("create league: %v", err)
	}
	game := &Game{
		ID: "game-1", Date: "2026-03-01 19:30:00", League: "premier",
		Location: "Central Arena", HomeTeam: "Hawks", AwayTeam: "Otters",
	}
	if err := s.CreateGame(ctx, game); err != nil {
		t.Fatalf("create game: %v", err)
	}
	if err := s.CreateGame(ctx, game); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	if err := s.CreateGame(ctx, &Game{ID: "game-2", League: "nowhere"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown league, got %v", err)
	}

	// Each retrieval bumps the view counter.
	for want := int64(1); want <= 3; want++ {
		g, err := s.RetrieveGame(ctx, "game-1", "premier")
		if err != nil {
			t.Fatalf("retrieve game: %v", err)
		}
		if g.Views != want {
			t.Errorf("expected %d views, got %d", want, g.Views)
		}
	}
	if _, err := s.RetrieveGame(ctx, "game-1", "minors"); !errors.Is(err, ErrNotFound) {
		t.Errorf("wrong league must not reveal the game, got %v", err)
	}

	name, err := s.LeagueForGame(ctx, "game-1")
	if err != nil || name != "premier" {
		t.Errorf("LeagueForGame = %q, %v", name, err)
	}

	if err := s.SetGameFinalized(ctx, "game-1", "premier", true); err != nil {
		t.Fatalf("finalize game: %v", err)
	}
	g, _ := s.RetrieveGame(ctx, "game-1", "premier")
	if !g.Finalized {
		t.Error("expected game finalized")
	}

	if err := s.DeleteGame(ctx, "game-1", "minors"); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete with wrong league should fail, got %v", err)
	}
	if err := s.DeleteGame(ctx, "game-1", "premier"); err != nil {
		t.Errorf("delete game: %v", err)
	}
}

func TestMemoryStoreAccessReport(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, name := range []string{"premier", "minors"} {
		if err := s.CreateLeague(ctx, name, "soccer", "secret"); err != nil {
			t.Fatalf("create league: %v", err)
		}
	}
	games := []*Game{
		{ID: "a", League: "premier", HomeTeam: "Hawks", AwayTeam: "Otters"},
		{ID: "b", League: "premier", HomeTeam: "Otters", AwayTeam: "Hawks"},
		{ID: "c", League: "minors", HomeTeam: "Cubs", AwayTeam: "Colts"},
	}
	for _, g := range games {
		if err := s.CreateGame(ctx, g); err != nil {
			t.Fatalf("create game %q: %v", g.ID, err)
		}
	}

	view := func(id, league string, n int) {
		t.Helper()
		for i := 0; i < n; i++ {
			if _, err := s.RetrieveGame(ctx, id, league); err != nil {
				t.Fatalf("retrieve %q: %v", id, err)
			}
		}
	}
	view("a", "premier", 2)
	view("b", "premier", 1)
	view("c", "minors", 5)

	report, err := s.AccessReport(ctx)
	if err != nil {
		t.Fatalf("access report: %v", err)
	}
	if len(report.Games) != 3 {
		t.Fatalf("expected 3 games, got %d", len(report.Games))
	}
	// Leagues are ordered by total views, most viewed first.
	if len(report.Leagues) != 2 || report.Leagues[0].League != "minors" {
		t.Fatalf("unexpected league ordering: %+v", report.Leagues)
	}
	if report.Leagues[0].TotalViews != 5 || report.Leagues[0].TotalGames != 1 {
		t.Errorf("minors totals wrong: %+v", report.Leagues[0])
	}
	if report.Leagues[1].TotalViews != 3 || report.Leagues[1].TotalGames != 2 {
		t.Errorf("premier totals wrong: %+v", report.Leagues[1])
	}
}
