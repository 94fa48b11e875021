package league

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// uniqueViolation is the Postgres error code for duplicate keys.
const uniqueViolation = "23505"

func translateInsertErr(err error, what string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	}
	return fmt.Errorf("failed to insert %s: %w", what, err)
}

func (s *PostgresStore) AuthenticateAdmin(ctx context.Context, credentials string) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM admin WHERE credentials = $1)`,
		credentials).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check admin credentials: %w", err)
	}
	if !exists {
		return fmt.Errorf("admin: %w", ErrForbidden)
	}
	return nil
}

func (s *PostgresStore) CreateLeague(ctx context.Context, name, sport, credentials string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leagues (name, sport, credentials, rules, finalized)
		VALUES ($1, $2, $3, '', false)
	`, name, sport, credentials)
	if err != nil {
		return translateInsertErr(err, fmt.Sprintf("league %q", name))
	}
	return nil
}

func (s *PostgresStore) GetLeague(ctx context.Context, name string) (*League, error) {
	var l League
	err := s.db.QueryRowContext(ctx, `
		SELECT name, sport, finalized FROM leagues WHERE name = $1
	`, name).Scan(&l.Name, &l.Sport, &l.Finalized)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("league %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get league: %w", err)
	}
	return &l, nil
}

func (s *PostgresStore) ListLeagues(ctx context.Context) ([]League, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, sport, finalized FROM leagues ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list leagues: %w", err)
	}
	defer rows.Close()

	var leagues []League
	for rows.Next() {
		var l League
		if err := rows.Scan(&l.Name, &l.Sport, &l.Finalized); err != nil {
			return nil, fmt.Errorf("failed to scan league: %w", err)
		}
		leagues = append(leagues, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leagues: %w", err)
	}
	return leagues, nil
}

func (s *PostgresStore) DeleteLeague(ctx context.Context, name, credentials string) error {
	if err := s.checkLeagueCredentials(ctx, name, credentials, false); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM leagues WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete league: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("league %q: %w", name, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) FinalizeLeague(ctx context.Context, name, credentials string) error {
	if err := s.checkLeagueCredentials(ctx, name, credentials, false); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE leagues SET finalized = true WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to finalize league: %w", err)
	}
	return nil
}

// checkLeagueCredentials verifies a league credential. With conflate set,
// an unknown league and a bad credential produce the same ErrForbidden;
// otherwise an unknown league is ErrNotFound.
func (s *PostgresStore) checkLeagueCredentials(ctx context.Context, name, credentials string, conflate bool) error {
	var stored string
	err := s.db.QueryRowContext(ctx,
		`SELECT credentials FROM leagues WHERE name = $1`, name).Scan(&stored)
	if err == sql.ErrNoRows {
		if conflate {
			return fmt.Errorf("league %q: %w", name, ErrForbidden)
		}
		return fmt.Errorf("league %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check league credentials: %w", err)
	}
	if stored != credentials {
		return fmt.Errorf("league %q: %w", name, ErrForbidden)
	}
	return nil
}

func (s *PostgresStore) AuthenticateLeague(ctx context.Context, name, credentials string) error {
	return s.checkLeagueCredentials(ctx, name, credentials, true)
}

func (s *PostgresStore) HasLeague(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM leagues WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check league existence: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) RuleDocument(ctx context.Context, leagueName string) (string, error) {
	var document string
	err := s.db.QueryRowContext(ctx,
		`SELECT rules FROM leagues WHERE name = $1`, leagueName).Scan(&document)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("league %q: %w", leagueName, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load rule document: %w", err)
	}
	return document, nil
}

func (s *PostgresStore) PutRuleDocument(ctx context.Context, leagueName, document string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE leagues SET rules = $1 WHERE name = $2`, document, leagueName)
	if err != nil {
		return fmt.Errorf("failed to store rule document: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("league %q: %w", leagueName, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CreateTeam(ctx context.Context, team *Team) error {
	l, err := s.GetLeague(ctx, team.League)
	if err != nil {
		return err
	}
	if l.Finalized {
		return fmt.Errorf("cannot create team in %q: %w", team.League, ErrLeagueFinalized)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO teams (name, league, location) VALUES ($1, $2, $3)
	`, team.Name, team.League, team.Location)
	if err != nil {
		return translateInsertErr(err, fmt.Sprintf("team %q", team.Name))
	}
	return nil
}

func (s *PostgresStore) DeleteTeam(ctx context.Context, name, leagueName string) error {
	l, err := s.GetLeague(ctx, leagueName)
	if err != nil {
		return err
	}
	if l.Finalized {
		return fmt.Errorf("cannot delete team in %q: %w", leagueName, ErrLeagueFinalized)
	}
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM teams WHERE name = $1 AND league = $2`, name, leagueName)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("team %q: %w", name, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ListTeams(ctx context.Context, leagueName string) ([]Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, league, location FROM teams WHERE league = $1 ORDER BY name ASC
	`, leagueName)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []Team
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.Name, &t.League, &t.Location); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating teams: %w", err)
	}
	return teams, nil
}

func (s *PostgresStore) CreateScorekeeper(ctx context.Context, name, leagueName, credentials string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scorekeepers (name, league, credentials, registration_status)
		VALUES ($1, $2, $3, false)
	`, name, leagueName, credentials)
	if err != nil {
		return translateInsertErr(err, fmt.Sprintf("scorekeeper %q", name))
	}
	return nil
}

func (s *PostgresStore) RegisterScorekeeper(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE scorekeepers SET registration_status = true
		WHERE name = $1 AND registration_status = false
	`, name)
	if err != nil {
		return fmt.Errorf("failed to register scorekeeper: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("scorekeeper %q not found or already registered: %w", name, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) UnregisterScorekeeper(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM scorekeepers WHERE LOWER(name) = LOWER($1)`, name)
	if err != nil {
		return fmt.Errorf("failed to unregister scorekeeper: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("scorekeeper %q: %w", name, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) UnregisterScorekeeperFromLeague(ctx context.Context, name, leagueName string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE scorekeepers SET registration_status = false
		WHERE LOWER(name) = LOWER($1) AND league = $2
	`, name, leagueName)
	if err != nil {
		return fmt.Errorf("failed to unregister scorekeeper: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("scorekeeper %q: %w", name, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ListScorekeepers(ctx context.Context) ([]Scorekeeper, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, league, registration_status FROM scorekeepers ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scorekeepers: %w", err)
	}
	defer rows.Close()

	var scorekeepers []Scorekeeper
	for rows.Next() {
		var sk Scorekeeper
		if err := rows.Scan(&sk.Name, &sk.League, &sk.Registered); err != nil {
			return nil, fmt.Errorf("failed to scan scorekeeper: %w", err)
		}
		scorekeepers = append(scorekeepers, sk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scorekeepers: %w", err)
	}
	return scorekeepers, nil
}

func (s *PostgresStore) AuthenticateScorekeeper(ctx context.Context, name, leagueName, credentials string) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM scorekeepers
			WHERE name = $1 AND league = $2 AND credentials = $3
		)
	`, name, leagueName, credentials).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check scorekeeper credentials: %w", err)
	}
	if !exists {
		return fmt.Errorf("scorekeeper %q: %w", name, ErrForbidden)
	}
	return nil
}

func (s *PostgresStore) checkGameAndScorekeeper(ctx context.Context, gameID, name string) error {
	var gameExists, skExists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT
			EXISTS(SELECT 1 FROM games WHERE id = $1),
			EXISTS(SELECT 1 FROM scorekeepers WHERE name = $2)
	`, gameID, name).Scan(&gameExists, &skExists)
	if err != nil {
		return fmt.Errorf("failed to check assignment targets: %w", err)
	}
	if !gameExists {
		return fmt.Errorf("game %q: %w", gameID, ErrNotFound)
	}
	if !skExists {
		return fmt.Errorf("scorekeeper %q: %w", name, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) AssignScorekeeper(ctx context.Context, gameID, name string) error {
	if err := s.checkGameAndScorekeeper(ctx, gameID, name); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO game_scorekeepers (game_id, scorekeeper_name)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, gameID, name)
	if err != nil {
		return fmt.Errorf("failed to assign scorekeeper: %w", err)
	}
	return nil
}

func (s *PostgresStore) UnassignScorekeeper(ctx context.Context, gameID, name string) error {
	if err := s.checkGameAndScorekeeper(ctx, gameID, name); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM game_scorekeepers WHERE game_id = $1 AND scorekeeper_name = $2
	`, gameID, name)
	if err != nil {
		return fmt.Errorf("failed to unassign scorekeeper: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("scorekeeper %q not assigned to game %q: %w", name, gameID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CreateGame(ctx context.Context, game *Game) error {
	if _, err := s.GetLeague(ctx, game.League); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO games (id, date, league, location, home_team, away_team,
			home_score, away_score, finalized, views)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0)
	`, game.ID, game.Date, game.League, game.Location, game.HomeTeam,
		game.AwayTeam, game.HomeScore, game.AwayScore, game.Finalized)
	if err != nil {
		return translateInsertErr(err, fmt.Sprintf("game %q", game.ID))
	}
	return nil
}

func (s *PostgresStore) RetrieveGame(ctx context.Context, id, leagueName string) (*Game, error) {
	// Single statement so the view bump and the read cannot race.
	var g Game
	err := s.db.QueryRowContext(ctx, `
		UPDATE games SET views = COALESCE(views, 0) + 1
		WHERE id = $1 AND league = $2
		RETURNING id, date, league, location, home_team, away_team,
			home_score, away_score, finalized, views
	`, id, leagueName).Scan(&g.ID, &g.Date, &g.League, &g.Location,
		&g.HomeTeam, &g.AwayTeam, &g.HomeScore, &g.AwayScore, &g.Finalized, &g.Views)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("game %q in league %q: %w", id, leagueName, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve game: %w", err)
	}
	return &g, nil
}

func (s *PostgresStore) ListGames(ctx context.Context) ([]Game, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, league, location, home_team, away_team,
			home_score, away_score, finalized
		FROM games ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	var games []Game
	for rows.Next() {
		var g Game
		if err := rows.Scan(&g.ID, &g.Date, &g.League, &g.Location,
			&g.HomeTeam, &g.AwayTeam, &g.HomeScore, &g.AwayScore, &g.Finalized); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}
	return games, nil
}

func (s *PostgresStore) DeleteGame(ctx context.Context, id, leagueName string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM games WHERE id = $1 AND league = $2`, id, leagueName)
	if err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("game %q in league %q: %w", id, leagueName, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) SetGameFinalized(ctx context.Context, id, leagueName string, finalized bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE games SET finalized = $1 WHERE id = $2 AND league = $3`,
		finalized, id, leagueName)
	if err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("game %q in league %q: %w", id, leagueName, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) LeagueForGame(ctx context.Context, gameID string) (string, error) {
	var leagueName string
	err := s.db.QueryRowContext(ctx,
		`SELECT league FROM games WHERE id = $1`, gameID).Scan(&leagueName)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("game %q: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve game's league: %w", err)
	}
	return leagueName, nil
}

func (s *PostgresStore) AccessReport(ctx context.Context) (*AccessReport, error) {
	report := &AccessReport{}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, league, home_team, away_team, COALESCE(views, 0)
		FROM games ORDER BY league, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query game views: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var gv GameViews
		if err := rows.Scan(&gv.ID, &gv.League, &gv.HomeTeam, &gv.AwayTeam, &gv.Views); err != nil {
			return nil, fmt.Errorf("failed to scan game views: %w", err)
		}
		report.Games = append(report.Games, gv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game views: %w", err)
	}

	leagueRows, err := s.db.QueryContext(ctx, `
		SELECT league, SUM(COALESCE(views, 0)), COUNT(*)
		FROM games GROUP BY league ORDER BY SUM(COALESCE(views, 0)) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query league views: %w", err)
	}
	defer leagueRows.Close()
	for leagueRows.Next() {
		var lv LeagueViews
		if err := leagueRows.Scan(&lv.League, &lv.TotalViews, &lv.TotalGames); err != nil {
			return nil, fmt.Errorf("failed to scan league views: %w", err)
		}
		report.Leagues = append(report.Leagues, lv)
	}
	if err := leagueRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating league views: %w", err)
	}

	return report, nil
}
