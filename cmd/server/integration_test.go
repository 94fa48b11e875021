//go:build integration

package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/courtside/leagued/gameevents"
	"github.com/courtside/leagued/league"
)

// setupTestDB creates a PostgreSQL testcontainer, runs migrations and
// seeds the admin credential used by the tests.
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	connStr := fmt.Sprintf("postgres://postgres:password@%s:%s/testdb?sslmode=disable", host, port.Port())
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	migrationSQL, err := os.ReadFile("../../migrations/000001_initial_schema.up.sql")
	if err != nil {
		t.Fatalf("Failed to read migration file: %v", err)
	}
	if _, err := db.Exec(string(migrationSQL)); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	if _, err := db.Exec(`INSERT INTO admin (credentials) VALUES ($1)`, testAdminCredentials); err != nil {
		t.Fatalf("Failed to seed admin credentials: %v", err)
	}

	cleanup := func() {
		db.Close()
		postgres.Terminate(ctx)
	}
	return db, cleanup
}

func newIntegrationServer(t *testing.T, db *sql.DB) *httptest.Server {
	t.Helper()
	s := newServer(league.NewPostgresStore(db),
		gameevents.NewPostgresSequencer(db),
		gameevents.NewPostgresEventLog(db),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.db = db

	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return ts
}

func makeRequest(t *testing.T, method, url string, body any) (int, map[string]any) {
	t.Helper()

	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		buf = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, buf)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp.StatusCode, decoded
}

// TestEndToEnd_SeasonWorkflow drives the full season workflow over HTTP:
// league setup, rules, teams, a game, event validation and play-by-play.
func TestEndToEnd_SeasonWorkflow(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ts := newIntegrationServer(t, db)
	baseURL := ts.URL + "/api/v1"

	t.Log("Step 1: Creating league...")
	status, _ := makeRequest(t, "POST", baseURL+"/leagues", map[string]any{
		"name":              "premier",
		"sport":             "soccer",
		"credentials":       "lg-secret",
		"admin_credentials": testAdminCredentials,
	})
	if status != http.StatusCreated {
		t.Fatalf("Expected 201 creating league, got %d", status)
	}

	t.Log("Step 2: Setting rules...")
	status, _ = makeRequest(t, "PUT", baseURL+"/leagues/premier/rules", map[string]any{
		"credentials": "lg-secret",
		"rules": map[string]any{
			"goal": map[string]any{
				"conditions": []map[string]any{{
					"type":     "valueComparison",
					"field":    "points",
					"operator": ">=",
					"value":    1,
				}},
			},
		},
	})
	if status != http.StatusOK {
		t.Fatalf("Expected 200 setting rules, got %d", status)
	}

	t.Log("Step 3: Creating teams and a game...")
	for _, team := range []string{"Hawks", "Otters"} {
		status, _ = makeRequest(t, "POST", baseURL+"/leagues/premier/teams", map[string]any{
			"name":               team,
			"location":           "Central",
			"league_credentials": "lg-secret",
		})
		if status != http.StatusCreated {
			t.Fatalf("Expected 201 creating team %s, got %d", team, status)
		}
	}
	status, _ = makeRequest(t, "POST", baseURL+"/games", map[string]any{
		"id":        "game-1",
		"date":      "2026-03-01 19:30:00",
		"league":    "premier",
		"location":  "Central Arena",
		"home_team": "Hawks",
		"away_team": "Otters",
	})
	if status != http.StatusCreated {
		t.Fatalf("Expected 201 creating game, got %d", status)
	}

	t.Log("Step 4a: Posting a valid event...")
	status, resp := makeRequest(t, "POST", baseURL+"/games/game-1/events", map[string]any{
		"game_event": map[string]any{"event_type": "goal", "points": 2, "player": "n.okafor"},
	})
	if status != http.StatusOK {
		t.Fatalf("Expected 200 for valid event, got %d: %v", status, resp)
	}
	if valid, _ := resp["valid"].(bool); !valid {
		t.Errorf("Expected valid verdict, got %v", resp)
	}

	t.Log("Step 4b: Posting an invalid event...")
	status, resp = makeRequest(t, "POST", baseURL+"/games/game-1/events", map[string]any{
		"game_event": map[string]any{"event_type": "goal", "points": 0},
	})
	if status != http.StatusBadRequest {
		t.Fatalf("Expected 400 for invalid event, got %d: %v", status, resp)
	}
	if valid, _ := resp["valid"].(bool); valid {
		t.Errorf("Expected invalid verdict, got %v", resp)
	}
	if conds, ok := resp["conditions"].([]any); !ok || len(conds) != 1 {
		t.Errorf("Expected one condition diagnostic, got %v", resp["conditions"])
	}

	t.Log("Step 4c: Posting an unruled event type...")
	status, _ = makeRequest(t, "POST", baseURL+"/games/game-1/events", map[string]any{
		"game_event": map[string]any{"event_type": "timeout"},
	})
	if status != http.StatusNotFound {
		t.Fatalf("Expected 404 for unruled event type, got %d", status)
	}

	t.Log("Step 5: Fetching play-by-play...")
	status, resp = makeRequest(t, "GET", baseURL+"/games/game-1/play-by-play?league=premier", nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200 for play-by-play, got %d: %v", status, resp)
	}
	events, ok := resp["play_by_play"].([]any)
	if !ok || len(events) != 2 {
		t.Fatalf("Expected 2 recorded events, got %v", resp["play_by_play"])
	}
	first := events[0].(map[string]any)
	if first["type"] != "goal" {
		t.Errorf("Expected first event to be a goal, got %v", first)
	}
	if info, ok := first["info"].(map[string]any); !ok || info["player"] != "n.okafor" {
		t.Errorf("Expected payload data in info, got %v", first["info"])
	}

	t.Log("Step 6: Access report...")
	req, _ := http.NewRequest("GET", baseURL+"/reports/access", nil)
	req.Header.Set("X-Admin-Credentials", testAdminCredentials)
	r, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Access report request failed: %v", err)
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 for access report, got %d", r.StatusCode)
	}

	t.Log("End-to-end season workflow completed")
}

// TestEndToEnd_ConcurrentEventIDs posts events from many goroutines and
// checks that the database sequence hands out distinct ids and the
// play-by-play comes back in ascending order.
func TestEndToEnd_ConcurrentEventIDs(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ts := newIntegrationServer(t, db)
	baseURL := ts.URL + "/api/v1"

	status, _ := makeRequest(t, "POST", baseURL+"/leagues", map[string]any{
		"name":              "premier",
		"sport":             "soccer",
		"credentials":       "lg-secret",
		"admin_credentials": testAdminCredentials,
	})
	if status != http.StatusCreated {
		t.Fatalf("Expected 201 creating league, got %d", status)
	}
	status, _ = makeRequest(t, "PUT", baseURL+"/leagues/premier/rules", map[string]any{
		"credentials": "lg-secret",
		"rules":       map[string]any{"goal": map[string]any{"conditions": []map[string]any{}}},
	})
	if status != http.StatusOK {
		t.Fatalf("Expected 200 setting rules, got %d", status)
	}
	status, _ = makeRequest(t, "POST", baseURL+"/games", map[string]any{
		"id":        "game-1",
		"date":      "2026-03-01 19:30:00",
		"league":    "premier",
		"location":  "Central Arena",
		"home_team": "Hawks",
		"away_team": "Otters",
	})
	if status != http.StatusCreated {
		t.Fatalf("Expected 201 creating game, got %d", status)
	}

	const workers = 16
	ids := make([]int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status, resp := makeRequest(t, "POST", baseURL+"/games/game-1/events", map[string]any{
				"game_event": map[string]any{"event_type": "goal", "n": i},
			})
			if status != http.StatusOK {
				t.Errorf("Expected 200, got %d: %v", status, resp)
				return
			}
			id, _ := resp["event_id"].(float64)
			ids[i] = int64(id)
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool, workers)
	for _, id := range ids {
		if id == 0 || seen[id] {
			t.Fatalf("Duplicate or missing event id: %v", ids)
		}
		seen[id] = true
	}

	_, resp := makeRequest(t, "GET", baseURL+"/games/game-1/play-by-play?league=premier", nil)
	events, ok := resp["play_by_play"].([]any)
	if !ok || len(events) != workers {
		t.Fatalf("Expected %d events, got %v", workers, resp["play_by_play"])
	}
	got := make([]int64, 0, workers)
	for _, e := range events {
		got = append(got, int64(e.(map[string]any)["event_id"].(float64)))
	}
	if !sort.SliceIsSorted(got, func(i, j int) bool { return got[i] < got[j] }) {
		t.Errorf("Play-by-play not in ascending id order: %v", got)
	}
}
