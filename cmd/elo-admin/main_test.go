package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"elo-admin"}, args...))
	return out.String(), err
}

func TestAdminSQLiteFlow(t *testing.T) {
	db := []string{"--database-driver", "sqlite3", "--database-url", filepath.Join(t.TempDir(), "elo.db")}

	out, err := run(t, append(db, "migrate", "up")...)
	if err != nil || !strings.Contains(out, "migrations applied (up)") {
		t.Fatalf("migrate: %q %v", out, err)
	}
	if out, err = run(t, append(db, "games", "register", "--team", "T1", "chess")...); err != nil || !strings.HasPrefix(out, "registered chess") {
		t.Fatalf("register: %q %v", out, err)
	}
	if _, err = run(t, append(db, "games", "register", "--team", "T1", "chess")...); err == nil {
		t.Fatalf("duplicate register should fail")
	}
	if out, err = run(t, append(db, "games", "list", "--team", "T1")...); err != nil || !strings.HasSuffix(strings.TrimSpace(out), "\tchess") {
		t.Fatalf("list: %q %v", out, err)
	}
	if out, err = run(t, append(db, "leaderboard", "--team", "T1", "chess")...); err != nil || !strings.Contains(out, "No one has played") {
		t.Fatalf("leaderboard: %q %v", out, err)
	}
	if _, err = run(t, append(db, "leaderboard", "--team", "T1", "darts")...); err == nil {
		t.Fatalf("unknown game should fail")
	}
}

func TestAdminMigrateNeedsDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := run(t, "migrate", "up"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestAdminIrisCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"port":3000,"polling_speed":100,"message_rate":5,"web_server_endpoint":"http://bot"}`))
	}))
	defer srv.Close()
	out, err := run(t, "iris-check", "--base-url", srv.URL)
	if err != nil || !strings.Contains(out, "port=3000") {
		t.Fatalf("iris-check: %q %v", out, err)
	}
}

func TestAdminVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil || strings.TrimSpace(out) != "dev" {
		t.Fatalf("version: %q %v", out, err)
	}
}
