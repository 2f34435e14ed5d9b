package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/crate/internal/library"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/repositories"
	"github.com/desertthunder/crate/internal/shared"
	tu "github.com/desertthunder/crate/internal/testing"
	"github.com/desertthunder/crate/internal/tasks"
	"golang.org/x/oauth2"
)

// fixture is a runner wired to in-memory collaborators.
type fixture struct {
	runner *Runner
	remote *tu.FakeRemote
	store  *tu.MemoryStore
	db     *sql.DB
	output *bytes.Buffer
}

func newFixture(t *testing.T, config *shared.Config) *fixture {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if config == nil {
		config = shared.DefaultConfig()
	}

	f := &fixture{
		remote: tu.NewFakeRemote(),
		store:  tu.NewMemoryStore(),
		db:     db,
		output: &bytes.Buffer{},
	}
	f.runner = NewRunner(RunnerOpts{
		Config: config,
		Remote: f.remote,
		Store:  f.store,
		DB:     db,
		Logger: shared.DiscardLogger(),
		Output: f.output,
		Rand:   rand.New(rand.NewPCG(3, 5)),
	})
	return f
}

func (f *fixture) run(t *testing.T, args ...string) error {
	t.Helper()
	return f.runner.app().Run(context.Background(), append([]string{"crate"}, args...))
}

func (f *fixture) seed(t *testing.T, tracks ...models.Track) {
	t.Helper()
	cache := library.NewCache(f.store, library.CacheOpts{})
	if _, _, err := cache.MergeTracks(context.Background(), tracks); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}
}

func (f *fixture) runs(t *testing.T) []*models.SyncRun {
	t.Helper()
	runs, err := repositories.NewSyncRunRepository(f.db).List(map[string]any{})
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	return runs
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			remote := tu.NewFakeRemote()
			store := tu.NewMemoryStore()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Remote:     remote,
				Store:      store,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if !runner.configured {
				t.Error("expected an explicit config to count as configured")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.remote != remote {
				t.Error("expected remote to be set")
			}
			if runner.store != store {
				t.Error("expected store to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Config: nil,
			})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.configured {
				t.Error("expected default config to be replaceable by --config")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Logger: nil,
			})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Output: nil,
			})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				HTTPClient: nil,
			})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				ConfigPath: "/test/path/config.toml",
			})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) == 0 {
			t.Error("expected at least one command to be registered")
		}

		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
			}
		}
	})

	t.Run("saveToken", func(t *testing.T) {
		t.Run("saves tokens successfully", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")

			config := shared.DefaultConfig()
			config.Credentials.Spotify.ClientID = "test_id"
			config.Credentials.Spotify.ClientSecret = "test_secret"

			if err := shared.SaveConfig(configPath, config); err != nil {
				t.Fatalf("failed to create test config: %v", err)
			}

			runner := NewRunner(RunnerOpts{Config: config, ConfigPath: configPath})
			token := &oauth2.Token{AccessToken: "new_access_token", RefreshToken: "new_refresh_token"}
			if err := runner.saveToken(token); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			loaded, err := shared.LoadConfig(configPath)
			if err != nil {
				t.Fatalf("failed to reload config: %v", err)
			}
			if loaded.Credentials.Spotify.AccessToken != "new_access_token" {
				t.Errorf("expected access token to be updated, got %s", loaded.Credentials.Spotify.AccessToken)
			}
			if loaded.Credentials.Spotify.RefreshToken != "new_refresh_token" {
				t.Errorf("expected refresh token to be updated, got %s", loaded.Credentials.Spotify.RefreshToken)
			}
		})

		t.Run("handles nil config error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/tmp/test.toml"})
			runner.config = nil

			err := runner.saveToken(&oauth2.Token{AccessToken: "test"})
			if !errors.Is(err, shared.ErrMissingConfig) {
				t.Errorf("expected ErrMissingConfig, got %v", err)
			}
		})

		t.Run("handles empty configPath", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{Config: config})

			if err := runner.saveToken(&oauth2.Token{AccessToken: "new_token"}); err != nil {
				t.Fatalf("expected no error with empty path, got %v", err)
			}
			if config.Credentials.Spotify.AccessToken != "new_token" {
				t.Error("expected config to be updated in memory")
			}
		})

		t.Run("handles SaveConfig failure", func(t *testing.T) {
			blocker := filepath.Join(t.TempDir(), "file")
			if err := os.WriteFile(blocker, nil, 0644); err != nil {
				t.Fatal(err)
			}

			runner := NewRunner(RunnerOpts{
				Config:     shared.DefaultConfig(),
				ConfigPath: filepath.Join(blocker, "config.toml"),
			})

			err := runner.saveToken(&oauth2.Token{AccessToken: "test"})
			if err == nil || !strings.Contains(err.Error(), "failed to save config") {
				t.Errorf("expected save config error, got %v", err)
			}
		})

		t.Run("rejects a nil token", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig()})

			err := runner.saveToken(nil)
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
			if !strings.Contains(err.Error(), "failed to update spotify configuration") {
				t.Errorf("expected update error, got %v", err)
			}
		})
	})
}

func TestConfigLoading(t *testing.T) {
	t.Run("explicit --config replaces defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		config := shared.DefaultConfig()
		config.Playlists.Weekly.ID = "from-file"
		if err := shared.SaveConfig(path, config); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		runner := NewRunner(RunnerOpts{Logger: shared.DiscardLogger(), Output: &bytes.Buffer{}})
		if err := runner.app().Run(context.Background(), []string{"crate", "--config", path, "auth", "status"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if runner.config.Playlists.Weekly.ID != "from-file" {
			t.Errorf("expected config from %s, got weekly id %q", path, runner.config.Playlists.Weekly.ID)
		}
		if runner.configPath != path {
			t.Errorf("expected configPath %s, got %s", path, runner.configPath)
		}
	})

	t.Run("invalid config fails the command", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("[cache]\nbackend = \"tape\"\n"), 0600); err != nil {
			t.Fatal(err)
		}

		runner := NewRunner(RunnerOpts{Logger: shared.DiscardLogger(), Output: &bytes.Buffer{}})
		err := runner.app().Run(context.Background(), []string{"crate", "--config", path, "auth", "status"})
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("setup config writes the template", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "config.toml")
		output := &bytes.Buffer{}

		runner := NewRunner(RunnerOpts{Logger: shared.DiscardLogger(), Output: output})
		if err := runner.app().Run(context.Background(), []string{"crate", "--config", path, "setup", "config"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tu.AssertFileExists(t, path)
		if !strings.Contains(output.String(), path) {
			t.Errorf("expected the path in the output, got %q", output.String())
		}
	})
}

func TestCacheCommands(t *testing.T) {
	tracks := []models.Track{
		{ID: "1", Name: "Blue Monday", Artists: []string{"New Order"}, Album: models.AlbumRef{ID: "p", Name: "Power"}, DurationMS: 448000},
		{ID: "2", Name: "Atmosphere", Artists: []string{"Joy Division"}, Album: models.AlbumRef{ID: "c", Name: "Closer"}},
	}

	t.Run("update merges recent items", func(t *testing.T) {
		f := newFixture(t, nil)
		f.remote.Albums = []models.SavedAlbum{tu.MakeAlbum("A", tu.Day(2), 2)}

		if err := f.run(t, "cache", "update"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.store.Writes[library.DefaultTracksKey] != 1 || f.store.Writes[library.DefaultAlbumsKey] != 1 {
			t.Errorf("expected one write per snapshot, got %v", f.store.Writes)
		}
		if !strings.Contains(f.output.String(), "Albums: 1 new") {
			t.Errorf("expected album summary, got %q", f.output.String())
		}
	})

	t.Run("search prints matches", func(t *testing.T) {
		f := newFixture(t, nil)
		f.seed(t, tracks...)

		if err := f.run(t, "cache", "search", "--format", "csv", "new order"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := f.output.String()
		if !strings.Contains(out, "Blue Monday") || strings.Contains(out, "Atmosphere") {
			t.Errorf("expected only Blue Monday, got %q", out)
		}
	})

	t.Run("search writes a file", func(t *testing.T) {
		f := newFixture(t, nil)
		f.seed(t, tracks...)
		path := filepath.Join(t.TempDir(), "closer")

		if err := f.run(t, "cache", "search", "--format", "markdown", "--output", path, "closer"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(tu.MustReadFile(t, path+".md"), "Atmosphere") {
			t.Error("expected the match in the markdown file")
		}
	})

	t.Run("search requires a query", func(t *testing.T) {
		f := newFixture(t, nil)
		if err := f.run(t, "cache", "search"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("search rejects unknown formats", func(t *testing.T) {
		f := newFixture(t, nil)
		if err := f.run(t, "cache", "search", "--format", "xml", "x"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("stats", func(t *testing.T) {
		f := newFixture(t, nil)
		f.seed(t, tracks...)

		if err := f.run(t, "cache", "stats"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(f.output.String(), "Tracks:  2") {
			t.Errorf("expected track count, got %q", f.output.String())
		}
	})
}

func TestPlaylistCommands(t *testing.T) {
	cached := []models.Track{
		tu.MakeTrack("a", tu.Epoch).Track,
		tu.MakeTrack("b", tu.Epoch).Track,
		tu.MakeTrack("c", tu.Epoch).Track,
	}

	t.Run("weekly rebuilds and records the run", func(t *testing.T) {
		f := newFixture(t, nil)
		f.seed(t, cached...)
		f.remote.SetPlaylist("weekly", "old")

		if err := f.run(t, "playlist", "weekly", "--id", "weekly", "--count", "2"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := f.remote.PlaylistIDs("weekly"); len(got) != 2 {
			t.Errorf("expected 2 tracks, got %v", got)
		}

		runs := f.runs(t)
		if len(runs) != 1 {
			t.Fatalf("expected 1 run, got %d", len(runs))
		}
		if runs[0].Status() != models.RunSucceeded || runs[0].Added() != 2 || runs[0].Operation() != opWeekly {
			t.Errorf("unexpected run %+v", newRunView(runs[0]))
		}
		if !strings.Contains(f.output.String(), "2 added, 0 removed") {
			t.Errorf("expected summary, got %q", f.output.String())
		}
	})

	t.Run("configured playlist is the default", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Playlists.Liked.ID = "liked"
		f := newFixture(t, config)
		f.seed(t, cached...)

		if err := f.run(t, "playlist", "liked"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := f.remote.PlaylistIDs("liked"); len(got) != len(cached) {
			t.Errorf("expected %d tracks, got %v", len(cached), got)
		}
	})

	t.Run("missing playlist id", func(t *testing.T) {
		f := newFixture(t, nil)

		if err := f.run(t, "playlist", "liked"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if len(f.remote.Calls) != 0 {
			t.Errorf("expected no remote calls, got %d", len(f.remote.Calls))
		}
	})

	t.Run("failed write is recorded", func(t *testing.T) {
		f := newFixture(t, nil)
		f.seed(t, cached...)
		f.remote.FailOn("ReplaceItems", 0, errors.New("forbidden"))

		err := f.run(t, "playlist", "weekly", "--id", "weekly", "--count", "2")
		if !errors.Is(err, shared.ErrRemoteWrite) {
			t.Fatalf("expected ErrRemoteWrite, got %v", err)
		}

		runs := f.runs(t)
		if len(runs) != 1 || runs[0].Status() != models.RunFailed || runs[0].Message() == "" {
			t.Errorf("expected one failed run with a message, got %d runs", len(runs))
		}
	})

	t.Run("trim", func(t *testing.T) {
		f := newFixture(t, nil)
		f.remote.SetPlaylist("recent", "a", "b", "c")

		if err := f.run(t, "playlist", "trim", "--id", "recent", "--keep", "1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := f.remote.PlaylistIDs("recent"); len(got) != 1 || got[0] != "a" {
			t.Errorf("expected [a], got %v", got)
		}
	})

	t.Run("search sets the description", func(t *testing.T) {
		f := newFixture(t, nil)
		f.seed(t, cached...)

		if err := f.run(t, "playlist", "search", "--id", "found", "song b"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := f.remote.PlaylistIDs("found"); len(got) != 1 || got[0] != "b" {
			t.Errorf("expected [b], got %v", got)
		}
		if f.remote.Descriptions["found"] != "song b" {
			t.Errorf("expected description, got %q", f.remote.Descriptions["found"])
		}
	})

	t.Run("negative count", func(t *testing.T) {
		f := newFixture(t, nil)
		err := f.run(t, "playlist", "weekly", "--id", "weekly", "--count", "-1")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("no stored token", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{
			Config: shared.DefaultConfig(),
			Logger: shared.DiscardLogger(),
			Output: &bytes.Buffer{},
		})

		err := runner.app().Run(context.Background(), []string{"crate", "playlist", "weekly", "--id", "w"})
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestHistoryCommands(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, tu.MakeTrack("a", tu.Epoch).Track)

	for range 2 {
		if err := f.run(t, "playlist", "weekly", "--id", "weekly", "--count", "1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	t.Run("json listing", func(t *testing.T) {
		f.output.Reset()
		if err := f.run(t, "history", "--json", "--limit", "1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := f.output.String()
		if strings.Count(out, `"operation": "weekly"`) != 1 {
			t.Errorf("expected one weekly run, got %q", out)
		}
		if !strings.Contains(out, `"sequence": 2`) {
			t.Errorf("expected the newest run, got %q", out)
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		if err := f.run(t, "history", "--status", "exploded"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("prune keeps recent runs", func(t *testing.T) {
		f.output.Reset()
		if err := f.run(t, "history", "prune", "--older-than", "1h"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(f.runs(t)) != 2 {
			t.Error("expected both runs to survive")
		}
		if !strings.Contains(f.output.String(), "Deleted 0 runs") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})
}

func TestOperations(t *testing.T) {
	config := shared.DefaultConfig()
	config.Playlists.Weekly.ID = "weekly"
	config.Playlists.Weekly.Count = 1
	config.Playlists.Liked.ID = "liked"

	f := newFixture(t, config)
	f.seed(t, tu.MakeTrack("a", tu.Epoch).Track, tu.MakeTrack("b", tu.Epoch).Track)

	ops := f.runner.operations()
	if len(ops) != 2 || ops[0].Name != opWeekly || ops[1].Name != opLiked {
		t.Fatalf("expected weekly and liked, got %+v", ops)
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	res, err := ops[0].Run(context.Background(), progress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Added != 1 {
		t.Errorf("expected 1 added, got %d", res.Added)
	}
	if len(progress) == 0 {
		t.Error("expected progress updates")
	}
	if runs := f.runs(t); len(runs) != 1 || runs[0].PlaylistID() != "weekly" {
		t.Errorf("expected a recorded weekly run, got %d runs", len(runs))
	}
}
