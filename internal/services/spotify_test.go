package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/crate/internal/shared"
)

// apiRecorder is a fake Web API: canned JSON per "METHOD path" plus a log of request bodies.
type apiRecorder struct {
	mu        sync.Mutex
	responses map[string]string
	statuses  map[string]int
	bodies    map[string][]string
	hits      map[string]int
}

func newAPIRecorder() *apiRecorder {
	return &apiRecorder{
		responses: map[string]string{},
		statuses:  map[string]int{},
		bodies:    map[string][]string{},
		hits:      map[string]int{},
	}
}

func (a *apiRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	body, _ := io.ReadAll(r.Body)

	a.mu.Lock()
	a.hits[key]++
	a.bodies[key] = append(a.bodies[key], string(body))
	resp, ok := a.responses[key]
	status := a.statuses[key]
	a.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"status":404,"message":"not found"}}`))
		return
	}
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(resp))
}

func newTestService(t *testing.T, api *apiRecorder) *SpotifyService {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return NewSpotifyService(srv.Client(), SpotifyOpts{BaseURL: srv.URL + "/v1/"})
}

const savedAlbumsJSON = `{
  "href": "", "limit": 2, "offset": 0, "total": 3,
  "next": "https://api.spotify.com/v1/me/albums?offset=2&limit=2",
  "items": [
    {
      "added_at": "2024-05-02T10:00:00Z",
      "album": {
        "id": "alb1", "name": "First", "release_date": "2020-01-01",
        "artists": [{"id": "ar1", "name": "Band"}],
        "genres": ["shoegaze"],
        "tracks": {
          "href": "", "limit": 50, "offset": 0, "total": 2, "next": "",
          "items": [
            {"id": "t1", "name": "One", "track_number": 1, "duration_ms": 1000, "artists": [{"id": "ar1", "name": "Band"}]},
            {"id": "t2", "name": "Two", "track_number": 2, "duration_ms": 2000, "artists": [{"id": "ar1", "name": "Band"}]}
          ]
        }
      }
    }
  ]
}`

func TestNewAuthenticator(t *testing.T) {
	t.Run("With Valid Credentials", func(t *testing.T) {
		auth, err := NewAuthenticator(map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		url := auth.AuthURL("state123")
		for _, want := range []string{"client_id=test_client_id", "state=state123", "user-library-read", "127.0.0.1%3A3000"} {
			if !strings.Contains(url, want) {
				t.Errorf("auth URL %s should contain %s", url, want)
			}
		}
	})

	tc := []struct {
		name  string
		creds map[string]string
	}{
		{name: "Missing Client ID", creds: map[string]string{"client_secret": "s"}},
		{name: "Missing Client Secret", creds: map[string]string{"client_id": "c"}},
	}
	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewAuthenticator(tt.creds); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	}
}

func TestNewLimiter(t *testing.T) {
	if NewLimiter(0, 5) != nil {
		t.Error("zero rps should disable limiting")
	}
	l := NewLimiter(2, 0)
	if l == nil || l.Burst() != 1 {
		t.Errorf("expected limiter with burst 1, got %v", l)
	}
}

func TestSpotifyService(t *testing.T) {
	ctx := context.Background()

	t.Run("SavedAlbums", func(t *testing.T) {
		api := newAPIRecorder()
		api.responses["GET /v1/me/albums"] = savedAlbumsJSON
		svc := newTestService(t, api)

		page, err := svc.SavedAlbums(ctx, 0, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !page.HasMore {
			t.Error("expected more pages")
		}
		if len(page.Items) != 1 {
			t.Fatalf("expected 1 album, got %d", len(page.Items))
		}

		album := page.Items[0]
		if album.ID != "alb1" || album.TotalTracks != 2 || album.Genres[0] != "shoegaze" {
			t.Errorf("unexpected album %+v", album.Album)
		}
		if !album.AddedAt.Equal(time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected added_at %v", album.AddedAt)
		}
		if len(album.Tracks) != 2 || album.Tracks[1].TrackNumber != 2 || album.Tracks[1].Album.ID != "alb1" {
			t.Errorf("unexpected album tracks %+v", album.Tracks)
		}
	})

	t.Run("SavedAlbums Long Album", func(t *testing.T) {
		api := newAPIRecorder()
		api.responses["GET /v1/me/albums"] = `{"limit": 50, "offset": 0, "total": 1, "next": "",
			"items": [{"added_at": "2024-05-02T10:00:00Z",
				"album": {"id": "alb1", "name": "Long", "artists": [{"name": "Band"}],
					"tracks": {"limit": 2, "offset": 0, "total": 3,
						"next": "https://api.spotify.com/v1/albums/alb1/tracks?offset=2&limit=2",
						"items": [
							{"id": "t1", "name": "One", "track_number": 1},
							{"id": "t2", "name": "Two", "track_number": 2}
						]}}}]}`
		api.responses["GET /v1/albums/alb1/tracks"] = `{"limit": 50, "offset": 2, "total": 3, "next": "",
			"items": [{"id": "t3", "name": "Three", "track_number": 3, "artists": [{"name": "Band"}]}]}`
		svc := newTestService(t, api)

		page, err := svc.SavedAlbums(ctx, 0, 50)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tracks := page.Items[0].Tracks
		if len(tracks) != 3 {
			t.Fatalf("expected 3 tracks, got %d", len(tracks))
		}
		if tracks[2].ID != "t3" || tracks[2].TrackNumber != 3 || tracks[2].Album.ID != "alb1" {
			t.Errorf("unexpected trailing track %+v", tracks[2])
		}
		if hits := api.hits["GET /v1/albums/alb1/tracks"]; hits != 1 {
			t.Errorf("expected 1 album tracks request, got %d", hits)
		}
	})

	t.Run("SavedAlbums Long Album Failure", func(t *testing.T) {
		api := newAPIRecorder()
		api.responses["GET /v1/me/albums"] = `{"limit": 50, "offset": 0, "total": 1, "next": "",
			"items": [{"added_at": "2024-05-02T10:00:00Z",
				"album": {"id": "alb1", "name": "Long",
					"tracks": {"limit": 1, "offset": 0, "total": 2, "next": "https://api.spotify.com/v1/albums/alb1/tracks?offset=1",
						"items": [{"id": "t1", "name": "One", "track_number": 1}]}}}]}`
		svc := newTestService(t, api)

		if _, err := svc.SavedAlbums(ctx, 0, 50); err == nil || !strings.Contains(err.Error(), "alb1") {
			t.Errorf("expected album tracks error, got %v", err)
		}
	})

	t.Run("SavedTracks Invalid Timestamp", func(t *testing.T) {
		api := newAPIRecorder()
		api.responses["GET /v1/me/tracks"] = `{"limit": 50, "offset": 0, "total": 1, "next": "",
			"items": [{"added_at": "yesterday", "track": {"id": "t1", "name": "One", "type": "track"}}]}`
		svc := newTestService(t, api)

		if _, err := svc.SavedTracks(ctx, 0, 50); err == nil {
			t.Error("expected error for unparseable added_at")
		}
	})

	t.Run("PlaylistItems Local Track", func(t *testing.T) {
		api := newAPIRecorder()
		api.responses["GET /v1/playlists/pl1/tracks"] = `{"limit": 50, "offset": 0, "total": 2, "next": "",
			"items": [
				{"added_at": "2024-01-01T00:00:00Z", "is_local": false,
				 "track": {"type": "track", "id": "t1", "name": "One", "track_number": 1,
				           "album": {"id": "alb1", "name": "First"}, "artists": [{"name": "Band"}]}},
				{"added_at": "2024-01-01T00:00:00Z", "is_local": true,
				 "track": {"type": "track", "id": null, "name": "Demo", "artists": []}}
			]}`
		svc := newTestService(t, api)

		page, err := svc.PlaylistItems(ctx, "pl1", 0, 50)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.HasMore {
			t.Error("expected last page")
		}
		if len(page.Items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(page.Items))
		}
		if page.Items[0].ID != "t1" || page.Items[0].Album.ID != "alb1" {
			t.Errorf("unexpected first item %+v", page.Items[0])
		}
		if !page.Items[1].Local() {
			t.Errorf("expected local track, got %+v", page.Items[1])
		}
	})

	t.Run("Tracks Rejects Oversized Batch", func(t *testing.T) {
		api := newAPIRecorder()
		svc := newTestService(t, api)

		ids := make([]string, ReadBatch+1)
		if _, err := svc.Tracks(ctx, ids); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if len(api.hits) != 0 {
			t.Errorf("expected no requests, got %v", api.hits)
		}
	})

	t.Run("Tracks Remote Error", func(t *testing.T) {
		api := newAPIRecorder()
		api.responses["GET /v1/tracks"] = `{"error":{"status":500,"message":"boom"}}`
		api.statuses["GET /v1/tracks"] = http.StatusInternalServerError
		svc := newTestService(t, api)

		if _, err := svc.Tracks(ctx, []string{"t1"}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("AddItems At Position", func(t *testing.T) {
		api := newAPIRecorder()
		api.responses["POST /v1/playlists/pl1/tracks"] = `{"snapshot_id":"s1"}`
		api.statuses["POST /v1/playlists/pl1/tracks"] = http.StatusCreated
		svc := newTestService(t, api)

		pos := 3
		if err := svc.AddItems(ctx, "pl1", []string{"a", "b"}, &pos); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		bodies := api.bodies["POST /v1/playlists/pl1/tracks"]
		if len(bodies) != 1 {
			t.Fatalf("expected 1 request, got %d", len(bodies))
		}

		var got struct {
			URIs     []string `json:"uris"`
			Position *int     `json:"position"`
		}
		if err := json.Unmarshal([]byte(bodies[0]), &got); err != nil {
			t.Fatalf("invalid body %s: %v", bodies[0], err)
		}
		if got.Position == nil || *got.Position != 3 {
			t.Errorf("expected position 3, got %v", got.Position)
		}
		if len(got.URIs) != 2 || got.URIs[0] != "spotify:track:a" {
			t.Errorf("unexpected uris %v", got.URIs)
		}
	})

	t.Run("AddItems Failure", func(t *testing.T) {
		api := newAPIRecorder()
		api.responses["POST /v1/playlists/pl1/tracks"] = `{"error":{"status":403,"message":"forbidden"}}`
		api.statuses["POST /v1/playlists/pl1/tracks"] = http.StatusForbidden
		svc := newTestService(t, api)

		pos := 0
		err := svc.AddItems(ctx, "pl1", []string{"a"}, &pos)
		if err == nil || !strings.Contains(err.Error(), "403") {
			t.Errorf("expected status error, got %v", err)
		}
	})

	t.Run("AddItems Service Unavailable", func(t *testing.T) {
		api := newAPIRecorder()
		api.responses["POST /v1/playlists/pl1/tracks"] = `{"error":{"status":503,"message":"busy"}}`
		api.statuses["POST /v1/playlists/pl1/tracks"] = http.StatusServiceUnavailable
		svc := newTestService(t, api)

		pos := 0
		if err := svc.AddItems(ctx, "pl1", []string{"a"}, &pos); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Empty Writes Are Skipped", func(t *testing.T) {
		api := newAPIRecorder()
		svc := newTestService(t, api)

		if err := svc.AddItems(ctx, "pl1", nil, nil); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if err := svc.RemoveAllOccurrences(ctx, "pl1", nil); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(api.hits) != 0 {
			t.Errorf("expected no requests, got %v", api.hits)
		}
	})
}
