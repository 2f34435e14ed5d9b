package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/paging"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const spotifyBaseURL = "https://api.spotify.com/v1/"

// DefaultRedirectURI is used when the credentials leave redirect_uri empty.
const DefaultRedirectURI = "http://127.0.0.1:3000/callback"

// Scopes needed to read the library and maintain playlists.
var spotifyScopes = []string{
	spotifyauth.ScopeUserLibraryRead,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
}

// NewAuthenticator builds the OAuth2 authenticator from client credentials.
func NewAuthenticator(credentials map[string]string) (*spotifyauth.Authenticator, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = DefaultRedirectURI
	}

	return spotifyauth.New(
		spotifyauth.WithClientID(clientID),
		spotifyauth.WithClientSecret(clientSecret),
		spotifyauth.WithRedirectURL(redirectURI),
		spotifyauth.WithScopes(spotifyScopes...),
	), nil
}

// SpotifyOpts configures a [SpotifyService]. Zero values select the defaults.
type SpotifyOpts struct {
	// Limiter throttles every request. Nil means unthrottled.
	Limiter *rate.Limiter
	// BaseURL overrides the Web API root, with a trailing slash.
	BaseURL string
	Logger  *log.Logger
}

// NewLimiter builds a limiter from requests per second and burst, nil when rps is zero.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), max(burst, 1))
}

// SpotifyService implements [Remote] on top of the Spotify Web API.
type SpotifyService struct {
	client     *spotify.Client
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	logger     *log.Logger
}

// NewSpotifyService creates a service that sends requests through httpClient.
//
// httpClient carries authentication, usually from [spotifyauth.Authenticator.Client].
func NewSpotifyService(httpClient *http.Client, opts SpotifyOpts) *SpotifyService {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	return &SpotifyService{
		client:     spotify.New(httpClient, spotify.WithBaseURL(baseURL)),
		httpClient: httpClient,
		limiter:    opts.Limiter,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// Token returns the token currently held by the oauth2 transport, which may have been refreshed since start-up.
func (s *SpotifyService) Token() (*oauth2.Token, error) {
	return s.client.Token()
}

func (s *SpotifyService) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// SavedAlbums implements [Remote].
func (s *SpotifyService) SavedAlbums(ctx context.Context, offset, limit int) (paging.Page[models.SavedAlbum], error) {
	if err := s.wait(ctx); err != nil {
		return paging.Page[models.SavedAlbum]{}, err
	}

	page, err := s.client.CurrentUsersAlbums(ctx, spotify.Limit(limit), spotify.Offset(offset))
	if err != nil {
		return paging.Page[models.SavedAlbum]{}, fmt.Errorf("saved albums at offset %d: %w", offset, err)
	}

	albums := make([]models.SavedAlbum, 0, len(page.Albums))
	for _, sa := range page.Albums {
		album, err := convertSavedAlbum(sa)
		if err != nil {
			return paging.Page[models.SavedAlbum]{}, err
		}
		if sa.Tracks.Next != "" {
			rest, err := s.albumTracks(ctx, models.AlbumRef{ID: album.ID, Name: album.Name}, len(album.Tracks))
			if err != nil {
				return paging.Page[models.SavedAlbum]{}, err
			}
			album.Tracks = append(album.Tracks, rest...)
		}
		albums = append(albums, album)
	}

	s.logger.Debug("fetched saved albums", "offset", offset, "count", len(albums))
	return paging.Page[models.SavedAlbum]{Items: albums, HasMore: page.Next != ""}, nil
}

// albumTracks reads an album's track listing from offset on. The saved-album listing embeds only the first page,
// so longer albums are completed here.
func (s *SpotifyService) albumTracks(ctx context.Context, album models.AlbumRef, from int) ([]models.Track, error) {
	fetch := func(ctx context.Context, offset, limit int) (paging.Page[models.Track], error) {
		if err := s.wait(ctx); err != nil {
			return paging.Page[models.Track]{}, err
		}

		page, err := s.client.GetAlbumTracks(ctx, spotify.ID(album.ID), spotify.Limit(limit), spotify.Offset(from+offset))
		if err != nil {
			return paging.Page[models.Track]{}, fmt.Errorf("album %s tracks at offset %d: %w", album.ID, from+offset, err)
		}

		tracks := make([]models.Track, 0, len(page.Tracks))
		for _, st := range page.Tracks {
			tracks = append(tracks, convertSimpleTrack(st, album))
		}
		return paging.Page[models.Track]{Items: tracks, HasMore: page.Next != ""}, nil
	}

	tracks, err := paging.Collect(paging.Items[models.Track](ctx, fetch, ReadBatch))
	if err != nil {
		return nil, err
	}
	s.logger.Debug("completed album listing", "album", album.ID, "extra", len(tracks))
	return tracks, nil
}

// SavedTracks implements [Remote].
func (s *SpotifyService) SavedTracks(ctx context.Context, offset, limit int) (paging.Page[models.SavedTrack], error) {
	if err := s.wait(ctx); err != nil {
		return paging.Page[models.SavedTrack]{}, err
	}

	page, err := s.client.CurrentUsersTracks(ctx, spotify.Limit(limit), spotify.Offset(offset))
	if err != nil {
		return paging.Page[models.SavedTrack]{}, fmt.Errorf("saved tracks at offset %d: %w", offset, err)
	}

	tracks := make([]models.SavedTrack, 0, len(page.Tracks))
	for i := range page.Tracks {
		st := &page.Tracks[i]
		addedAt, err := parseAddedAt(st.AddedAt)
		if err != nil {
			return paging.Page[models.SavedTrack]{}, err
		}
		tracks = append(tracks, models.SavedTrack{Track: convertFullTrack(&st.FullTrack), AddedAt: addedAt})
	}

	s.logger.Debug("fetched saved tracks", "offset", offset, "count", len(tracks))
	return paging.Page[models.SavedTrack]{Items: tracks, HasMore: page.Next != ""}, nil
}

// PlaylistItems implements [Remote]. Episodes and local files come back as tracks without an identifier so that
// positions and offsets stay aligned with the remote listing.
func (s *SpotifyService) PlaylistItems(ctx context.Context, playlistID string, offset, limit int) (paging.Page[models.Track], error) {
	if err := s.wait(ctx); err != nil {
		return paging.Page[models.Track]{}, err
	}

	page, err := s.client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(limit), spotify.Offset(offset))
	if err != nil {
		return paging.Page[models.Track]{}, fmt.Errorf("playlist %s items at offset %d: %w", playlistID, offset, err)
	}

	tracks := make([]models.Track, 0, len(page.Items))
	for _, item := range page.Items {
		switch {
		case item.Track.Track != nil:
			track := convertFullTrack(item.Track.Track)
			if item.IsLocal {
				track.ID = ""
			}
			tracks = append(tracks, track)
		case item.Track.Episode != nil:
			tracks = append(tracks, models.Track{Name: item.Track.Episode.Name})
		default:
			tracks = append(tracks, models.Track{})
		}
	}

	return paging.Page[models.Track]{Items: tracks, HasMore: page.Next != ""}, nil
}

// Tracks implements [Remote].
func (s *SpotifyService) Tracks(ctx context.Context, ids []string) ([]models.Track, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > ReadBatch {
		return nil, fmt.Errorf("%w: at most %d track ids per lookup, got %d", shared.ErrInvalidArgument, ReadBatch, len(ids))
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	full, err := s.client.GetTracks(ctx, toIDs(ids))
	if err != nil {
		return nil, fmt.Errorf("track lookup: %w", err)
	}

	tracks := make([]models.Track, 0, len(full))
	for _, ft := range full {
		if ft == nil {
			continue
		}
		tracks = append(tracks, convertFullTrack(ft))
	}
	return tracks, nil
}

// AddItems implements [Remote].
func (s *SpotifyService) AddItems(ctx context.Context, playlistID string, ids []string, position *int) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.wait(ctx); err != nil {
		return err
	}

	if position == nil {
		if _, err := s.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), toIDs(ids)...); err != nil {
			return fmt.Errorf("add %d items to %s: %w", len(ids), playlistID, err)
		}
		return nil
	}

	body := map[string]any{"uris": trackURIs(ids), "position": *position}
	if err := s.doRequest(ctx, http.MethodPost, "playlists/"+playlistID+"/tracks", body, nil); err != nil {
		return fmt.Errorf("add %d items to %s at %d: %w", len(ids), playlistID, *position, err)
	}
	return nil
}

// RemoveAllOccurrences implements [Remote].
func (s *SpotifyService) RemoveAllOccurrences(ctx context.Context, playlistID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.wait(ctx); err != nil {
		return err
	}

	if _, err := s.client.RemoveTracksFromPlaylist(ctx, spotify.ID(playlistID), toIDs(ids)...); err != nil {
		return fmt.Errorf("remove %d items from %s: %w", len(ids), playlistID, err)
	}
	return nil
}

// ReplaceItems implements [Remote].
func (s *SpotifyService) ReplaceItems(ctx context.Context, playlistID string, ids []string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	if err := s.client.ReplacePlaylistTracks(ctx, spotify.ID(playlistID), toIDs(ids)...); err != nil {
		return fmt.Errorf("replace items of %s: %w", playlistID, err)
	}
	return nil
}

// SetDetails implements [Remote].
func (s *SpotifyService) SetDetails(ctx context.Context, playlistID, description string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	if err := s.client.ChangePlaylistDescription(ctx, spotify.ID(playlistID), description); err != nil {
		return fmt.Errorf("set description of %s: %w", playlistID, err)
	}
	return nil
}

// doRequest performs an authenticated JSON request against the Web API for endpoints the client library does not
// cover.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("spotify API error: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
		}
		return err
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func convertFullTrack(ft *spotify.FullTrack) models.Track {
	artists := make([]string, 0, len(ft.Artists))
	for _, a := range ft.Artists {
		artists = append(artists, a.Name)
	}

	return models.Track{
		ID:          string(ft.ID),
		Name:        ft.Name,
		Artists:     artists,
		Album:       models.AlbumRef{ID: string(ft.Album.ID), Name: ft.Album.Name},
		TrackNumber: int(ft.TrackNumber),
		DurationMS:  int(ft.Duration),
	}
}

func convertSimpleTrack(st spotify.SimpleTrack, album models.AlbumRef) models.Track {
	artists := make([]string, 0, len(st.Artists))
	for _, a := range st.Artists {
		artists = append(artists, a.Name)
	}
	return models.Track{
		ID:          string(st.ID),
		Name:        st.Name,
		Artists:     artists,
		Album:       album,
		TrackNumber: int(st.TrackNumber),
		DurationMS:  int(st.Duration),
	}
}

// convertSavedAlbum maps a saved album. The listing only embeds simplified tracks, so album tracks carry
// identifiers and numbering but are resolved to full records by the caller.
func convertSavedAlbum(sa spotify.SavedAlbum) (models.SavedAlbum, error) {
	addedAt, err := parseAddedAt(sa.AddedAt)
	if err != nil {
		return models.SavedAlbum{}, err
	}

	ref := models.AlbumRef{ID: string(sa.ID), Name: sa.Name}
	tracks := make([]models.Track, 0, len(sa.Tracks.Tracks))
	for _, st := range sa.Tracks.Tracks {
		tracks = append(tracks, convertSimpleTrack(st, ref))
	}

	artists := make([]string, 0, len(sa.Artists))
	for _, a := range sa.Artists {
		artists = append(artists, a.Name)
	}

	return models.SavedAlbum{
		Album: models.Album{
			ID:          ref.ID,
			Name:        ref.Name,
			Artists:     artists,
			Tracks:      tracks,
			Genres:      sa.Genres,
			TotalTracks: int(sa.Tracks.Total),
			ReleaseDate: sa.ReleaseDate,
		},
		AddedAt: addedAt,
	}, nil
}

func parseAddedAt(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid added_at %q: %w", s, err)
	}
	return t.UTC(), nil
}

func toIDs(ids []string) []spotify.ID {
	out := make([]spotify.ID, len(ids))
	for i, id := range ids {
		out[i] = spotify.ID(id)
	}
	return out
}

func trackURIs(ids []string) []string {
	uris := make([]string, len(ids))
	for i, id := range ids {
		uris[i] = "spotify:track:" + id
	}
	return uris
}
