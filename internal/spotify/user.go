package spotify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
	maxItemsPerRequest = 100
	previewSize        = 5
)

type Track struct {
	Name    string   `json:"name"`
	Artists []string `json:"artists"`
	URI     string   `json:"uri"`
	ID      string   `json:"id"`
}

type TrackList struct {
	Tracks []Track `json:"tracks"`
}

type PlaylistTracks struct {
	Total int `json:"total"`
}

type Playlist struct {
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	ExternalURLs  map[string]string `json:"external_urls"`
	ID            string            `json:"id"`
	URI           string            `json:"uri"`
	Tracks        PlaylistTracks    `json:"tracks"`
	CoverImageURL string            `json:"cover_image_url,omitzero"`
	TracksPreview []Track           `json:"tracks_preview"`
}

type Playback struct {
	Success bool   `json:"success"`
	Action  string `json:"action"`
	Status  string `json:"status"`
}

type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitzero"`
	Country     string `json:"country,omitzero"`
	Product     string `json:"product,omitzero"`
	URI         string `json:"uri"`
	ExternalURL string `json:"external_url,omitzero"`
	Followers   int    `json:"followers"`
	ImageURL    string `json:"image_url,omitzero"`
}

type TrackRemoval struct {
	Success       bool   `json:"success"`
	SnapshotID    string `json:"snapshot_id"`
	NewTrackCount int    `json:"new_track_count"`
}

// UserClient calls the Web API on behalf of one authenticated user.
type UserClient struct {
	client *spotify.Client
	sleep  func(time.Duration)
}

func NewUserClient(client *spotify.Client) *UserClient {
	return &UserClient{client: client, sleep: time.Sleep}
}

func (c *UserClient) SearchTracks(ctx context.Context, query string, limit int) (*TrackList, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query must not be empty")
	}

	response, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(clampLimit(limit)))
	if err != nil {
		return nil, normalizeError(err)
	}

	list := &TrackList{Tracks: []Track{}}
	if response.Tracks != nil {
		for _, track := range response.Tracks.Tracks {
			list.Tracks = append(list.Tracks, fromFullTrack(&track))
		}
	}

	return list, nil
}

// CreatePlaylist creates a private playlist for the current user, adds the
// given tracks and returns the playlist with a short track preview.
func (c *UserClient) CreatePlaylist(ctx context.Context, name, description string, trackURIs []string) (*Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("playlist name must not be empty")
	}

	ids := make([]spotify.ID, 0, len(trackURIs))
	for _, uri := range trackURIs {
		id, err := TrackID(uri)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	user, err := c.client.CurrentUser(ctx)
	if err != nil {
		return nil, normalizeError(err)
	}

	created, err := c.client.CreatePlaylistForUser(ctx, user.ID, name, description, false, false)
	if err != nil {
		return nil, normalizeError(err)
	}

	for start := 0; start < len(ids); start += maxItemsPerRequest {
		end := min(start+maxItemsPerRequest, len(ids))
		if _, err := c.client.AddTracksToPlaylist(ctx, created.ID, ids[start:end]...); err != nil {
			return nil, normalizeError(err)
		}
	}

	details, err := c.client.GetPlaylist(ctx, created.ID, spotify.Fields("name,description,external_urls,id,uri,images,tracks.total"))
	if err != nil {
		return nil, normalizeError(err)
	}

	preview, err := c.client.GetPlaylistItems(ctx, created.ID,
		spotify.Fields("items(track(type,name,artists(name),uri,id))"),
		spotify.Limit(previewSize))
	if err != nil {
		return nil, normalizeError(err)
	}

	playlist := &Playlist{
		Name:          details.Name,
		Description:   details.Description,
		ExternalURLs:  details.ExternalURLs,
		ID:            string(details.ID),
		URI:           string(details.URI),
		Tracks:        PlaylistTracks{Total: int(details.Tracks.Total)},
		TracksPreview: tracksFromItems(preview.Items),
	}
	if len(details.Images) > 0 {
		playlist.CoverImageURL = details.Images[0].URL
	}

	return playlist, nil
}

// AllPlaylistItems pages through every track of a playlist.
func (c *UserClient) AllPlaylistItems(ctx context.Context, playlistID string) (*TrackList, error) {
	id := PlaylistID(playlistID)
	if id == "" {
		return nil, errors.New("playlist id must not be empty")
	}

	list := &TrackList{Tracks: []Track{}}
	for offset := 0; ; offset += maxItemsPerRequest {
		page, err := c.client.GetPlaylistItems(ctx, id,
			spotify.Fields("items(track(type,name,artists(name),uri,id)),next"),
			spotify.Limit(maxItemsPerRequest),
			spotify.Offset(offset))
		if err != nil {
			return nil, normalizeError(err)
		}

		list.Tracks = append(list.Tracks, tracksFromItems(page.Items)...)

		if page.Next == "" || len(page.Items) == 0 {
			break
		}
	}

	return list, nil
}

// RemoveTrack removes every occurrence of trackURI from the playlist.
func (c *UserClient) RemoveTrack(ctx context.Context, playlistID, trackURI string) (*TrackRemoval, error) {
	id := PlaylistID(playlistID)
	if id == "" {
		return nil, errors.New("playlist id must not be empty")
	}

	trackID, err := TrackID(trackURI)
	if err != nil {
		return nil, err
	}

	snapshot, err := c.client.RemoveTracksFromPlaylist(ctx, id, trackID)
	if err != nil {
		return nil, normalizeError(err)
	}

	updated, err := c.client.GetPlaylist(ctx, id, spotify.Fields("tracks.total"))
	if err != nil {
		return nil, normalizeError(err)
	}

	return &TrackRemoval{Success: true, SnapshotID: snapshot, NewTrackCount: int(updated.Tracks.Total)}, nil
}

// ControlPlayback runs one of play, pause, next or previous. Play picks the
// active device, or transfers playback to the first available one.
func (c *UserClient) ControlPlayback(ctx context.Context, action, contextURI string) (*Playback, error) {
	result := &Playback{Success: true, Action: action}

	switch strings.ToLower(strings.TrimSpace(action)) {
	case "play":
		deviceID, err := c.playbackDevice(ctx)
		if err != nil {
			return nil, err
		}

		opts := &spotify.PlayOptions{DeviceID: &deviceID}
		if contextURI != "" {
			uri := spotify.URI(contextURI)
			opts.PlaybackContext = &uri
		}

		if err := c.client.PlayOpt(ctx, opts); err != nil {
			return nil, playbackError(err)
		}
		result.Status = "Playback started/resumed"
	case "pause":
		if err := c.client.Pause(ctx); err != nil {
			return nil, playbackError(err)
		}
		result.Status = "Playback paused"
	case "next":
		if err := c.client.Next(ctx); err != nil {
			return nil, playbackError(err)
		}
		result.Status = "Skipped to next track"
	case "previous":
		if err := c.client.Previous(ctx); err != nil {
			return nil, playbackError(err)
		}
		result.Status = "Skipped to previous track"
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}

	return result, nil
}

func (c *UserClient) playbackDevice(ctx context.Context) (spotify.ID, error) {
	devices, err := c.client.PlayerDevices(ctx)
	if err != nil {
		return "", playbackError(err)
	}

	for _, device := range devices {
		if device.Active {
			return device.ID, nil
		}
	}

	if len(devices) == 0 {
		return "", ErrNoDevices
	}

	target := devices[0]
	if err := c.client.TransferPlayback(ctx, target.ID, false); err != nil {
		return "", playbackError(err)
	}

	// Spotify needs a moment before the transferred device accepts commands.
	c.sleep(time.Second)

	return target.ID, nil
}

func (c *UserClient) CurrentUserProfile(ctx context.Context) (*Profile, error) {
	user, err := c.client.CurrentUser(ctx)
	if err != nil {
		return nil, normalizeError(err)
	}

	profile := &Profile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Country:     user.Country,
		Product:     user.Product,
		URI:         string(user.URI),
		ExternalURL: user.ExternalURLs["spotify"],
		Followers:   int(user.Followers.Count),
	}
	if len(user.Images) > 0 {
		profile.ImageURL = user.Images[0].URL
	}

	return profile, nil
}

// TrackID extracts the id from a spotify:track:<id> URI.
func TrackID(uri string) (spotify.ID, error) {
	id, ok := strings.CutPrefix(strings.TrimSpace(uri), "spotify:track:")
	if !ok || id == "" || strings.Contains(id, ":") {
		return "", fmt.Errorf("%w: %q", ErrInvalidTrackURI, uri)
	}
	return spotify.ID(id), nil
}

// PlaylistID accepts a bare id or a spotify:playlist:<id> URI.
func PlaylistID(s string) spotify.ID {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "spotify:playlist:")
	return spotify.ID(s)
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultSearchLimit
	case limit > maxSearchLimit:
		return maxSearchLimit
	}
	return limit
}

func fromFullTrack(track *spotify.FullTrack) Track {
	return Track{
		Name:    track.Name,
		Artists: artistNames(track.Artists),
		URI:     string(track.URI),
		ID:      string(track.ID),
	}
}

func artistNames(artists []spotify.SimpleArtist) []string {
	names := make([]string, 0, len(artists))
	for _, artist := range artists {
		name := artist.Name
		if name == "" {
			name = "Unknown Artist"
		}
		names = append(names, name)
	}
	return names
}

func tracksFromItems(items []spotify.PlaylistItem) []Track {
	tracks := []Track{}
	for _, item := range items {
		track := item.Track.Track
		if track == nil || track.URI == "" {
			continue
		}

		t := fromFullTrack(track)
		if t.Name == "" {
			t.Name = "Unknown Track"
		}
		tracks = append(tracks, t)
	}
	return tracks
}
