package spotify

import (
	"context"
	"fmt"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/zmb3/spotify/v2"
)

type SearchResult struct {
	Artist       string `json:"artist"`
	Title        string `json:"title"`
	MusicURL     string `json:"music_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Source       string `json:"source"`
}

// Client searches the public catalog with app credentials; it never acts on
// behalf of a user.
type Client struct {
	client *spotify.Client
}

func New(apiID, apiSecret string) (*Client, error) {
	ctx := context.Background()
	config := &clientcredentials.Config{
		ClientID:     apiID,
		ClientSecret: apiSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create spotify client: %w", err)
	}
	httpClient := spotifyauth.New().Client(ctx, token)
	return &Client{client: spotify.New(httpClient)}, nil
}

func (s *Client) SearchMusic(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	response, err := s.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(maxResults))
	if err != nil {
		return nil, fmt.Errorf("spotify search call failed: %w", normalizeError(err))
	}

	results := []SearchResult{}
	if response.Tracks == nil {
		return results, nil
	}

	for _, track := range response.Tracks.Tracks {
		result := SearchResult{
			Title:    track.Name,
			MusicURL: track.ExternalURLs["spotify"],
			Source:   "spotify",
		}
		if len(track.Artists) > 0 {
			result.Artist = track.Artists[0].Name
		}
		if len(track.Album.Images) > 0 {
			result.ThumbnailURL = track.Album.Images[0].URL
		}
		results = append(results, result)
	}

	return results, nil
}
