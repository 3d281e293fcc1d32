package youtube

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// musicCategoryID is YouTube's "Music" video category.
const musicCategoryID = "10"

type SearchResult struct {
	Artist       string `json:"artist"`
	Title        string `json:"title"`
	MusicURL     string `json:"music_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Source       string `json:"source"`
}

type Client struct {
	service *youtube.Service
}

func New(apiKey string, opts ...option.ClientOption) (*Client, error) {
	ctx := context.Background()
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}

	return &Client{service: service}, nil
}

func (y *Client) SearchMusic(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	call := y.service.Search.List([]string{"id", "snippet"}).
		Q(query).
		Type("video").
		VideoCategoryId(musicCategoryID).
		MaxResults(int64(maxResults))

	response, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search call failed: %w", err)
	}

	results := []SearchResult{}
	for _, item := range response.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}

		result := SearchResult{
			Artist:   item.Snippet.ChannelTitle,
			Title:    item.Snippet.Title,
			MusicURL: fmt.Sprintf("https://music.youtube.com/watch?v=%s", item.Id.VideoId),
			Source:   "youtube",
		}
		if thumbnails := item.Snippet.Thumbnails; thumbnails != nil && thumbnails.High != nil {
			result.ThumbnailURL = thumbnails.High.Url
		}
		results = append(results, result)
	}

	return results, nil
}
