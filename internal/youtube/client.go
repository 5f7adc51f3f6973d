// Package youtube is a narrow client for the video catalog: search, video
// metadata, and caption track listing/download. It wraps only the endpoints
// the transcript pipeline needs.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	dataAPIBase   = "https://www.googleapis.com/youtube/v3"
	timedTextBase = "https://www.youtube.com/api/timedtext"

	requestTimeout = 15 * time.Second
)

// Video is a search result entry.
type Video struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
	Thumbnail    string `json:"thumbnail"`
	PublishedAt  string `json:"publishedAt"`
}

// VideoDetails is the metadata for a single video.
type VideoDetails struct {
	Video
	Duration    string `json:"duration"` // ISO 8601, e.g. PT4M13S
	Description string `json:"description"`
}

// CaptionTrack describes one caption track attached to a video.
type CaptionTrack struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Kind     string `json:"kind"` // "asr" for auto-generated, empty for uploaded
}

// Client calls the catalog API. The zero value is not usable; use New.
type Client struct {
	apiKey string
	http   *http.Client
}

// New creates a catalog client with the given API key.
func New(apiKey string) *Client {
	return &Client{
		apiKey: apiKey,
		http:   &http.Client{Timeout: requestTimeout},
	}
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet snippet `json:"snippet"`
	} `json:"items"`
}

type snippet struct {
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
	Description  string `json:"description"`
	PublishedAt  string `json:"publishedAt"`
	Thumbnails   struct {
		Medium struct {
			URL string `json:"url"`
		} `json:"medium"`
	} `json:"thumbnails"`
}

// Search returns short videos matching the query.
func (c *Client) Search(ctx context.Context, query string) ([]Video, error) {
	q := url.Values{
		"part":          {"snippet"},
		"type":          {"video"},
		"videoDuration": {"short"},
		"videoCaption":  {"closedCaption"},
		"maxResults":    {"25"},
		"q":             {query},
		"key":           {c.apiKey},
	}

	var resp searchResponse
	if err := c.getJSON(ctx, dataAPIBase+"/search?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	videos := make([]Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		videos = append(videos, Video{
			ID:           item.ID.VideoID,
			Title:        item.Snippet.Title,
			ChannelTitle: item.Snippet.ChannelTitle,
			Thumbnail:    item.Snippet.Thumbnails.Medium.URL,
			PublishedAt:  item.Snippet.PublishedAt,
		})
	}
	return videos, nil
}

type videosResponse struct {
	Items []struct {
		ID             string  `json:"id"`
		Snippet        snippet `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// GetVideo fetches metadata for one video.
func (c *Client) GetVideo(ctx context.Context, id string) (*VideoDetails, error) {
	q := url.Values{
		"part": {"snippet,contentDetails"},
		"id":   {id},
		"key":  {c.apiKey},
	}

	var resp videosResponse
	if err := c.getJSON(ctx, dataAPIBase+"/videos?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("video %s not found", id)
	}

	item := resp.Items[0]
	return &VideoDetails{
		Video: Video{
			ID:           item.ID,
			Title:        item.Snippet.Title,
			ChannelTitle: item.Snippet.ChannelTitle,
			Thumbnail:    item.Snippet.Thumbnails.Medium.URL,
			PublishedAt:  item.Snippet.PublishedAt,
		},
		Duration:    item.ContentDetails.Duration,
		Description: item.Snippet.Description,
	}, nil
}

type captionsResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Language  string `json:"language"`
			TrackKind string `json:"trackKind"`
		} `json:"snippet"`
	} `json:"items"`
}

// ListCaptionTracks lists the caption tracks attached to a video.
func (c *Client) ListCaptionTracks(ctx context.Context, videoID string) ([]CaptionTrack, error) {
	q := url.Values{
		"part":    {"snippet"},
		"videoId": {videoID},
		"key":     {c.apiKey},
	}

	var resp captionsResponse
	if err := c.getJSON(ctx, dataAPIBase+"/captions?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("list caption tracks: %w", err)
	}

	tracks := make([]CaptionTrack, 0, len(resp.Items))
	for _, item := range resp.Items {
		tracks = append(tracks, CaptionTrack{
			ID:       item.ID,
			Language: item.Snippet.Language,
			Kind:     item.Snippet.TrackKind,
		})
	}
	return tracks, nil
}

// DownloadCaption fetches a caption track through the timedtext endpoint in
// the requested format ("srt" or "vtt").
func (c *Client) DownloadCaption(ctx context.Context, videoID, lang, format string) (string, error) {
	q := url.Values{
		"v":    {videoID},
		"lang": {lang},
		"fmt":  {format},
	}

	body, err := c.get(ctx, timedTextBase+"?"+q.Encode())
	if err != nil {
		return "", fmt.Errorf("download caption: %w", err)
	}
	if len(body) == 0 {
		return "", fmt.Errorf("download caption: empty track for %s/%s", videoID, lang)
	}
	return string(body), nil
}

func (c *Client) getJSON(ctx context.Context, url string, dst any) error {
	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}
