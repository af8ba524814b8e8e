package warning

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultFeedURL is the IMGW public meteorological-warnings endpoint.
const DefaultFeedURL = "https://danepubliczne.imgw.pl/api/data/warningsmeteo"

// FeedEvent is one element of the IMGW feed. Field names follow the feed's
// Polish JSON keys; Teryt carries district codes.
type FeedEvent struct {
	ID          string   `json:"id"`
	NameOfEvent string   `json:"nazwa_zdarzenia"`
	Grade       string   `json:"stopien"`
	Probability string   `json:"prawdopodobienstwo"`
	ValidFrom   string   `json:"obowiazuje_od"`
	ValidTo     string   `json:"obowiazuje_do"`
	Published   string   `json:"opublikowano"`
	Content     string   `json:"tresc"`
	Comment     string   `json:"komentarz"`
	Office      string   `json:"biuro"`
	Teryt       []string `json:"teryt"`
}

// FeedClient fetches the warning feed over HTTP.
type FeedClient struct {
	url        string
	httpClient *http.Client
}

// NewFeedClient creates a feed client for the given endpoint; an empty url
// selects DefaultFeedURL.
func NewFeedClient(url string) *FeedClient {
	if url == "" {
		url = DefaultFeedURL
	}
	return &FeedClient{
		url: url,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Fetch downloads the current warning events. Any transport failure or
// non-2xx status is returned as an error; the caller treats that as an empty
// cycle.
func (c *FeedClient) Fetch(ctx context.Context) ([]FeedEvent, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("warning feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("warning feed status %d", resp.StatusCode)
	}

	var events []FeedEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("decode warning feed: %w", err)
	}
	return events, nil
}
