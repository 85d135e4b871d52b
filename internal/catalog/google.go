package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"book-keeper/internal/domain"
)

const noAuthorPlaceholder = "No author to display"

// Client searches the Google Books volumes API and shapes results into
// SavedBook candidates. Catalog output is untrusted: entries without an
// id or title are discarded here, before they can reach persistence.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type volumesResponse struct {
	Items []struct {
		ID         string `json:"id"`
		VolumeInfo struct {
			Title       string   `json:"title"`
			Authors     []string `json:"authors"`
			Description string   `json:"description"`
			ImageLinks  struct {
				Thumbnail string `json:"thumbnail"`
			} `json:"imageLinks"`
			InfoLink            string `json:"infoLink"`
			CanonicalVolumeLink string `json:"canonicalVolumeLink"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// Search queries the catalog by keyword and returns shaped candidates.
func (c *Client) Search(ctx context.Context, query string) ([]domain.SavedBook, error) {
	u := fmt.Sprintf("%s/volumes?q=%s", c.endpoint, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var payload volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}

	books := make([]domain.SavedBook, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.ID == "" || item.VolumeInfo.Title == "" {
			continue
		}
		authors := item.VolumeInfo.Authors
		if len(authors) == 0 {
			authors = []string{noAuthorPlaceholder}
		}
		link := item.VolumeInfo.CanonicalVolumeLink
		if link == "" {
			link = item.VolumeInfo.InfoLink
		}
		books = append(books, domain.SavedBook{
			BookID:      item.ID,
			Title:       item.VolumeInfo.Title,
			Authors:     authors,
			Description: item.VolumeInfo.Description,
			Image:       item.VolumeInfo.ImageLinks.Thumbnail,
			Link:        link,
		})
	}
	return books, nil
}
