package catalog

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/aluiziolira/go-scrape-apps/models"
)

// SearchRequest is a free-text query against the secondary store.
type SearchRequest struct {
	Term    string
	Limit   int
	Country string
}

// AppStoreClient searches the iTunes Search API.
type AppStoreClient struct {
	*client
}

// NewAppStoreClient builds a secondary catalog client.
func NewAppStoreClient(opts Options) (*AppStoreClient, error) {
	c, err := newClient("appstore", opts)
	if err != nil {
		return nil, err
	}
	return &AppStoreClient{client: c}, nil
}

type itunesResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []itunesResult `json:"results"`
}

type itunesResult struct {
	TrackID                   int64   `json:"trackId"`
	TrackName                 string  `json:"trackName"`
	BundleID                  string  `json:"bundleId"`
	ArtistName                string  `json:"artistName"`
	AverageUserRating         float64 `json:"averageUserRating"`
	UserRatingCount           int64   `json:"userRatingCount"`
	Price                     float64 `json:"price"`
	PrimaryGenreName          string  `json:"primaryGenreName"`
	CurrentVersionReleaseDate string  `json:"currentVersionReleaseDate"`
}

// Search returns the store's ranked hits for req.Term, best match first.
func (a *AppStoreClient) Search(ctx context.Context, req SearchRequest) ([]models.RawApp, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 1
	}
	query := url.Values{}
	query.Set("term", req.Term)
	query.Set("entity", "software")
	query.Set("limit", strconv.Itoa(limit))
	if req.Country != "" {
		query.Set("country", req.Country)
	}

	var resp itunesResponse
	if err := a.getJSON(ctx, a.endpoint("/search", query), &resp); err != nil {
		return nil, err
	}

	apps := make([]models.RawApp, 0, len(resp.Results))
	for _, r := range resp.Results {
		apps = append(apps, r.toRawApp())
	}
	return apps, nil
}

func (r itunesResult) toRawApp() models.RawApp {
	var updated int64
	if t, err := time.Parse(time.RFC3339, r.CurrentVersionReleaseDate); err == nil {
		updated = t.UnixMilli()
	}
	return models.RawApp{
		AppID:     r.BundleID,
		Title:     r.TrackName,
		Developer: r.ArtistName,
		Score:     r.AverageUserRating,
		Ratings:   r.UserRatingCount,
		Price:     r.Price,
		Free:      r.Price == 0,
		Genre:     r.PrimaryGenreName,
		Updated:   updated,
	}
}
