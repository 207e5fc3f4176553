package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/aluiziolira/go-scrape-apps/models"
)

// ListRequest selects one page of a ranked collection. Start is 0-based.
type ListRequest struct {
	Collection string
	Category   string
	Start      int
	Num        int
	FullDetail bool
	Country    string
}

// PlayClient lists ranked collections from a google-play-scraper compatible JSON API.
type PlayClient struct {
	*client
}

// NewPlayClient builds a primary catalog client.
func NewPlayClient(opts Options) (*PlayClient, error) {
	c, err := newClient("play", opts)
	if err != nil {
		return nil, err
	}
	return &PlayClient{client: c}, nil
}

// List fetches up to req.Num items of a collection starting at req.Start.
func (p *PlayClient) List(ctx context.Context, req ListRequest) ([]models.RawApp, error) {
	query := url.Values{}
	query.Set("collection", req.Collection)
	if req.Category != "" {
		query.Set("category", req.Category)
	}
	query.Set("start", strconv.Itoa(req.Start))
	query.Set("num", strconv.Itoa(req.Num))
	query.Set("fullDetail", strconv.FormatBool(req.FullDetail))
	if req.Country != "" {
		query.Set("country", req.Country)
	}

	var raw json.RawMessage
	if err := p.getJSON(ctx, p.endpoint("/api/apps/", query), &raw); err != nil {
		return nil, err
	}
	return decodeApps(raw)
}

// decodeApps accepts either {"results": [...]} or a bare array.
func decodeApps(raw json.RawMessage) ([]models.RawApp, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var apps []models.RawApp
		if err := json.Unmarshal(trimmed, &apps); err != nil {
			return nil, ErrDecode{Err: err}
		}
		return apps, nil
	}

	var envelope struct {
		Results []models.RawApp `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, ErrDecode{Err: err}
	}
	return envelope.Results, nil
}
