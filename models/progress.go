package models

import "time"

// ProgressState is the durable harvest checkpoint.
type ProgressState struct {
	LastScrapedRank map[string]int `json:"lastScrapedRank"`
	Games           []AppRecord    `json:"games"`
	RunID           string         `json:"runId,omitempty"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// NewProgressState returns an empty state ready for use.
func NewProgressState() *ProgressState {
	return &ProgressState{
		LastScrapedRank: make(map[string]int),
		Games:           []AppRecord{},
	}
}

// Normalize replaces nil collections left by a partial or hand-edited document.
func (p *ProgressState) Normalize() {
	if p.LastScrapedRank == nil {
		p.LastScrapedRank = make(map[string]int)
	}
	if p.Games == nil {
		p.Games = []AppRecord{}
	}
}
