package models

import "time"

// Outcome is the terminal classification of a verified row.
type Outcome int

const (
	// Exclusive means the secondary catalog has no matching app.
	Exclusive Outcome = iota
	// PresentElsewhere means the top search hit matched by title or identifier.
	PresentElsewhere
	// Unverifiable means every search attempt failed.
	Unverifiable
)

func (o Outcome) String() string {
	switch o {
	case Exclusive:
		return "exclusive"
	case PresentElsewhere:
		return "present_elsewhere"
	case Unverifiable:
		return "unverifiable"
	default:
		return "unknown"
	}
}

// CollectionStatus is how a collection's harvest ended.
type CollectionStatus string

const (
	CollectionCompleted CollectionStatus = "completed"
	// CollectionExhausted means the catalog returned an empty page before the end rank.
	CollectionExhausted CollectionStatus = "exhausted"
	// CollectionAborted means one chunk kept failing past the configured ceiling.
	CollectionAborted CollectionStatus = "aborted"
	// CollectionInterrupted means the run was cancelled mid-collection.
	CollectionInterrupted CollectionStatus = "interrupted"
)

// HarvestResult summarises one harvester run.
type HarvestResult struct {
	RunID         string
	StartTime     time.Time
	EndTime       time.Time
	ChunksFetched int
	ChunksFailed  int
	GamesFetched  int
	UniqueGames   int
	Collections   map[string]CollectionStatus
	LastRank      map[string]int
}

// VerifyResult summarises one verifier run.
type VerifyResult struct {
	RunID               string
	StartTime           time.Time
	EndTime             time.Time
	TotalRows           int
	Exclusive           int
	PresentElsewhere    int
	Unverifiable        int
	SkippedDeveloper    int
	InvalidRows         int
	Searches            int
	ExclusiveDevelopers int // developers held by the suppression ledger at the end
}
