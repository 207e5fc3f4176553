// Package models defines data structures shared by the harvester and the verifier.
package models

import (
	"strconv"
)

// RawApp is a catalog item as returned by either store.
type RawApp struct {
	AppID     string  `json:"appId"`
	Title     string  `json:"title"`
	Developer string  `json:"developer"`
	Score     float64 `json:"score"`
	Ratings   int64   `json:"ratings"`
	Installs  string  `json:"installs"`
	Price     float64 `json:"price"`
	Free      bool    `json:"free"`
	Genre     string  `json:"genre"`
	Updated   int64   `json:"updated"`
}

// AppRecord is a normalized, ranked app harvested from a collection.
type AppRecord struct {
	Rank         int     `json:"rank" bson:"rank"`
	AppID        string  `json:"appId" bson:"appId"`
	Title        string  `json:"title" bson:"title"`
	Developer    string  `json:"developer" bson:"developer"`
	Score        float64 `json:"score" bson:"score"`
	RatingsCount int64   `json:"ratings" bson:"ratings"`
	Installs     string  `json:"installs" bson:"installs"`
	Price        float64 `json:"price" bson:"price"`
	IsFree       bool    `json:"free" bson:"free"`
	Genre        string  `json:"genre" bson:"genre"`
	LastUpdated  int64   `json:"lastUpdated" bson:"lastUpdated"`
}

var appRecordHeader = []string{
	"rank", "appId", "title", "developer", "score", "ratings",
	"installs", "price", "free", "genre", "lastUpdated",
}

// Header returns the CSV field names in output order.
func (a AppRecord) Header() []string {
	out := make([]string, len(appRecordHeader))
	copy(out, appRecordHeader)
	return out
}

// Values returns the record's fields in Header order.
func (a AppRecord) Values() []string {
	return []string{
		strconv.Itoa(a.Rank),
		a.AppID,
		a.Title,
		a.Developer,
		strconv.FormatFloat(a.Score, 'f', -1, 64),
		strconv.FormatInt(a.RatingsCount, 10),
		a.Installs,
		strconv.FormatFloat(a.Price, 'f', -1, 64),
		strconv.FormatBool(a.IsFree),
		a.Genre,
		strconv.FormatInt(a.LastUpdated, 10),
	}
}

// Collection is a named, ordered catalog view such as "top paid games".
type Collection struct {
	Name     string `yaml:"name" json:"name"`
	Value    string `yaml:"value" json:"value"`
	Category string `yaml:"category" json:"category"`
}
