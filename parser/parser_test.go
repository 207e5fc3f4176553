package parser

import (
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/aluiziolira/go-scrape-apps/models"
)

func TestReadRows(t *testing.T) {
	input := "\ufefftitle,developer,appId,score\n" +
		"Foo,Dev1,com.foo,4.5\n" +
		"\"Bar, Deluxe\",Dev2,com.bar\n"

	in, err := ReadRows(strings.NewReader(input))
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if strings.Join(in.Header, ",") != "title,developer,appId,score" {
		t.Fatalf("header = %v", in.Header)
	}
	rows := in.Rows
	if len(rows) != 2 {
		t.Fatalf("rows=%d, want 2", len(rows))
	}
	if rows[0].Number != 2 || rows[1].Number != 3 {
		t.Fatalf("row numbers = %d,%d, want 2,3", rows[0].Number, rows[1].Number)
	}
	if rows[1].Title() != "Bar, Deluxe" || rows[1].Developer() != "Dev2" || rows[1].AppID() != "com.bar" {
		t.Fatalf("unexpected second row: %v", rows[1].Values())
	}
	if score, _ := rows[1].Get("score"); score != "" {
		t.Fatalf("short row should pad missing values, got %q", score)
	}
}

func TestReadRowsEmptyInput(t *testing.T) {
	if _, err := ReadRows(strings.NewReader("")); !errors.Is(err, ErrNoHeader) {
		t.Fatalf("expected ErrNoHeader, got %v", err)
	}
}

func TestReadRowsStrayQuoteKeepsLaterRows(t *testing.T) {
	input := "title,developer,appId\n" +
		"Good,Dev1,id1\n" +
		"The \"Best\" Game,Dev2,id2\n" +
		"Also Good,Dev3,id3\n"

	in, err := ReadRows(strings.NewReader(input))
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(in.Rows) != 3 || len(in.Skipped) != 0 {
		t.Fatalf("rows=%d skipped=%d, want 3 and 0", len(in.Rows), len(in.Skipped))
	}
	if in.Rows[0].AppID() != "id1" || in.Rows[2].AppID() != "id3" || in.Rows[2].Number != 4 {
		t.Fatalf("unexpected rows: %v / %v", in.Rows[0].Values(), in.Rows[2].Values())
	}
	if got := in.Rows[1].Title(); got != `The "Best" Game` {
		t.Fatalf("title = %q", got)
	}
}

func TestInputFormatErrorWrapsParseError(t *testing.T) {
	cause := &csv.ParseError{StartLine: 3, Line: 3, Column: 5, Err: csv.ErrBareQuote}
	err := error(&InputFormatError{Row: 3, Err: cause})

	if !errors.Is(err, csv.ErrBareQuote) {
		t.Fatalf("expected wrapped ErrBareQuote, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "row 3: ") {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestValidateRow(t *testing.T) {
	header := []string{"title", "developer", "appId"}
	tests := []struct {
		name      string
		header    []string
		values    []string
		wantField string
	}{
		{name: "valid row", header: header, values: []string{"Foo", "Dev", "com.foo"}},
		{name: "missing title", header: header, values: []string{"  ", "Dev", "com.foo"}, wantField: "title"},
		{name: "missing developer", header: header, values: []string{"Foo", "", "com.foo"}, wantField: "developer"},
		{name: "missing appId column", header: []string{"title", "developer"}, values: []string{"Foo", "Dev"}, wantField: "appId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRow(models.NewRow(7, tt.header, tt.values))
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var formatErr *InputFormatError
			if !errors.As(err, &formatErr) {
				t.Fatalf("expected InputFormatError, got %v", err)
			}
			if formatErr.Field != tt.wantField || formatErr.Row != 7 {
				t.Fatalf("error = %+v, want field %q row 7", formatErr, tt.wantField)
			}
		})
	}
}

func TestValidateApp(t *testing.T) {
	if err := ValidateApp(&models.RawApp{AppID: "com.ok"}); err != nil {
		t.Fatalf("valid app rejected: %v", err)
	}
	if err := ValidateApp(&models.RawApp{Title: "No Id"}); err == nil {
		t.Fatalf("app without id should be rejected")
	}
	if err := ValidateApp(nil); err == nil {
		t.Fatalf("nil app should be rejected")
	}
}

func TestNormalizeApp(t *testing.T) {
	raw := models.RawApp{
		AppID:     " com.foo ",
		Title:     " Foo ",
		Developer: "Dev ",
		Score:     4.2,
		Ratings:   10,
		Installs:  "100+",
		Price:     2.99,
		Free:      false,
		Genre:     "Puzzle",
		Updated:   1700000000000,
	}
	got := NormalizeApp(raw, 250)
	if got.Rank != 250 || got.AppID != "com.foo" || got.Title != "Foo" || got.Developer != "Dev" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.RatingsCount != 10 || got.LastUpdated != 1700000000000 || got.IsFree {
		t.Fatalf("attributes not carried over: %+v", got)
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "Dev1", expected: "dev1"},
		{input: "  DEV1 ", expected: "dev1"},
		{input: "", expected: ""},
	}
	for _, tt := range tests {
		if got := NormalizeKey(tt.input); got != tt.expected {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
