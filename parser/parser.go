package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aluiziolira/go-scrape-apps/models"
)

// RequiredFields are the columns the verifier needs on every row.
var RequiredFields = []string{models.FieldTitle, models.FieldDeveloper, models.FieldAppID}

// InputFormatError reports a source row that is missing a required field or
// could not be parsed at all.
type InputFormatError struct {
	Row   int
	Field string
	Err   error
}

func (e *InputFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("row %d: missing required field %q", e.Row, e.Field)
}

func (e *InputFormatError) Unwrap() error {
	return e.Err
}

// Input is a parsed source file. Skipped holds records that could not be
// parsed; they never reach Rows.
type Input struct {
	Header  []string
	Rows    []models.Row
	Skipped []*InputFormatError
}

// ErrNoHeader is returned for an input without a header line.
var ErrNoHeader = errors.New("input has no header row")

// ReadRows reads a header-described CSV. Row numbers are file line numbers,
// so the first data row is 2. Quotes are read leniently and a record that
// still fails to parse is skipped; only header and I/O errors are returned.
func ReadRows(r io.Reader) (*Input, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	in := &Input{Header: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			in.Skipped = append(in.Skipped, &InputFormatError{Row: parseErr.StartLine, Err: parseErr})
			continue
		}
		if err != nil {
			return in, fmt.Errorf("read row: %w", err)
		}
		line, _ := reader.FieldPos(0)
		in.Rows = append(in.Rows, models.NewRow(line, header, record))
	}
	return in, nil
}

// ValidateRow ensures the row carries a title, developer and appId.
func ValidateRow(row models.Row) error {
	for _, field := range RequiredFields {
		v, ok := row.Get(field)
		if !ok || strings.TrimSpace(v) == "" {
			return &InputFormatError{Row: row.Number, Field: field}
		}
	}
	return nil
}

// ValidateApp ensures a catalog item can be keyed.
func ValidateApp(app *models.RawApp) error {
	if app == nil {
		return fmt.Errorf("app is nil")
	}
	if strings.TrimSpace(app.AppID) == "" {
		return fmt.Errorf("app missing appId (title %q)", app.Title)
	}
	return nil
}

// NormalizeApp maps a catalog item to a ranked record.
func NormalizeApp(app models.RawApp, rank int) models.AppRecord {
	return models.AppRecord{
		Rank:         rank,
		AppID:        strings.TrimSpace(app.AppID),
		Title:        strings.TrimSpace(app.Title),
		Developer:    strings.TrimSpace(app.Developer),
		Score:        app.Score,
		RatingsCount: app.Ratings,
		Installs:     strings.TrimSpace(app.Installs),
		Price:        app.Price,
		IsFree:       app.Free,
		Genre:        strings.TrimSpace(app.Genre),
		LastUpdated:  app.Updated,
	}
}

// NormalizeKey folds an identity string for case-insensitive comparison.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
