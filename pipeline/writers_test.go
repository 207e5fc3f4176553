package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/aluiziolira/go-scrape-apps/models"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return records
}

func TestCSVWriterUsesFirstRecordHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "games.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}

	app := models.AppRecord{Rank: 200, AppID: "com.foo", Title: "Foo, the Game", Developer: "Dev1", Price: 1.99}
	if err := writer.Write([]Record{app}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	records := readCSV(t, path)
	if len(records) != 2 {
		t.Fatalf("records=%d, want 2", len(records))
	}
	if records[0][0] != "rank" || records[0][1] != "appId" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if records[1][0] != "200" || records[1][2] != "Foo, the Game" {
		t.Fatalf("unexpected row: %v", records[1])
	}
}

func TestCSVWriterExplicitHeaderWrittenUpFront(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exclusive.csv")
	header := []string{"title", "developer", "appId", "installs"}

	writer, err := NewCSVWriter(path, WithHeader(header))
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	records := readCSV(t, path)
	if len(records) != 1 || len(records[0]) != 4 || records[0][3] != "installs" {
		t.Fatalf("expected header only, got %v", records)
	}
}

func TestCSVWriterTruncatesByDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exclusive.csv")
	if err := os.WriteFile(path, []byte("stale,data\n1,2\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	writer, err := NewCSVWriter(path, WithHeader([]string{"title"}))
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	writer.Close()

	records := readCSV(t, path)
	if len(records) != 1 || records[0][0] != "title" {
		t.Fatalf("old content should be truncated, got %v", records)
	}
}

func TestCSVWriterAppendSkipsHeaderOnResume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.csv")

	for i, rank := range []int{200, 300} {
		writer, err := NewCSVWriter(path, WithAppend())
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		if err := writer.Write([]Record{models.AppRecord{Rank: rank, AppID: "com.x"}}); err != nil {
			t.Fatalf("write #%d: %v", i, err)
		}
		if err := writer.Close(); err != nil {
			t.Fatalf("close #%d: %v", i, err)
		}
	}

	records := readCSV(t, path)
	if len(records) != 3 {
		t.Fatalf("records=%d, want header + 2 rows: %v", len(records), records)
	}
	if records[1][0] != "200" || records[2][0] != "300" {
		t.Fatalf("unexpected rows: %v", records)
	}
}

func TestJSONWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exclusive.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}

	row := models.NewRow(2, []string{"title", "developer", "appId"}, []string{"Foo", "Dev1", "com.foo"})
	if err := writer.Write([]Record{row, row}); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		if scanner.Text() != `{"title":"Foo","developer":"Dev1","appId":"com.foo"}` {
			t.Fatalf("unexpected line: %s", scanner.Text())
		}
		var decoded map[string]string
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid json line: %v", err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan json: %v", err)
	}
	if count != 2 {
		t.Fatalf("json lines=%d, want 2", count)
	}
}

func TestJSONWriterValidateEmpty(t *testing.T) {
	writer, err := NewJSONWriter(filepath.Join(t.TempDir(), "empty.jsonl"))
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	defer writer.Close()
	if err := writer.Validate(); err == nil {
		t.Fatalf("empty file should fail validation")
	}
}

func TestDualWriterWrite(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "games.csv")
	jsonPath := JSONPath(csvPath)

	writer, err := NewDualWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}

	app := models.AppRecord{Rank: 1, AppID: "com.foo", Title: "Foo"}
	if err := writer.Write([]Record{app}); err != nil {
		t.Fatalf("write dual: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close dual: %v", err)
	}

	if info, err := os.Stat(csvPath); err != nil || info.Size() == 0 {
		t.Fatalf("csv file missing or empty")
	}
	if info, err := os.Stat(jsonPath); err != nil || info.Size() == 0 {
		t.Fatalf("json file missing or empty")
	}
}

func TestJSONPath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "output/games.csv", expected: "output/games.jsonl"},
		{input: "games", expected: "games.jsonl"},
	}
	for _, tt := range tests {
		if got := JSONPath(tt.input); got != tt.expected {
			t.Errorf("JSONPath(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestToDocument(t *testing.T) {
	app := models.AppRecord{AppID: "com.foo"}
	if _, ok := toDocument(app).(models.AppRecord); !ok {
		t.Fatalf("app records should be inserted as typed documents")
	}

	row := models.NewRow(2, []string{"title", "appId"}, []string{"Foo", "com.foo"})
	doc, ok := toDocument(row).(bson.D)
	if !ok {
		t.Fatalf("rows should become bson.D, got %T", toDocument(row))
	}
	if len(doc) != 2 || doc[0].Key != "title" || doc[1].Value != "com.foo" {
		t.Fatalf("unexpected document: %v", doc)
	}
}
