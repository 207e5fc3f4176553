package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Record is a row that can be written to any output stream.
type Record interface {
	Header() []string
	Values() []string
}

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(records []Record) error
	Close() error
	Validate() error
}

type writerOptions struct {
	header     []string
	appendMode bool
}

// Option configures a file writer.
type Option func(*writerOptions)

// WithHeader fixes the CSV header instead of taking it from the first record.
// The header is written immediately so an empty stream still carries it.
func WithHeader(header []string) Option {
	return func(o *writerOptions) {
		o.header = append([]string(nil), header...)
	}
}

// WithAppend opens the file for appending instead of truncating it.
func WithAppend() Option {
	return func(o *writerOptions) {
		o.appendMode = true
	}
}

func applyOptions(opts []Option) writerOptions {
	var o writerOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func openOutput(filename string, appendMode bool) (*os.File, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	return os.OpenFile(filename, flags, 0o644)
}

// CSVWriter writes records to CSV.
type CSVWriter struct {
	file        *os.File
	writer      *csv.Writer
	wroteHeader bool
	mu          sync.Mutex
}

// NewCSVWriter opens filename for CSV output. In append mode the header is
// only written when the file is empty.
func NewCSVWriter(filename string, opts ...Option) (*CSVWriter, error) {
	o := applyOptions(opts)

	f, err := openOutput(filename, o.appendMode)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat csv file: %w", err)
	}

	cw := &CSVWriter{
		file:        f,
		writer:      csv.NewWriter(f),
		wroteHeader: info.Size() > 0,
	}

	if len(o.header) > 0 && !cw.wroteHeader {
		if err := cw.writeHeader(o.header); err != nil {
			f.Close()
			return nil, err
		}
	}

	return cw, nil
}

func (cw *CSVWriter) writeHeader(header []string) error {
	if err := cw.writer.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv header: %w", err)
	}
	cw.wroteHeader = true
	return nil
}

// Write appends records and flushes them to disk.
func (cw *CSVWriter) Write(records []Record) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, record := range records {
		if !cw.wroteHeader {
			if err := cw.writeHeader(record.Header()); err != nil {
				return err
			}
		}
		if err := cw.writer.Write(record.Values()); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the file has content.
func (cw *CSVWriter) Validate() error {
	return validateFile(cw.file, "csv")
}

// JSONWriter writes newline-delimited JSON records.
type JSONWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter opens filename for JSONL output. Headers do not apply.
func NewJSONWriter(filename string, opts ...Option) (*JSONWriter, error) {
	o := applyOptions(opts)

	f, err := openOutput(filename, o.appendMode)
	if err != nil {
		return nil, fmt.Errorf("open json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &JSONWriter{
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends records in JSONL format.
func (jw *JSONWriter) Write(records []Record) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, record := range records {
		if err := jw.encoder.Encode(record); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}

	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter) Validate() error {
	return validateFile(jw.file, "json")
}

func validateFile(f *os.File, kind string) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s file: %w", kind, err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("%s file is empty", kind)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
