package complaints

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Column names the loader recognizes, after header normalization.
const (
	colComplaintID      = "complaint_id"
	colProduct          = "product"
	colIssue            = "issue"
	colCompany          = "company"
	colState            = "state"
	colSubmittedVia     = "submitted_via"
	colCompanyResponse  = "company_response_to_consumer"
	colTimelyResponse   = "timely_response"
	colConsumerDisputed = "consumer_disputed"
	colDateReceived     = "date_received"
	colDateSent         = "date_sent_to_company"
)

// mandatoryColumns must exist in the header; a wholly absent mandatory
// column is the loader's only fatal schema error. Everything else degrades
// to a missing-value marker per row.
var mandatoryColumns = []string{colDateReceived, colProduct, colCompany}

// dateFormats are tried in order when parsing the date columns.
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"01/02/2006 15:04",
	"2006/01/02",
}

// Loader reads a complaints CSV into a typed, immutable Dataset.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader. A nil logger falls back to slog.Default.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With(slog.String("component", "complaints.loader"))}
}

// LoadCSV reads and parses the complaints CSV at path.
func (l *Loader) LoadCSV(ctx context.Context, path string) (*Dataset, error) {
	start := time.Now()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read complaints file: %w", err)
	}

	ds, err := l.Parse(ctx, data, path)
	if err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "complaints dataset loaded",
		slog.String("source", path),
		slog.Int("records", ds.Len()),
		slog.Int("rows_skipped", ds.RowsSkipped),
		slog.Int("dates_unparsed", ds.DatesUnparsed),
		slog.Duration("duration", time.Since(start)))

	return ds, nil
}

// Parse builds a Dataset from raw CSV bytes. The fingerprint is a
// blake2b-256 digest of the raw bytes, so two loads of the same file
// content share cache entries.
func (l *Loader) Parse(ctx context.Context, data []byte, source string) (*Dataset, error) {
	digest := blake2b.Sum256(data)

	// Strip UTF-8 BOM so the first header cell matches.
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	cols := findColumns(header)
	for _, name := range mandatoryColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("mandatory column %q not found in %s", name, source)
		}
	}

	ds := &Dataset{
		Source:      source,
		LoadedAt:    time.Now(),
		LoadID:      uuid.New().String(),
		Fingerprint: hex.EncodeToString(digest[:]),
	}

	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("load cancelled at line %d: %w", line, err)
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			l.logger.WarnContext(ctx, "skipping unreadable row",
				slog.Int("line", line),
				slog.String("error", err.Error()))
			ds.RowsSkipped++
			continue
		}
		ds.RowsRead++

		rec := l.parseRecord(row, cols, line, ds)
		ds.Records = append(ds.Records, rec)
	}

	return ds, nil
}

// parseRecord converts one CSV row. Per-field problems degrade to missing
// markers; only the loader-level schema check above can fail a load.
func (l *Loader) parseRecord(row []string, cols map[string]int, line int, ds *Dataset) ComplaintRecord {
	rec := ComplaintRecord{
		ID:               field(row, cols, colComplaintID),
		Product:          field(row, cols, colProduct),
		Issue:            field(row, cols, colIssue),
		Company:          field(row, cols, colCompany),
		State:            field(row, cols, colState),
		SubmittedVia:     field(row, cols, colSubmittedVia),
		CompanyResponse:  field(row, cols, colCompanyResponse),
		TimelyResponse:   normalizeFlag(field(row, cols, colTimelyResponse)),
		ConsumerDisputed: normalizeFlag(field(row, cols, colConsumerDisputed)),
	}
	if rec.ID == "" {
		rec.ID = strconv.Itoa(line)
	}

	if raw := field(row, cols, colDateReceived); raw != "" {
		if t, ok := parseDate(raw); ok {
			rec.DateReceived = t
		} else {
			ds.DatesUnparsed++
		}
	}
	if raw := field(row, cols, colDateSent); raw != "" {
		if t, ok := parseDate(raw); ok {
			rec.DateSentToCompany = t
		} else {
			ds.DatesUnparsed++
		}
	}

	deriveFields(&rec)
	return rec
}

// deriveFields fills the columns computed from the parsed dates.
func deriveFields(rec *ComplaintRecord) {
	if rec.HasDate() {
		rec.Year = rec.DateReceived.Year()
		rec.Month = rec.DateReceived.Month()
		rec.Quarter = (int(rec.DateReceived.Month())-1)/3 + 1
		rec.DayOfWeek = rec.DateReceived.Weekday().String()
	}
	if !rec.DateReceived.IsZero() && !rec.DateSentToCompany.IsZero() {
		rec.LatencyDays = int(rec.DateSentToCompany.Sub(rec.DateReceived).Hours() / 24)
		rec.LatencyKnown = true
	}
}

// findColumns maps normalized header names to their indices. The first
// occurrence of a name wins.
func findColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := normalizeHeader(h)
		if name == "" {
			continue
		}
		if _, exists := cols[name]; !exists {
			cols[name] = i
		}
	}
	return cols
}

// normalizeHeader lowercases and trims a header cell, folds internal
// whitespace and dashes to underscores, and drops a trailing question mark
// ("Timely response?" -> "timely_response").
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimSuffix(h, "?")
	h = strings.ReplaceAll(h, "-", " ")
	return strings.Join(strings.Fields(h), "_")
}

// normalizeFlag maps a raw yes/no cell to FlagYes, FlagNo or "" (missing).
func normalizeFlag(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y", "true":
		return FlagYes
	case "no", "n", "false":
		return FlagNo
	default:
		return ""
	}
}

// field returns the trimmed cell for a named column, or "" when the column
// is absent or the row is short.
func field(row []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseDate tries each recognized format; ok is false when none match.
func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
