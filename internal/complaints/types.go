package complaints

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Flag values for the yes/no categorical columns. A missing value stays an
// empty string; rate denominators still count the row.
const (
	FlagYes = "Yes"
	FlagNo  = "No"
)

// ComplaintRecord is one row of the source table after normalization.
// Derived fields are computed once at load time and treated as immutable
// columns from then on.
type ComplaintRecord struct {
	ID               string `json:"id"`
	Product          string `json:"product"`
	Issue            string `json:"issue,omitempty"`
	Company          string `json:"company"`
	State            string `json:"state,omitempty"`
	SubmittedVia     string `json:"submitted_via,omitempty"`
	CompanyResponse  string `json:"company_response,omitempty"`
	TimelyResponse   string `json:"timely_response,omitempty"`  // "Yes", "No" or ""
	ConsumerDisputed string `json:"consumer_disputed,omitempty"` // "Yes", "No" or ""

	// Zero time is the missing-value marker for both dates.
	DateReceived      time.Time `json:"date_received"`
	DateSentToCompany time.Time `json:"date_sent_to_company"`

	// Derived at load time from DateReceived (0 / "" when the date is missing).
	Year      int        `json:"year,omitempty"`
	Month     time.Month `json:"month,omitempty"`
	Quarter   int        `json:"quarter,omitempty"`
	DayOfWeek string     `json:"day_of_week,omitempty"`

	// Days between DateReceived and DateSentToCompany. May be negative when
	// the source dates are out of order; LatencyKnown is false when either
	// date is missing.
	LatencyDays  int  `json:"latency_days"`
	LatencyKnown bool `json:"latency_known"`
}

// HasDate reports whether the received date parsed successfully.
func (r ComplaintRecord) HasDate() bool {
	return !r.DateReceived.IsZero()
}

// Disputed reports whether the consumer disputed the company's response.
func (r ComplaintRecord) Disputed() bool {
	return r.ConsumerDisputed == FlagYes
}

// Timely reports whether the company responded on time.
func (r ComplaintRecord) Timely() bool {
	return r.TimelyResponse == FlagYes
}

// PeriodMonth returns the zero-padded "YYYY-MM" period key, or "" when the
// received date is missing. The zero padding keeps lexicographic and
// chronological order aligned for consumers that sort strings.
func (r ComplaintRecord) PeriodMonth() string {
	if !r.HasDate() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", r.Year, int(r.Month))
}

// PeriodQuarter returns the "YYYY-Qn" period key, or "" when the received
// date is missing.
func (r ComplaintRecord) PeriodQuarter() string {
	if !r.HasDate() {
		return ""
	}
	return fmt.Sprintf("%04d-Q%d", r.Year, r.Quarter)
}

// FilterSelection narrows the record set on the filterable dimensions.
// An empty slice on a dimension means no restriction on that dimension;
// dimensions compose with logical AND.
type FilterSelection struct {
	Years    []int    `json:"years,omitempty"`
	Products []string `json:"products,omitempty"`
}

// IsEmpty reports whether the selection restricts nothing.
func (s FilterSelection) IsEmpty() bool {
	return len(s.Years) == 0 && len(s.Products) == 0
}

// Canonical returns a normalized string form of the selection. Values are
// sorted and deduplicated so logically equal selections produce identical
// strings, which cache keys depend on.
func (s FilterSelection) Canonical() string {
	years := make([]int, 0, len(s.Years))
	seen := make(map[int]bool, len(s.Years))
	for _, y := range s.Years {
		if !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	sort.Ints(years)

	products := make([]string, 0, len(s.Products))
	seenP := make(map[string]bool, len(s.Products))
	for _, p := range s.Products {
		if !seenP[p] {
			seenP[p] = true
			products = append(products, p)
		}
	}
	sort.Strings(products)

	var b strings.Builder
	b.WriteString("years=")
	for i, y := range years {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(y))
	}
	b.WriteString(";products=")
	for i, p := range products {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p)
	}
	return b.String()
}

// Dataset is a loaded record set. Records are immutable after load; a
// reload produces a whole new Dataset rather than mutating this one.
type Dataset struct {
	Records     []ComplaintRecord `json:"-"`
	Source      string            `json:"source"`
	LoadedAt    time.Time         `json:"loaded_at"`
	LoadID      string            `json:"load_id"`
	Fingerprint string            `json:"fingerprint"`

	// Rows skipped or degraded during load, for the status surface.
	RowsRead       int `json:"rows_read"`
	RowsSkipped    int `json:"rows_skipped"`
	DatesUnparsed  int `json:"dates_unparsed"`
}

// Len returns the number of loaded records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Years returns the distinct received-date years in ascending order.
// Records with a missing date are excluded.
func (d *Dataset) Years() []int {
	seen := make(map[int]bool)
	for _, r := range d.Records {
		if r.HasDate() {
			seen[r.Year] = true
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Products returns the distinct product names in ascending order. Records
// with a missing product are excluded.
func (d *Dataset) Products() []string {
	seen := make(map[string]bool)
	for _, r := range d.Records {
		if r.Product != "" {
			seen[r.Product] = true
		}
	}
	products := make([]string, 0, len(seen))
	for p := range seen {
		products = append(products, p)
	}
	sort.Strings(products)
	return products
}

// DateRange returns the earliest and latest received dates. The ok result
// is false when no record carries a valid date.
func (d *Dataset) DateRange() (from, to time.Time, ok bool) {
	for _, r := range d.Records {
		if !r.HasDate() {
			continue
		}
		if !ok {
			from, to = r.DateReceived, r.DateReceived
			ok = true
			continue
		}
		if r.DateReceived.Before(from) {
			from = r.DateReceived
		}
		if r.DateReceived.After(to) {
			to = r.DateReceived
		}
	}
	return from, to, ok
}
