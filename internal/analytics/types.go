package analytics

import (
	"errors"
	"fmt"

	"cclens/internal/complaints"
)

// Sentinel errors callers branch on with errors.Is.
var (
	// ErrInvalidDimension is returned for an unrecognized grouping dimension.
	ErrInvalidDimension = errors.New("invalid dimension")
	// ErrInvalidMeasure is returned for an unrecognized measure.
	ErrInvalidMeasure = errors.New("invalid measure")
	// ErrInvalidGranularity is returned for an unrecognized time granularity.
	ErrInvalidGranularity = errors.New("invalid granularity")
	// ErrUnsupportedMeasure is returned when a measure cannot be used with
	// the requested operation (e.g. latency in a cross-tab).
	ErrUnsupportedMeasure = errors.New("measure not supported for this operation")
	// ErrInsufficientYears signals fewer than two distinct years in the
	// filtered set; a year-over-year trend cannot be derived from one point
	// and the caller must branch instead of guessing.
	ErrInsufficientYears = errors.New("fewer than two distinct years in filtered set")
)

// Dimension identifies a categorical grouping column of the record set.
type Dimension string

const (
	DimensionProduct          Dimension = "product"
	DimensionIssue            Dimension = "issue"
	DimensionCompany          Dimension = "company"
	DimensionState            Dimension = "state"
	DimensionSubmittedVia     Dimension = "submitted_via"
	DimensionCompanyResponse  Dimension = "company_response"
	DimensionTimelyResponse   Dimension = "timely_response"
	DimensionConsumerDisputed Dimension = "consumer_disputed"
	DimensionYear             Dimension = "year"
	DimensionQuarter          Dimension = "quarter"
	DimensionDayOfWeek        Dimension = "day_of_week"
)

// Dimensions lists every valid grouping dimension.
func Dimensions() []Dimension {
	return []Dimension{
		DimensionProduct, DimensionIssue, DimensionCompany, DimensionState,
		DimensionSubmittedVia, DimensionCompanyResponse, DimensionTimelyResponse,
		DimensionConsumerDisputed, DimensionYear, DimensionQuarter, DimensionDayOfWeek,
	}
}

// ParseDimension converts a request string into a Dimension.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(s)
	if !d.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDimension, s)
	}
	return d, nil
}

// IsValid reports whether the dimension is one of the recognized columns.
func (d Dimension) IsValid() bool {
	switch d {
	case DimensionProduct, DimensionIssue, DimensionCompany, DimensionState,
		DimensionSubmittedVia, DimensionCompanyResponse, DimensionTimelyResponse,
		DimensionConsumerDisputed, DimensionYear, DimensionQuarter, DimensionDayOfWeek:
		return true
	}
	return false
}

// String returns the wire name of the dimension.
func (d Dimension) String() string {
	return string(d)
}

// value extracts the record's key for this dimension. ok is false when the
// key is missing; such rows are excluded from the grouping and its totals.
func (d Dimension) value(rec complaints.ComplaintRecord) (string, bool) {
	switch d {
	case DimensionProduct:
		return rec.Product, rec.Product != ""
	case DimensionIssue:
		return rec.Issue, rec.Issue != ""
	case DimensionCompany:
		return rec.Company, rec.Company != ""
	case DimensionState:
		return rec.State, rec.State != ""
	case DimensionSubmittedVia:
		return rec.SubmittedVia, rec.SubmittedVia != ""
	case DimensionCompanyResponse:
		return rec.CompanyResponse, rec.CompanyResponse != ""
	case DimensionTimelyResponse:
		return rec.TimelyResponse, rec.TimelyResponse != ""
	case DimensionConsumerDisputed:
		return rec.ConsumerDisputed, rec.ConsumerDisputed != ""
	case DimensionYear:
		if !rec.HasDate() {
			return "", false
		}
		return fmt.Sprintf("%04d", rec.Year), true
	case DimensionQuarter:
		if !rec.HasDate() {
			return "", false
		}
		return fmt.Sprintf("Q%d", rec.Quarter), true
	case DimensionDayOfWeek:
		return rec.DayOfWeek, rec.DayOfWeek != ""
	}
	return "", false
}

// Measure identifies what is computed per group.
type Measure string

const (
	// MeasureCount is the raw record count per group.
	MeasureCount Measure = "count"
	// MeasureDisputeRate is the share of records with consumer_disputed = Yes.
	MeasureDisputeRate Measure = "dispute_rate"
	// MeasureTimelyRate is the share of records with timely_response = Yes.
	MeasureTimelyRate Measure = "timely_rate"
	// MeasureLatency summarizes response_latency_days per group.
	MeasureLatency Measure = "latency"
)

// ParseMeasure converts a request string into a Measure.
func ParseMeasure(s string) (Measure, error) {
	m := Measure(s)
	if !m.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMeasure, s)
	}
	return m, nil
}

// IsValid reports whether the measure is recognized.
func (m Measure) IsValid() bool {
	switch m {
	case MeasureCount, MeasureDisputeRate, MeasureTimelyRate, MeasureLatency:
		return true
	}
	return false
}

// IsRate reports whether the measure is a yes-share percentage.
func (m Measure) IsRate() bool {
	return m == MeasureDisputeRate || m == MeasureTimelyRate
}

// String returns the wire name of the measure.
func (m Measure) String() string {
	return string(m)
}

// flagHit reports whether the record counts toward the measure's numerator.
func (m Measure) flagHit(rec complaints.ComplaintRecord) bool {
	switch m {
	case MeasureDisputeRate:
		return rec.Disputed()
	case MeasureTimelyRate:
		return rec.Timely()
	}
	return false
}

// Risk labels attached to dispute-rate rows.
const (
	RiskCritical = "critical"
	RiskWatch    = "watch"
	RiskSafe     = "safe"
)

// Trend signals derived from a growth percentage.
const (
	TrendRising  = "rising"
	TrendFalling = "falling"
	TrendStable  = "stable"
)

// Thresholds carries the dataset-specific classification baselines. The
// values are configuration, not derived rules.
type Thresholds struct {
	// Dispute-rate risk bands: critical at or above CriticalPct, watch at
	// or above WatchPct, safe below.
	CriticalPct float64 `json:"critical_pct"`
	WatchPct    float64 `json:"watch_pct"`

	// Reference average dispute rate shown next to the overview KPI.
	IndustryAvgPct float64 `json:"industry_avg_pct"`

	// Growth-signal bands: rising above RisingPct, falling below FallingPct.
	RisingPct  float64 `json:"rising_pct"`
	FallingPct float64 `json:"falling_pct"`

	// Latency window for per-category latency stats; observations outside
	// [WindowMinDays, WindowMaxDays] are excluded from those stats.
	WindowMinDays int `json:"window_min_days"`
	WindowMaxDays int `json:"window_max_days"`

	// A response within FastDays days counts as fast in the overview.
	FastDays int `json:"fast_days"`
}

// DefaultThresholds returns the dataset baselines used when configuration
// does not override them.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CriticalPct:    22.0, // dispute rate at or above this is critical
		WatchPct:       15.0, // dispute rate at or above this is watch
		IndustryAvgPct: 20.2, // whole-dataset average dispute rate
		RisingPct:      10.0,
		FallingPct:     -10.0,
		WindowMinDays:  0,
		WindowMaxDays:  30,
		FastDays:       3,
	}
}

// RiskLabel classifies a dispute percentage into a risk band.
func (t Thresholds) RiskLabel(pct float64) string {
	switch {
	case pct >= t.CriticalPct:
		return RiskCritical
	case pct >= t.WatchPct:
		return RiskWatch
	default:
		return RiskSafe
	}
}

// TrendSignal classifies a growth percentage.
func (t Thresholds) TrendSignal(growthPct float64) string {
	switch {
	case growthPct > t.RisingPct:
		return TrendRising
	case growthPct < t.FallingPct:
		return TrendFalling
	default:
		return TrendStable
	}
}

// GroupStat is one row of a RankedTable.
type GroupStat struct {
	Key      string        `json:"key"`
	Count    int           `json:"count"`
	Affected int           `json:"affected,omitempty"` // rate numerator
	Pct      float64       `json:"pct"`                // rate, or share of total for counts
	Risk     string        `json:"risk,omitempty"`     // dispute-rate rows only
	Latency  *LatencyStats `json:"latency,omitempty"`  // latency measure only
}

// RankedTable is the output of AggregateByKey: one row per group, ranked by
// the measure with the documented tie-break.
type RankedTable struct {
	Dimension    Dimension   `json:"dimension"`
	Measure      Measure     `json:"measure"`
	Rows         []GroupStat `json:"rows"`
	TotalRecords int         `json:"total_records"` // rows with a non-missing group key
}

// LatencyStats summarizes response latency for one group.
type LatencyStats struct {
	Key    string  `json:"key,omitempty"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Std    float64 `json:"std"`
}

// Cell is one cross-tab cell or margin. For count measures Pct is unused
// and HasData is always true (a zero count is data). For rate measures,
// HasData is false when no records fall in the cell: "no observations" is
// not the same as a 0% rate.
type Cell struct {
	Count    int     `json:"count"`
	Affected int     `json:"affected,omitempty"`
	Pct      float64 `json:"pct"`
	HasData  bool    `json:"has_data"`
}

// CrossTab is a bounded two-dimensional tabulation with margins.
type CrossTab struct {
	RowDim     Dimension `json:"row_dim"`
	ColDim     Dimension `json:"col_dim"`
	Measure    Measure   `json:"measure"`
	RowKeys    []string  `json:"row_keys"`
	ColKeys    []string  `json:"col_keys"`
	Cells      [][]Cell  `json:"cells"`       // [row][col]
	RowMargins []Cell    `json:"row_margins"` // one per row
	ColMargins []Cell    `json:"col_margins"` // one per column
	Grand      Cell      `json:"grand"`
}

// Granularity selects the time-series bucket size.
type Granularity string

const (
	GranularityYear    Granularity = "year"
	GranularityMonth   Granularity = "month" // calendar year-month
	GranularityQuarter Granularity = "quarter"
)

// ParseGranularity converts a request string into a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(s)
	if !g.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidGranularity, s)
	}
	return g, nil
}

// IsValid reports whether the granularity is recognized.
func (g Granularity) IsValid() bool {
	switch g {
	case GranularityYear, GranularityMonth, GranularityQuarter:
		return true
	}
	return false
}

// String returns the wire name of the granularity.
func (g Granularity) String() string {
	return string(g)
}

// SeriesPoint is one bucket of a time series, chronologically ordered.
type SeriesPoint struct {
	Period   string  `json:"period"` // "2016", "2016-09" or "2016-Q3"
	Count    int     `json:"count"`
	Affected int     `json:"affected,omitempty"`
	Pct      float64 `json:"pct,omitempty"`
}

// YoYSummary compares the earliest and latest years in the filtered set.
type YoYSummary struct {
	Measure   Measure       `json:"measure"`
	Years     []SeriesPoint `json:"years"`
	FirstYear int           `json:"first_year"`
	LastYear  int           `json:"last_year"`
	// GrowthPct is (last-first)/first*100, reported as 0 when the first
	// year's value is 0 (documented zero-base rule).
	GrowthPct float64 `json:"growth_pct"`
	Trend     string  `json:"trend"`
}

// Overview is the KPI card block of the dashboard.
type Overview struct {
	TotalComplaints   int     `json:"total_complaints"`
	Companies         int     `json:"companies"`
	Products          int     `json:"products"`
	States            int     `json:"states"`
	TimelyPct         float64 `json:"timely_pct"`
	DisputedPct       float64 `json:"disputed_pct"`
	DisputeRisk       string  `json:"dispute_risk"`
	IndustryAvgPct    float64 `json:"industry_avg_pct"`
	AvgLatencyDays    float64 `json:"avg_latency_days"`
	MedianLatencyDays float64 `json:"median_latency_days"`
	FastResponsePct   float64 `json:"fast_response_pct"`
	PeakMonth         string  `json:"peak_month,omitempty"`
	From              string  `json:"from,omitempty"`
	To                string  `json:"to,omitempty"`
}

// CompanyPerformance is one row of the company performance table.
type CompanyPerformance struct {
	Company         string  `json:"company"`
	Count           int     `json:"count"`
	TimelyPct       float64 `json:"timely_pct"`
	DisputedPct     float64 `json:"disputed_pct"`
	MeanLatencyDays float64 `json:"mean_latency_days"`
	Risk            string  `json:"risk"`
}

// ResponseShare is one slice of the company-response composition.
type ResponseShare struct {
	Response string  `json:"response"`
	Order    int     `json:"order"` // canonical display order, best outcome first
	Count    int     `json:"count"`
	Pct      float64 `json:"pct"`
}

// ProductTrend is the year-over-year signal for one product.
type ProductTrend struct {
	Product    string  `json:"product"`
	FirstYear  int     `json:"first_year"`
	LastYear   int     `json:"last_year"`
	FirstCount int     `json:"first_count"`
	LastCount  int     `json:"last_count"`
	GrowthPct  float64 `json:"growth_pct"`
	Trend      string  `json:"trend"`
}
