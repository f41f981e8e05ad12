package complaints

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHeader = "Complaint ID,Product,Issue,Company,State,Submitted via,Company response to consumer,Timely response?,Consumer disputed?,Date received,Date sent to company"

func parseCSV(t *testing.T, csv string) *Dataset {
	t.Helper()
	loader := NewLoader(nil)
	ds, err := loader.Parse(context.Background(), []byte(csv), "test.csv")
	require.NoError(t, err)
	return ds
}

func TestParse_BasicRecord(t *testing.T) {
	csv := sampleHeader + "\n" +
		"468882,Mortgage,Loan servicing,Acme Bank,OH,Web,Closed with explanation,Yes,No,2014-07-03,2014-07-09\n"

	ds := parseCSV(t, csv)

	require.Equal(t, 1, ds.Len())
	rec := ds.Records[0]
	assert.Equal(t, "468882", rec.ID)
	assert.Equal(t, "Mortgage", rec.Product)
	assert.Equal(t, "Loan servicing", rec.Issue)
	assert.Equal(t, "Acme Bank", rec.Company)
	assert.Equal(t, "OH", rec.State)
	assert.Equal(t, "Web", rec.SubmittedVia)
	assert.Equal(t, "Closed with explanation", rec.CompanyResponse)
	assert.Equal(t, FlagYes, rec.TimelyResponse)
	assert.Equal(t, FlagNo, rec.ConsumerDisputed)
	assert.Equal(t, "2014-07-03", rec.DateReceived.Format("2006-01-02"))
}

func TestParse_DerivedFields(t *testing.T) {
	csv := sampleHeader + "\n" +
		"1,Mortgage,,Acme,,,,,,2014-07-03,2014-07-09\n"

	ds := parseCSV(t, csv)

	require.Equal(t, 1, ds.Len())
	rec := ds.Records[0]
	assert.Equal(t, 2014, rec.Year)
	assert.Equal(t, time.July, rec.Month)
	assert.Equal(t, 3, rec.Quarter)
	assert.Equal(t, "Thursday", rec.DayOfWeek)
	assert.True(t, rec.LatencyKnown)
	assert.Equal(t, 6, rec.LatencyDays)
}

// TestParse_NegativeLatency tests that out-of-order source dates produce a
// negative latency rather than being discarded; downstream windows decide
// what to do with them.
func TestParse_NegativeLatency(t *testing.T) {
	csv := sampleHeader + "\n" +
		"1,Mortgage,,Acme,,,,,,2014-07-03,2014-07-01\n"

	ds := parseCSV(t, csv)

	rec := ds.Records[0]
	assert.True(t, rec.LatencyKnown)
	assert.Equal(t, -2, rec.LatencyDays)
}

func TestParse_HeaderNormalization(t *testing.T) {
	// Odd casing, padding, dashes and trailing question marks must all
	// resolve to the canonical column names.
	csv := "  COMPLAINT id , PRODUCT,Company , Timely Response? ,Consumer-Disputed?,Date Received,Date Sent To Company\n" +
		"77,Credit card,Acme,yes,no,2015-01-02,2015-01-05\n"

	ds := parseCSV(t, csv)

	require.Equal(t, 1, ds.Len())
	rec := ds.Records[0]
	assert.Equal(t, "77", rec.ID)
	assert.Equal(t, "Credit card", rec.Product)
	assert.Equal(t, FlagYes, rec.TimelyResponse)
	assert.Equal(t, FlagNo, rec.ConsumerDisputed)
	assert.True(t, rec.HasDate())
}

func TestParse_DateFormats(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"iso", "2014-07-03"},
		{"us slash", "07/03/2014"},
		{"iso with time", "2014-07-03 10:30:00"},
		{"slash year first", "2014/07/03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			csv := sampleHeader + "\n" +
				"1,Mortgage,,Acme,,,,,," + tt.raw + ",\n"

			ds := parseCSV(t, csv)

			require.Equal(t, 1, ds.Len())
			rec := ds.Records[0]
			require.True(t, rec.HasDate())
			assert.Equal(t, 2014, rec.Year)
			assert.Equal(t, time.July, rec.Month)
			assert.Equal(t, 3, rec.DateReceived.Day())
		})
	}
}

// TestParse_UnparseableDate tests that a bad date degrades to the missing
// marker and bumps the counter, keeping the row.
func TestParse_UnparseableDate(t *testing.T) {
	csv := sampleHeader + "\n" +
		"1,Mortgage,,Acme,,,,,,not-a-date,2014-07-09\n"

	ds := parseCSV(t, csv)

	require.Equal(t, 1, ds.Len())
	rec := ds.Records[0]
	assert.False(t, rec.HasDate())
	assert.Zero(t, rec.Year)
	assert.False(t, rec.LatencyKnown)
	assert.Equal(t, 1, ds.DatesUnparsed)
}

func TestParse_MissingMandatoryColumn(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no product", "Complaint ID,Company,Date received"},
		{"no company", "Complaint ID,Product,Date received"},
		{"no date received", "Complaint ID,Product,Company"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := NewLoader(nil)
			_, err := loader.Parse(context.Background(), []byte(tt.header+"\n1,a,b\n"), "test.csv")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "mandatory column")
		})
	}
}

// TestParse_OptionalColumnsAbsent tests that rows load fine without the
// optional columns; their fields stay at the missing marker.
func TestParse_OptionalColumnsAbsent(t *testing.T) {
	csv := "Product,Company,Date received\n" +
		"Mortgage,Acme,2014-07-03\n"

	ds := parseCSV(t, csv)

	require.Equal(t, 1, ds.Len())
	rec := ds.Records[0]
	assert.Empty(t, rec.State)
	assert.Empty(t, rec.TimelyResponse)
	assert.Empty(t, rec.ConsumerDisputed)
	assert.False(t, rec.LatencyKnown)
	// Without a complaint ID column the line number stands in.
	assert.Equal(t, "2", rec.ID)
}

func TestParse_FlagNormalization(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"Yes", FlagYes},
		{"yes", FlagYes},
		{"Y", FlagYes},
		{"TRUE", FlagYes},
		{"No", FlagNo},
		{"no", FlagNo},
		{"N", FlagNo},
		{"false", FlagNo},
		{"", ""},
		{"maybe", ""},
		{"N/A", ""},
	}

	for _, tt := range tests {
		t.Run("raw "+tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeFlag(tt.raw))
		})
	}
}

func TestParse_BOMStripped(t *testing.T) {
	csv := "\xEF\xBB\xBF" + sampleHeader + "\n" +
		"1,Mortgage,,Acme,,,,,,2014-07-03,\n"

	ds := parseCSV(t, csv)

	require.Equal(t, 1, ds.Len())
	// With the BOM left in, "Complaint ID" would not match and the ID
	// would fall back to the line number.
	assert.Equal(t, "1", ds.Records[0].ID)
}

func TestParse_ShortRows(t *testing.T) {
	csv := sampleHeader + "\n" +
		"1,Mortgage,,Acme\n" + // short row: trailing columns absent
		"2,Credit card,,Beta,,,,,,2015-02-01,2015-02-03\n"

	ds := parseCSV(t, csv)

	require.Equal(t, 2, ds.Len())
	assert.False(t, ds.Records[0].HasDate())
	assert.True(t, ds.Records[1].HasDate())
	assert.Equal(t, 2, ds.RowsRead)
}

func TestParse_DatasetIdentity(t *testing.T) {
	csv := sampleHeader + "\n" +
		"1,Mortgage,,Acme,,,,,,2014-07-03,\n"

	loader := NewLoader(nil)
	first, err := loader.Parse(context.Background(), []byte(csv), "a.csv")
	require.NoError(t, err)
	second, err := loader.Parse(context.Background(), []byte(csv), "b.csv")
	require.NoError(t, err)

	// Same bytes, same fingerprint; every load gets its own ID.
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.NotEqual(t, first.LoadID, second.LoadID)
	assert.Len(t, first.Fingerprint, 64)

	third, err := loader.Parse(context.Background(), []byte(csv+"2,Card,,Beta,,,,,,2014-08-01,\n"), "c.csv")
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprint, third.Fingerprint)
}

func TestParse_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loader := NewLoader(nil)
	_, err := loader.Parse(ctx, []byte(sampleHeader+"\n1,Mortgage,,Acme,,,,,,2014-07-03,\n"), "test.csv")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParse_EmptyBody(t *testing.T) {
	ds := parseCSV(t, sampleHeader+"\n")

	assert.Equal(t, 0, ds.Len())
	assert.Equal(t, 0, ds.RowsRead)
}
