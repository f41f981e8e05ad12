package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cclens/internal/complaints"
)

func TestBuildOverview(t *testing.T) {
	records := []complaints.ComplaintRecord{
		mkRecord(withCompany("Acme"), withProduct("Mortgage"), withState("OH"),
			withReceived("2015-03-10"), withTimely(complaints.FlagYes),
			withDisputed(complaints.FlagYes), withLatency(2)),
		mkRecord(withCompany("Acme"), withProduct("Mortgage"), withState("TX"),
			withReceived("2015-03-20"), withTimely(complaints.FlagYes),
			withDisputed(complaints.FlagNo), withLatency(4)),
		mkRecord(withCompany("Beta"), withProduct("Credit card"), withState("OH"),
			withReceived("2016-07-01"), withTimely(complaints.FlagNo),
			withDisputed(complaints.FlagNo), withLatency(10)),
		mkRecord(withCompany("Gamma"), withProduct("Mortgage"), withState("CA"),
			withReceived("2016-01-05"), withTimely(complaints.FlagYes)),
	}

	ov := BuildOverview(records, DefaultThresholds())

	assert.Equal(t, 4, ov.TotalComplaints)
	assert.Equal(t, 3, ov.Companies)
	assert.Equal(t, 2, ov.Products)
	assert.Equal(t, 3, ov.States)
	assert.InDelta(t, 75.0, ov.TimelyPct, 0.0001)
	assert.InDelta(t, 25.0, ov.DisputedPct, 0.0001)
	assert.Equal(t, RiskCritical, ov.DisputeRisk)
	assert.InDelta(t, 20.2, ov.IndustryAvgPct, 0.0001)

	// Latency stats cover only the 3 records where it is known.
	assert.InDelta(t, 16.0/3.0, ov.AvgLatencyDays, 0.0001)
	assert.InDelta(t, 4.0, ov.MedianLatencyDays, 0.0001)
	// 1 of 3 known latencies is within the fast window (<= 3 days).
	assert.InDelta(t, 33.3333, ov.FastResponsePct, 0.001)

	assert.Equal(t, "2015-03", ov.PeakMonth)
	assert.Equal(t, "2015-03-10", ov.From)
	assert.Equal(t, "2016-07-01", ov.To)
}

// TestBuildOverview_Empty tests that an empty filtered set produces zeros,
// never a failure.
func TestBuildOverview_Empty(t *testing.T) {
	ov := BuildOverview(nil, DefaultThresholds())

	assert.Equal(t, 0, ov.TotalComplaints)
	assert.Equal(t, 0, ov.Companies)
	assert.Zero(t, ov.TimelyPct)
	assert.Zero(t, ov.AvgLatencyDays)
	assert.Equal(t, RiskSafe, ov.DisputeRisk)
	assert.Empty(t, ov.PeakMonth)
	assert.Empty(t, ov.From)
}

func TestBuildOverview_PeakMonthTie(t *testing.T) {
	records := []complaints.ComplaintRecord{
		mkRecord(withReceived("2016-05-01")),
		mkRecord(withReceived("2016-02-01")),
	}

	ov := BuildOverview(records, DefaultThresholds())

	// Equal counts: earlier month wins.
	assert.Equal(t, "2016-02", ov.PeakMonth)
}

func TestBuildCompanyPerformance(t *testing.T) {
	var records []complaints.ComplaintRecord
	// Acme: 4 complaints, 1 disputed (25%), all timely, latencies 2 and 4.
	for i := 0; i < 4; i++ {
		rec := mkRecord(withCompany("Acme"), withTimely(complaints.FlagYes))
		if i == 0 {
			rec.ConsumerDisputed = complaints.FlagYes
		} else {
			rec.ConsumerDisputed = complaints.FlagNo
		}
		if i < 2 {
			rec.LatencyDays = 2 + 2*i
			rec.LatencyKnown = true
		}
		records = append(records, rec)
	}
	// Beta: 2 complaints, none disputed, 1 timely.
	records = append(records,
		mkRecord(withCompany("Beta"), withTimely(complaints.FlagYes), withDisputed(complaints.FlagNo)),
		mkRecord(withCompany("Beta"), withTimely(complaints.FlagNo), withDisputed(complaints.FlagNo)),
	)

	rows, err := BuildCompanyPerformance(records, 5, DefaultThresholds())
	require.NoError(t, err)

	require.Len(t, rows, 2)

	// Worst dispute rate first.
	acme := rows[0]
	assert.Equal(t, "Acme", acme.Company)
	assert.Equal(t, 4, acme.Count)
	assert.InDelta(t, 100.0, acme.TimelyPct, 0.0001)
	assert.InDelta(t, 25.0, acme.DisputedPct, 0.0001)
	assert.InDelta(t, 3.0, acme.MeanLatencyDays, 0.0001)
	assert.Equal(t, RiskCritical, acme.Risk)

	beta := rows[1]
	assert.Equal(t, "Beta", beta.Company)
	assert.InDelta(t, 50.0, beta.TimelyPct, 0.0001)
	assert.Equal(t, RiskSafe, beta.Risk)
}

func TestBuildCompanyPerformance_TopNLimit(t *testing.T) {
	var records []complaints.ComplaintRecord
	for i := 0; i < 3; i++ {
		records = append(records, mkRecord(withCompany("Acme")))
	}
	for i := 0; i < 2; i++ {
		records = append(records, mkRecord(withCompany("Beta")))
	}
	records = append(records, mkRecord(withCompany("Gamma")))

	rows, err := BuildCompanyPerformance(records, 2, DefaultThresholds())
	require.NoError(t, err)

	require.Len(t, rows, 2)
	names := []string{rows[0].Company, rows[1].Company}
	assert.ElementsMatch(t, []string{"Acme", "Beta"}, names)
}

func TestBuildCompanyPerformance_Empty(t *testing.T) {
	rows, err := BuildCompanyPerformance(nil, 5, DefaultThresholds())
	require.NoError(t, err)
	assert.Empty(t, rows)
}
