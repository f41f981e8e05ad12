package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cclens/internal/complaints"
)

// SampleComplaintsCSV is a small but representative slice of the complaints
// table: three products, four companies, both flag states, one missing flag
// pair and one unparseable received date. Latencies span the 0..30 day
// analysis window plus one negative outlier.
const SampleComplaintsCSV = `Complaint ID,Product,Issue,Company,State,Submitted via,Company response to consumer,Timely response?,Consumer disputed?,Date received,Date sent to company
468882,Mortgage,Loan servicing,Acme Bank,OH,Web,Closed with explanation,Yes,No,2014-07-03,2014-07-09
468889,Mortgage,Loan modification,Acme Bank,CA,Referral,Closed with monetary relief,Yes,Yes,2014-07-10,2014-07-11
512344,Mortgage,Application,Beta Credit,TX,Web,Closed with explanation,No,Yes,2015-03-02,2015-03-20
512399,Credit card,Billing disputes,Beta Credit,NY,Phone,Closed with non-monetary relief,Yes,No,2015-03-15,2015-03-15
600120,Credit card,APR or interest rate,Gamma Financial,FL,Web,Closed with explanation,Yes,,2016-01-08,2016-01-05
600177,Credit card,Rewards,Gamma Financial,WA,Web,In progress,No,Yes,2016-02-19,2016-02-24
688210,Debt collection,Cont'd attempts collect debt not owed,Delta Recovery,IL,Web,Closed with explanation,Yes,No,2016-09-30,2016-10-03
688244,Debt collection,Communication tactics,Delta Recovery,GA,Postal mail,Closed,No,Yes,not-a-date,2016-11-02
`

// WriteSampleCSV writes SampleComplaintsCSV into a temp dir and returns the
// file path. The file is cleaned up with the test.
func WriteSampleCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "complaints.csv")
	if err := os.WriteFile(path, []byte(SampleComplaintsCSV), 0o644); err != nil {
		t.Fatalf("write sample csv: %v", err)
	}
	return path
}

// LoadSampleDataset runs SampleComplaintsCSV through the production loader
// so fixture records carry the same derived fields real loads produce.
func LoadSampleDataset(t *testing.T) *complaints.Dataset {
	t.Helper()
	logger, _ := NewTestLogger(t)
	ds, err := complaints.NewLoader(logger).Parse(context.Background(), []byte(SampleComplaintsCSV), "fixture.csv")
	if err != nil {
		t.Fatalf("parse sample csv: %v", err)
	}
	return ds
}
