package analytics

import (
	"time"

	"cclens/internal/complaints"
)

// mkRecord builds a record for pipeline tests, applying the same derived
// fields the loader would.
func mkRecord(mutators ...func(*complaints.ComplaintRecord)) complaints.ComplaintRecord {
	rec := complaints.ComplaintRecord{
		Product: "Mortgage",
		Company: "Acme Bank",
	}
	for _, m := range mutators {
		m(&rec)
	}
	return rec
}

func withProduct(p string) func(*complaints.ComplaintRecord) {
	return func(r *complaints.ComplaintRecord) { r.Product = p }
}

func withCompany(c string) func(*complaints.ComplaintRecord) {
	return func(r *complaints.ComplaintRecord) { r.Company = c }
}

func withState(s string) func(*complaints.ComplaintRecord) {
	return func(r *complaints.ComplaintRecord) { r.State = s }
}

func withIssue(i string) func(*complaints.ComplaintRecord) {
	return func(r *complaints.ComplaintRecord) { r.Issue = i }
}

func withResponse(resp string) func(*complaints.ComplaintRecord) {
	return func(r *complaints.ComplaintRecord) { r.CompanyResponse = resp }
}

func withDisputed(flag string) func(*complaints.ComplaintRecord) {
	return func(r *complaints.ComplaintRecord) { r.ConsumerDisputed = flag }
}

func withTimely(flag string) func(*complaints.ComplaintRecord) {
	return func(r *complaints.ComplaintRecord) { r.TimelyResponse = flag }
}

func withLatency(days int) func(*complaints.ComplaintRecord) {
	return func(r *complaints.ComplaintRecord) {
		r.LatencyDays = days
		r.LatencyKnown = true
	}
}

// withReceived sets the received date from "2006-01-02" form and fills the
// derived calendar fields.
func withReceived(date string) func(*complaints.ComplaintRecord) {
	return func(r *complaints.ComplaintRecord) {
		t, err := time.Parse("2006-01-02", date)
		if err != nil {
			panic(err)
		}
		r.DateReceived = t
		r.Year = t.Year()
		r.Month = t.Month()
		r.Quarter = (int(t.Month())-1)/3 + 1
		r.DayOfWeek = t.Weekday().String()
	}
}
