package middleware

// DatasetStateProvider reports whether the complaint dataset is available
// for queries. Decoupled from the concrete service for easier testing.
type DatasetStateProvider interface {
	Ready() bool
}
