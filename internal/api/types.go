package api

// IngestResponse reports the outcome of an ingest request.
type IngestResponse struct {
	Accepted       int      `json:"accepted"`
	DuplicateCount int      `json:"duplicate_count"`
	Errors         []string `json:"errors"`
}

// ErrorResponse is the body for rejected requests.
type ErrorResponse struct {
	Error string `json:"error"`
}
