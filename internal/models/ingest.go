// Package models defines the data structures shared across ingestion,
// retrieval, and chat.
package models

// IngestStatus is the per-URL outcome of an ingestion run.
type IngestStatus string

const (
	IngestSuccess IngestStatus = "success"
	IngestSkipped IngestStatus = "skipped"
	IngestError   IngestStatus = "error"
)

// IngestResult is the per-URL record of an ingestion batch.
type IngestResult struct {
	URL            string       `json:"url"`
	Status         IngestStatus `json:"status"`
	URLHash        string       `json:"url_hash,omitempty"`
	Title          string       `json:"title,omitempty"`
	ChunksCreated  int          `json:"chunks_created,omitempty"`
	ChunksUpserted int          `json:"chunks_upserted,omitempty"`
	ContentLength  int          `json:"content_length,omitempty"`
	Error          string       `json:"error,omitempty"`
}

// Failed marks the result as errored with err's message and returns it.
func (r IngestResult) Failed(err error) IngestResult {
	r.Status = IngestError
	r.Error = err.Error()
	return r
}

// IngestSummary aggregates the results of one ingestion batch.
// Results are in input URL order regardless of worker completion order.
type IngestSummary struct {
	Status     string         `json:"status"`
	Results    []IngestResult `json:"results"`
	TotalURLs  int            `json:"total_urls"`
	Successful int            `json:"successful"`
	Skipped    int            `json:"skipped"`
	Errors     int            `json:"errors"`
}

// IngestCompleted is the batch status once every URL has a result.
const IngestCompleted = "completed"

// Tally recomputes the aggregate counters from Results and marks the batch
// completed.
func (s *IngestSummary) Tally() {
	s.Status = IngestCompleted
	s.TotalURLs = len(s.Results)
	s.Successful, s.Skipped, s.Errors = 0, 0, 0
	for _, r := range s.Results {
		switch r.Status {
		case IngestSuccess:
			s.Successful++
		case IngestSkipped:
			s.Skipped++
		case IngestError:
			s.Errors++
		}
	}
}
