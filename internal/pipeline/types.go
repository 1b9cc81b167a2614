// Package pipeline holds the ingest domain types and the orchestrator
// that drives one invocation through quota check, retrieval, publish
// and archive.
package pipeline

import (
	"fmt"
	"time"
)

// Article is the unit of content flowing through the pipeline. The JSON
// field names match the upstream content API so a retrieved article
// round-trips through the archive unchanged.
type Article struct {
	WebPublicationDate time.Time `json:"webPublicationDate"`
	WebTitle           string    `json:"webTitle"`
	WebURL             string    `json:"webUrl"`
}

// Validate reports whether all required article fields are populated.
// A field-missing article is a defect in the upstream response, never a
// valid pipeline value.
func (a Article) Validate() error {
	if a.WebPublicationDate.IsZero() {
		return fmt.Errorf("%w: article missing webPublicationDate", ErrValidation)
	}
	if a.WebTitle == "" {
		return fmt.Errorf("%w: article missing webTitle", ErrValidation)
	}
	if a.WebURL == "" {
		return fmt.Errorf("%w: article missing webUrl", ErrValidation)
	}
	return nil
}

// Batch is an ordered list of articles from one retrieval call, in the
// order supplied by the upstream source. The pipeline never reorders or
// deduplicates it.
type Batch []Article

// Request is the inbound invocation payload.
type Request struct {
	Query     string `json:"query"`
	FromDate  string `json:"from_date,omitempty"`
	BrokerRef string `json:"broker_ref"`
}

// Result is the terminal outcome of one invocation.
type Result struct {
	Message   string `json:"message"`
	Delivered int    `json:"-"`
	State     State  `json:"-"`
}

// State names a position in the orchestrator state machine.
type State string

const (
	StateValidating State = "validating"
	StateQuotaCheck State = "quota_check"
	StateRetrieving State = "retrieving"
	StatePublishing State = "publishing"
	StateArchiving  State = "archiving"
	StateDone       State = "done"
	StateBlocked    State = "blocked"
	StateFailed     State = "failed"
)
