package types

import "time"

// RefreshMessage is the SQS payload asking the forecast worker to rebuild one
// location's forecast.
type RefreshMessage struct {
	BatchID     string    `json:"batch_id"`
	TraceID     string    `json:"trace_id"`
	LocationID  string    `json:"location_id"`
	RequestedAt time.Time `json:"requested_at"`
}
