// Package scheduler drives forecast refreshes: the Refresher fans a refresh
// out over the location catalog and the Worker rebuilds one location per
// queue message.
package scheduler

// RefreshPayload is the JSON sent by the EventBridge schedule, or by an
// operator for a manual run.
//
//	{
//	  "location_ids": ["ocean-city-md"],  // optional, default all
//	  "reason": "manual"                  // optional, default "scheduled"
//	}
type RefreshPayload struct {
	LocationIDs []string `json:"location_ids,omitempty"`
	Reason      string   `json:"reason,omitempty"`
}

// RefreshResult summarizes one RefreshAll call.
type RefreshResult struct {
	BatchID  string `json:"batch_id"`
	Enqueued int    `json:"enqueued"`
	Failed   int    `json:"failed"`
}

const reasonScheduled = "scheduled"
