package models

// RefreshTask asks the pipeline to recompute a report and optionally notify.
// A nil Location means the configured location provider decides.
type RefreshTask struct {
	RequestID string
	Location  *Location
	Dispatch  bool
	Summary   bool
}
