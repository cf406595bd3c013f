package dto

// ReasonNoDraftForToday is the only non-error, non-success finalize outcome
const ReasonNoDraftForToday = "no-draft-for-today"

// FinalizeResult is the outcome of one finalize invocation
type FinalizeResult struct {
	OK      bool   `json:"ok"`
	Day     string `json:"day"`
	Rating  string `json:"rating,omitempty"`
	Streak  *int   `json:"streak,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Counted bool   `json:"counted,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// NoDraft builds the result for a day without a draft
func NoDraft(day string) FinalizeResult {
	return FinalizeResult{OK: false, Day: day, Reason: ReasonNoDraftForToday}
}
