package models

// ReviewAnalysis is the structured summary produced from a listing's guest
// reviews. All fields may be empty when the reviews gave no signal.
type ReviewAnalysis struct {
	Positive    []string `json:"positive"`
	Negative    []string `json:"negative"`
	Cleanliness string   `json:"cleanliness"`
	Location    string   `json:"location"`
	Value       string   `json:"value"`
	Summary     string   `json:"summary"`
	// Error carries a failure message when analysis could not run, so a bad
	// listing never blocks the rest of the result set.
	Error string `json:"error,omitempty"`
}
