package models

// FilterReason is the machine-readable outcome of one filter evaluation. The
// set is closed; aggregate statistics key off these values.
type FilterReason string

const (
	ReasonDistance  FilterReason = "distance"
	ReasonPrice     FilterReason = "price"
	ReasonNoPrice   FilterReason = "no_price"
	ReasonRating    FilterReason = "rating"
	ReasonNoRating  FilterReason = "no_rating"
	ReasonReviews   FilterReason = "reviews"
	ReasonSuperhost FilterReason = "superhost"
	ReasonPool      FilterReason = "pool"
	ReasonWhirlpool FilterReason = "whirlpool"
	ReasonSauna     FilterReason = "sauna"
	ReasonFireplace FilterReason = "fireplace"
	ReasonParking   FilterReason = "parking"
	ReasonPassed    FilterReason = "passed"
)

// FilterResult is one pass/fail decision with the first failing check's reason.
type FilterResult struct {
	Passed bool         `json:"passed"`
	Reason FilterReason `json:"reason"`
	// Detail is a human-readable explanation, populated in debug mode only.
	Detail string `json:"detail,omitempty"`
}

// FilterStats accumulates rejection counts for one platform pipeline run. Each
// pipeline owns its own instance; cross-platform totals come from Merge after
// the pipelines finish, so no locking is needed.
type FilterStats struct {
	Rejections map[FilterReason]int `json:"rejections"`
	// DroppedCards counts raw cards that yielded no usable record (no title/URL).
	DroppedCards int `json:"dropped_cards"`
	Passed       int `json:"passed"`
	// DistanceFailures counts listings whose geocoded distance lookup failed.
	DistanceFailures int `json:"distance_failures"`
}

func NewFilterStats() *FilterStats {
	return &FilterStats{Rejections: make(map[FilterReason]int)}
}

// Record tallies one filter decision.
func (s *FilterStats) Record(res FilterResult) {
	if res.Passed {
		s.Passed++
		return
	}
	s.Rejections[res.Reason]++
}

// TotalRejected sums all rejection counters.
func (s *FilterStats) TotalRejected() int {
	total := 0
	for _, n := range s.Rejections {
		total += n
	}
	return total
}

// Merge folds another pipeline's counters into this one.
func (s *FilterStats) Merge(other *FilterStats) {
	if other == nil {
		return
	}
	for reason, n := range other.Rejections {
		s.Rejections[reason] += n
	}
	s.DroppedCards += other.DroppedCards
	s.Passed += other.Passed
	s.DistanceFailures += other.DistanceFailures
}
