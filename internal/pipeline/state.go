package pipeline

// State is a stage of one scope's sync cycle.
type State int

const (
	StateIdle State = iota
	StateFetchingRemote
	StateParsingProducts
	StateLoadingProducts
	StateParsingPlanograms
	StateLoadingPlanograms
	StateFailed
)

var stateNames = [...]string{
	StateIdle:              "idle",
	StateFetchingRemote:    "fetching-remote",
	StateParsingProducts:   "parsing-products",
	StateLoadingProducts:   "loading-products",
	StateParsingPlanograms: "parsing-planograms",
	StateLoadingPlanograms: "loading-planograms",
	StateFailed:            "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
