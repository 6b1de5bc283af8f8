package models

// OutcomeKind tags a FetchOutcome.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeHTTPError
	OutcomeBlocked
	OutcomeNetworkError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeHTTPError:
		return "http_error"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// FetchOutcome is the result of one fetch attempt sequence for a URL.
// Body is set only for OutcomeSuccess; Err carries the cause of any other kind.
type FetchOutcome struct {
	Kind     OutcomeKind
	Status   int
	Body     []byte
	Err      error
	Attempts int
}
