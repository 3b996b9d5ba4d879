package clustering

import "fmt"

// Status describes how a clustering run terminated.
type Status int

const (
	// StatusConverged means an iteration changed no assignment and re-seeded
	// no cluster.
	StatusConverged Status = iota
	// StatusMaxIterations means the iteration limit was reached first.
	StatusMaxIterations
	// StatusInterrupted means the context was cancelled between iterations.
	StatusInterrupted
)

func (s Status) String() string {
	switch s {
	case StatusConverged:
		return "converged"
	case StatusMaxIterations:
		return "max_iterations"
	case StatusInterrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if s < StatusConverged || s > StatusInterrupted {
		return nil, fmt.Errorf("unknown status: %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "converged":
		*s = StatusConverged
	case "max_iterations":
		*s = StatusMaxIterations
	case "interrupted":
		*s = StatusInterrupted
	default:
		return fmt.Errorf("unknown status %q", text)
	}
	return nil
}
