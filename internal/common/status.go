package common

import "fmt"

// Status is the lifecycle state of a Job.
type Status int32

const (
	StatusQueued Status = iota
	StatusDownloading
	StatusPaused
	StatusMerging
	StatusCompleted
	StatusError
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusDownloading:
		return "downloading"
	case StatusPaused:
		return "paused"
	case StatusMerging:
		return "merging"
	case StatusCompleted:
		return "completed"
	case StatusError:
		return "error"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Terminal reports whether the status suppresses further progress mutation.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusCancelled:
		return true
	default:
		return false
	}
}

// MarshalJSON renders the status as its lowercase name so stored records and
// emitted events stay human-readable.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON parses the lowercase name back into a Status.
func (s *Status) UnmarshalJSON(data []byte) error {
	str := unquote(data)
	switch str {
	case "queued":
		*s = StatusQueued
	case "downloading":
		*s = StatusDownloading
	case "paused":
		*s = StatusPaused
	case "merging":
		*s = StatusMerging
	case "completed":
		*s = StatusCompleted
	case "error":
		*s = StatusError
	case "cancelled":
		*s = StatusCancelled
	default:
		return fmt.Errorf("common: unknown status %q", str)
	}
	return nil
}

func unquote(data []byte) string {
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		return string(data[1 : len(data)-1])
	}
	return string(data)
}
