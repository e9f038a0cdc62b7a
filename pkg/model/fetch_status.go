package model

import "time"

// FetchState is the tri-state of the inventory fetch boundary.
type FetchState int

const (
	FetchLoading FetchState = iota
	FetchError
	FetchReady
)

func (s FetchState) String() string {
	switch s {
	case FetchLoading:
		return "loading"
	case FetchError:
		return "error"
	case FetchReady:
		return "ready"
	default:
		return "unknown"
	}
}

// FetchStatus reports the state of the last inventory fetch. The core
// performs no retries itself; recovery happens on the next fetch cycle.
type FetchStatus struct {
	State     FetchState `json:"state"`
	LastError string     `json:"lastError,omitempty"`
	LastFetch time.Time  `json:"lastFetch,omitempty"`
}
