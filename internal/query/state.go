package query

import "time"

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

type FetchStatus string

const (
	FetchIdle     FetchStatus = "idle"
	FetchFetching FetchStatus = "fetching"
)

// State is a snapshot of one entry.
type State struct {
	Key         Key
	Status      Status
	FetchStatus FetchStatus
	Data        any
	Err         error
	// UpdatedAt is when Data was last stored; zero means no data yet.
	UpdatedAt    time.Time
	ErrorAt      time.Time
	Invalidated  bool
	FailureCount int
}

func (s State) HasData() bool {
	return !s.UpdatedAt.IsZero()
}

// IsStale reports whether a read with the given stale time must refetch.
func (s State) IsStale(staleTime time.Duration, now time.Time) bool {
	if !s.HasData() || s.Invalidated {
		return true
	}
	return now.Sub(s.UpdatedAt) >= staleTime
}

func (s State) IsLoading() bool  { return s.Status == StatusLoading }
func (s State) IsError() bool    { return s.Status == StatusError }
func (s State) IsSuccess() bool  { return s.Status == StatusSuccess }
func (s State) IsFetching() bool { return s.FetchStatus == FetchFetching }
