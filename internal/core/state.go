package core

// FetchStatus is the phase of a remote fetch.
type FetchStatus int

const (
	StatusIdle FetchStatus = iota
	StatusLoading
	StatusOK
	StatusFailed
)

func (s FetchStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FetchState is idle | loading | ok(data) | failed(reason).
//
// Loading and Failed may carry the previous data of the same key so a
// refetch can keep showing it; callers decide whether to pass it.
type FetchState[T any] struct {
	Status FetchStatus
	Data   T
	Reason string
}

func Idle[T any]() FetchState[T] {
	return FetchState[T]{Status: StatusIdle}
}

func Loading[T any](prev T) FetchState[T] {
	return FetchState[T]{Status: StatusLoading, Data: prev}
}

func Loaded[T any](data T) FetchState[T] {
	return FetchState[T]{Status: StatusOK, Data: data}
}

func Failed[T any](reason string, prev T) FetchState[T] {
	return FetchState[T]{Status: StatusFailed, Data: prev, Reason: reason}
}

func (s FetchState[T]) IsIdle() bool    { return s.Status == StatusIdle }
func (s FetchState[T]) IsLoading() bool { return s.Status == StatusLoading }
func (s FetchState[T]) IsOK() bool      { return s.Status == StatusOK }
func (s FetchState[T]) IsFailed() bool  { return s.Status == StatusFailed }
