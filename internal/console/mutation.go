package console

import "context"

type MutationStatus string

const (
	MutationIdle    MutationStatus = "idle"
	MutationPending MutationStatus = "pending"
	MutationSuccess MutationStatus = "success"
	MutationError   MutationStatus = "error"
)

// Mutation holds the outcome of the last run of one write operation.
type Mutation[T any] struct {
	Status MutationStatus
	Data   T
	Err    error
}

func (m *Mutation[T]) Reset() {
	*m = Mutation[T]{Status: MutationIdle}
}

func (m Mutation[T]) IsIdle() bool    { return m.Status == "" || m.Status == MutationIdle }
func (m Mutation[T]) IsPending() bool { return m.Status == MutationPending }
func (m Mutation[T]) IsSuccess() bool { return m.Status == MutationSuccess }
func (m Mutation[T]) IsError() bool   { return m.Status == MutationError }

// run executes fn and records its outcome. The previous outcome is cleared
// before fn starts.
func (m *Mutation[T]) run(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	*m = Mutation[T]{Status: MutationPending}

	data, err := fn(ctx)
	if err != nil {
		m.Status = MutationError
		m.Err = err
		return zero, err
	}
	m.Status = MutationSuccess
	m.Data = data
	return data, nil
}
