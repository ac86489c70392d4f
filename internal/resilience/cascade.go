package resilience

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Strategy is one named step of a fallback cascade.
type Strategy[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// ErrExhausted is returned (wrapped) when every strategy of a cascade failed.
var ErrExhausted = eris.New("all strategies failed")

// FirstSuccess runs strategies in order and returns the value and name of the
// first one that succeeds. The next strategy is tried only after a failure.
// When all fail, the returned error wraps ErrExhausted and every strategy
// error.
func FirstSuccess[T any](ctx context.Context, strategies ...Strategy[T]) (T, string, error) {
	var zero T
	errs := make([]error, 0, len(strategies))

	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		val, err := s.Run(ctx)
		if err == nil {
			return val, s.Name, nil
		}

		zap.L().Debug("cascade: strategy failed, trying next",
			zap.String("strategy", s.Name),
			zap.Error(err),
		)
		errs = append(errs, eris.Wrap(err, s.Name))
	}

	return zero, "", &exhaustedError{errs: errs}
}

type exhaustedError struct {
	errs []error
}

func (e *exhaustedError) Error() string {
	if len(e.errs) == 0 {
		return ErrExhausted.Error()
	}
	msgs := make([]string, len(e.errs))
	for i, err := range e.errs {
		msgs[i] = err.Error()
	}
	return ErrExhausted.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *exhaustedError) Unwrap() []error {
	return append([]error{ErrExhausted}, e.errs...)
}
