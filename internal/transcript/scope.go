package transcript

import (
	"context"
	"sync"
)

type scopeKey struct{}

// attemptScope holds values computed once per fetch attempt and shared by
// every language option of that attempt.
type attemptScope struct {
	mu   sync.Mutex
	vals map[string]scopedValue
}

type scopedValue struct {
	v   any
	err error
}

func withAttemptScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeKey{}, &attemptScope{vals: make(map[string]scopedValue)})
}

// Memoize returns the result stored under key for the current attempt,
// running fn on first use. Errors are stored too, so a failed lookup is not
// repeated for the next language option. Outside a Fetcher attempt fn runs
// every time.
func Memoize[T any](ctx context.Context, key string, fn func() (T, error)) (T, error) {
	s, _ := ctx.Value(scopeKey{}).(*attemptScope)
	if s == nil {
		return fn()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sv, ok := s.vals[key]; ok {
		v, _ := sv.v.(T)
		return v, sv.err
	}
	v, err := fn()
	s.vals[key] = scopedValue{v: v, err: err}
	return v, err
}
