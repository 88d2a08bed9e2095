package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// AnyLanguage is the configuration spelling of "provider default track".
const AnyLanguage = "any"

// Observer receives fetch lifecycle events. Any field may be nil.
type Observer struct {
	Attempt func(videoID string, attempt int)
	Failure func(videoID string, attempt int, err error)
	Timeout func(videoID string)
}

// Fetcher retrieves segments from a Provider under a Policy, walking the
// configured language options on every attempt. Safe for concurrent use.
type Fetcher struct {
	provider  Provider
	policy    Policy
	languages []string
	observer  Observer
}

// NewFetcher builds a Fetcher. languages are tried in order; "any" or ""
// asks the provider for its default track. An empty list means one
// unspecified option.
func NewFetcher(p Provider, policy Policy, languages []string) *Fetcher {
	langs := make([]string, 0, len(languages))
	for _, l := range languages {
		if l == AnyLanguage {
			l = ""
		}
		langs = append(langs, l)
	}
	if len(langs) == 0 {
		langs = []string{""}
	}
	return &Fetcher{provider: p, policy: policy, languages: langs}
}

// WithObserver returns a copy of f that reports to o.
func (f *Fetcher) WithObserver(o Observer) *Fetcher {
	cp := *f
	cp.observer = o
	return &cp
}

// Languages returns the language options in the order they are tried.
func (f *Fetcher) Languages() []string {
	return append([]string(nil), f.languages...)
}

// Fetch returns the first non-empty segment list. It makes exactly
// Policy.MaxAttempts attempts before surfacing the last error, unless ctx is
// cancelled first. An empty, error-free result is returned without retrying.
func (f *Fetcher) Fetch(ctx context.Context, videoID string) ([]Segment, error) {
	attempts := f.policy.attempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.observer.Attempt != nil {
			f.observer.Attempt(videoID, attempt)
		}

		segs, err := f.attempt(ctx, videoID)
		if err == nil {
			return segs, nil
		}
		lastErr = err
		if f.observer.Failure != nil {
			f.observer.Failure(videoID, attempt, err)
		}
		if errors.Is(err, ErrTimeout) && f.observer.Timeout != nil {
			f.observer.Timeout(videoID)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == attempts {
			break
		}

		wait := f.policy.delay(attempt)
		slog.Debug("transcript: retrying",
			slog.String("id", videoID),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.Any("error", err))
		if wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

type attemptResult struct {
	segs []Segment
	err  error
}

// attempt races one pass over the language options against Policy.Timeout.
// Each attempt gets a fresh Memoize scope.
func (f *Fetcher) attempt(ctx context.Context, videoID string) ([]Segment, error) {
	if f.policy.Timeout <= 0 {
		return f.tryLanguages(withAttemptScope(ctx), videoID)
	}

	actx, cancel := context.WithTimeout(withAttemptScope(ctx), f.policy.Timeout)
	defer cancel()

	done := make(chan attemptResult, 1)
	go func() {
		segs, err := f.tryLanguages(actx, videoID)
		done <- attemptResult{segs: segs, err: err}
	}()

	select {
	case r := <-done:
		return f.settle(ctx, r)
	case <-actx.Done():
		// A result that raced the deadline still counts.
		select {
		case r := <-done:
			return f.settle(ctx, r)
		default:
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w after %s", ErrTimeout, f.policy.Timeout)
	}
}

// settle turns a finished attempt into its outcome. Only errors caused by the
// attempt deadline become ErrTimeout; provider errors keep their identity.
func (f *Fetcher) settle(ctx context.Context, r attemptResult) ([]Segment, error) {
	if r.err != nil && ctx.Err() == nil && errors.Is(r.err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s: %v", ErrTimeout, f.policy.Timeout, r.err)
	}
	return r.segs, r.err
}

func (f *Fetcher) tryLanguages(ctx context.Context, videoID string) ([]Segment, error) {
	var lastErr error
	for _, lang := range f.languages {
		segs, err := f.fetchOne(ctx, videoID, lang)
		if err != nil {
			lastErr = err
			slog.Debug("transcript: language option failed",
				slog.String("id", videoID),
				slog.String("lang", lang),
				slog.Any("error", err))
			if ctx.Err() != nil {
				return nil, err
			}
			continue
		}
		if len(segs) > 0 {
			return segs, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}

// fetchOne calls the provider, turning a panic into an error.
func (f *Fetcher) fetchOne(ctx context.Context, videoID, lang string) (segs []Segment, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transcript provider panic: %v", r)
		}
	}()
	return f.provider.FetchTranscript(ctx, videoID, lang)
}

// Prefer returns a copy of f that tries lang before the configured options.
// An empty lang returns f unchanged.
func (f *Fetcher) Prefer(lang string) *Fetcher {
	if lang == "" {
		return f
	}
	if lang == AnyLanguage {
		lang = ""
	}
	langs := []string{lang}
	for _, l := range f.languages {
		if l != lang {
			langs = append(langs, l)
		}
	}
	cp := *f
	cp.languages = langs
	return &cp
}
