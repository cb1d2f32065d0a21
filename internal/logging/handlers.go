package logging

import (
	"context"
	"errors"
	"log/slog"
)

// ContextProvider returns attributes describing the running simulation, such
// as the scenario name and the current tick.
type ContextProvider func() []slog.Attr

// Fanout delivers every record to each sink that is enabled for its level.
type Fanout struct {
	sinks []slog.Handler
}

// NewFanout drops nil sinks.
func NewFanout(sinks ...slog.Handler) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

func (f *Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range f.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle keeps going after a failing sink and reports all failures joined.
func (f *Fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, s := range f.sinks {
		if !s.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.derive(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (f *Fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.derive(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (f *Fanout) derive(fn func(slog.Handler) slog.Handler) *Fanout {
	out := &Fanout{sinks: make([]slog.Handler, len(f.sinks))}
	for i, s := range f.sinks {
		out.sinks[i] = fn(s)
	}
	return out
}

// simContext stamps records with the provider's attributes. A key the call
// site already set wins over the provided one.
type simContext struct {
	next     slog.Handler
	provider ContextProvider
}

func withSimContext(next slog.Handler, provider ContextProvider) slog.Handler {
	if provider == nil {
		return next
	}
	return &simContext{next: next, provider: provider}
}

func (h *simContext) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *simContext) Handle(ctx context.Context, r slog.Record) error {
	seen := make(map[string]struct{}, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		seen[a.Key] = struct{}{}
		return true
	})
	for _, a := range h.provider() {
		if _, ok := seen[a.Key]; !ok {
			r.AddAttrs(a)
		}
	}
	return h.next.Handle(ctx, r)
}

func (h *simContext) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &simContext{next: h.next.WithAttrs(attrs), provider: h.provider}
}

func (h *simContext) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &simContext{next: h.next.WithGroup(name), provider: h.provider}
}
