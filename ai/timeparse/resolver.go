// Package timeparse resolves time expressions produced by the model or the
// user into concrete local timestamps.
package timeparse

import (
	"log/slog"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Layouts accepted by the structured parse, tried in order. Zoneless layouts
// are interpreted in the resolver's location.
var structuredLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Resolver turns a free-form time expression into a timestamp. Strategies
// are tried in order and the first match wins; resolution never fails, the
// last strategy is an unconditional 24h fallback.
type Resolver struct {
	loc    *time.Location
	parser *when.Parser
}

func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Resolver{loc: loc, parser: w}
}

// Resolve parses expr relative to ref. ref is localized to the resolver's
// zone first so day boundaries line up with the user's clock.
func (r *Resolver) Resolve(expr string, ref time.Time) time.Time {
	expr = strings.TrimSpace(expr)
	ref = ref.In(r.loc)

	if t, ok := r.parseStructured(expr); ok {
		return t
	}
	if t, ok := r.parseNatural(expr, ref); ok {
		return t
	}
	if t, ok := r.parseAlias(expr, ref); ok {
		return t
	}

	slog.Warn("time expression unresolved, falling back to 24h", "expr", expr)
	return ref.Add(24 * time.Hour)
}

func (r *Resolver) parseStructured(expr string) (time.Time, bool) {
	for _, layout := range structuredLayouts {
		if t, err := time.ParseInLocation(layout, expr, r.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNatural handles phrases like "in 10 minutes", "tomorrow at 5pm",
// "friday evening". A match that lands in the past is a time-of-day phrase
// said after that time today, so it rolls forward one day.
func (r *Resolver) parseNatural(expr string, ref time.Time) (time.Time, bool) {
	result, err := r.parser.Parse(expr, ref)
	if err != nil || result == nil {
		return time.Time{}, false
	}
	t := result.Time.In(r.loc)
	if t.Before(ref) {
		t = t.Add(24 * time.Hour)
	}
	return t, true
}

// parseAlias resolves the fixed alias vocabulary carried over from earlier
// model prompts. Kept so old prompt outputs keep resolving.
func (r *Resolver) parseAlias(expr string, ref time.Time) (time.Time, bool) {
	switch strings.ToLower(expr) {
	case "tomorrow_morning":
		return nextClock(ref, 9), true
	case "tomorrow_evening":
		return nextClock(ref, 19), true
	case "in_24h":
		return ref.Add(24 * time.Hour), true
	case "in_few_days":
		return ref.Add(3 * 24 * time.Hour), true
	case "next_week":
		return ref.Add(7 * 24 * time.Hour), true
	}
	return time.Time{}, false
}

// nextClock returns the next occurrence of hour:00 strictly after ref.
func nextClock(ref time.Time, hour int) time.Time {
	t := time.Date(ref.Year(), ref.Month(), ref.Day(), hour, 0, 0, 0, ref.Location())
	if !t.After(ref) {
		t = t.Add(24 * time.Hour)
	}
	return t
}
