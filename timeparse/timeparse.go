// Package timeparse resolves flexible time expressions into absolute UTC
// instants. Expressions are either "now"/"now()", a relative offset like
// "-15m", "-24h" or "-7d", or an ISO 8601 timestamp. Parsing is pure: the
// clock is injected so callers and tests control the anchor.
package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/influxgate/influxgate/gateerr"
)

var relativePattern = regexp.MustCompile(`^-(\d+)([mhd])$`)

// Layouts tried for absolute timestamps. Layouts without a zone are
// interpreted as UTC.
var absoluteLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseRange resolves a (start, stop) expression pair. The stop expression
// resolves first against now; a relative start is then anchored to the
// resolved stop, so "-1h" before an absolute stop means one hour before that
// stop, not one hour before the wall clock. start <= stop is not enforced
// here.
func ParseRange(start, stop string, now func() time.Time) (time.Time, time.Time, error) {
	if now == nil {
		now = time.Now
	}
	if stop == "" {
		stop = "now"
	}
	stopAt, err := parseExpression(stop, time.Time{}, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	startAt, err := parseExpression(start, stopAt, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return startAt, stopAt, nil
}

// ParseInstant resolves a single expression; relative offsets are anchored
// to now.
func ParseInstant(s string, now func() time.Time) (time.Time, error) {
	if now == nil {
		now = time.Now
	}
	return parseExpression(s, time.Time{}, now)
}

func parseExpression(s string, anchor time.Time, now func() time.Time) (time.Time, error) {
	if strings.EqualFold(s, "now") || strings.EqualFold(s, "now()") {
		return now().UTC(), nil
	}
	if m := relativePattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, gateerr.New(gateerr.InvalidTimeFormat, "invalid time format %q: offset out of range", s)
		}
		var unit time.Duration
		switch m[2] {
		case "m":
			unit = time.Minute
		case "h":
			unit = time.Hour
		case "d":
			unit = 24 * time.Hour
		}
		base := anchor
		if base.IsZero() {
			base = now().UTC()
		}
		return base.Add(-time.Duration(n) * unit), nil
	}
	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, gateerr.New(gateerr.InvalidTimeFormat,
		"invalid time format %q: must be ISO 8601 or relative like -7d", s)
}
