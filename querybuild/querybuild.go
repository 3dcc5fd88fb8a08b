// Package querybuild turns normalized query parameters into dialect-specific
// query text. Queries are modeled as structured clause objects (InfluxQL) or
// stage lists (Flux) and rendered to text only at the final step, so units
// can assert against the structure instead of substring matching.
//
// Builders perform no escaping beyond quoting: identifiers and values are
// expected to be pre-validated by the caller. This is a known trust boundary.
package querybuild

import (
	"time"

	"github.com/influxdata/influxql"
	"golang.org/x/exp/slices"

	"github.com/influxgate/influxgate/gateerr"
)

// FillPolicy controls how missing values are handled after downsampling.
type FillPolicy string

const (
	FillNone     FillPolicy = "none"
	FillPrevious FillPolicy = "previous"
	FillLinear   FillPolicy = "linear"
)

// aggregateFunctions are the functions accepted for aggregation queries,
// common to both dialects.
var aggregateFunctions = map[string]struct{}{
	"mean":   {},
	"max":    {},
	"min":    {},
	"sum":    {},
	"count":  {},
	"median": {},
	"spread": {},
	"last":   {},
	"first":  {},
}

// ValidAggregate reports whether fn is a supported aggregation function.
func ValidAggregate(fn string) bool {
	_, ok := aggregateFunctions[fn]
	return ok
}

// ValidFill reports whether p is a known fill policy.
func ValidFill(p FillPolicy) bool {
	switch p {
	case FillNone, FillPrevious, FillLinear:
		return true
	}
	return false
}

// ValidateWindow checks a downsampling window expression such as "5m", "1h"
// or "7d".
func ValidateWindow(window string) error {
	if _, err := influxql.ParseDuration(window); err != nil {
		return gateerr.New(gateerr.InvalidTimeFormat, "invalid downsample window %q", window)
	}
	return nil
}

// formatInstant renders an instant as ISO 8601 with a UTC marker, the form
// both dialects accept in time bounds.
func formatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// sortedKeys returns map keys in a deterministic order so that building the
// same query twice yields byte-identical text.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
