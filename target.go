package influxgate

import "strings"

// Target is a parsed container specifier. The raw form is "container" or
// "container/subscope"; the sub-scope is a 1.x retention policy and is
// ignored by the 2.x dialect. Parsed once per request, immutable afterwards.
type Target struct {
	Container string
	SubScope  string
}

// ParseTarget splits the raw specifier on the first "/".
func ParseTarget(raw string) Target {
	if i := strings.Index(raw, "/"); i >= 0 {
		return Target{Container: raw[:i], SubScope: raw[i+1:]}
	}
	return Target{Container: raw}
}
