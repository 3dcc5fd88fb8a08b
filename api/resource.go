package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/influxgate/influxgate"
	"github.com/influxgate/influxgate/gateerr"
)

// resourcePointPreview caps how many points the text rendering lists before
// deferring to the JSON tail.
const resourcePointPreview = 20

// reservedResourceParams are query parameters with dedicated meaning; every
// other parameter is treated as a tag filter.
var reservedResourceParams = map[string]bool{
	"field":     true,
	"start":     true,
	"stop":      true,
	"aggregate": true,
	"every":     true,
	"fill":      true,
	"limit":     true,
}

// handleResource renders a timeseries query as readable text. It exists for
// clients that surface resources as plain documents rather than tool output.
func (receiver *Server) handleResource(w http.ResponseWriter, req *http.Request) {
	const op = "resource"
	q := req.URL.Query()
	field := q.Get("field")
	if field == "" {
		requestsTotal.WithLabelValues(op, "error").Inc()
		http.Error(w, "missing required query parameter: field", http.StatusBadRequest)
		return
	}
	start := q.Get("start")
	if start == "" {
		start = "-1h"
	}
	stop := q.Get("stop")
	if stop == "" {
		stop = "now()"
	}
	var limit int
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			requestsTotal.WithLabelValues(op, "error").Inc()
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	tags := map[string]string{}
	for key, values := range q {
		if reservedResourceParams[key] || len(values) == 0 {
			continue
		}
		tags[key] = values[0]
	}

	in := influxgate.TimeseriesRequest{
		Target:      chi.URLParam(req, "target"),
		Measurement: chi.URLParam(req, "measurement"),
		Field:       field,
		Start:       start,
		Stop:        stop,
		Tags:        tags,
		Aggregate:   q.Get("aggregate"),
		Every:       q.Get("every"),
		Fill:        q.Get("fill"),
		Limit:       limit,
	}
	out, err := receiver.service.QueryTimeseries(req.Context(), in)
	if err != nil {
		requestsTotal.WithLabelValues(op, "error").Inc()
		http.Error(w, err.Error(), statusForKind(gateerr.KindOf(err)))
		return
	}
	requestsTotal.WithLabelValues(op, "ok").Inc()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(renderResource(in, out)))
}

func renderResource(in influxgate.TimeseriesRequest, out *influxgate.TimeseriesResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Time series data for %q (field %q) in %q\n", in.Measurement, in.Field, in.Target)
	fmt.Fprintf(&b, "Range: %s to %s\n", out.Stats.StartEffective, out.Stats.StopEffective)
	fmt.Fprintf(&b, "Points returned: %d\n\n", out.Stats.PointsReturned)

	preview := out.Series
	if len(preview) > resourcePointPreview {
		preview = preview[:resourcePointPreview]
	}
	for _, p := range preview {
		fmt.Fprintf(&b, "%s  %v\n", p.Time, p.Value)
	}
	if remaining := len(out.Series) - len(preview); remaining > 0 {
		fmt.Fprintf(&b, "... and %d more points\n", remaining)
	}

	b.WriteString("\nFull JSON:\n")
	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		b.WriteString("(unrenderable)\n")
		return b.String()
	}
	b.Write(raw)
	b.WriteString("\n")
	return b.String()
}
