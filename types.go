package influxgate

import "time"

// MeasurementInfo names one measurement within a container.
type MeasurementInfo struct {
	Name string `json:"name"`
}

// FieldInfo names one field key; Type is only available from the 1.x dialect.
type FieldInfo struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// TagInfo is a tag key together with a bounded sample of observed values.
type TagInfo struct {
	Key    string   `json:"key"`
	Values []string `json:"values"`
}

// TimeseriesRequest is the loose caller shape for a ranged query.
type TimeseriesRequest struct {
	Target      string            `json:"target"`
	Measurement string            `json:"measurement"`
	Field       string            `json:"field"`
	Start       string            `json:"start"`
	Stop        string            `json:"stop,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
	Aggregate   string            `json:"aggregate,omitempty"`
	Every       string            `json:"every,omitempty"`
	Limit       int               `json:"limit,omitempty"`
	Fill        string            `json:"fill,omitempty"`
}

// TimeseriesPoint is one timestamped value, in backend order.
type TimeseriesPoint struct {
	Time  string      `json:"time_iso"`
	Value interface{} `json:"value"`
}

// QueryStats is recomputed per response, never cached.
type QueryStats struct {
	PointsReturned     int    `json:"points_returned"`
	StartEffective     string `json:"start_effective_iso"`
	StopEffective      string `json:"stop_effective_iso"`
	AggregateFunction  string `json:"aggregate_function,omitempty"`
	DownsampleInterval string `json:"downsample_interval,omitempty"`
}

// TimeseriesResponse is the canonical ranged-query response.
type TimeseriesResponse struct {
	Series []TimeseriesPoint `json:"series"`
	Stats  QueryStats        `json:"stats"`
}

// LastPointRequest fetches the most recent point of a series; Field is
// optional.
type LastPointRequest struct {
	Target      string            `json:"target"`
	Measurement string            `json:"measurement"`
	Field       string            `json:"field,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// LastPointResponse reports the point together with the field key it came
// from, which matters when the request left the field unset.
type LastPointResponse struct {
	Time  string            `json:"time_iso"`
	Value interface{}       `json:"value"`
	Field string            `json:"field"`
	Tags  map[string]string `json:"tags"`
}

// WritePointRequest writes a single point.
type WritePointRequest struct {
	Target      string                 `json:"target"`
	Measurement string                 `json:"measurement"`
	Fields      map[string]interface{} `json:"fields"`
	Tags        map[string]string      `json:"tags,omitempty"`
	Time        string                 `json:"time_iso,omitempty"`
}

type WritePointResponse struct {
	OK      bool `json:"ok"`
	Written int  `json:"written"`
}

// WindowStatsRequest asks for aggregate statistics over a trailing window
// such as "-24h".
type WindowStatsRequest struct {
	Target      string            `json:"target"`
	Measurement string            `json:"measurement"`
	Field       string            `json:"field"`
	Window      string            `json:"window"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// WindowStatsResponse carries best-effort aggregates; a statistic that could
// not be computed is null.
type WindowStatsResponse struct {
	Mean  interface{} `json:"mean"`
	Min   interface{} `json:"min"`
	Max   interface{} `json:"max"`
	Last  interface{} `json:"last"`
	Count interface{} `json:"count"`
	Start string      `json:"start_iso"`
	Stop  string      `json:"stop_iso"`
}

func formatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
