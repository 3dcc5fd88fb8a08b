// Package influxgate exposes time-series operations (schema discovery,
// ranged queries, last-point reads, single-point writes) over either
// InfluxDB dialect through one adaptor facade. The facade parses the
// caller's loose request shape, resolves the target and time range, builds
// the dialect-specific query, and normalizes the result into the canonical
// response shape.
package influxgate

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/influxgate/influxgate/client"
	"github.com/influxgate/influxgate/gateerr"
	"github.com/influxgate/influxgate/querybuild"
	"github.com/influxgate/influxgate/timeparse"
)

const (
	// DefaultLimit caps result size when the caller does not ask for one;
	// MaxLimit is the hard ceiling.
	DefaultLimit = 1000
	MaxLimit     = 50000

	// lastPointLookback bounds how far back a 2.x last-point query scans.
	lastPointLookback = "-365d"
	// tagValueLimit truncates each tag key's observed-value sample.
	tagValueLimit = 100
)

// Adaptor is the single entry point for tool operations. One instance is
// shared across concurrent requests; all per-request state is local.
type Adaptor struct {
	client client.Client
	now    func() time.Time
}

// NewAdaptor wraps the process-wide dialect client.
func NewAdaptor(c client.Client) *Adaptor {
	return &Adaptor{client: c, now: time.Now}
}

func (receiver *Adaptor) dialectB() bool {
	return receiver.client.Version() == "2"
}

// BackendVersion reports the dialect in use: "1", "2", or "none" when the
// client failed to initialize.
func (receiver *Adaptor) BackendVersion() string {
	return receiver.client.Version()
}

// Healthy pings the backend.
func (receiver *Adaptor) Healthy(ctx context.Context) bool {
	return receiver.client.Ping(ctx)
}

// ListContainers enumerates buckets or database/retention-policy pairs.
func (receiver *Adaptor) ListContainers(ctx context.Context) ([]client.ContainerInfo, error) {
	out, err := receiver.client.ListContainers(ctx)
	if err != nil {
		return nil, gateerr.WithOp(err, "list_containers")
	}
	return out, nil
}

// ListMeasurements enumerates measurements within the target container.
func (receiver *Adaptor) ListMeasurements(ctx context.Context, target string) ([]MeasurementInfo, error) {
	const op = "list_measurements"
	t := ParseTarget(target)
	var text, column string
	if receiver.dialectB() {
		text = querybuild.FluxMeasurements(t.Container)
	} else {
		text, column = querybuild.ShowMeasurements(), "name"
	}
	res, err := receiver.client.Query(ctx, text, t.Container)
	if err != nil {
		return nil, gateerr.WithOp(err, op)
	}
	out := make([]MeasurementInfo, 0)
	for _, name := range schemaValues(res, column) {
		out = append(out, MeasurementInfo{Name: name})
	}
	return out, nil
}

// ListFields enumerates field keys of a measurement, with types when the
// dialect reports them.
func (receiver *Adaptor) ListFields(ctx context.Context, target, measurement string) ([]FieldInfo, error) {
	const op = "list_fields"
	t := ParseTarget(target)
	var text string
	if receiver.dialectB() {
		text = querybuild.FluxFieldKeys(t.Container, measurement)
	} else {
		text = querybuild.ShowFieldKeys(measurement)
	}
	res, err := receiver.client.Query(ctx, text, t.Container)
	if err != nil {
		return nil, gateerr.WithOp(err, op)
	}
	return fieldInfos(res), nil
}

// ListTags enumerates tag keys of a measurement and a bounded sample of
// each key's observed values. Value enumeration issues one extra query per
// key; tolerable for infrequent introspection, never used on the query
// hot path.
func (receiver *Adaptor) ListTags(ctx context.Context, target, measurement string) ([]TagInfo, error) {
	const op = "list_tags"
	t := ParseTarget(target)

	var keysText, keysColumn string
	if receiver.dialectB() {
		keysText = querybuild.FluxTagKeys(t.Container, measurement)
	} else {
		keysText, keysColumn = querybuild.ShowTagKeys(measurement), "tagKey"
	}
	res, err := receiver.client.Query(ctx, keysText, t.Container)
	if err != nil {
		return nil, gateerr.WithOp(err, op)
	}

	out := make([]TagInfo, 0)
	for _, key := range schemaValues(res, keysColumn) {
		var valuesText, valuesColumn string
		if receiver.dialectB() {
			valuesText = querybuild.FluxTagValues(t.Container, measurement, key)
		} else {
			valuesText, valuesColumn = querybuild.ShowTagValues(measurement, key), "value"
		}
		valuesRes, err := receiver.client.Query(ctx, valuesText, t.Container)
		if err != nil {
			return nil, gateerr.WithOp(err, op)
		}
		values := schemaValues(valuesRes, valuesColumn)
		if len(values) > tagValueLimit {
			values = values[:tagValueLimit]
		}
		out = append(out, TagInfo{Key: key, Values: values})
	}
	return out, nil
}

// QueryTimeseries runs a ranged query with optional tag filters,
// aggregation, downsampling, and fill policy.
func (receiver *Adaptor) QueryTimeseries(ctx context.Context, req TimeseriesRequest) (*TimeseriesResponse, error) {
	const op = "query_timeseries"
	if err := validateQueryParams(req.Aggregate, req.Every, req.Fill); err != nil {
		return nil, gateerr.WithOp(err, op)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	start, stop, err := timeparse.ParseRange(req.Start, req.Stop, receiver.now)
	if err != nil {
		return nil, gateerr.WithOp(err, op)
	}
	t := ParseTarget(req.Target)
	fill := querybuild.FillPolicy(req.Fill)
	if fill == "" {
		fill = querybuild.FillNone
	}

	var res *client.Result
	if receiver.dialectB() {
		text := querybuild.NewFluxPipeline(t.Container).
			Range(start, stop).
			FilterMeasurement(req.Measurement).
			FilterField(req.Field).
			FilterTags(req.Tags).
			AggregateWindow(req.Every, req.Aggregate, fill).
			Limit(limit).
			Yield("results").
			Render()
		log.Debug().Str("flux", text).Msg("executing Flux query")
		res, err = receiver.client.Query(ctx, text, "")
	} else {
		query := querybuild.InfluxQLSelect{
			Database:        t.Container,
			RetentionPolicy: t.SubScope,
			Measurement:     req.Measurement,
			Field:           req.Field,
			Aggregate:       req.Aggregate,
			Start:           start,
			Stop:            stop,
			TimeBounded:     true,
			Tags:            req.Tags,
			Window:          req.Every,
			Fill:            fill,
			Limit:           limit,
		}
		var text string
		text, err = query.Render()
		if err != nil {
			return nil, gateerr.WithOp(err, op)
		}
		log.Debug().Str("influxql", text).Msg("executing InfluxQL query")
		res, err = receiver.client.Query(ctx, text, t.Container)
	}
	if err != nil {
		return nil, gateerr.WithOp(err, op)
	}

	valueKey := req.Field
	if req.Aggregate != "" {
		valueKey = req.Aggregate
	}
	series := normalizeSeries(res, valueKey)
	return &TimeseriesResponse{
		Series: series,
		Stats: QueryStats{
			PointsReturned:     len(series),
			StartEffective:     formatInstant(start),
			StopEffective:      formatInstant(stop),
			AggregateFunction:  req.Aggregate,
			DownsampleInterval: req.Every,
		},
	}, nil
}

// LastPoint fetches the most recent point of a series. Field is optional:
// when absent the query is unfiltered by field and the normalizer picks the
// first field encountered, reporting its key back.
func (receiver *Adaptor) LastPoint(ctx context.Context, req LastPointRequest) (*LastPointResponse, error) {
	const op = "last_point"
	t := ParseTarget(req.Target)
	if receiver.dialectB() {
		text := querybuild.NewFluxPipeline(t.Container).
			RangeLookback(lastPointLookback).
			FilterMeasurement(req.Measurement).
			FilterField(req.Field).
			FilterTags(req.Tags).
			Last().
			Render()
		log.Debug().Str("flux", text).Msg("executing Flux last-point query")
		res, err := receiver.client.Query(ctx, text, "")
		if err != nil {
			return nil, gateerr.WithOp(err, op)
		}
		out, err := normalizeLastFlux(res)
		if err != nil {
			return nil, gateerr.WithOp(err, op)
		}
		return out, nil
	}

	query := querybuild.InfluxQLSelect{
		Measurement: req.Measurement,
		Field:       req.Field,
		Unqualified: true,
		Tags:        req.Tags,
		Descending:  true,
		Limit:       1,
	}
	text, err := query.Render()
	if err != nil {
		return nil, gateerr.WithOp(err, op)
	}
	log.Debug().Str("influxql", text).Msg("executing InfluxQL last-point query")
	res, err := receiver.client.Query(ctx, text, t.Container)
	if err != nil {
		return nil, gateerr.WithOp(err, op)
	}
	out, err := normalizeLastV1(res, req.Field)
	if err != nil {
		return nil, gateerr.WithOp(err, op)
	}
	return out, nil
}

// WritePoint performs a best-effort synchronous single-point write.
func (receiver *Adaptor) WritePoint(ctx context.Context, req WritePointRequest) (*WritePointResponse, error) {
	const op = "write_point"
	if len(req.Fields) == 0 {
		return nil, gateerr.WithOp(gateerr.New(gateerr.UnsupportedCombination, "write requires at least one field"), op)
	}
	t := ParseTarget(req.Target)
	var ts time.Time
	if req.Time != "" {
		var err error
		ts, err = timeparse.ParseInstant(req.Time, receiver.now)
		if err != nil {
			return nil, gateerr.WithOp(err, op)
		}
	}
	err := receiver.client.Write(ctx, client.WritePoint{
		Container:   t.Container,
		SubScope:    t.SubScope,
		Measurement: req.Measurement,
		Tags:        req.Tags,
		Fields:      req.Fields,
		Time:        ts,
	})
	if err != nil {
		return nil, gateerr.WithOp(err, op)
	}
	return &WritePointResponse{OK: true, Written: 1}, nil
}

// WindowStats is a shortcut over QueryTimeseries: it resolves the trailing
// window to a range and reports count plus best-effort mean/min/max/last
// aggregates. A failed optional aggregate yields null for that statistic; a
// failed count fails the call.
func (receiver *Adaptor) WindowStats(ctx context.Context, req WindowStatsRequest) (*WindowStatsResponse, error) {
	const op = "window_stats"
	start, stop, err := timeparse.ParseRange(req.Window, "now", receiver.now)
	if err != nil {
		return nil, gateerr.WithOp(err, op)
	}
	base := TimeseriesRequest{
		Target:      req.Target,
		Measurement: req.Measurement,
		Field:       req.Field,
		Start:       formatInstant(start),
		Stop:        formatInstant(stop),
		Tags:        req.Tags,
		Every:       strings.TrimPrefix(req.Window, "-"),
	}

	aggregate := func(fn string) interface{} {
		r := base
		r.Aggregate = fn
		resp, err := receiver.QueryTimeseries(ctx, r)
		if err != nil || len(resp.Series) == 0 {
			return nil
		}
		return resp.Series[0].Value
	}

	countReq := base
	countReq.Aggregate = "count"
	countResp, err := receiver.QueryTimeseries(ctx, countReq)
	if err != nil {
		return nil, gateerr.WithOp(err, op)
	}
	var count interface{} = 0
	if len(countResp.Series) > 0 {
		count = countResp.Series[0].Value
	}

	return &WindowStatsResponse{
		Mean:  aggregate("mean"),
		Min:   aggregate("min"),
		Max:   aggregate("max"),
		Last:  aggregate("last"),
		Count: count,
		Start: formatInstant(start),
		Stop:  formatInstant(stop),
	}, nil
}

func validateQueryParams(aggregate, every, fill string) error {
	if aggregate != "" && !querybuild.ValidAggregate(aggregate) {
		return gateerr.New(gateerr.UnsupportedCombination, "unsupported aggregate function %q", aggregate)
	}
	if every != "" {
		if aggregate == "" {
			return gateerr.New(gateerr.UnsupportedCombination, "downsample interval %q requires an aggregate function", every)
		}
		if err := querybuild.ValidateWindow(every); err != nil {
			return err
		}
	}
	if fill != "" && !querybuild.ValidFill(querybuild.FillPolicy(fill)) {
		return gateerr.New(gateerr.UnsupportedCombination, "unsupported fill policy %q", fill)
	}
	return nil
}
