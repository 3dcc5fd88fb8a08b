package querybuild

import (
	"fmt"
	"strings"
	"time"
)

// Schema exploration in Flux is bounded to fixed lookback windows so the
// backend never scans unbounded history for introspection calls.
const (
	fluxFieldLookback = "-365d"
	fluxTagLookback   = "-30d"
)

// FluxPipeline builds a Flux query as an ordered stage list. Optional stages
// append nothing when skipped, so the rendered pipeline never ends in a
// dangling connector. Stage order is significant: filters must precede
// aggregation and limit must follow it, which the builder methods encode by
// appending in call order.
type FluxPipeline struct {
	bucket  string
	imports []string
	stages  []string
}

func NewFluxPipeline(bucket string) *FluxPipeline {
	return &FluxPipeline{bucket: bucket}
}

func (p *FluxPipeline) addImport(name string) {
	for _, im := range p.imports {
		if im == name {
			return
		}
	}
	p.imports = append(p.imports, name)
}

func (p *FluxPipeline) stage(format string, args ...interface{}) *FluxPipeline {
	p.stages = append(p.stages, fmt.Sprintf(format, args...))
	return p
}

// Range bounds the pipeline to absolute instants, both inclusive.
func (p *FluxPipeline) Range(start, stop time.Time) *FluxPipeline {
	return p.stage("range(start: %s, stop: %s)", formatInstant(start), formatInstant(stop))
}

// RangeLookback bounds the pipeline to a relative lookback such as "-365d".
func (p *FluxPipeline) RangeLookback(lookback string) *FluxPipeline {
	return p.stage("range(start: %s)", lookback)
}

func (p *FluxPipeline) FilterMeasurement(measurement string) *FluxPipeline {
	return p.stage(`filter(fn: (r) => r["_measurement"] == "%s")`, measurement)
}

// FilterField is skipped when field is empty (unfiltered-by-field queries).
func (p *FluxPipeline) FilterField(field string) *FluxPipeline {
	if field == "" {
		return p
	}
	return p.stage(`filter(fn: (r) => r["_field"] == "%s")`, field)
}

// FilterTags emits a single conjunctive filter over all tag equalities, in
// deterministic key order. Skipped when the tag set is empty.
func (p *FluxPipeline) FilterTags(tags map[string]string) *FluxPipeline {
	if len(tags) == 0 {
		return p
	}
	conds := make([]string, 0, len(tags))
	for _, k := range sortedKeys(tags) {
		conds = append(conds, fmt.Sprintf(`r["%s"] == "%s"`, k, tags[k]))
	}
	return p.stage("filter(fn: (r) => %s)", strings.Join(conds, " and "))
}

// AggregateWindow emits the downsampling stage, only when both the function
// and the window are given. The fill policy becomes a trailing stage:
// fill(usePrevious: true) for previous, an interpolate.linear stage for
// linear. createEmpty tracks whether empty windows must materialize for the
// fill stage to act on.
func (p *FluxPipeline) AggregateWindow(every, fn string, fill FillPolicy) *FluxPipeline {
	if every == "" || fn == "" {
		return p
	}
	createEmpty := "false"
	if fill == FillPrevious || fill == FillLinear {
		createEmpty = "true"
	}
	p.stage("aggregateWindow(every: %s, fn: %s, createEmpty: %s)", every, fn, createEmpty)
	switch fill {
	case FillPrevious:
		p.stage("fill(usePrevious: true)")
	case FillLinear:
		p.addImport("interpolate")
		p.stage("interpolate.linear(every: %s)", every)
	}
	return p
}

// Last keeps only the most recent record per series.
func (p *FluxPipeline) Last() *FluxPipeline {
	return p.stage("last()")
}

func (p *FluxPipeline) Limit(n int) *FluxPipeline {
	if n <= 0 {
		return p
	}
	return p.stage("limit(n: %d)", n)
}

func (p *FluxPipeline) Yield(name string) *FluxPipeline {
	return p.stage(`yield(name: "%s")`, name)
}

// Render emits the final query text.
func (p *FluxPipeline) Render() string {
	var sb strings.Builder
	for _, im := range p.imports {
		fmt.Fprintf(&sb, "import %q\n", im)
	}
	fmt.Fprintf(&sb, `from(bucket: "%s")`, p.bucket)
	for _, st := range p.stages {
		sb.WriteString("\n  |> ")
		sb.WriteString(st)
	}
	return sb.String()
}

// Schema introspection pipelines.

func FluxMeasurements(bucket string) string {
	return fmt.Sprintf("import \"influxdata/influxdb/schema\"\nschema.measurements(bucket: %q)", bucket)
}

func FluxFieldKeys(bucket, measurement string) string {
	return fmt.Sprintf(
		"import \"influxdata/influxdb/schema\"\nschema.measurementFieldKeys(bucket: %q, measurement: %q, start: %s)",
		bucket, measurement, fluxFieldLookback)
}

func FluxTagKeys(bucket, measurement string) string {
	return fmt.Sprintf(
		"import \"influxdata/influxdb/schema\"\nschema.measurementTagKeys(bucket: %q, measurement: %q, start: %s)",
		bucket, measurement, fluxTagLookback)
}

func FluxTagValues(bucket, measurement, key string) string {
	return fmt.Sprintf(
		"import \"influxdata/influxdb/schema\"\nschema.measurementTagValues(bucket: %q, measurement: %q, tag: %q, start: %s)",
		bucket, measurement, key, fluxTagLookback)
}
