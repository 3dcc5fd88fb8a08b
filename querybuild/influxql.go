package querybuild

import (
	"fmt"
	"strings"
	"time"

	"github.com/influxgate/influxgate/gateerr"
)

// InfluxQLSelect is the clause-object form of an InfluxQL SELECT statement.
// Zero-valued optional clauses render nothing.
type InfluxQLSelect struct {
	Database        string
	RetentionPolicy string
	Measurement     string
	// Unqualified renders FROM "measurement" without the database qualifier;
	// used for last-point queries where the database travels out of band.
	Unqualified bool

	// Field selects a single field; empty selects all columns. Aggregate
	// wraps the field in a function call.
	Field     string
	Aggregate string

	Start, Stop time.Time
	TimeBounded bool

	Tags map[string]string

	// Window emits GROUP BY time(Window); only rendered together with an
	// aggregate function.
	Window string
	Fill   FillPolicy

	Descending bool
	Limit      int
}

// Render assembles the statement text. fill=linear is not expressible in
// InfluxQL and is rejected rather than silently degraded.
func (q InfluxQLSelect) Render() (string, error) {
	fill := q.Fill
	if fill == "" {
		fill = FillNone
	}
	if fill == FillLinear {
		return "", gateerr.New(gateerr.UnsupportedCombination,
			"fill=linear is not supported by InfluxQL; use fill=none or fill=previous")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	switch {
	case q.Aggregate != "":
		fmt.Fprintf(&sb, `%s("%s")`, q.Aggregate, q.Field)
	case q.Field == "":
		sb.WriteString("*")
	default:
		fmt.Fprintf(&sb, `"%s"`, q.Field)
	}
	sb.WriteString(" FROM ")
	sb.WriteString(q.source())

	var conds []string
	if q.TimeBounded {
		conds = append(conds, fmt.Sprintf("time >= '%s' AND time <= '%s'",
			formatInstant(q.Start), formatInstant(q.Stop)))
	}
	for _, k := range sortedKeys(q.Tags) {
		conds = append(conds, fmt.Sprintf(`"%s" = '%s'`, k, q.Tags[k]))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	if q.Aggregate != "" && q.Window != "" {
		fmt.Fprintf(&sb, " GROUP BY time(%s) fill(%s)", q.Window, fill)
	}
	if q.Descending {
		sb.WriteString(" ORDER BY time DESC")
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	return sb.String(), nil
}

// source renders the FROM clause. An empty retention policy leaves the
// middle segment empty, which the backend reads as the default policy.
func (q InfluxQLSelect) source() string {
	if q.Unqualified || q.Database == "" {
		return fmt.Sprintf(`"%s"`, q.Measurement)
	}
	if q.RetentionPolicy != "" {
		return fmt.Sprintf(`"%s"."%s"."%s"`, q.Database, q.RetentionPolicy, q.Measurement)
	}
	return fmt.Sprintf(`"%s".."%s"`, q.Database, q.Measurement)
}

// Schema introspection statements.

func ShowMeasurements() string {
	return "SHOW MEASUREMENTS"
}

func ShowFieldKeys(measurement string) string {
	return fmt.Sprintf(`SHOW FIELD KEYS FROM "%s"`, measurement)
}

func ShowTagKeys(measurement string) string {
	return fmt.Sprintf(`SHOW TAG KEYS FROM "%s"`, measurement)
}

func ShowTagValues(measurement, key string) string {
	return fmt.Sprintf(`SHOW TAG VALUES FROM "%s" WITH KEY = "%s"`, measurement, key)
}

func ShowRetentionPolicies(database string) string {
	return fmt.Sprintf(`SHOW RETENTION POLICIES ON "%s"`, database)
}

func ShowDatabases() string {
	return "SHOW DATABASES"
}
