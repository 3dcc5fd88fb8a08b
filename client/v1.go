package client

import (
	"context"
	"fmt"
	"time"

	_ "github.com/influxdata/influxdb1-client" // this is important because of the bug in go mod
	influx1 "github.com/influxdata/influxdb1-client/v2"
	"github.com/rs/zerolog/log"

	"github.com/influxgate/influxgate/config"
	"github.com/influxgate/influxgate/gateerr"
	"github.com/influxgate/influxgate/querybuild"
)

// V1Client speaks InfluxQL against InfluxDB 1.x.
type V1Client struct {
	conn    influx1.Client
	timeout time.Duration
}

var _ Client = (*V1Client)(nil)

// NewV1Client builds the 1.x dialect client from settings.
func NewV1Client(cfg config.Settings) (*V1Client, error) {
	conn, err := influx1.NewHTTPClient(influx1.HTTPConfig{
		Addr:     cfg.URL,
		Username: cfg.Username,
		Password: cfg.Password.Value(),
		Timeout:  cfg.RequestTimeout(),
	})
	if err != nil {
		return nil, gateerr.Wrap(gateerr.ConnectionFailure, err, "create InfluxDB 1.x client")
	}
	log.Info().Str("url", cfg.URL).Msg("initialized InfluxDB 1.x client")
	return &V1Client{conn: conn, timeout: cfg.RequestTimeout()}, nil
}

// newV1FromConn is the seam used by tests to inject a fake connection.
func newV1FromConn(conn influx1.Client, timeout time.Duration) *V1Client {
	return &V1Client{conn: conn, timeout: timeout}
}

func (receiver *V1Client) Version() string {
	return "1"
}

func (receiver *V1Client) Ping(ctx context.Context) bool {
	if _, _, err := receiver.conn.Ping(receiver.timeout); err != nil {
		log.Warn().Err(err).Msg("failed to ping InfluxDB 1.x")
		return false
	}
	return true
}

// ListContainers enumerates databases and expands each one into its
// retention policies: one entry named "db/rp" per policy, or a single "db"
// entry when the database has none.
func (receiver *V1Client) ListContainers(ctx context.Context) ([]ContainerInfo, error) {
	results, err := receiver.run(querybuild.ShowDatabases(), "")
	if err != nil {
		return nil, err
	}
	out := make([]ContainerInfo, 0)
	for _, db := range singleColumn(results, "name") {
		policies, err := receiver.retentionPolicies(db)
		if err != nil {
			return nil, err
		}
		if len(policies) == 0 {
			out = append(out, ContainerInfo{Name: db, Kind: KindDatabase})
			continue
		}
		for _, rp := range policies {
			out = append(out, ContainerInfo{
				Name:            db + "/" + rp.name,
				Kind:            KindDatabase,
				RetentionPolicy: rp.retention,
			})
		}
	}
	return out, nil
}

type retentionPolicy struct {
	name      string
	retention string
}

func (receiver *V1Client) retentionPolicies(database string) ([]retentionPolicy, error) {
	results, err := receiver.run(querybuild.ShowRetentionPolicies(database), "")
	if err != nil {
		return nil, err
	}
	var out []retentionPolicy
	for _, result := range results {
		for _, row := range result.Series {
			nameIdx := columnIndex(row.Columns, "name")
			durationIdx := columnIndex(row.Columns, "duration")
			replicaIdx := columnIndex(row.Columns, "replicaN")
			if nameIdx < 0 {
				continue
			}
			for _, vals := range row.Values {
				if nameIdx >= len(vals) {
					continue
				}
				rp := retentionPolicy{name: cellString(vals[nameIdx])}
				if durationIdx >= 0 && replicaIdx >= 0 && durationIdx < len(vals) && replicaIdx < len(vals) {
					rp.retention = cellString(vals[durationIdx]) + "/" + cellString(vals[replicaIdx])
				}
				out = append(out, rp)
			}
		}
	}
	return out, nil
}

func (receiver *V1Client) Query(ctx context.Context, query, database string) (*Result, error) {
	results, err := receiver.run(query, database)
	if err != nil {
		return nil, err
	}
	return &Result{V1: results}, nil
}

// Write sends the point through a batch of one.
func (receiver *V1Client) Write(ctx context.Context, point WritePoint) error {
	bp, err := influx1.NewBatchPoints(influx1.BatchPointsConfig{
		Database:        point.Container,
		RetentionPolicy: point.SubScope,
	})
	if err != nil {
		return gateerr.Wrap(gateerr.UnexpectedBackend, err, "build batch points")
	}
	var pt *influx1.Point
	if point.Time.IsZero() {
		pt, err = influx1.NewPoint(point.Measurement, point.Tags, point.Fields)
	} else {
		pt, err = influx1.NewPoint(point.Measurement, point.Tags, point.Fields, point.Time)
	}
	if err != nil {
		return gateerr.Wrap(gateerr.UnexpectedBackend, err, "build point")
	}
	bp.AddPoint(pt)
	if err := receiver.conn.Write(bp); err != nil {
		return gateerr.Wrap(gateerr.ConnectionFailure, err, "write point to InfluxDB 1.x")
	}
	return nil
}

func (receiver *V1Client) Close() error {
	return receiver.conn.Close()
}

func (receiver *V1Client) run(query, database string) ([]influx1.Result, error) {
	resp, err := receiver.conn.Query(influx1.NewQuery(query, database, ""))
	if err != nil {
		return nil, gateerr.Wrap(gateerr.ConnectionFailure, err, "query InfluxDB 1.x")
	}
	if err := resp.Error(); err != nil {
		return nil, gateerr.Wrap(gateerr.UnexpectedBackend, err, "InfluxDB 1.x reported an error")
	}
	return resp.Results, nil
}

// singleColumn extracts one named column from every row of every series.
func singleColumn(results []influx1.Result, column string) []string {
	var out []string
	for _, result := range results {
		for _, row := range result.Series {
			idx := columnIndex(row.Columns, column)
			if idx < 0 {
				continue
			}
			for _, vals := range row.Values {
				if idx < len(vals) {
					out = append(out, cellString(vals[idx]))
				}
			}
		}
	}
	return out
}

func columnIndex(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}

// cellString renders a result cell; the 1.x client decodes numbers as
// json.Number, which stringifies cleanly through %v.
func cellString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
