package client

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/rs/zerolog/log"

	"github.com/influxgate/influxgate/config"
	"github.com/influxgate/influxgate/gateerr"
)

// V2Client speaks Flux against InfluxDB 2.x.
type V2Client struct {
	conn influxdb2.Client
	org  string
}

var _ Client = (*V2Client)(nil)

// NewV2Client builds the 2.x dialect client from settings.
func NewV2Client(cfg config.Settings) *V2Client {
	opts := influxdb2.DefaultOptions().SetHTTPRequestTimeout(uint(cfg.RequestTimeoutSec))
	conn := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token.Value(), opts)
	log.Info().Str("url", cfg.URL).Str("org", cfg.Org).Msg("initialized InfluxDB 2.x client")
	return &V2Client{conn: conn, org: cfg.Org}
}

func (receiver *V2Client) Version() string {
	return "2"
}

func (receiver *V2Client) Ping(ctx context.Context) bool {
	ok, err := receiver.conn.Ping(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to ping InfluxDB 2.x")
		return false
	}
	return ok
}

func (receiver *V2Client) ListContainers(ctx context.Context) ([]ContainerInfo, error) {
	buckets, err := receiver.conn.BucketsAPI().GetBuckets(ctx)
	if err != nil {
		return nil, gateerr.Wrap(gateerr.ConnectionFailure, err, "list buckets")
	}
	out := make([]ContainerInfo, 0, len(*buckets))
	for _, b := range *buckets {
		out = append(out, ContainerInfo{Name: b.Name, Kind: KindBucket})
	}
	return out, nil
}

// Query executes the Flux query and drains the streaming result into
// FluxTables so the normalizer works on plain values.
func (receiver *V2Client) Query(ctx context.Context, query, database string) (*Result, error) {
	stream, err := receiver.conn.QueryAPI(receiver.org).Query(ctx, query)
	if err != nil {
		return nil, gateerr.Wrap(gateerr.ConnectionFailure, err, "query InfluxDB 2.x")
	}
	var tables []FluxTable
	for stream.Next() {
		if stream.TableChanged() || len(tables) == 0 {
			tables = append(tables, FluxTable{})
		}
		rec := stream.Record()
		last := &tables[len(tables)-1]
		last.Records = append(last.Records, FluxRecord{
			Time:   rec.Time(),
			Value:  rec.Value(),
			Field:  rec.Field(),
			Values: rec.Values(),
		})
	}
	if err := stream.Err(); err != nil {
		return nil, gateerr.Wrap(gateerr.UnexpectedBackend, err, "InfluxDB 2.x reported an error")
	}
	return &Result{Tables: tables}, nil
}

// Write performs an immediate synchronous write through the blocking API.
func (receiver *V2Client) Write(ctx context.Context, point WritePoint) error {
	ts := point.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	p := influxdb2.NewPoint(point.Measurement, point.Tags, point.Fields, ts)
	if err := receiver.conn.WriteAPIBlocking(receiver.org, point.Container).WritePoint(ctx, p); err != nil {
		return gateerr.Wrap(gateerr.ConnectionFailure, err, "write point to InfluxDB 2.x")
	}
	return nil
}

func (receiver *V2Client) Close() error {
	receiver.conn.Close()
	return nil
}
