// Package client abstracts the two InfluxDB dialects behind one capability
// interface. The variant is selected once at process startup, either
// explicitly or by probing the backend's well-known liveness endpoints, and
// every call site afterwards depends only on the Client interface.
package client

import (
	"context"
	"time"

	influx1 "github.com/influxdata/influxdb1-client/v2"
)

// Container kinds.
const (
	KindBucket   = "bucket"
	KindDatabase = "database"
)

// ContainerInfo describes a top-level data scope: a 2.x bucket, or a 1.x
// database optionally qualified with a retention policy ("db/rp").
type ContainerInfo struct {
	Name            string `json:"name"`
	Kind            string `json:"kind"`
	RetentionPolicy string `json:"retention_policy,omitempty"`
}

// WritePoint is a dialect-neutral single-point write request. SubScope is
// the retention policy and only meaningful for 1.x.
type WritePoint struct {
	Container   string
	SubScope    string
	Measurement string
	Tags        map[string]string
	Fields      map[string]interface{}
	Time        time.Time
}

// FluxRecord is one record of a 2.x query result after the stream has been
// drained. Values carries every column of the record, tags included.
type FluxRecord struct {
	Time   time.Time
	Value  interface{}
	Field  string
	Values map[string]interface{}
}

// FluxTable groups records the way the 2.x backend returned them; table
// order is preserved.
type FluxTable struct {
	Records []FluxRecord
}

// Result is the dialect-native query payload handed to the result
// normalizer. Exactly one of V1 and Tables is populated.
type Result struct {
	V1     []influx1.Result
	Tables []FluxTable
}

// Client is the capability interface over the two backend dialects. The
// shared process-wide instance must tolerate concurrent use; both concrete
// implementations delegate to thread-safe HTTP clients.
type Client interface {
	// Version reports "1", "2", or "none" for the failed-state client.
	Version() string
	// Ping never returns an error; connectivity failures are logged and
	// reported as false.
	Ping(ctx context.Context) bool
	ListContainers(ctx context.Context) ([]ContainerInfo, error)
	// Query executes a read query. database is only consulted by the 1.x
	// dialect; 2.x queries name their bucket in the query text.
	Query(ctx context.Context, query string, database string) (*Result, error)
	// Write performs a best-effort synchronous single-point write.
	Write(ctx context.Context, point WritePoint) error
	// Close releases the backend connection; idempotent.
	Close() error
}
