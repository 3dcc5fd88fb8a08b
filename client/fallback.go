package client

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/influxgate/influxgate/gateerr"
)

// failedClient stands in when initialization or dialect detection failed.
// It has exactly one state: every call errors with the captured cause.
type failedClient struct {
	cause error
}

var _ Client = (*failedClient)(nil)

func (receiver *failedClient) Version() string {
	return "none"
}

func (receiver *failedClient) Ping(ctx context.Context) bool {
	log.Warn().Err(receiver.cause).Msg("ping skipped: InfluxDB client not initialized")
	return false
}

func (receiver *failedClient) err() error {
	return gateerr.Wrap(gateerr.ConnectionFailure, receiver.cause, "InfluxDB client not initialized")
}

func (receiver *failedClient) ListContainers(ctx context.Context) ([]ContainerInfo, error) {
	return nil, receiver.err()
}

func (receiver *failedClient) Query(ctx context.Context, query, database string) (*Result, error) {
	return nil, receiver.err()
}

func (receiver *failedClient) Write(ctx context.Context, point WritePoint) error {
	return receiver.err()
}

func (receiver *failedClient) Close() error {
	return nil
}
