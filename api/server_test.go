package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/influxgate/influxgate"
	"github.com/influxgate/influxgate/client"
	"github.com/influxgate/influxgate/gateerr"
)

// fakeService returns canned values and records the requests it saw.
type fakeService struct {
	healthy    bool
	version    string
	containers []client.ContainerInfo
	queryResp  *influxgate.TimeseriesResponse
	queryErr   error
	queryReq   influxgate.TimeseriesRequest
	lastResp   *influxgate.LastPointResponse
	lastErr    error
	writeResp  *influxgate.WritePointResponse
	writeErr   error
	statsResp  *influxgate.WindowStatsResponse
	statsErr   error
}

func (f *fakeService) BackendVersion() string              { return f.version }
func (f *fakeService) Healthy(ctx context.Context) bool    { return f.healthy }
func (f *fakeService) ListContainers(ctx context.Context) ([]client.ContainerInfo, error) {
	return f.containers, nil
}
func (f *fakeService) ListMeasurements(ctx context.Context, target string) ([]influxgate.MeasurementInfo, error) {
	return []influxgate.MeasurementInfo{{Name: "temp"}}, nil
}
func (f *fakeService) ListFields(ctx context.Context, target, measurement string) ([]influxgate.FieldInfo, error) {
	return []influxgate.FieldInfo{{Name: "value", Type: "float"}}, nil
}
func (f *fakeService) ListTags(ctx context.Context, target, measurement string) ([]influxgate.TagInfo, error) {
	return []influxgate.TagInfo{{Key: "device", Values: []string{"abc"}}}, nil
}
func (f *fakeService) QueryTimeseries(ctx context.Context, req influxgate.TimeseriesRequest) (*influxgate.TimeseriesResponse, error) {
	f.queryReq = req
	return f.queryResp, f.queryErr
}
func (f *fakeService) LastPoint(ctx context.Context, req influxgate.LastPointRequest) (*influxgate.LastPointResponse, error) {
	return f.lastResp, f.lastErr
}
func (f *fakeService) WritePoint(ctx context.Context, req influxgate.WritePointRequest) (*influxgate.WritePointResponse, error) {
	return f.writeResp, f.writeErr
}
func (f *fakeService) WindowStats(ctx context.Context, req influxgate.WindowStatsRequest) (*influxgate.WindowStatsResponse, error) {
	return f.statsResp, f.statsErr
}

func newTestServer(f *fakeService) *httptest.Server {
	return httptest.NewServer(NewServer(f, zerolog.Nop()).Handler())
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeService{healthy: true, version: "2"})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "2", body["backend"])
}

func TestHealthz_Degraded(t *testing.T) {
	srv := newTestServer(&fakeService{healthy: false, version: "none"})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestQueryEndpoint(t *testing.T) {
	fake := &fakeService{
		version: "1",
		queryResp: &influxgate.TimeseriesResponse{
			Series: []influxgate.TimeseriesPoint{{Time: "2023-06-15T11:00:00Z", Value: 21.5}},
			Stats:  influxgate.QueryStats{PointsReturned: 1},
		},
	}
	srv := newTestServer(fake)
	defer srv.Close()

	payload := `{"target":"iot-db","measurement":"temp","field":"value","start":"-1h"}`
	resp, err := http.Post(srv.URL+"/api/v1/query", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "iot-db", fake.queryReq.Target)

	var out influxgate.TimeseriesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, 1, out.Stats.PointsReturned)
}

func TestQueryEndpoint_MalformedBody(t *testing.T) {
	srv := newTestServer(&fakeService{version: "1"})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/query", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestErrorKindToStatus(t *testing.T) {
	tests := []struct {
		kind gateerr.Kind
		want int
	}{
		{gateerr.InvalidTimeFormat, http.StatusBadRequest},
		{gateerr.UnsupportedCombination, http.StatusBadRequest},
		{gateerr.NoDataFound, http.StatusNotFound},
		{gateerr.ConnectionFailure, http.StatusBadGateway},
		{gateerr.UnexpectedBackend, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			fake := &fakeService{version: "1", queryErr: gateerr.New(tt.kind, "boom")}
			srv := newTestServer(fake)
			defer srv.Close()

			payload := `{"target":"db","measurement":"m","field":"f","start":"-1h"}`
			resp, err := http.Post(srv.URL+"/api/v1/query", "application/json", strings.NewReader(payload))
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tt.want, resp.StatusCode)

			var body map[string]map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			require.Equal(t, string(tt.kind), body["error"]["kind"])
		})
	}
}

func TestResourceEndpoint(t *testing.T) {
	series := make([]influxgate.TimeseriesPoint, 25)
	for i := range series {
		series[i] = influxgate.TimeseriesPoint{Time: "2023-06-15T11:00:00Z", Value: float64(i)}
	}
	fake := &fakeService{
		version: "1",
		queryResp: &influxgate.TimeseriesResponse{
			Series: series,
			Stats: influxgate.QueryStats{
				PointsReturned: 25,
				StartEffective: "2023-06-15T11:00:00Z",
				StopEffective:  "2023-06-15T12:00:00Z",
			},
		},
	}
	srv := newTestServer(fake)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/resource/iot-db/temp?field=value&device=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(raw)
	require.Contains(t, text, `Time series data for "temp" (field "value") in "iot-db"`)
	require.Contains(t, text, "Points returned: 25")
	require.Contains(t, text, "... and 5 more points")
	require.Contains(t, text, "Full JSON:")

	// defaults applied, non-reserved param forwarded as a tag filter
	require.Equal(t, "-1h", fake.queryReq.Start)
	require.Equal(t, "now()", fake.queryReq.Stop)
	require.Equal(t, map[string]string{"device": "abc"}, fake.queryReq.Tags)
}

func TestResourceEndpoint_ForwardsLimit(t *testing.T) {
	fake := &fakeService{
		version:   "1",
		queryResp: &influxgate.TimeseriesResponse{Series: []influxgate.TimeseriesPoint{}},
	}
	srv := newTestServer(fake)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/resource/iot-db/temp?field=value&limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 5, fake.queryReq.Limit)
	require.NotContains(t, fake.queryReq.Tags, "limit")
}

func TestResourceEndpoint_RejectsMalformedLimit(t *testing.T) {
	srv := newTestServer(&fakeService{version: "1"})
	defer srv.Close()

	for _, raw := range []string{"five", "-3", "0"} {
		resp, err := http.Get(srv.URL + "/api/v1/resource/iot-db/temp?field=value&limit=" + raw)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, "limit=%s", raw)
	}
}

func TestResourceEndpoint_RequiresField(t *testing.T) {
	srv := newTestServer(&fakeService{version: "1"})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/resource/iot-db/temp")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&fakeService{healthy: true, version: "1"})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
