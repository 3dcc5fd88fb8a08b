package influxgate

import (
	"testing"
	"time"

	influx1 "github.com/influxdata/influxdb1-client/v2"
	"github.com/influxdata/influxdb1-client/models"
	"github.com/stretchr/testify/require"

	"github.com/influxgate/influxgate/client"
	"github.com/influxgate/influxgate/gateerr"
)

func TestNormalizeSeries_FluxTablesFlattenInOrder(t *testing.T) {
	res := &client.Result{Tables: []client.FluxTable{
		{Records: []client.FluxRecord{
			{Time: time.Date(2023, 6, 15, 11, 0, 0, 0, time.UTC), Value: 1.0},
			{Time: time.Date(2023, 6, 15, 11, 5, 0, 0, time.UTC), Value: 2.0},
		}},
		{Records: []client.FluxRecord{
			{Time: time.Date(2023, 6, 15, 11, 1, 0, 0, time.UTC), Value: 3.0},
		}},
	}}
	points := normalizeSeries(res, "value")
	require.Len(t, points, 3)
	require.Equal(t, 1.0, points[0].Value)
	require.Equal(t, 2.0, points[1].Value)
	require.Equal(t, 3.0, points[2].Value)
	require.Equal(t, "2023-06-15T11:00:00Z", points[0].Time)
}

func TestNormalizeSeries_V1PicksValueColumn(t *testing.T) {
	res := &client.Result{V1: []influx1.Result{{Series: []models.Row{{
		Columns: []string{"time", "mean", "stddev"},
		Values: [][]interface{}{
			{"2023-06-15T11:00:00Z", 21.5, 0.3},
		},
	}}}}}
	points := normalizeSeries(res, "mean")
	require.Len(t, points, 1)
	require.Equal(t, 21.5, points[0].Value)
}

func TestNormalizeSeries_MissingColumnYieldsEmpty(t *testing.T) {
	res := &client.Result{V1: []influx1.Result{{Series: []models.Row{{
		Columns: []string{"time", "mean"},
		Values:  [][]interface{}{{"2023-06-15T11:00:00Z", 21.5}},
	}}}}}
	points := normalizeSeries(res, "median")
	require.NotNil(t, points)
	require.Empty(t, points)
}

func TestNormalizeLastV1_InfersFieldAndTags(t *testing.T) {
	res := &client.Result{V1: []influx1.Result{{Series: []models.Row{{
		Name:    "device_status",
		Tags:    map[string]string{"region": "eu"},
		Columns: []string{"time", "battery", "firmware"},
		Values: [][]interface{}{
			{"2023-06-15T11:59:00Z", 87.0, "v2.1"},
		},
	}}}}}
	out, err := normalizeLastV1(res, "")
	require.NoError(t, err)
	require.Equal(t, "battery", out.Field)
	require.Equal(t, 87.0, out.Value)
	require.Equal(t, "2023-06-15T11:59:00Z", out.Time)
	require.Equal(t, map[string]string{"region": "eu", "firmware": "v2.1"}, out.Tags)
}

func TestNormalizeLastV1_EmptyIsNoData(t *testing.T) {
	_, err := normalizeLastV1(&client.Result{}, "battery")
	require.Error(t, err)
	require.Equal(t, gateerr.NoDataFound, gateerr.KindOf(err))
}

func TestNormalizeLastFlux_SkipsInternalColumns(t *testing.T) {
	res := &client.Result{Tables: []client.FluxTable{{
		Records: []client.FluxRecord{{
			Time:  time.Date(2023, 6, 15, 11, 59, 0, 0, time.UTC),
			Value: 87.0,
			Field: "battery",
			Values: map[string]interface{}{
				"_start":       time.Time{},
				"_measurement": "device_status",
				"result":       "_result",
				"table":        int64(0),
				"device_id":    "abc-123",
			},
		}},
	}}}
	out, err := normalizeLastFlux(res)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"device_id": "abc-123"}, out.Tags)
}

func TestSchemaValues(t *testing.T) {
	v1 := &client.Result{V1: []influx1.Result{{Series: []models.Row{{
		Columns: []string{"name"},
		Values:  [][]interface{}{{"temp"}, {"humidity"}},
	}}}}}
	require.Equal(t, []string{"temp", "humidity"}, schemaValues(v1, "name"))

	v2 := &client.Result{Tables: []client.FluxTable{{
		Records: []client.FluxRecord{{Value: "temp"}, {Value: "humidity"}},
	}}}
	require.Equal(t, []string{"temp", "humidity"}, schemaValues(v2, ""))
}

func TestFieldInfos_TypesOnlyFromV1(t *testing.T) {
	v1 := &client.Result{V1: []influx1.Result{{Series: []models.Row{{
		Columns: []string{"fieldKey", "fieldType"},
		Values:  [][]interface{}{{"value", "float"}, {"status", "string"}},
	}}}}}
	out := fieldInfos(v1)
	require.Equal(t, []FieldInfo{{Name: "value", Type: "float"}, {Name: "status", Type: "string"}}, out)

	v2 := &client.Result{Tables: []client.FluxTable{{
		Records: []client.FluxRecord{{Value: "value"}},
	}}}
	require.Equal(t, []FieldInfo{{Name: "value"}}, fieldInfos(v2))
}

func TestParseTarget(t *testing.T) {
	require.Equal(t, Target{Container: "iot-db", SubScope: "autogen"}, ParseTarget("iot-db/autogen"))
	require.Equal(t, Target{Container: "iot-bucket"}, ParseTarget("iot-bucket"))
	require.Equal(t, Target{Container: "db", SubScope: "a/b"}, ParseTarget("db/a/b"))
}
