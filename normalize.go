package influxgate

import (
	"fmt"
	"strings"
	"time"

	"github.com/influxgate/influxgate/client"
	"github.com/influxgate/influxgate/gateerr"
)

// normalizeSeries flattens a dialect-native result into the canonical point
// sequence, in backend order. For 2.x results, tables flatten in
// table-then-record order. For 1.x results, valueKey names the column to
// read: the aggregate function's name when an aggregation was requested,
// else the raw field name.
func normalizeSeries(res *client.Result, valueKey string) []TimeseriesPoint {
	points := []TimeseriesPoint{}
	if res == nil {
		return points
	}
	if res.Tables != nil {
		for _, table := range res.Tables {
			for _, rec := range table.Records {
				points = append(points, TimeseriesPoint{
					Time:  rec.Time.UTC().Format(time.RFC3339Nano),
					Value: rec.Value,
				})
			}
		}
		return points
	}
	for _, result := range res.V1 {
		for _, row := range result.Series {
			timeIdx := columnIndex(row.Columns, "time")
			valIdx := columnIndex(row.Columns, valueKey)
			if timeIdx < 0 || valIdx < 0 {
				continue
			}
			for _, vals := range row.Values {
				if timeIdx >= len(vals) || valIdx >= len(vals) {
					continue
				}
				points = append(points, TimeseriesPoint{
					Time:  cellString(vals[timeIdx]),
					Value: vals[valIdx],
				})
			}
		}
	}
	return points
}

// normalizeLastFlux extracts the most recent point from a 2.x last() result.
// When the query was unfiltered by field, last() returns one table per
// field; only the first table's first record is used, a documented
// limitation of the last-point operation.
func normalizeLastFlux(res *client.Result) (*LastPointResponse, error) {
	if res == nil || len(res.Tables) == 0 || len(res.Tables[0].Records) == 0 {
		return nil, errNoData()
	}
	rec := res.Tables[0].Records[0]
	tags := map[string]string{}
	for k, v := range rec.Values {
		if strings.HasPrefix(k, "_") || k == "result" || k == "table" {
			continue
		}
		tags[k] = cellString(v)
	}
	return &LastPointResponse{
		Time:  rec.Time.UTC().Format(time.RFC3339Nano),
		Value: rec.Value,
		Field: rec.Field,
		Tags:  tags,
	}, nil
}

// normalizeLastV1 extracts the most recent point from a 1.x result. With no
// field requested the first non-time column is reported as the field; the
// remaining columns become tags.
func normalizeLastV1(res *client.Result, field string) (*LastPointResponse, error) {
	if res == nil {
		return nil, errNoData()
	}
	for _, result := range res.V1 {
		for _, row := range result.Series {
			if len(row.Values) == 0 {
				continue
			}
			timeIdx := columnIndex(row.Columns, "time")
			valueField := field
			if valueField == "" {
				for _, c := range row.Columns {
					if c != "time" {
						valueField = c
						break
					}
				}
			}
			valIdx := columnIndex(row.Columns, valueField)
			if timeIdx < 0 || valIdx < 0 {
				continue
			}
			vals := row.Values[0]
			if timeIdx >= len(vals) || valIdx >= len(vals) {
				continue
			}
			tags := map[string]string{}
			for k, v := range row.Tags {
				tags[k] = v
			}
			for i, c := range row.Columns {
				if i == timeIdx || i == valIdx || i >= len(vals) || vals[i] == nil {
					continue
				}
				tags[c] = cellString(vals[i])
			}
			return &LastPointResponse{
				Time:  cellString(vals[timeIdx]),
				Value: vals[valIdx],
				Field: valueField,
				Tags:  tags,
			}, nil
		}
	}
	return nil, errNoData()
}

func errNoData() error {
	return gateerr.New(gateerr.NoDataFound, "no data found for the specified criteria")
}

// schemaValues extracts the single string value per record from a schema
// query result. column names the 1.x result column to read; 2.x schema
// results carry the value directly on each record.
func schemaValues(res *client.Result, column string) []string {
	var out []string
	if res == nil {
		return out
	}
	if res.Tables != nil {
		for _, table := range res.Tables {
			for _, rec := range table.Records {
				out = append(out, cellString(rec.Value))
			}
		}
		return out
	}
	for _, result := range res.V1 {
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

// fieldInfos maps a field-keys schema result into FieldInfo entries. Only
// the 1.x dialect reports field types.
func fieldInfos(res *client.Result) []FieldInfo {
	var out []FieldInfo
	if res == nil {
		return out
	}
	if res.Tables != nil {
		for _, table := range res.Tables {
			for _, rec := range table.Records {
				out = append(out, FieldInfo{Name: cellString(rec.Value)})
			}
		}
		return out
	}
	for _, result := range res.V1 {
		for _, row := range result.Series {
			keyIdx := columnIndex(row.Columns, "fieldKey")
			typeIdx := columnIndex(row.Columns, "fieldType")
			if keyIdx < 0 {
				continue
			}
			for _, vals := range row.Values {
				if keyIdx >= len(vals) {
					continue
				}
				info := FieldInfo{Name: cellString(vals[keyIdx])}
				if typeIdx >= 0 && typeIdx < len(vals) {
					info.Type = cellString(vals[typeIdx])
				}
				out = append(out, info)
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
