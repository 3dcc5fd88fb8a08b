package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/influxgate/influxgate"
	"github.com/influxgate/influxgate/gateerr"
)

func (receiver *Server) handleListContainers(w http.ResponseWriter, req *http.Request) {
	out, err := receiver.service.ListContainers(req.Context())
	receiver.respond(w, req, "list_containers", map[string]interface{}{"containers": out}, err)
}

func (receiver *Server) handleListMeasurements(w http.ResponseWriter, req *http.Request) {
	target := req.URL.Query().Get("target")
	out, err := receiver.service.ListMeasurements(req.Context(), target)
	receiver.respond(w, req, "list_measurements", map[string]interface{}{"measurements": out}, err)
}

func (receiver *Server) handleListFields(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	out, err := receiver.service.ListFields(req.Context(), q.Get("target"), q.Get("measurement"))
	receiver.respond(w, req, "list_fields", map[string]interface{}{"fields": out}, err)
}

func (receiver *Server) handleListTags(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	out, err := receiver.service.ListTags(req.Context(), q.Get("target"), q.Get("measurement"))
	receiver.respond(w, req, "list_tags", map[string]interface{}{"tags": out}, err)
}

func (receiver *Server) handleQuery(w http.ResponseWriter, req *http.Request) {
	var in influxgate.TimeseriesRequest
	if !decodeBody(w, req, &in) {
		return
	}
	out, err := receiver.service.QueryTimeseries(req.Context(), in)
	receiver.respond(w, req, "query_timeseries", out, err)
}

func (receiver *Server) handleLastPoint(w http.ResponseWriter, req *http.Request) {
	var in influxgate.LastPointRequest
	if !decodeBody(w, req, &in) {
		return
	}
	out, err := receiver.service.LastPoint(req.Context(), in)
	receiver.respond(w, req, "last_point", out, err)
}

func (receiver *Server) handleWindowStats(w http.ResponseWriter, req *http.Request) {
	var in influxgate.WindowStatsRequest
	if !decodeBody(w, req, &in) {
		return
	}
	out, err := receiver.service.WindowStats(req.Context(), in)
	receiver.respond(w, req, "window_stats", out, err)
}

func (receiver *Server) handleWrite(w http.ResponseWriter, req *http.Request) {
	var in influxgate.WritePointRequest
	if !decodeBody(w, req, &in) {
		return
	}
	out, err := receiver.service.WritePoint(req.Context(), in)
	receiver.respond(w, req, "write_point", out, err)
}

func (receiver *Server) respond(w http.ResponseWriter, req *http.Request, op string, body interface{}, err error) {
	if err != nil {
		requestsTotal.WithLabelValues(op, "error").Inc()
		hlog.FromRequest(req).Error().Err(err).Str("op", op).Msg("operation failed")
		writeError(w, err)
		return
	}
	requestsTotal.WithLabelValues(op, "ok").Inc()
	writeJSON(w, http.StatusOK, body)
}

func decodeBody(w http.ResponseWriter, req *http.Request, v interface{}) bool {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_request", "malformed JSON body: "+err.Error()))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	kind := gateerr.KindOf(err)
	writeJSON(w, statusForKind(kind), errorBody(string(kind), err.Error()))
}

func errorBody(kind, message string) map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]string{
			"kind":    kind,
			"message": message,
		},
	}
}

func statusForKind(kind gateerr.Kind) int {
	switch kind {
	case gateerr.InvalidTimeFormat, gateerr.UnsupportedCombination:
		return http.StatusBadRequest
	case gateerr.NoDataFound:
		return http.StatusNotFound
	case gateerr.ConnectionFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
