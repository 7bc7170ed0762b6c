package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/rs/zerolog"

	"kickshift/backend/internal/shared/types"
	"kickshift/backend/internal/telemetry"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

type eventStore interface {
	Record(ctx context.Context, events ...telemetry.Event) error
	Recent(ctx context.Context, limit int) ([]telemetry.Event, error)
	CountByType(ctx context.Context) (map[string]int64, error)
}

type handler struct {
	store  eventStore
	points telemetry.PointWriter
	log    zerolog.Logger
}

func (h *handler) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/v1/events", h.handleEvents)
	mux.HandleFunc("/metrics", h.handleMetrics)
	return withCORS(mux)
}

func (h *handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var in types.TelemetryEvent
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request"})
			return
		}
		if in.EventType == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "event_type_required"})
			return
		}
		ev, err := telemetry.FromIngest(in)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_payload"})
			return
		}
		if err := h.store.Record(r.Context(), ev); err != nil {
			h.log.Error().Err(err).Str("type", ev.Type).Msg("failed to store event")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "store_unavailable"})
			return
		}
		if h.points != nil {
			h.points.Write(ev)
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "event_id": ev.ID})
	case http.MethodGet:
		limit := defaultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_limit"})
				return
			}
			limit = min(n, maxLimit)
		}
		recent, err := h.store.Recent(r.Context(), limit)
		if err != nil {
			h.log.Error().Err(err).Msg("failed to list events")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "store_unavailable"})
			return
		}
		out := make([]types.TelemetryEvent, 0, len(recent))
		for _, ev := range recent {
			out = append(out, ev.Ingest())
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"count":  len(out),
			"events": out,
		})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
	}
}

func (h *handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.CountByType(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to count events")
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	var total int64
	keys := make([]string, 0, len(counts))
	for typ, n := range counts {
		total += n
		keys = append(keys, typ)
	}
	slices.Sort(keys)

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = fmt.Fprintln(w, "# HELP kickshift_telemetry_events_total Total telemetry events stored")
	_, _ = fmt.Fprintln(w, "# TYPE kickshift_telemetry_events_total counter")
	_, _ = fmt.Fprintf(w, "kickshift_telemetry_events_total %d\n", total)
	for _, typ := range keys {
		_, _ = fmt.Fprintf(w, "kickshift_telemetry_events_by_type{event_type=%q} %d\n", typ, counts[typ])
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
