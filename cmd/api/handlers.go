package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/vinlab/vinlab/engine/decode"
	"github.com/vinlab/vinlab/engine/domain"
	"github.com/vinlab/vinlab/engine/store"
	"github.com/vinlab/vinlab/engine/vindata"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleValidate performs offline structural VIN validation. No upstream
// calls are made.
func handleValidate(w http.ResponseWriter, r *http.Request) {
	vin := r.URL.Query().Get("vin")
	if vin == "" {
		writeError(w, http.StatusBadRequest, "vin query parameter is required")
		return
	}
	writeJSON(w, http.StatusOK, domain.Validate(vin))
}

func handleBrands(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(domain.Brands))
	for name := range domain.Brands {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]domain.BrandInfo, 0, len(names))
	for _, name := range names {
		out = append(out, domain.Brands[name])
	}
	writeJSON(w, http.StatusOK, out)
}

// DecodeRequest is the JSON body for POST /api/v1/decode.
type DecodeRequest struct {
	VIN        string `json:"vin"`
	IncludeRaw bool   `json:"includeRaw,omitempty"`
}

func handleDecode(orch *decode.Orchestrator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DecodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.VIN == "" {
			writeError(w, http.StatusBadRequest, "vin is required")
			return
		}

		rec, err := orch.Decode(r.Context(), req.VIN)
		if err != nil {
			decodeError(w, logger, req.VIN, err)
			return
		}

		out, err := decode.ExportJSON(rec, req.IncludeRaw)
		if err != nil {
			logger.Error("encode decoded vehicle", "vin", req.VIN, "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(out)
	}
}

// decodeError maps orchestrator failures to HTTP statuses: malformed input is
// a 400, a clean no-data outcome a 404, upstream failure a 502.
func decodeError(w http.ResponseWriter, logger *slog.Logger, vin string, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case decode.NoData(err):
		writeError(w, http.StatusNotFound, "no data found for this VIN")
	case errors.Is(err, domain.ErrUpstream):
		logger.Error("decode upstream failure", "vin", vin, "err", err)
		writeError(w, http.StatusBadGateway, "decode service unavailable")
	default:
		logger.Error("decode failed", "vin", vin, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func handleExport(orch *decode.Orchestrator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vin := r.PathValue("vin")
		format := r.URL.Query().Get("format")
		if format == "" {
			format = "json"
		}

		rec, err := orch.Decode(r.Context(), vin)
		if err != nil {
			decodeError(w, logger, vin, err)
			return
		}

		switch format {
		case "json":
			includeRaw := r.URL.Query().Get("includeRaw") == "true"
			out, err := decode.ExportJSON(rec, includeRaw)
			if err != nil {
				logger.Error("export encode", "vin", vin, "err", err)
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Content-Disposition", "attachment; filename="+decode.Filename(rec.VIN, "json"))
			w.Write(out)
		case "csv":
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition", "attachment; filename="+decode.Filename(rec.VIN, "csv"))
			w.Write(decode.ExportCSV(rec))
		case "text", "txt":
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Content-Disposition", "attachment; filename="+decode.Filename(rec.VIN, "txt"))
			w.Write(decode.ExportText(rec))
		default:
			writeError(w, http.StatusBadRequest, "unsupported format: "+format)
		}
	}
}

func handleHistoryList(history *store.History, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := history.List(r.Context())
		if err != nil {
			logger.Error("history list", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if items == nil {
			items = []domain.HistoryItem{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handleHistoryClear(history *store.History, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := history.Clear(r.Context()); err != nil {
			logger.Error("history clear", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// vehicleGraph is the decoded-vehicle graph query surface. A nil value means
// no graph backend is configured.
type vehicleGraph interface {
	VehiclesByMake(ctx context.Context, make string) ([]string, error)
	SiblingVehicles(ctx context.Context, vin string) ([]string, error)
}

func handleVehiclesByMake(vg vehicleGraph, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if vg == nil {
			writeError(w, http.StatusServiceUnavailable, "vehicle graph not configured")
			return
		}
		mk := r.URL.Query().Get("make")
		if mk == "" {
			writeError(w, http.StatusBadRequest, "make query parameter is required")
			return
		}
		vins, err := vg.VehiclesByMake(r.Context(), mk)
		if err != nil {
			logger.Error("vehicles by make", "make", mk, "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if vins == nil {
			vins = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"make": mk, "vins": vins})
	}
}

func handleSimilarVehicles(vg vehicleGraph, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if vg == nil {
			writeError(w, http.StatusServiceUnavailable, "vehicle graph not configured")
			return
		}
		vin := strings.ToUpper(strings.TrimSpace(r.PathValue("vin")))
		if err := domain.CheckVIN(vin); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		vins, err := vg.SiblingVehicles(r.Context(), vin)
		if err != nil {
			logger.Error("similar vehicles", "vin", vin, "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if vins == nil {
			vins = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"vin": vin, "similar": vins})
	}
}

// ProxyDecodeRequest is the JSON body for POST /api/v1/proxy/decode, which
// exposes the paid decoder directly without cache or history side effects.
type ProxyDecodeRequest struct {
	VIN string `json:"vin"`
}

func handleProxyDecode(client *vindata.Client, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ProxyDecodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		vin := strings.ToUpper(strings.TrimSpace(req.VIN))
		if err := domain.CheckVIN(vin); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		fields, err := client.Decode(r.Context(), vin)
		switch {
		case err == nil:
			rec := decode.Map(vin, fields)
			rec.Metadata.Source = domain.SourceFallback
			rec.Metadata.DecodedAt = time.Now().UTC()
			writeJSON(w, http.StatusOK, rec)
		case errors.Is(err, vindata.ErrNotConfigured):
			writeError(w, http.StatusServiceUnavailable, "fallback decoder not configured")
		case errors.Is(err, vindata.ErrNotFound):
			writeError(w, http.StatusNotFound, "no data found for this VIN")
		case errors.Is(err, vindata.ErrInvalidFormat):
			writeError(w, http.StatusBadRequest, "VIN rejected by decoder")
		default:
			logger.Error("proxy decode", "vin", req.VIN, "err", err)
			writeError(w, http.StatusBadGateway, "decode service unavailable")
		}
	}
}
