package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vinlab/vinlab/engine/decode"
	"github.com/vinlab/vinlab/engine/domain"
	"github.com/vinlab/vinlab/engine/store"
	"github.com/vinlab/vinlab/engine/vindata"
	"github.com/vinlab/vinlab/engine/vpic"
)

const testVIN = "1HGBH41JXMN109186"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newVPICServer serves canned vPIC envelopes for full-VIN and WMI lookups.
func newVPICServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "DecodeWMI") {
			io.WriteString(w, `{"Count":1,"Message":"Results returned","SearchCriteria":"WMI:1HG","Results":[{"CommonName":"Honda","ManufacturerName":"HONDA MOTOR CO., LTD.","ParentCompanyName":"Honda Motor Co., Ltd.","VehicleType":"Passenger Car"}]}`)
			return
		}
		io.WriteString(w, `{"Count":1,"Message":"Results returned","SearchCriteria":"VIN:`+testVIN+`","Results":[{"Make":"HONDA","Model":"Accord","ModelYear":1991,"BodyClass":"Sedan","Manufacturer":"HONDA OF AMERICA MFG., INC."}]}`)
	}))
}

func newTestAPI(t *testing.T, upstream *httptest.Server) http.Handler {
	t.Helper()
	logger := testLogger()

	history, err := store.OpenHistory(filepath.Join(t.TempDir(), "history.db"), 10, logger)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { history.Close() })

	primary := vpic.New(vpic.Config{
		BaseURL:           upstream.URL,
		RequestsPerSecond: 1000,
		HTTPClient:        upstream.Client(),
	})
	fallback := vindata.New(vindata.Config{})

	orch := decode.New(decode.Deps{
		Primary:   primary,
		Secondary: primary,
		Fallback:  fallback,
		Cache:     store.NewCache(time.Hour),
		History:   history,
		Logger:    logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", handleHealth)
	mux.HandleFunc("GET /api/v1/validate", handleValidate)
	mux.HandleFunc("GET /api/v1/brands", handleBrands)
	mux.HandleFunc("POST /api/v1/decode", handleDecode(orch, logger))
	mux.HandleFunc("GET /api/v1/export/{vin}", handleExport(orch, logger))
	mux.HandleFunc("GET /api/v1/history", handleHistoryList(history, logger))
	mux.HandleFunc("DELETE /api/v1/history", handleHistoryClear(history, logger))
	mux.HandleFunc("POST /api/v1/proxy/decode", handleProxyDecode(fallback, logger))
	mux.HandleFunc("GET /api/v1/vehicles", handleVehiclesByMake(nil, logger))
	mux.HandleFunc("GET /api/v1/vehicles/{vin}/similar", handleSimilarVehicles(nil, logger))
	return mux
}

// fakeVehicleGraph satisfies vehicleGraph with canned sibling data.
type fakeVehicleGraph struct {
	byMake   map[string][]string
	siblings map[string][]string
	err      error
}

func (f *fakeVehicleGraph) VehiclesByMake(_ context.Context, mk string) ([]string, error) {
	return f.byMake[mk], f.err
}

func (f *fakeVehicleGraph) SiblingVehicles(_ context.Context, vin string) ([]string, error) {
	return f.siblings[vin], f.err
}

func TestHandleHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	handleHealth(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q", body["status"])
	}
}

func TestHandleValidate(t *testing.T) {
	rec := httptest.NewRecorder()
	handleValidate(rec, httptest.NewRequest(http.MethodGet, "/api/v1/validate?vin="+testVIN, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var v domain.Validation
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	if !v.IsValid || !v.CheckDigitValid {
		t.Errorf("validation = %+v, want valid with matching check digit", v)
	}
}

func TestHandleValidateMissingParam(t *testing.T) {
	rec := httptest.NewRecorder()
	handleValidate(rec, httptest.NewRequest(http.MethodGet, "/api/v1/validate", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleBrands(t *testing.T) {
	rec := httptest.NewRecorder()
	handleBrands(rec, httptest.NewRequest(http.MethodGet, "/api/v1/brands", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var brands []domain.BrandInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &brands); err != nil {
		t.Fatal(err)
	}
	if len(brands) != len(domain.Brands) {
		t.Fatalf("got %d brands, want %d", len(brands), len(domain.Brands))
	}
}

func TestDecodeEndpoint(t *testing.T) {
	upstream := newVPICServer(t)
	defer upstream.Close()
	api := newTestAPI(t, upstream)

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/decode",
		strings.NewReader(`{"vin":"`+testVIN+`"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var v domain.DecodedVehicle
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	if v.Make != "HONDA" || v.Model != "Accord" || v.Year != "1991" {
		t.Errorf("decoded = %s %s %s", v.Year, v.Make, v.Model)
	}
	if v.Raw != nil {
		t.Error("raw fields should be omitted by default")
	}
	if !v.Metadata.WMIDecoded {
		t.Error("expected WMI lookup to contribute")
	}
}

func TestDecodeEndpointIncludeRaw(t *testing.T) {
	upstream := newVPICServer(t)
	defer upstream.Close()
	api := newTestAPI(t, upstream)

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/decode",
		strings.NewReader(`{"vin":"`+testVIN+`","includeRaw":true}`)))
	var v domain.DecodedVehicle
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	if v.Raw == nil {
		t.Error("expected raw fields with includeRaw")
	}
}

func TestDecodeEndpointBadRequests(t *testing.T) {
	upstream := newVPICServer(t)
	defer upstream.Close()
	api := newTestAPI(t, upstream)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"vin":`},
		{"empty vin", `{"vin":""}`},
		{"short vin", `{"vin":"1HGBH41"}`},
		{"forbidden letters", `{"vin":"IOQBH41JXMN109186"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/decode", strings.NewReader(tc.body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestDecodeEndpointNoData(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"Count":0,"Message":"","Results":[]}`)
	}))
	defer upstream.Close()
	api := newTestAPI(t, upstream)

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/decode",
		strings.NewReader(`{"vin":"`+testVIN+`"}`)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDecodeEndpointUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer upstream.Close()
	api := newTestAPI(t, upstream)

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/decode",
		strings.NewReader(`{"vin":"`+testVIN+`"}`)))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestExportFormats(t *testing.T) {
	upstream := newVPICServer(t)
	defer upstream.Close()
	api := newTestAPI(t, upstream)

	cases := []struct {
		format      string
		contentType string
		wantBody    string
	}{
		{"json", "application/json", `"make":"HONDA"`},
		{"csv", "text/csv", `"Make","HONDA"`},
		{"text", "text/plain", "Make"},
	}
	for _, tc := range cases {
		t.Run(tc.format, func(t *testing.T) {
			rec := httptest.NewRecorder()
			api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/export/"+testVIN+"?format="+tc.format, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, tc.contentType) {
				t.Errorf("Content-Type = %q, want prefix %q", ct, tc.contentType)
			}
			if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "vin-"+testVIN) {
				t.Errorf("Content-Disposition = %q", cd)
			}
			if !strings.Contains(rec.Body.String(), tc.wantBody) {
				t.Errorf("body missing %q:\n%s", tc.wantBody, rec.Body.String())
			}
		})
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	upstream := newVPICServer(t)
	defer upstream.Close()
	api := newTestAPI(t, upstream)

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/export/"+testVIN+"?format=xml", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	upstream := newVPICServer(t)
	defer upstream.Close()
	api := newTestAPI(t, upstream)

	// Empty history renders as a JSON array, not null.
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("empty history body = %q, want []", got)
	}

	// A decode lands in history.
	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/decode",
		strings.NewReader(`{"vin":"`+testVIN+`"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("decode status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	var items []domain.HistoryItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].VIN != testVIN {
		t.Fatalf("history = %+v, want one entry for %s", items, testVIN)
	}

	// Clearing empties it again.
	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/history", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d, want 204", rec.Code)
	}
	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("cleared history body = %q, want []", got)
	}
}

func TestVehicleGraphUnconfigured(t *testing.T) {
	upstream := newVPICServer(t)
	defer upstream.Close()
	api := newTestAPI(t, upstream)

	for _, path := range []string{
		"/api/v1/vehicles?make=honda",
		"/api/v1/vehicles/" + testVIN + "/similar",
	} {
		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503", path, rec.Code)
		}
	}
}

func TestVehiclesByMake(t *testing.T) {
	vg := &fakeVehicleGraph{byMake: map[string][]string{"honda": {"VIN1", "VIN2"}}}
	h := handleVehiclesByMake(vg, testLogger())

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/vehicles?make=honda", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Make string   `json:"make"`
		VINs []string `json:"vins"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Make != "honda" || len(body.VINs) != 2 {
		t.Errorf("body = %+v", body)
	}
}

func TestVehiclesByMakeMissingParam(t *testing.T) {
	h := handleVehiclesByMake(&fakeVehicleGraph{}, testLogger())
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/vehicles", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSimilarVehicles(t *testing.T) {
	vg := &fakeVehicleGraph{siblings: map[string][]string{testVIN: {"2HGBH41JXMN109186"}}}
	logger := testLogger()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/vehicles/{vin}/similar", handleSimilarVehicles(vg, logger))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/vehicles/"+testVIN+"/similar", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		VIN     string   `json:"vin"`
		Similar []string `json:"similar"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.VIN != testVIN || len(body.Similar) != 1 {
		t.Errorf("body = %+v", body)
	}

	// Unknown VIN yields an empty array, not null.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/vehicles/5YJ3E1EA7KF000316/similar", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"similar":[]`) {
		t.Errorf("body = %s, want empty similar array", rec.Body.String())
	}
}

func TestSimilarVehiclesInvalidVIN(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/vehicles/{vin}/similar", handleSimilarVehicles(&fakeVehicleGraph{}, testLogger()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/vehicles/short/similar", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProxyDecodeUnconfigured(t *testing.T) {
	upstream := newVPICServer(t)
	defer upstream.Close()
	api := newTestAPI(t, upstream)

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/proxy/decode",
		strings.NewReader(`{"vin":"`+testVIN+`"}`)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestProxyDecodeInvalidVIN(t *testing.T) {
	upstream := newVPICServer(t)
	defer upstream.Close()
	api := newTestAPI(t, upstream)

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/proxy/decode",
		strings.NewReader(`{"vin":"short"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProxyDecodeSuccess(t *testing.T) {
	paid := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"make":"Honda","model":"Accord","year":"1991"}`)
	}))
	defer paid.Close()

	client := vindata.New(vindata.Config{BaseURL: paid.URL, APIKey: "test-key", HTTPClient: paid.Client()})
	h := handleProxyDecode(client, testLogger())

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/v1/proxy/decode",
		strings.NewReader(`{"vin":"`+testVIN+`"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var v domain.DecodedVehicle
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	if v.Make != "Honda" || v.Model != "Accord" || v.Year != "1991" {
		t.Errorf("decoded = %s %s %s", v.Year, v.Make, v.Model)
	}
	if v.Metadata.Source != domain.SourceFallback {
		t.Errorf("source = %q, want fallback", v.Metadata.Source)
	}
}
