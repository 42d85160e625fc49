package vpic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

const sampleDecode = `{
	"Count": 1,
	"Message": "Results returned successfully",
	"SearchCriteria": "VIN:1HGBH41JXMN109186",
	"Results": [{
		"Make": "HONDA",
		"Model": "Accord",
		"ModelYear": "1991",
		"EngineCylinders": null,
		"Doors": 4
	}]
}`

func testClient(url string) *Client {
	return New(Config{BaseURL: url, RequestsPerSecond: 1000})
}

func TestDecodeVIN_Extended(t *testing.T) {
	var extCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "DecodeVinValuesExtended") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		extCalls.Add(1)
		w.Write([]byte(sampleDecode))
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).DecodeVIN(context.Background(), "1HGBH41JXMN109186")
	if err != nil {
		t.Fatalf("DecodeVIN: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("expected Count=1, got %d", resp.Count)
	}
	if got := resp.Field("Make"); got != "HONDA" {
		t.Errorf("expected Make=HONDA, got %q", got)
	}
	if extCalls.Load() != 1 {
		t.Errorf("expected 1 extended call, got %d", extCalls.Load())
	}
}

func TestFractionalRateStillAdmitsRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(sampleDecode))
	}))
	defer srv.Close()

	// A sub-1 rate must round the burst up to 1, not truncate it to 0,
	// or every limiter wait fails outright.
	c := New(Config{BaseURL: srv.URL, RequestsPerSecond: 0.5})
	if b := c.limiter.Burst(); b != 1 {
		t.Fatalf("burst = %d, want 1", b)
	}
	resp, err := c.DecodeVIN(context.Background(), "1HGBH41JXMN109186")
	if err != nil {
		t.Fatalf("DecodeVIN at fractional rate: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("Count = %d, want 1", resp.Count)
	}
}

func TestDecodeVIN_NumericAndNullFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(sampleDecode))
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).DecodeVIN(context.Background(), "1HGBH41JXMN109186")
	if err != nil {
		t.Fatalf("DecodeVIN: %v", err)
	}
	row := resp.First()
	if row["Doors"] != "4" {
		t.Errorf("expected numeric field flattened to \"4\", got %q", row["Doors"])
	}
	if _, present := row["EngineCylinders"]; present {
		t.Error("expected null field to be omitted")
	}
}

func TestDecodeVIN_FallsBackToBasicQuery(t *testing.T) {
	var extCalls, basicCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "DecodeVinValuesExtended") {
			extCalls.Add(1)
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		basicCalls.Add(1)
		w.Write([]byte(sampleDecode))
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).DecodeVIN(context.Background(), "1HGBH41JXMN109186")
	if err != nil {
		t.Fatalf("DecodeVIN: %v", err)
	}
	if resp.Field("Model") != "Accord" {
		t.Errorf("expected basic-query result, got %+v", resp.First())
	}
	if extCalls.Load() == 0 || basicCalls.Load() == 0 {
		t.Errorf("expected both endpoints hit, got ext=%d basic=%d", extCalls.Load(), basicCalls.Load())
	}
}

func TestDecodeVIN_TotalFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).DecodeVIN(context.Background(), "1HGBH41JXMN109186")
	if err == nil {
		t.Fatal("expected error when both endpoints fail")
	}
	if !strings.Contains(err.Error(), "vpic: decode") {
		t.Errorf("expected wrapped vpic error, got %v", err)
	}
}

func TestDecodeWMI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "DecodeWMI/1HG") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"Count":1,"Message":"ok","Results":[{"CommonName":"Honda","ManufacturerName":"HONDA OF AMERICA MFG., INC.","ParentCompanyName":"HONDA MOTOR CO., LTD"}]}`))
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).DecodeWMI(context.Background(), "1HG")
	if err != nil {
		t.Fatalf("DecodeWMI: %v", err)
	}
	if resp.Field("CommonName") != "Honda" {
		t.Errorf("expected CommonName=Honda, got %q", resp.Field("CommonName"))
	}
}
