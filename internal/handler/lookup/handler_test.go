package lookup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TomasB/ipcountry/internal/countries"
	"github.com/TomasB/ipcountry/internal/data"
	"github.com/TomasB/ipcountry/internal/geo"
	"github.com/TomasB/ipcountry/internal/metrics"
	"github.com/gin-gonic/gin"
)

// mockLookup implements data.CountryLookup for testing.
type mockLookup struct {
	countries map[string]string
	err       error
}

func (m *mockLookup) LookupCountry(ip string) (string, error) {
	if net.ParseIP(ip) == nil {
		return "", data.ErrInvalidIP
	}
	if m.err != nil {
		return "", m.err
	}
	country, ok := m.countries[ip]
	if !ok {
		return "", data.ErrCountryNotFound
	}
	return country, nil
}

func (m *mockLookup) Close() error {
	return nil
}

func defaultLookup() *mockLookup {
	return &mockLookup{countries: map[string]string{
		"8.8.8.8":       "US",
		"1.1.1.1":       "AU",
		"9.9.9.9":       "US",
		"2001:4860::1":  "US",
		"2.125.160.216": "GB",
		"5.5.5.5":       "XX",
	}}
}

func setupRouter(lookup *mockLookup, opts ...Option) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(geo.NewService(lookup, countries.NewTable()), opts...)
	h.Register(r)
	return r
}

func doRequest(router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWelcome(t *testing.T) {
	router := setupRouter(defaultLookup())

	for _, path := range []string{"/", "/?foo=bar"} {
		w := doRequest(router, "GET", path, nil)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		expectedBody := `{"message":"Welcome to IP Country Lookup API","usage":"/lookup/:ip - Get country for an IP address"}`
		if w.Body.String() != expectedBody {
			t.Errorf("expected body %s, got %s", expectedBody, w.Body.String())
		}
	}
}

func TestLookup_Found(t *testing.T) {
	router := setupRouter(defaultLookup())

	w := doRequest(router, "GET", "/lookup/8.8.8.8", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp LookupResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if !resp.Success {
		t.Error("expected success to be true")
	}
	if resp.IP != "8.8.8.8" {
		t.Errorf("expected ip 8.8.8.8, got %s", resp.IP)
	}
	if resp.Country != "US" {
		t.Errorf("expected country US, got %s", resp.Country)
	}
	if resp.CountryName != "United States" {
		t.Errorf("expected country name United States, got %s", resp.CountryName)
	}
}

func TestLookup_IPv6(t *testing.T) {
	router := setupRouter(defaultLookup())

	w := doRequest(router, "GET", "/lookup/2001:4860::1", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp LookupResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.Country != "US" {
		t.Errorf("expected country US, got %s", resp.Country)
	}
}

func TestLookup_UnknownCountryName(t *testing.T) {
	router := setupRouter(defaultLookup())

	w := doRequest(router, "GET", "/lookup/5.5.5.5", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp LookupResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.CountryName != "Unknown" {
		t.Errorf("expected country name Unknown, got %s", resp.CountryName)
	}
}

func TestLookup_NotFound(t *testing.T) {
	router := setupRouter(defaultLookup())

	w := doRequest(router, "GET", "/lookup/0.0.0.0", nil)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}

	expectedBody := `{"error":"Country not found for the provided IP address","success":false}`
	if w.Body.String() != expectedBody {
		t.Errorf("expected body %s, got %s", expectedBody, w.Body.String())
	}
}

func TestLookup_InvalidIP(t *testing.T) {
	router := setupRouter(defaultLookup())

	w := doRequest(router, "GET", "/lookup/not-an-ip", nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	expectedBody := `{"error":"Invalid IP address format","success":false}`
	if w.Body.String() != expectedBody {
		t.Errorf("expected body %s, got %s", expectedBody, w.Body.String())
	}
}

func TestLookup_LookupError(t *testing.T) {
	router := setupRouter(&mockLookup{err: fmt.Errorf("db failure")})

	w := doRequest(router, "GET", "/lookup/1.2.3.4", nil)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}

	var resp ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.Error != "Lookup failed" {
		t.Errorf("expected 'Lookup failed' error, got %q", resp.Error)
	}
}

func TestBatch_MixedResults(t *testing.T) {
	router := setupRouter(defaultLookup())

	w := doRequest(router, "POST", "/lookup/batch", []byte(`{"ips": ["8.8.8.8", "not-an-ip", "0.0.0.0"]}`))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp BatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if !resp.Success {
		t.Error("expected success to be true")
	}
	if len(resp.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Results))
	}

	found := resp.Results["8.8.8.8"]
	if found.Country != "US" || found.CountryName != "United States" || found.Error != "" {
		t.Errorf("unexpected entry for 8.8.8.8: %+v", found)
	}

	invalid := resp.Results["not-an-ip"]
	if invalid.Error != "Invalid IP address format" || invalid.Country != "" || invalid.CountryName != "" {
		t.Errorf("unexpected entry for not-an-ip: %+v", invalid)
	}

	missing := resp.Results["0.0.0.0"]
	if missing.Error != "Country not found" || missing.Country != "" {
		t.Errorf("unexpected entry for 0.0.0.0: %+v", missing)
	}

	if len(resp.Analytics) != 1 || resp.Analytics[0] != (geo.AnalyticsEntry{X: "United States", Y: 1}) {
		t.Errorf("unexpected analytics: %+v", resp.Analytics)
	}
}

func TestBatch_ErrorEntryHasNoCountryFields(t *testing.T) {
	router := setupRouter(defaultLookup())

	w := doRequest(router, "POST", "/lookup/batch", []byte(`{"ips": ["not-an-ip"]}`))

	expectedBody := `{"results":{"not-an-ip":{"error":"Invalid IP address format"}},"analytics":[],"success":true}`
	if w.Body.String() != expectedBody {
		t.Errorf("expected body %s, got %s", expectedBody, w.Body.String())
	}
}

func TestBatch_AnalyticsOrder(t *testing.T) {
	router := setupRouter(defaultLookup())

	body := []byte(`{"ips": ["1.1.1.1", "8.8.8.8", "2.125.160.216", "9.9.9.9", "not-an-ip"]}`)
	w := doRequest(router, "POST", "/lookup/batch", body)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp BatchResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	expected := []geo.AnalyticsEntry{
		{X: "Australia", Y: 1},
		{X: "United States", Y: 2},
		{X: "United Kingdom", Y: 1},
	}
	if len(resp.Analytics) != len(expected) {
		t.Fatalf("expected %d analytics entries, got %+v", len(expected), resp.Analytics)
	}
	for i := range expected {
		if resp.Analytics[i] != expected[i] {
			t.Errorf("analytics[%d]: expected %+v, got %+v", i, expected[i], resp.Analytics[i])
		}
	}
}

func TestBatch_Idempotent(t *testing.T) {
	router := setupRouter(defaultLookup())

	body := []byte(`{"ips": ["2.125.160.216", "8.8.8.8", "0.0.0.0", "1.1.1.1", "not-an-ip"]}`)
	first := doRequest(router, "POST", "/lookup/batch", body)
	second := doRequest(router, "POST", "/lookup/batch", body)

	if first.Body.String() != second.Body.String() {
		t.Errorf("expected identical responses, got %s and %s", first.Body.String(), second.Body.String())
	}
}

func TestBatch_DuplicateIPs(t *testing.T) {
	router := setupRouter(defaultLookup())

	w := doRequest(router, "POST", "/lookup/batch", []byte(`{"ips": ["8.8.8.8", "8.8.8.8", "1.1.1.1"]}`))

	var resp BatchResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 distinct results, got %d", len(resp.Results))
	}

	entry := resp.Results["8.8.8.8"]
	if entry.Country != "US" || entry.CountryName != "United States" || entry.Error != "" {
		t.Errorf("unexpected entry for 8.8.8.8: %+v", entry)
	}

	expected := []geo.AnalyticsEntry{
		{X: "United States", Y: 2},
		{X: "Australia", Y: 1},
	}
	if len(resp.Analytics) != len(expected) {
		t.Fatalf("expected analytics %+v, got %+v", expected, resp.Analytics)
	}
	for i := range expected {
		if resp.Analytics[i] != expected[i] {
			t.Errorf("analytics[%d]: expected %+v, got %+v", i, expected[i], resp.Analytics[i])
		}
	}
}

func TestBatch_NonStringElements(t *testing.T) {
	router := setupRouter(defaultLookup())

	w := doRequest(router, "POST", "/lookup/batch", []byte(`{"ips": [123, null, {"a": 1}, "8.8.8.8"]}`))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp BatchResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	for _, key := range []string{"123", "null", `{"a":1}`} {
		entry, ok := resp.Results[key]
		if !ok {
			t.Errorf("expected result for key %s, got %+v", key, resp.Results)
			continue
		}
		if entry.Error != "Invalid IP address format" {
			t.Errorf("expected invalid format for %s, got %+v", key, entry)
		}
	}
	if len(resp.Analytics) != 1 {
		t.Errorf("expected analytics for the single string IP, got %+v", resp.Analytics)
	}
}

func TestBatch_EmptyArray(t *testing.T) {
	router := setupRouter(defaultLookup())

	w := doRequest(router, "POST", "/lookup/batch", []byte(`{"ips": []}`))

	expectedBody := `{"results":{},"analytics":[],"success":true}`
	if w.Body.String() != expectedBody {
		t.Errorf("expected body %s, got %s", expectedBody, w.Body.String())
	}
}

func TestBatch_MissingIPs(t *testing.T) {
	router := setupRouter(defaultLookup())

	bodies := []string{
		`{}`,
		`{"ips": null}`,
		`{"ips": "8.8.8.8"}`,
		`{"ips": {"0": "8.8.8.8"}}`,
		`null`,
		`["8.8.8.8"]`,
		`5`,
		`"x"`,
		`true`,
	}

	for _, body := range bodies {
		w := doRequest(router, "POST", "/lookup/batch", []byte(body))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected status 400, got %d", body, w.Code)
		}

		expectedBody := `{"error":"Request body must contain an \"ips\" array","success":false}`
		if w.Body.String() != expectedBody {
			t.Errorf("%s: expected body %s, got %s", body, expectedBody, w.Body.String())
		}
	}
}

func TestBatch_InvalidJSON(t *testing.T) {
	router := setupRouter(defaultLookup())

	for _, body := range []string{"{bad json", "", `{"ips": [}`, `[1,`} {
		w := doRequest(router, "POST", "/lookup/batch", []byte(body))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("%q: expected status 400, got %d", body, w.Code)
		}

		var resp ErrorResponse
		json.Unmarshal(w.Body.Bytes(), &resp)

		if resp.Error != "Invalid JSON payload" {
			t.Errorf("%q: expected 'Invalid JSON payload' error, got %q", body, resp.Error)
		}
		if resp.Success {
			t.Errorf("%q: expected success to be false", body)
		}
	}
}

func TestBatch_LookupErrorIsolated(t *testing.T) {
	router := setupRouter(&mockLookup{err: fmt.Errorf("db failure")})

	w := doRequest(router, "POST", "/lookup/batch", []byte(`{"ips": ["1.2.3.4", "bogus"]}`))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp BatchResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.Results["1.2.3.4"].Error != "Lookup failed" {
		t.Errorf("expected 'Lookup failed' entry, got %+v", resp.Results["1.2.3.4"])
	}
	if resp.Results["bogus"].Error != "Invalid IP address format" {
		t.Errorf("expected invalid format entry, got %+v", resp.Results["bogus"])
	}
}

func TestLookup_RecordsMetrics(t *testing.T) {
	m := metrics.New()
	router := setupRouter(defaultLookup(), WithMetrics(m))

	doRequest(router, "GET", "/lookup/8.8.8.8", nil)
	doRequest(router, "POST", "/lookup/batch", []byte(`{"ips": ["8.8.8.8", "not-an-ip"]}`))

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	var total float64
	for _, mf := range families {
		if mf.GetName() != "geoip_lookups_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	if total != 3 {
		t.Errorf("expected 3 recorded lookups, got %v", total)
	}
}

func TestBatch_RecordsMetricsPerItem(t *testing.T) {
	m := metrics.New()
	router := setupRouter(defaultLookup(), WithMetrics(m))

	doRequest(router, "POST", "/lookup/batch", []byte(`{"ips": ["8.8.8.8", "8.8.8.8", "8.8.8.8", "not-an-ip"]}`))

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "geoip_lookups_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "outcome" {
					counts[label.GetValue()] += metric.GetCounter().GetValue()
				}
			}
		}
	}
	if counts["found"] != 3 {
		t.Errorf("expected 3 found lookups, got %v", counts["found"])
	}
	if counts["invalid"] != 1 {
		t.Errorf("expected 1 invalid lookup, got %v", counts["invalid"])
	}
}
