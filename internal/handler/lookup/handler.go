package lookup

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/TomasB/ipcountry/internal/geo"
	"github.com/TomasB/ipcountry/internal/metrics"
	"github.com/gin-gonic/gin"
)

const (
	welcomeMessage = "Welcome to IP Country Lookup API"
	welcomeUsage   = "/lookup/:ip - Get country for an IP address"

	msgInvalidJSON = "Invalid JSON payload"
	msgIPsNotArray = `Request body must contain an "ips" array`
)

// WelcomeResponse is returned by GET /.
type WelcomeResponse struct {
	Message string `json:"message"`
	Usage   string `json:"usage"`
}

// LookupResponse is returned by GET /lookup/:ip on success.
type LookupResponse struct {
	IP          string `json:"ip"`
	Country     string `json:"country"`
	CountryName string `json:"countryName"`
	Success     bool   `json:"success"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Success bool   `json:"success"`
}

// BatchRequest represents the JSON body for a batch lookup.
// IPs is kept raw so that a missing or non-array value can be told apart
// from malformed JSON.
type BatchRequest struct {
	IPs json.RawMessage `json:"ips"`
}

// BatchEntry is the per-IP outcome in a batch response.
type BatchEntry struct {
	Country     string `json:"country,omitempty"`
	CountryName string `json:"countryName,omitempty"`
	Error       string `json:"error,omitempty"`
}

// BatchResponse is returned by POST /lookup/batch.
type BatchResponse struct {
	Results   map[string]BatchEntry `json:"results"`
	Analytics []geo.AnalyticsEntry  `json:"analytics"`
	Success   bool                  `json:"success"`
}

// Option configures a Handler.
type Option func(*Handler)

// WithMetrics records lookup outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// Handler manages the IP country lookup endpoints.
type Handler struct {
	svc     *geo.Service
	metrics *metrics.Metrics
}

// NewHandler creates a new lookup handler backed by svc.
func NewHandler(svc *geo.Service, opts ...Option) *Handler {
	h := &Handler{svc: svc}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the lookup endpoints on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/", h.Welcome)
	r.GET("/lookup/:ip", h.Lookup)
	r.POST("/lookup/batch", h.Batch)
}

// Welcome handles GET /
func (h *Handler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, WelcomeResponse{
		Message: welcomeMessage,
		Usage:   welcomeUsage,
	})
}

// Lookup handles GET /lookup/:ip
func (h *Handler) Lookup(c *gin.Context) {
	ip := c.Param("ip")

	slog.Debug("lookup request received", "ip", ip)

	res := h.svc.Resolve(ip)
	h.metrics.ObserveLookup("single", res.Outcome.String())

	switch res.Outcome {
	case geo.OutcomeFound:
		c.JSON(http.StatusOK, LookupResponse{
			IP:          ip,
			Country:     res.Country,
			CountryName: res.CountryName,
			Success:     true,
		})
	case geo.OutcomeInvalid:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: geo.MsgInvalidIP})
	case geo.OutcomeNotFound:
		c.JSON(http.StatusNotFound, ErrorResponse{Error: geo.MsgCountryNotFoundForIP})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: geo.MsgLookupFailed})
	}
}

// Batch handles POST /lookup/batch
func (h *Handler) Batch(c *gin.Context) {
	var body json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		slog.Debug("invalid batch payload", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidJSON})
		return
	}

	// Arrays, scalars and null are valid JSON without an "ips" field.
	var req BatchRequest
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidJSON})
			return
		}
	}

	items, ok := parseItems(req.IPs)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgIPsNotArray})
		return
	}

	slog.Debug("batch request received", "count", len(items))
	h.metrics.ObserveBatchSize(len(items))

	batch := h.svc.Batch(items)

	for _, outcome := range batch.Outcomes {
		h.metrics.ObserveLookup("batch", outcome.String())
	}

	results := make(map[string]BatchEntry, len(batch.Results))
	for key, res := range batch.Results {
		if !res.Found() {
			results[key] = BatchEntry{Error: res.Message()}
			continue
		}
		results[key] = BatchEntry{
			Country:     res.Country,
			CountryName: res.CountryName,
		}
	}

	c.JSON(http.StatusOK, BatchResponse{
		Results:   results,
		Analytics: batch.Analytics,
		Success:   true,
	})
}

// parseItems converts the raw "ips" value into batch items.
// It reports false when the value is missing or not a JSON array.
func parseItems(raw json.RawMessage) ([]geo.Item, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false
	}

	items := make([]geo.Item, 0, len(elems))
	for _, elem := range elems {
		// null decodes into a string without error, so check the token first.
		var ip string
		if len(elem) > 0 && elem[0] == '"' && json.Unmarshal(elem, &ip) == nil {
			items = append(items, geo.StringItem(ip))
			continue
		}
		items = append(items, geo.NonStringItem(compactKey(elem)))
	}
	return items, true
}

func compactKey(elem json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, elem); err != nil {
		return string(elem)
	}
	return buf.String()
}
