package grpc

import (
	"context"
	"encoding/json"

	"github.com/TomasB/ipcountry/internal/geo"
	"github.com/TomasB/ipcountry/internal/metrics"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Handler implements LookupServiceServer.
type Handler struct {
	svc     *geo.Service
	metrics *metrics.Metrics
}

// NewHandler creates a new gRPC handler. m may be nil.
func NewHandler(svc *geo.Service, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, metrics: m}
}

// Lookup resolves the country of a single IP.
func (h *Handler) Lookup(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	ip := req.GetValue()
	res := h.svc.Resolve(ip)
	h.metrics.ObserveLookup("grpc_single", res.Outcome.String())

	if !res.Found() {
		return nil, statusFor(res)
	}

	out, err := structpb.NewStruct(map[string]any{
		"ip":          ip,
		"country":     res.Country,
		"countryName": res.CountryName,
		"success":     true,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

// BatchLookup resolves every value of the list independently.
func (h *Handler) BatchLookup(_ context.Context, req *structpb.ListValue) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	items := make([]geo.Item, 0, len(req.GetValues()))
	for _, v := range req.GetValues() {
		if s, ok := v.GetKind().(*structpb.Value_StringValue); ok {
			items = append(items, geo.StringItem(s.StringValue))
			continue
		}
		items = append(items, geo.NonStringItem(valueKey(v)))
	}
	h.metrics.ObserveBatchSize(len(items))

	batch := h.svc.Batch(items)

	for _, outcome := range batch.Outcomes {
		h.metrics.ObserveLookup("grpc_batch", outcome.String())
	}

	results := make(map[string]any, len(batch.Results))
	for key, res := range batch.Results {
		if !res.Found() {
			results[key] = map[string]any{"error": res.Message()}
			continue
		}
		results[key] = map[string]any{
			"country":     res.Country,
			"countryName": res.CountryName,
		}
	}

	analytics := make([]any, 0, len(batch.Analytics))
	for _, e := range batch.Analytics {
		analytics = append(analytics, map[string]any{"x": e.X, "y": e.Y})
	}

	out, err := structpb.NewStruct(map[string]any{
		"results":   results,
		"analytics": analytics,
		"success":   true,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

func statusFor(res geo.Result) error {
	switch res.Outcome {
	case geo.OutcomeInvalid:
		return status.Error(codes.InvalidArgument, geo.MsgInvalidIP)
	case geo.OutcomeNotFound:
		return status.Error(codes.NotFound, geo.MsgCountryNotFoundForIP)
	default:
		return status.Error(codes.Internal, geo.MsgLookupFailed)
	}
}

// valueKey renders a non-string value as compact JSON for use as a result key.
func valueKey(v *structpb.Value) string {
	b, err := json.Marshal(v.AsInterface())
	if err != nil {
		return v.String()
	}
	return string(b)
}
