package vtu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// HTTPGateway talks to the vendor's REST API. The client carries a bounded
// timeout: the settlement flow depends on vendor calls failing rather than
// hanging.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPGateway builds a gateway against the configured vendor endpoint.
// A non-positive timeout falls back to the default.
func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type purchasePayload struct {
	RequestID   string `json:"request_id"`
	Network     string `json:"network"`
	Plan        string `json:"plan,omitempty"`
	PhoneNumber string `json:"phone"`
	Amount      int64  `json:"amount,omitempty"`
}

type purchaseResponse struct {
	Status    string
	Message   string
	Reference string
	Cost      int64
}

// PurchaseAirtime submits an airtime top-up.
func (g *HTTPGateway) PurchaseAirtime(ctx context.Context, req PurchaseRequest) (PurchaseResult, error) {
	return g.purchase(ctx, "/airtime", purchasePayload{
		RequestID:   req.Reference,
		Network:     req.NetworkCode,
		PhoneNumber: req.PhoneNumber,
		Amount:      req.Amount,
	})
}

// PurchaseData submits a data bundle purchase.
func (g *HTTPGateway) PurchaseData(ctx context.Context, req PurchaseRequest) (PurchaseResult, error) {
	return g.purchase(ctx, "/data", purchasePayload{
		RequestID:   req.Reference,
		Network:     req.NetworkCode,
		Plan:        req.PlanCode,
		PhoneNumber: req.PhoneNumber,
	})
}

func (g *HTTPGateway) purchase(ctx context.Context, path string, payload purchasePayload) (PurchaseResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return PurchaseResult{}, fmt.Errorf("encode vendor request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return PurchaseResult{}, fmt.Errorf("build vendor request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return PurchaseResult{}, fmt.Errorf("vendor request: %w", err)
	}
	defer resp.Body.Close()

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return PurchaseResult{}, fmt.Errorf("decode vendor response: %w", err)
	}

	parsed := parseResponse(raw)
	result := PurchaseResult{
		Reference: parsed.Reference,
		Cost:      parsed.Cost,
		Message:   parsed.Message,
		Raw:       raw,
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !isSuccess(parsed.Status) {
		msg := parsed.Message
		if msg == "" {
			msg = fmt.Sprintf("vendor returned status %d", resp.StatusCode)
		}
		return result, fmt.Errorf("%w: %s", ErrVendorFailure, msg)
	}

	return result, nil
}

func parseResponse(raw map[string]any) purchaseResponse {
	var r purchaseResponse
	if v, ok := raw["status"].(string); ok {
		r.Status = v
	}
	if v, ok := raw["message"].(string); ok {
		r.Message = v
	}
	if v, ok := raw["reference"].(string); ok {
		r.Reference = v
	}
	if v, ok := raw["amount_charged"].(float64); ok {
		r.Cost = int64(v)
	}
	return r
}

func isSuccess(status string) bool {
	switch strings.ToLower(status) {
	case "success", "successful", "delivered":
		return true
	default:
		return false
	}
}
