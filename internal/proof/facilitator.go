package proof

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/inkpress/inkgate/pkg/x402"
)

// DefaultFacilitatorURL is the hosted x402 facilitator.
const DefaultFacilitatorURL = "https://x402.org/facilitator"

// FacilitatorClient talks to an x402 facilitator's /verify endpoint over
// HTTP. It satisfies Facilitator.
type FacilitatorClient struct {
	URL        string
	HTTPClient *http.Client
}

// NewFacilitatorClient builds a client for the given base URL, defaulting
// to the hosted facilitator with a 30s request timeout.
func NewFacilitatorClient(url string) *FacilitatorClient {
	if url == "" {
		url = DefaultFacilitatorURL
	}
	return &FacilitatorClient{
		URL:        url,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Verify posts the proof and the payment terms it claims to satisfy.
// Transport-level failures come back as errors; a reachable facilitator
// that says no comes back as an invalid VerifyResult.
func (c *FacilitatorClient) Verify(ctx context.Context, sp x402.SignedProof, ch x402.PaymentChallenge) (VerifyResult, error) {
	reqBody := map[string]any{
		"x402Version":         x402.Version,
		"paymentPayload":      sp,
		"paymentRequirements": ch,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/verify", c.URL), bytes.NewReader(jsonBody))
	if err != nil {
		return VerifyResult{}, fmt.Errorf("create verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("send verify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return VerifyResult{}, fmt.Errorf("facilitator verify returned %s", resp.Status)
	}

	var verdict struct {
		IsValid       bool   `json:"isValid"`
		InvalidReason string `json:"invalidReason"`
		Payer         string `json:"payer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return VerifyResult{}, fmt.Errorf("decode verify response: %w", err)
	}

	return VerifyResult{
		Valid:  verdict.IsValid,
		Reason: verdict.InvalidReason,
		Payer:  verdict.Payer,
	}, nil
}
