// Package client wraps an http.Client so a 402 response is transparently
// converted into payment and a single retry with proof attached.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/inkpress/inkgate/pkg/x402"
)

// ProofSigner produces a signed proof satisfying a payment challenge.
// Implementations hold the wallet; this package never sees key material.
type ProofSigner interface {
	CreateProof(ctx context.Context, ch x402.PaymentChallenge) (x402.SignedProof, error)
}

// WrapClient returns a client whose transport retries 402 responses with
// payment. The original client is not modified.
func WrapClient(c *http.Client, signer ProofSigner) *http.Client {
	base := http.DefaultTransport
	if c != nil && c.Transport != nil {
		base = c.Transport
	}
	wrapped := &http.Client{Transport: &PaymentRoundTripper{
		Transport:  base,
		Signer:     signer,
		retryCount: &sync.Map{},
	}}
	if c != nil {
		wrapped.Timeout = c.Timeout
		wrapped.Jar = c.Jar
		wrapped.CheckRedirect = c.CheckRedirect
	}
	return wrapped
}

// PaymentRoundTripper implements http.RoundTripper with x402 handling:
// request, read 402 terms, sign, retry once.
type PaymentRoundTripper struct {
	Transport  http.RoundTripper
	Signer     ProofSigner
	retryCount *sync.Map // per-request guard against paying twice
}

// RoundTrip performs the request and, on 402, pays and retries. At most
// one payment per logical request; a second 402 is returned as-is.
func (t *PaymentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	requestID := fmt.Sprintf("%p", req)
	count, _ := t.retryCount.LoadOrStore(requestID, 0)
	if count.(int) > 0 {
		t.retryCount.Delete(requestID)
		return nil, fmt.Errorf("payment retry limit exceeded")
	}

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		t.retryCount.Delete(requestID)
		return nil, err
	}
	if resp.StatusCode != http.StatusPaymentRequired {
		t.retryCount.Delete(requestID)
		return resp, nil
	}
	t.retryCount.Store(requestID, 1)

	var body []byte
	if resp.Body != nil {
		body, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			t.retryCount.Delete(requestID)
			return nil, fmt.Errorf("read 402 response body: %w", err)
		}
	}

	ch, err := selectChallenge(resp.Header.Get(x402.HeaderPaymentRequired), body)
	if err != nil {
		t.retryCount.Delete(requestID)
		return nil, fmt.Errorf("parse payment terms: %w", err)
	}

	ctx := req.Context()
	proof, err := t.Signer.CreateProof(ctx, ch)
	if err != nil {
		t.retryCount.Delete(requestID)
		return nil, fmt.Errorf("create payment proof: %w", err)
	}
	header, err := x402.EncodePaymentHeader(proof)
	if err != nil {
		t.retryCount.Delete(requestID)
		return nil, err
	}

	paymentReq := req.Clone(ctx)
	paymentReq.Header.Set(x402.HeaderPayment, header)

	newResp, err := t.Transport.RoundTrip(paymentReq)
	t.retryCount.Delete(requestID)
	return newResp, err
}

// selectChallenge extracts payment terms from the X-PAYMENT-REQUIRED
// header, falling back to the JSON body, and picks the first "exact"
// scheme offered.
func selectChallenge(header string, body []byte) (x402.PaymentChallenge, error) {
	var doc struct {
		X402Version int                     `json:"x402Version"`
		Schemes     []x402.PaymentChallenge `json:"schemes"`
	}

	if header != "" {
		if err := json.Unmarshal([]byte(header), &doc); err != nil {
			return x402.PaymentChallenge{}, fmt.Errorf("invalid %s header: %w", x402.HeaderPaymentRequired, err)
		}
	} else if len(body) > 0 {
		if err := json.Unmarshal(body, &doc); err != nil {
			return x402.PaymentChallenge{}, fmt.Errorf("invalid 402 body: %w", err)
		}
	}

	for _, ch := range doc.Schemes {
		if ch.Scheme == "exact" {
			return ch, nil
		}
	}
	return x402.PaymentChallenge{}, fmt.Errorf("no supported payment scheme offered")
}
