package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/inkpress/inkgate/pkg/x402"
)

type signerFunc func(ctx context.Context, ch x402.PaymentChallenge) (x402.SignedProof, error)

func (f signerFunc) CreateProof(ctx context.Context, ch x402.PaymentChallenge) (x402.SignedProof, error) {
	return f(ctx, ch)
}

func acceptingSigner() ProofSigner {
	return signerFunc(func(_ context.Context, ch x402.PaymentChallenge) (x402.SignedProof, error) {
		payload, _ := json.Marshal(map[string]string{"amount": ch.MaxAmountRequired})
		return x402.SignedProof{Payload: payload, Signature: "0xsig"}, nil
	})
}

// paidServer issues a 402 until the request carries an X-PAYMENT header.
func paidServer(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get(x402.HeaderPayment) != "" {
			w.Write([]byte(`{"content":"paid content"}`))
			return
		}
		terms := x402.PaymentRequired{
			Error:       "Payment Required",
			Message:     "This content requires a payment of $0.05 USDC",
			X402Version: x402.Version,
			Schemes: []x402.PaymentChallenge{{
				Scheme:            "exact",
				Network:           "base-sepolia",
				MaxAmountRequired: "50000",
				Resource:          r.URL.Path,
				PayTo:             "0xpayee",
				Asset:             "0xtoken",
			}},
		}
		mirror, _ := json.Marshal(map[string]any{"x402Version": terms.X402Version, "schemes": terms.Schemes})
		w.Header().Set(x402.HeaderPaymentRequired, string(mirror))
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(terms)
	}))
	return srv, &requests
}

func TestRoundTripperPaysAndRetries(t *testing.T) {
	srv, requests := paidServer(t)
	defer srv.Close()

	c := WrapClient(nil, acceptingSigner())
	resp, err := c.Get(srv.URL + "/article/1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 after payment", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"content":"paid content"}` {
		t.Errorf("body = %s", body)
	}
	if *requests != 2 {
		t.Errorf("server saw %d requests, want initial plus one retry", *requests)
	}
}

func TestRoundTripperLeavesOtherResponsesAlone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(x402.HeaderPayment) != "" {
			t.Error("unpaid resource should not receive a payment")
		}
		w.Write([]byte("free"))
	}))
	defer srv.Close()

	signer := signerFunc(func(context.Context, x402.PaymentChallenge) (x402.SignedProof, error) {
		t.Error("signer invoked for a free resource")
		return x402.SignedProof{}, nil
	})
	resp, err := WrapClient(nil, signer).Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestRoundTripperDoesNotPayTwice(t *testing.T) {
	// A server that keeps saying 402 even after payment must not trigger
	// a second payment for the same logical request.
	payments := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(x402.HeaderPayment) != "" {
			payments++
		}
		terms := x402.PaymentRequired{
			X402Version: x402.Version,
			Schemes:     []x402.PaymentChallenge{{Scheme: "exact", MaxAmountRequired: "50000", PayTo: "0xp", Asset: "0xt", Network: "base-sepolia"}},
		}
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(terms)
	}))
	defer srv.Close()

	resp, err := WrapClient(nil, acceptingSigner()).Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Errorf("status = %d, the second 402 should surface to the caller", resp.StatusCode)
	}
	if payments != 1 {
		t.Errorf("server saw %d payments, want exactly 1", payments)
	}
}

func TestRoundTripperFailsWithoutSupportedScheme(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]any{
			"x402Version": 1,
			"schemes":     []map[string]string{{"scheme": "subscription"}},
		})
	}))
	defer srv.Close()

	if _, err := WrapClient(nil, acceptingSigner()).Get(srv.URL); err == nil {
		t.Fatal("expected an error when no exact scheme is offered")
	}
}
