package proof

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/inkpress/inkgate/internal/registry"
	"github.com/inkpress/inkgate/pkg/x402"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.New([]registry.Entry{
		{ID: "1", Title: "Paid", Description: "paid piece", Price: "0.05", Paid: true},
		{ID: "3", Title: "Free", Description: "free piece"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// facilitatorFunc adapts a function to the Facilitator interface.
type facilitatorFunc func(ctx context.Context, sp x402.SignedProof, ch x402.PaymentChallenge) (VerifyResult, error)

func (f facilitatorFunc) Verify(ctx context.Context, sp x402.SignedProof, ch x402.PaymentChallenge) (VerifyResult, error) {
	return f(ctx, sp, ch)
}

// receiptFunc adapts a function to the ReceiptChecker interface.
type receiptFunc func(ctx context.Context, txHash string) (bool, bool, error)

func (f receiptFunc) TxSucceeded(ctx context.Context, txHash string) (bool, bool, error) {
	return f(ctx, txHash)
}

func validHash() string { return "0x" + strings.Repeat("ab", 32) }

func TestValidateUnknownResource(t *testing.T) {
	v, err := NewValidator(Config{Registry: testRegistry(t), AssetDecimals: 6, InsecureDemo: true})
	if err != nil {
		t.Fatal(err)
	}
	_, err = v.Validate(context.Background(), FromTxHash(validHash(), ""), "999", x402.PaymentChallenge{})
	if !errors.Is(err, x402.ErrUnknownResource) {
		t.Errorf("err = %v, want unknown-resource", err)
	}
}

func TestValidateShortHashRejectedBeforeAnyLookup(t *testing.T) {
	called := false
	v, err := NewValidator(Config{
		Registry: testRegistry(t),
		Receipts: receiptFunc(func(context.Context, string) (bool, bool, error) {
			called = true
			return true, true, nil
		}),
		AssetDecimals: 6,
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = v.Validate(context.Background(), FromTxHash("0x123", ""), "1", x402.PaymentChallenge{})
	if !errors.Is(err, x402.ErrMalformedProof) {
		t.Errorf("err = %v, want malformed-proof", err)
	}
	if called {
		t.Error("malformed hash reached the chain lookup")
	}
}

func TestValidateTxRefDemoMode(t *testing.T) {
	v, err := NewValidator(Config{Registry: testRegistry(t), AssetDecimals: 6, InsecureDemo: true})
	if err != nil {
		t.Fatal(err)
	}

	accepted, err := v.Validate(context.Background(), FromTxHash(validHash(), ""), "1", x402.PaymentChallenge{})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if accepted.Amount != "0.05" {
		t.Errorf("amount = %q, want 0.05", accepted.Amount)
	}
	if accepted.AmountMinor != "50000" {
		t.Errorf("amountMinor = %q, want 50000", accepted.AmountMinor)
	}
}

func TestValidateInBandRef(t *testing.T) {
	ctx := context.Background()
	ref := x402.InBandRefPrefix + "7f1c2e9a"

	demo, err := NewValidator(Config{Registry: testRegistry(t), AssetDecimals: 6, InsecureDemo: true})
	if err != nil {
		t.Fatal(err)
	}
	accepted, err := demo.Validate(ctx, FromTxHash(ref, ""), "1", x402.PaymentChallenge{})
	if err != nil {
		t.Fatalf("in-band reference rejected in demo mode: %v", err)
	}
	if accepted.Amount != "0.05" {
		t.Errorf("amount = %q, want 0.05", accepted.Amount)
	}

	// Outside demo mode the reference is unverifiable, which is a
	// rejection, not a malformed proof.
	strict, err := NewValidator(Config{
		Registry: testRegistry(t),
		Receipts: receiptFunc(func(context.Context, string) (bool, bool, error) {
			t.Error("in-band reference reached the chain lookup")
			return false, false, nil
		}),
		AssetDecimals: 6,
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = strict.Validate(ctx, FromTxHash(ref, ""), "1", x402.PaymentChallenge{})
	if !errors.Is(err, x402.ErrFacilitatorRejected) {
		t.Errorf("err = %v, want facilitator-rejected", err)
	}
}

func TestValidateTxRefRequiresVerificationOutsideDemo(t *testing.T) {
	v, err := NewValidator(Config{Registry: testRegistry(t), AssetDecimals: 6})
	if err != nil {
		t.Fatal(err)
	}
	_, err = v.Validate(context.Background(), FromTxHash(validHash(), ""), "1", x402.PaymentChallenge{})
	if !errors.Is(err, x402.ErrFacilitatorRejected) {
		t.Errorf("err = %v, want facilitator-rejected", err)
	}
}

func TestValidateTxRefReceiptOutcomes(t *testing.T) {
	cases := []struct {
		name      string
		succeeded bool
		found     bool
		lookupErr error
		want      *x402.PaymentError
	}{
		{"confirmed", true, true, nil, nil},
		{"reverted", false, true, nil, x402.ErrTransactionReverted},
		{"not found", false, false, nil, x402.ErrFacilitatorRejected},
		{"rpc down", false, false, errors.New("connection refused"), x402.ErrFacilitatorUnreachable},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v, err := NewValidator(Config{
				Registry: testRegistry(t),
				Receipts: receiptFunc(func(context.Context, string) (bool, bool, error) {
					return c.succeeded, c.found, c.lookupErr
				}),
				AssetDecimals: 6,
			})
			if err != nil {
				t.Fatal(err)
			}
			_, err = v.Validate(context.Background(), FromTxHash(validHash(), ""), "1", x402.PaymentChallenge{})
			if c.want == nil {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, c.want) {
				t.Errorf("err = %v, want %v", err, c.want)
			}
		})
	}
}

func TestValidateSignedSchema(t *testing.T) {
	v, err := NewValidator(Config{
		Registry: testRegistry(t),
		Facilitator: facilitatorFunc(func(context.Context, x402.SignedProof, x402.PaymentChallenge) (VerifyResult, error) {
			return VerifyResult{Valid: true, Payer: "0xabc"}, nil
		}),
		AssetDecimals: 6,
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for _, sp := range []x402.SignedProof{
		{Payload: json.RawMessage(`{}`), Signature: "0x1"},
		{Payload: json.RawMessage(`{"a":1}`), Signature: ""},
		{Payload: json.RawMessage(`"string"`), Signature: "0x1"},
		{Payload: nil, Signature: "0x1"},
	} {
		p := Proof{Kind: KindSigned, Signed: &sp}
		if _, err := v.Validate(ctx, p, "1", x402.PaymentChallenge{}); !errors.Is(err, x402.ErrMalformedProof) {
			t.Errorf("proof %+v: err = %v, want malformed-proof", sp, err)
		}
	}

	good := Proof{Kind: KindSigned, Signed: &x402.SignedProof{Payload: json.RawMessage(`{"a":1}`), Signature: "0x1"}}
	if _, err := v.Validate(ctx, good, "1", x402.PaymentChallenge{}); err != nil {
		t.Errorf("well-formed proof rejected: %v", err)
	}
}

func TestValidateSignedFacilitatorVerdicts(t *testing.T) {
	good := Proof{Kind: KindSigned, Signed: &x402.SignedProof{Payload: json.RawMessage(`{"a":1}`), Signature: "0x1"}}
	ctx := context.Background()

	v, _ := NewValidator(Config{
		Registry: testRegistry(t),
		Facilitator: facilitatorFunc(func(context.Context, x402.SignedProof, x402.PaymentChallenge) (VerifyResult, error) {
			return VerifyResult{Valid: false, Reason: "insufficient_funds"}, nil
		}),
		AssetDecimals: 6,
	})
	_, err := v.Validate(ctx, good, "1", x402.PaymentChallenge{})
	if !errors.Is(err, x402.ErrFacilitatorRejected) {
		t.Errorf("err = %v, want facilitator-rejected", err)
	}
	var pe *x402.PaymentError
	if !errors.As(err, &pe) || pe.Message != "insufficient_funds" {
		t.Errorf("rejection should carry the facilitator reason, got %v", err)
	}

	v, _ = NewValidator(Config{
		Registry: testRegistry(t),
		Facilitator: facilitatorFunc(func(context.Context, x402.SignedProof, x402.PaymentChallenge) (VerifyResult, error) {
			return VerifyResult{}, errors.New("dial tcp: connection refused")
		}),
		AssetDecimals: 6,
	})
	if _, err := v.Validate(ctx, good, "1", x402.PaymentChallenge{}); !errors.Is(err, x402.ErrFacilitatorUnreachable) {
		t.Errorf("err = %v, want facilitator-unreachable", err)
	}

	v, _ = NewValidator(Config{Registry: testRegistry(t), AssetDecimals: 6})
	if _, err := v.Validate(ctx, good, "1", x402.PaymentChallenge{}); !errors.Is(err, x402.ErrFacilitatorUnreachable) {
		t.Errorf("no facilitator configured: err = %v, want facilitator-unreachable", err)
	}
}

func TestFacilitatorClientVerify(t *testing.T) {
	var got map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/verify" {
			t.Errorf("path = %q, want /verify", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"isValid": true, "payer": "0xabc"})
	}))
	defer srv.Close()

	c := NewFacilitatorClient(srv.URL)
	verdict, err := c.Verify(context.Background(),
		x402.SignedProof{Payload: json.RawMessage(`{"a":1}`), Signature: "0x1"},
		x402.PaymentChallenge{Scheme: "exact"})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !verdict.Valid || verdict.Payer != "0xabc" {
		t.Errorf("verdict = %+v", verdict)
	}
	for _, field := range []string{"x402Version", "paymentPayload", "paymentRequirements"} {
		if _, ok := got[field]; !ok {
			t.Errorf("verify request missing %s", field)
		}
	}
}

func TestFromHeader(t *testing.T) {
	header, err := x402.EncodePaymentHeader(x402.SignedProof{Payload: json.RawMessage(`{"a":1}`), Signature: "0x1"})
	if err != nil {
		t.Fatal(err)
	}
	p, err := FromHeader(header)
	if err != nil {
		t.Fatalf("FromHeader: %v", err)
	}
	if p.Kind != KindSigned || p.Signed.Signature != "0x1" {
		t.Errorf("proof = %+v", p)
	}

	if _, err := FromHeader("!!not a proof!!"); !errors.Is(err, x402.ErrMalformedProof) {
		t.Errorf("err = %v, want malformed-proof", err)
	}
}
