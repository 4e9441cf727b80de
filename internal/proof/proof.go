// Package proof parses and validates inbound payment proofs. Structural
// checks happen here; cryptographic verification and settlement are
// delegated to the facilitator, which this package never second-guesses.
package proof

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/inkpress/inkgate/internal/registry"
	"github.com/inkpress/inkgate/pkg/x402"
)

// Kind discriminates the two proof shapes the gate accepts.
type Kind int

const (
	// KindSigned is a payload+signature document for facilitator delegation.
	KindSigned Kind = iota + 1
	// KindTxRef references a transfer already settled on-chain. This is the
	// weakest trust tier: without a chain client it proves possession of a
	// plausible hash, nothing more.
	KindTxRef
)

// Proof is a tagged variant; exactly one of Signed and TxRef is set,
// selected by Kind.
type Proof struct {
	Kind   Kind
	Signed *x402.SignedProof
	TxRef  *x402.TxRefProof
}

// FromHeader parses an X-PAYMENT header into a signed proof.
func FromHeader(header string) (Proof, error) {
	sp, err := x402.DecodePaymentHeader(header)
	if err != nil {
		return Proof{}, x402.NewPaymentError(x402.ErrCodeMalformedProof, "invalid X-PAYMENT header", err)
	}
	return Proof{Kind: KindSigned, Signed: &sp}, nil
}

// FromTxHash wraps a bare transaction hash as a proof.
func FromTxHash(txHash, network string) Proof {
	return Proof{Kind: KindTxRef, TxRef: &x402.TxRefProof{TxHash: txHash, Network: network}}
}

// Accepted is the outcome of successful validation.
type Accepted struct {
	// Amount is the charged price in major units, e.g. "0.05".
	Amount string
	// AmountMinor is the same price in the asset's minor units.
	AmountMinor string
	// Payer is the paying address when the verification tier reports one.
	Payer string
}

// Facilitator verifies a signed proof against payment terms. Implementations
// are black-box network calls; an unreachable facilitator is a transport
// error distinct from a rejection.
type Facilitator interface {
	Verify(ctx context.Context, sp x402.SignedProof, ch x402.PaymentChallenge) (VerifyResult, error)
}

// VerifyResult is the facilitator's verdict on a proof.
type VerifyResult struct {
	Valid  bool
	Reason string
	Payer  string
}

// ReceiptChecker reports whether a transaction is included and successful.
// The second return is false when the transaction is not (yet) known.
type ReceiptChecker interface {
	TxSucceeded(ctx context.Context, txHash string) (succeeded, found bool, err error)
}

// signedProofSchema is the structural contract for the facilitator path:
// both fields present, correctly typed, non-empty.
const signedProofSchema = `{
	"type": "object",
	"required": ["payload", "signature"],
	"properties": {
		"payload": {"type": "object", "minProperties": 1},
		"signature": {"type": "string", "minLength": 1}
	}
}`

// Validator checks proofs for gated resources.
type Validator struct {
	registry      *registry.Registry
	facilitator   Facilitator
	receipts      ReceiptChecker
	schema        *gojsonschema.Schema
	assetDecimals int

	// insecureDemo accepts any well-formed tx hash without touching the
	// chain. Demo deployments only; never enable where payments matter.
	insecureDemo bool
}

// Config assembles a Validator.
type Config struct {
	Registry      *registry.Registry
	Facilitator   Facilitator
	Receipts      ReceiptChecker
	AssetDecimals int
	InsecureDemo  bool
}

// NewValidator compiles the proof schema once and captures the
// verification collaborators.
func NewValidator(cfg Config) (*Validator, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("proof validator: registry is required")
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(signedProofSchema))
	if err != nil {
		return nil, fmt.Errorf("compile proof schema: %w", err)
	}
	return &Validator{
		registry:      cfg.Registry,
		facilitator:   cfg.Facilitator,
		receipts:      cfg.Receipts,
		schema:        schema,
		assetDecimals: cfg.AssetDecimals,
		insecureDemo:  cfg.InsecureDemo,
	}, nil
}

// Validate accepts or rejects a proof for a resource. Every rejection is a
// *x402.PaymentError whose code tells the caller which retry path applies.
// A given proof is treated as grounds for at most one new grant by the
// ledger layer; Validate itself is stateless and safe to call concurrently.
func (v *Validator) Validate(ctx context.Context, p Proof, resourceID string, ch x402.PaymentChallenge) (Accepted, error) {
	entry, ok := v.registry.Lookup(resourceID)
	if !ok {
		return Accepted{}, x402.ErrUnknownResource
	}

	switch p.Kind {
	case KindSigned:
		if err := v.validateSigned(ctx, p.Signed, ch); err != nil {
			return Accepted{}, err
		}
	case KindTxRef:
		if err := v.validateTxRef(ctx, p.TxRef); err != nil {
			return Accepted{}, err
		}
	default:
		return Accepted{}, x402.NewPaymentError(x402.ErrCodeMalformedProof, "proof has no recognized shape", nil)
	}

	units, err := x402.MinorUnits(entry.Price, v.assetDecimals)
	if err != nil {
		return Accepted{}, fmt.Errorf("configured price for %s: %w", resourceID, err)
	}
	return Accepted{
		Amount:      entry.Price,
		AmountMinor: units.String(),
	}, nil
}

func (v *Validator) validateSigned(ctx context.Context, sp *x402.SignedProof, ch x402.PaymentChallenge) error {
	if sp == nil {
		return x402.ErrMalformedProof
	}

	raw, err := json.Marshal(sp)
	if err != nil {
		// Payload carries invalid JSON.
		return x402.NewPaymentError(x402.ErrCodeMalformedProof, "proof payload is not valid JSON", err)
	}
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil || !result.Valid() {
		return x402.NewPaymentError(x402.ErrCodeMalformedProof, "proof must carry a non-empty payload and signature", err)
	}

	if v.facilitator == nil {
		return x402.NewPaymentError(x402.ErrCodeFacilitatorUnreachable, "no facilitator configured", nil)
	}

	verdict, err := v.facilitator.Verify(ctx, *sp, ch)
	if err != nil {
		return x402.NewPaymentError(x402.ErrCodeFacilitatorUnreachable, "facilitator call failed", err)
	}
	if !verdict.Valid {
		reason := verdict.Reason
		if reason == "" {
			reason = "payment did not validate"
		}
		return &x402.PaymentError{Code: x402.ErrCodeFacilitatorRejected, Message: reason}
	}
	return nil
}

func (v *Validator) validateTxRef(ctx context.Context, ref *x402.TxRefProof) error {
	if ref == nil {
		return x402.ErrMalformedProof
	}

	if x402.IsInBandRef(ref.TxHash) {
		// Settled during a 402 retry; there is no receipt to look up, so
		// these carry the same trust as a bare hash in demo mode.
		if v.insecureDemo {
			return nil
		}
		return x402.NewPaymentError(x402.ErrCodeFacilitatorRejected,
			"in-band settlement references are not accepted outside demo mode", nil)
	}

	if !x402.IsTxHash(ref.TxHash) {
		// Shape check runs before any network call; a short hash never
		// reaches the facilitator or the chain.
		return x402.NewPaymentError(x402.ErrCodeMalformedProof, "txHash must be a 0x-prefixed 32-byte hex value", nil)
	}

	if v.insecureDemo {
		return nil
	}

	if v.receipts == nil {
		return x402.NewPaymentError(x402.ErrCodeFacilitatorRejected,
			"bare transaction proofs are not accepted without on-chain verification", nil)
	}

	succeeded, found, err := v.receipts.TxSucceeded(ctx, ref.TxHash)
	if err != nil {
		return x402.NewPaymentError(x402.ErrCodeFacilitatorUnreachable, "chain lookup failed", err)
	}
	if !found {
		return x402.NewPaymentError(x402.ErrCodeFacilitatorRejected, "transaction not found on chain", nil)
	}
	if !succeeded {
		return x402.ErrTransactionReverted
	}
	return nil
}
