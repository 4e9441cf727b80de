// Package x402 holds the wire types for the x402 payment-required flow:
// the 402 challenge a gated server emits and the payment proof a client
// presents on retry.
package x402

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Version is the x402 protocol version spoken by this module.
const Version = 1

// Header names used by the challenge/retry flow. Matching is
// case-insensitive on the HTTP layer.
const (
	HeaderPayment         = "X-PAYMENT"
	HeaderPaymentRequired = "X-PAYMENT-REQUIRED"
	HeaderPaymentVerified = "X-PAYMENT-VERIFIED"
	HeaderPaymentAmount   = "X-PAYMENT-AMOUNT"
)

// PaymentChallenge describes one acceptable way to pay for a resource.
// It is produced fresh per request and never persisted.
type PaymentChallenge struct {
	Scheme            string      `json:"scheme"`
	Network           string      `json:"network"`
	MaxAmountRequired string      `json:"maxAmountRequired"`
	Resource          string      `json:"resource"`
	Description       string      `json:"description,omitempty"`
	MimeType          string      `json:"mimeType,omitempty"`
	PayTo             string      `json:"payTo"`
	MaxTimeoutSeconds int         `json:"maxTimeoutSeconds,omitempty"`
	Asset             string      `json:"asset"`
	Extra             *AssetExtra `json:"extra,omitempty"`
}

// AssetExtra carries token metadata clients need to render amounts.
type AssetExtra struct {
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
}

// PaymentRequired is the JSON body of a 402 response. The same document,
// minus the human-readable error/message pair, is mirrored into the
// X-PAYMENT-REQUIRED header for clients that only inspect headers.
type PaymentRequired struct {
	Error       string             `json:"error"`
	Message     string             `json:"message"`
	X402Version int                `json:"x402Version"`
	Schemes     []PaymentChallenge `json:"schemes"`
}

// SignedProof is the payload+signature proof shape meant for facilitator
// verification. The payload stays opaque to this module.
type SignedProof struct {
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// TxRefProof references a transfer the client already settled on-chain.
type TxRefProof struct {
	TxHash  string `json:"txHash"`
	Network string `json:"network,omitempty"`
}

// EncodePaymentHeader serializes a signed proof into the X-PAYMENT header
// value (base64 of the JSON document).
func EncodePaymentHeader(proof SignedProof) (string, error) {
	raw, err := json.Marshal(proof)
	if err != nil {
		return "", fmt.Errorf("marshal payment proof: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodePaymentHeader parses an X-PAYMENT header value. Both base64-wrapped
// and bare JSON encodings are accepted; some integrations send the document
// unencoded.
func DecodePaymentHeader(header string) (SignedProof, error) {
	var proof SignedProof

	header = strings.TrimSpace(header)
	if header == "" {
		return proof, fmt.Errorf("payment header is empty")
	}

	raw := []byte(header)
	if !strings.HasPrefix(header, "{") {
		decoded, err := base64.StdEncoding.DecodeString(header)
		if err != nil {
			return proof, fmt.Errorf("payment header is neither JSON nor base64: %w", err)
		}
		raw = decoded
	}

	if err := json.Unmarshal(raw, &proof); err != nil {
		return proof, fmt.Errorf("payment header is not a valid proof document: %w", err)
	}
	return proof, nil
}

// InBandRefPrefix marks purchase references for payments settled in-band
// during a 402 retry rather than broadcast as a transaction of their own.
// There is no chain receipt to look up for these.
const InBandRefPrefix = "x402-"

// IsInBandRef reports whether s is a synthetic in-band settlement
// reference.
func IsInBandRef(s string) bool {
	return strings.HasPrefix(s, InBandRefPrefix) && len(s) > len(InBandRefPrefix)
}

// IsTxHash reports whether s has the shape of a 32-byte hex transaction
// hash: "0x" followed by exactly 64 hex characters.
func IsTxHash(s string) bool {
	if len(s) != 66 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// NormalizeAddress lowercases a chain address for keying and comparison.
// Chain addresses are case-insensitive; checksummed and lowercased forms
// must resolve to the same user.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
