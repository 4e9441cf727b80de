// Package challenge builds the 402 response for a gated resource: payment
// terms in the body and the same terms mirrored into a header.
package challenge

import (
	"encoding/json"
	"fmt"

	"github.com/inkpress/inkgate/internal/registry"
	"github.com/inkpress/inkgate/pkg/x402"
)

// Terms fixes the settlement parameters every challenge is issued against.
type Terms struct {
	Network           string
	Asset             string
	AssetName         string
	AssetDecimals     int
	PayTo             string
	MaxTimeoutSeconds int
}

// Issuer produces payment challenges for catalog entries.
type Issuer struct {
	terms Terms
}

// NewIssuer validates the settlement terms once so Issue cannot fail on
// per-request configuration.
func NewIssuer(terms Terms) (*Issuer, error) {
	if terms.Network == "" {
		return nil, fmt.Errorf("challenge terms: network is required")
	}
	if terms.Asset == "" {
		return nil, fmt.Errorf("challenge terms: asset address is required")
	}
	if terms.PayTo == "" {
		return nil, fmt.Errorf("challenge terms: payTo address is required")
	}
	if terms.AssetDecimals < 0 {
		return nil, fmt.Errorf("challenge terms: negative decimals")
	}
	if terms.MaxTimeoutSeconds <= 0 {
		terms.MaxTimeoutSeconds = 60
	}
	return &Issuer{terms: terms}, nil
}

// Challenge builds the PaymentChallenge for an entry. maxAmountRequired is
// recomputed from the configured price on every call with exact decimal
// scaling, so repeated challenges for one resource can never drift.
func (i *Issuer) Challenge(entry registry.Entry, resourcePath string) (x402.PaymentChallenge, error) {
	units, err := x402.MinorUnits(entry.Price, i.terms.AssetDecimals)
	if err != nil {
		return x402.PaymentChallenge{}, fmt.Errorf("price for %s: %w", entry.ID, err)
	}

	return x402.PaymentChallenge{
		Scheme:            "exact",
		Network:           i.terms.Network,
		MaxAmountRequired: units.String(),
		Resource:          resourcePath,
		Description:       entry.Description,
		MimeType:          "application/json",
		PayTo:             i.terms.PayTo,
		MaxTimeoutSeconds: i.terms.MaxTimeoutSeconds,
		Asset:             i.terms.Asset,
		Extra: &x402.AssetExtra{
			Name:     i.terms.AssetName,
			Decimals: i.terms.AssetDecimals,
		},
	}, nil
}

// Issue renders the full 402 response payload for an entry: the JSON body
// and the X-PAYMENT-REQUIRED header value. The header mirrors the body so
// header-only clients see the same terms.
func (i *Issuer) Issue(entry registry.Entry, resourcePath string) (body x402.PaymentRequired, header string, err error) {
	ch, err := i.Challenge(entry, resourcePath)
	if err != nil {
		return x402.PaymentRequired{}, "", err
	}

	body = x402.PaymentRequired{
		Error:       "Payment Required",
		Message:     fmt.Sprintf("This content requires a payment of $%s %s", entry.Price, i.terms.AssetName),
		X402Version: x402.Version,
		Schemes:     []x402.PaymentChallenge{ch},
	}

	mirror := struct {
		X402Version int                     `json:"x402Version"`
		Schemes     []x402.PaymentChallenge `json:"schemes"`
	}{body.X402Version, body.Schemes}

	raw, err := json.Marshal(mirror)
	if err != nil {
		return x402.PaymentRequired{}, "", fmt.Errorf("encode payment-required header: %w", err)
	}
	return body, string(raw), nil
}

// Terms returns the issuer's settlement parameters.
func (i *Issuer) Terms() Terms {
	return i.terms
}
