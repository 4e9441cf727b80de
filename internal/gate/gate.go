// Package gate intercepts requests for gated resources and turns them into
// 402 challenges, verified forwards, or pass-throughs. It decides three
// ways: the resource is not gated (pass through unchanged), the caller
// already purchased or presents a valid proof (forward with the verified
// marker), or neither (402 with payment terms). There is no fail-open
// path: an error anywhere rejects.
package gate

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inkpress/inkgate/internal/challenge"
	"github.com/inkpress/inkgate/internal/ledger"
	"github.com/inkpress/inkgate/internal/proof"
	"github.com/inkpress/inkgate/internal/registry"
	"github.com/inkpress/inkgate/pkg/x402"
)

// HeaderUserAddress lets a caller identify their wallet so an existing
// purchase can satisfy the gate without a fresh payment.
const HeaderUserAddress = "X-USER-ADDRESS"

// ContextKeyVerified marks a request that passed the gate with a verified
// payment (gin context key).
const ContextKeyVerified = "inkgate.payment_verified"

// Gate wires the registry, issuer, validator and ledger into a request
// interceptor.
type Gate struct {
	registry  *registry.Registry
	issuer    *challenge.Issuer
	validator *proof.Validator
	ledger    *ledger.Ledger
	metrics   *Metrics
}

// New builds a gate. Metrics may be nil.
func New(reg *registry.Registry, issuer *challenge.Issuer, validator *proof.Validator, led *ledger.Ledger, metrics *Metrics) *Gate {
	return &Gate{registry: reg, issuer: issuer, validator: validator, ledger: led, metrics: metrics}
}

// decision is the outcome of evaluating one request against the gate.
type decision struct {
	// passThrough: serve unchanged, resource is not gated.
	passThrough bool
	// verified: serve with the payment marker; amount set when a proof
	// was charged rather than an existing purchase consulted.
	verified bool
	amount   string
	// otherwise challenge/reject:
	status int
	body   any
	header string // X-PAYMENT-REQUIRED mirror, when issuing a challenge
}

// evaluate contains the framework-independent gate policy; the gin and
// echo adapters only translate it to their request/response types.
func (g *Gate) evaluate(r *http.Request, articleID string) decision {
	entry, ok := g.registry.Lookup(articleID)
	if !ok || !entry.Paid {
		// Only registered, paid resources are gated.
		if g.metrics != nil {
			g.metrics.PassedThrough.Inc()
		}
		return decision{passThrough: true}
	}

	if addr := r.Header.Get(HeaderUserAddress); addr != "" {
		purchased, err := g.ledger.HasPurchased(r.Context(), addr, articleID)
		if err != nil {
			slog.Error("purchase lookup failed", "article", articleID, "error", err)
		} else if purchased {
			if g.metrics != nil {
				g.metrics.ServedToPurchaser.Inc()
			}
			return decision{verified: true, amount: entry.Price}
		}
	}

	header := r.Header.Get(x402.HeaderPayment)
	if header == "" {
		body, mirror, err := g.issuer.Issue(entry, r.URL.Path)
		if err != nil {
			slog.Error("challenge build failed", "article", articleID, "error", err)
			return decision{status: http.StatusInternalServerError, body: map[string]any{"error": "misconfigured resource"}}
		}
		if g.metrics != nil {
			g.metrics.ChallengesIssued.Inc()
		}
		return decision{status: http.StatusPaymentRequired, body: body, header: mirror}
	}

	ch, err := g.issuer.Challenge(entry, r.URL.Path)
	if err != nil {
		slog.Error("challenge build failed", "article", articleID, "error", err)
		return decision{status: http.StatusInternalServerError, body: map[string]any{"error": "misconfigured resource"}}
	}

	p, err := proof.FromHeader(header)
	if err == nil {
		_, err = g.validator.Validate(r.Context(), p, articleID, ch)
	}
	if err != nil {
		return g.reject(err, entry, r.URL.Path)
	}

	if g.metrics != nil {
		g.metrics.ProofsAccepted.Inc()
	}
	return decision{verified: true, amount: entry.Price}
}

// reject maps a validation error onto an HTTP response. Classified codes
// drive the status; raw fault text stays out of the primary message.
func (g *Gate) reject(err error, entry registry.Entry, path string) decision {
	var pe *x402.PaymentError
	if !errors.As(err, &pe) {
		pe = x402.NewPaymentError(x402.ErrCodeFacilitatorRejected, "payment did not validate", err)
	}
	if g.metrics != nil {
		g.metrics.ProofsRejected.WithLabelValues(pe.Code).Inc()
	}
	slog.Info("payment proof rejected", "article", entry.ID, "reason", pe.Code)

	switch pe.Code {
	case x402.ErrCodeMalformedProof:
		return decision{status: http.StatusBadRequest, body: map[string]any{"error": pe.Message, "code": pe.Code}}
	case x402.ErrCodeFacilitatorUnreachable:
		return decision{status: http.StatusBadGateway, body: map[string]any{"error": pe.Message, "code": pe.Code}}
	default:
		// Rejected payment: re-issue the challenge so the client can retry.
		body, mirror, issueErr := g.issuer.Issue(entry, path)
		if issueErr != nil {
			return decision{status: http.StatusInternalServerError, body: map[string]any{"error": "misconfigured resource"}}
		}
		body.Error = pe.Message
		return decision{status: http.StatusPaymentRequired, body: body, header: mirror}
	}
}

// GinMiddleware gates the route it is attached to. articleParam names the
// gin route parameter carrying the article ID.
func (g *Gate) GinMiddleware(articleParam string) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := g.evaluate(c.Request, c.Param(articleParam))

		switch {
		case d.passThrough:
			c.Next()
		case d.verified:
			c.Request.Header.Set(x402.HeaderPaymentVerified, "true")
			c.Request.Header.Set(x402.HeaderPaymentAmount, d.amount)
			c.Set(ContextKeyVerified, true)
			c.Next()
		default:
			if d.header != "" {
				c.Header(x402.HeaderPaymentRequired, d.header)
			}
			c.AbortWithStatusJSON(d.status, d.body)
		}
	}
}
