package confirm

import (
	"errors"
	"strings"

	"github.com/inkpress/inkgate/pkg/x402"
)

// classifySubmitError maps a raw submission fault onto the payment
// error taxonomy. Wallets and nodes report rejection and funding
// failures as free text, so recognition is by substring.
func classifySubmitError(err error) error {
	var pe *x402.PaymentError
	if errors.As(err, &pe) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rejected") || strings.Contains(msg, "denied") || strings.Contains(msg, "user cancel"):
		return x402.NewPaymentError(x402.ErrCodeSignerRejected,
			"transaction was rejected in the wallet", err)
	case strings.Contains(msg, "insufficient funds") || strings.Contains(msg, "insufficient balance"):
		return x402.NewPaymentError(x402.ErrCodeInsufficientFunds,
			"insufficient balance to pay", err)
	default:
		return err
	}
}
