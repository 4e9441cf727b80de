package confirm

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/inkpress/inkgate/pkg/client"
	"github.com/inkpress/inkgate/pkg/x402"
)

// FetchSubmitter settles payment through the 402 retry of a
// payment-wrapped HTTP client instead of broadcasting a transfer
// itself. Finality is observed in-band with the response, so it pairs
// with InstantWatcher and returns a synthetic reference.
type FetchSubmitter struct {
	httpClient *http.Client
}

// NewFetchSubmitter wraps base with the signer and uses the result for
// paid fetches.
func NewFetchSubmitter(base *http.Client, signer client.ProofSigner) *FetchSubmitter {
	return &FetchSubmitter{httpClient: client.WrapClient(base, signer)}
}

// Submit fetches the paid resource; the transport pays on 402 and
// retries. A non-2xx final status means the payment did not settle.
func (s *FetchSubmitter) Submit(ctx context.Context, req Request) (TxRef, error) {
	if req.Resource == "" {
		return TxRef{}, fmt.Errorf("fetch submit: resource URL is required")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.Resource, nil)
	if err != nil {
		return TxRef{}, err
	}
	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return TxRef{}, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return TxRef{}, fmt.Errorf("fetch submit: resource returned %d", resp.StatusCode)
	}
	return TxRef{Hash: x402.InBandRefPrefix + uuid.NewString()}, nil
}

// InstantWatcher treats every reference as already confirmed. It is the
// watcher for submitters whose settlement completes in-band.
type InstantWatcher struct{}

func (InstantWatcher) Wait(ctx context.Context, ref TxRef) (Outcome, error) {
	return OutcomeConfirmed, nil
}

func (InstantWatcher) Check(ctx context.Context, ref TxRef) (Outcome, error) {
	return OutcomeConfirmed, nil
}
