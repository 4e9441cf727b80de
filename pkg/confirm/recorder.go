package confirm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIRecorder records confirmed purchases against the gate's /api/pay
// endpoint, which re-verifies the transaction server side before
// writing the ledger entry.
type APIRecorder struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIRecorder targets the gate at baseURL, for example
// "http://localhost:8080".
func NewAPIRecorder(baseURL string, httpClient *http.Client) *APIRecorder {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &APIRecorder{baseURL: baseURL, httpClient: httpClient}
}

func (r *APIRecorder) Record(ctx context.Context, p Purchase) error {
	payload, err := json.Marshal(map[string]string{
		"articleId":   p.ArticleID,
		"txHash":      p.TxHash,
		"userAddress": p.UserAddress,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/pay", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("record purchase: gate returned %d", resp.StatusCode)
	}
	return nil
}
