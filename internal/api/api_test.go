package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/inkgate/internal/challenge"
	"github.com/inkpress/inkgate/internal/claps"
	"github.com/inkpress/inkgate/internal/gate"
	"github.com/inkpress/inkgate/internal/ledger"
	"github.com/inkpress/inkgate/internal/proof"
	"github.com/inkpress/inkgate/internal/registry"
	"github.com/inkpress/inkgate/internal/storage"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg, err := registry.LoadFile("")
	require.NoError(t, err)

	issuer, err := challenge.NewIssuer(challenge.Terms{
		Network:       "base-sepolia",
		Asset:         "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		AssetName:     "USDC",
		AssetDecimals: 6,
		PayTo:         "0xad70845D9AE0B40CB68Cc289414Ea21b1Ce18BC8",
	})
	require.NoError(t, err)

	validator, err := proof.NewValidator(proof.Config{Registry: reg, AssetDecimals: 6, InsecureDemo: true})
	require.NoError(t, err)

	store := storage.NewMemoryStore()
	led := ledger.New(store)
	counter := claps.New(store, func(id string) int {
		if e, ok := reg.Lookup(id); ok {
			return e.BaseClaps
		}
		return 0
	})

	g := gate.New(reg, issuer, validator, led, nil)
	h := NewHandler(reg, led, counter, validator)

	router := gin.New()
	h.Register(router, g)
	return router
}

func doJSON(router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListArticles(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/api/articles", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Articles []struct {
			ID      string `json:"id"`
			Paid    bool   `json:"paid"`
			Preview string `json:"preview"`
			Claps   int    `json:"claps"`
		} `json:"articles"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Articles, 5)
	require.True(t, resp.Articles[0].Paid)
	require.Equal(t, 2847, resp.Articles[0].Claps)

	// The listing never includes full content.
	require.NotContains(t, w.Body.String(), `"content"`)
}

func TestGetArticleNotFound(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(router, http.MethodGet, "/api/articles/999", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPayRecordsAndUnlocks(t *testing.T) {
	router := newTestRouter(t)
	txHash := "0x" + strings.Repeat("ab", 32)

	w := doJSON(router, http.MethodPost, "/api/pay", map[string]string{
		"articleId":   "1",
		"txHash":      txHash,
		"userAddress": "0xReader",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Success bool `json:"success"`
		Article struct {
			Content string `json:"content"`
		} `json:"article"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Article.Content)

	// The purchase shows up in the profile, lowercased.
	w = doJSON(router, http.MethodGet, "/api/purchases/0xreader", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var purchases struct {
		Purchases []struct {
			ArticleID string `json:"articleId"`
			TxHash    string `json:"txHash"`
			Amount    string `json:"amount"`
		} `json:"purchases"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &purchases))
	require.Len(t, purchases.Purchases, 1)
	require.Equal(t, "1", purchases.Purchases[0].ArticleID)
	require.Equal(t, "0.05", purchases.Purchases[0].Amount)

	// The gate now serves the content without a payment header.
	req := httptest.NewRequest(http.MethodGet, "/api/articles/1/content", nil)
	req.Header.Set(gate.HeaderUserAddress, "0xREADER")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPayIsIdempotent(t *testing.T) {
	router := newTestRouter(t)
	payload := map[string]string{
		"articleId":   "1",
		"txHash":      "0x" + strings.Repeat("cd", 32),
		"userAddress": "0xreader",
	}

	for i := 0; i < 3; i++ {
		w := doJSON(router, http.MethodPost, "/api/pay", payload)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doJSON(router, http.MethodGet, "/api/purchases/0xreader", nil)
	var purchases struct {
		Purchases []json.RawMessage `json:"purchases"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &purchases))
	require.Len(t, purchases.Purchases, 1)
}

func TestPayRejections(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/pay", map[string]string{"articleId": "1"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/api/pay", map[string]string{
		"articleId": "999", "txHash": "0x" + strings.Repeat("ab", 32), "userAddress": "0xreader",
	})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodPost, "/api/pay", map[string]string{
		"articleId": "1", "txHash": "0x123", "userAddress": "0xreader",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGatedContentChallenged(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(router, http.MethodGet, "/api/articles/1/content", nil)
	require.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestClapsFlow(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/api/articles/1/claps", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Total     int `json:"total"`
		UserClaps int `json:"userClaps"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2847, resp.Total)

	w = doJSON(router, http.MethodPost, "/api/articles/1/claps", map[string]string{"userAddress": "0xfan"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2848, resp.Total)
	require.Equal(t, 1, resp.UserClaps)

	w = doJSON(router, http.MethodGet, "/api/articles/1/claps?address=0xFAN", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.UserClaps)

	w = doJSON(router, http.MethodPost, "/api/articles/999/claps", map[string]string{"userAddress": "0xfan"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodPost, "/api/articles/1/claps", map[string]string{})
	require.Equal(t, http.StatusBadRequest, w.Code)
}
