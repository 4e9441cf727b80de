// Package api exposes the article catalog, the bare-hash payment
// endpoint, claps, and purchase history over HTTP.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/inkpress/inkgate/internal/claps"
	"github.com/inkpress/inkgate/internal/gate"
	"github.com/inkpress/inkgate/internal/ledger"
	"github.com/inkpress/inkgate/internal/proof"
	"github.com/inkpress/inkgate/internal/registry"
	"github.com/inkpress/inkgate/pkg/x402"
)

// Handler carries the collaborators the HTTP layer needs.
type Handler struct {
	registry  *registry.Registry
	ledger    *ledger.Ledger
	claps     *claps.Counter
	validator *proof.Validator
}

// NewHandler assembles the API handler.
func NewHandler(reg *registry.Registry, led *ledger.Ledger, counter *claps.Counter, validator *proof.Validator) *Handler {
	return &Handler{registry: reg, ledger: led, claps: counter, validator: validator}
}

// Register mounts all routes. The content route carries the payment gate;
// everything else is open.
func (h *Handler) Register(r *gin.Engine, g *gate.Gate) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/articles", h.listArticles)
	api.GET("/articles/:id", h.getArticle)
	api.GET("/articles/:id/content", g.GinMiddleware("id"), h.getContent)
	api.GET("/articles/:id/claps", h.getClaps)
	api.POST("/articles/:id/claps", h.postClap)
	api.POST("/pay", h.pay)
	api.GET("/purchases/:address", h.getPurchases)
}

type articleSummary struct {
	registry.Entry
	Preview string `json:"preview"`
	Claps   int    `json:"claps"`
}

func (h *Handler) listArticles(c *gin.Context) {
	entries := h.registry.All()
	out := make([]articleSummary, 0, len(entries))
	for _, e := range entries {
		total, err := h.claps.Total(c.Request.Context(), e.ID)
		if err != nil {
			slog.Error("clap total lookup failed", "article", e.ID, "error", err)
			total = e.BaseClaps
		}
		out = append(out, articleSummary{Entry: e, Preview: e.Preview, Claps: total})
	}
	c.JSON(http.StatusOK, gin.H{"articles": out})
}

func (h *Handler) getArticle(c *gin.Context) {
	entry, ok := h.registry.Lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	}
	total, err := h.claps.Total(c.Request.Context(), entry.ID)
	if err != nil {
		total = entry.BaseClaps
	}
	c.JSON(http.StatusOK, articleSummary{Entry: entry, Preview: entry.Preview, Claps: total})
}

// getContent runs behind the gate: by the time it executes the request is
// either for an ungated article or carries the verified-payment marker.
func (h *Handler) getContent(c *gin.Context) {
	entry, ok := h.registry.Lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"article": gin.H{
			"id":      entry.ID,
			"title":   entry.Title,
			"content": entry.Content,
		},
	})
}

type payRequest struct {
	ArticleID   string `json:"articleId"`
	TxHash      string `json:"txHash"`
	UserAddress string `json:"userAddress"`
}

// pay verifies a bare transaction-hash proof and records the purchase.
// Re-posting an already-recorded proof succeeds without a second grant.
func (h *Handler) pay(c *gin.Context) {
	var req payRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.ArticleID == "" || req.TxHash == "" || req.UserAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: articleId, txHash, userAddress"})
		return
	}

	entry, ok := h.registry.Lookup(req.ArticleID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	}

	accepted, err := h.validator.Validate(c.Request.Context(), proof.FromTxHash(req.TxHash, ""), req.ArticleID, x402.PaymentChallenge{})
	if err != nil {
		h.rejectPayment(c, err)
		return
	}

	if _, err := h.ledger.Record(c.Request.Context(), ledger.Purchase{
		ArticleID:   req.ArticleID,
		UserAddress: req.UserAddress,
		TxHash:      req.TxHash,
		Timestamp:   time.Now().UTC(),
		Amount:      accepted.Amount,
	}); err != nil {
		slog.Error("purchase record failed", "article", req.ArticleID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record purchase"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Payment verified successfully",
		"article": gin.H{
			"id":      entry.ID,
			"title":   entry.Title,
			"content": entry.Content,
		},
	})
}

func (h *Handler) rejectPayment(c *gin.Context, err error) {
	var pe *x402.PaymentError
	if !errors.As(err, &pe) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment verification failed"})
		return
	}
	status := http.StatusBadRequest
	switch pe.Code {
	case x402.ErrCodeFacilitatorUnreachable:
		status = http.StatusBadGateway
	case x402.ErrCodeUnknownResource:
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": pe.Message, "code": pe.Code})
}

type clapRequest struct {
	UserAddress string `json:"userAddress"`
}

func (h *Handler) postClap(c *gin.Context) {
	articleID := c.Param("id")
	if _, ok := h.registry.Lookup(articleID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	}

	var req clapRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userAddress is required"})
		return
	}

	total, err := h.claps.Increment(c.Request.Context(), articleID, req.UserAddress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record clap"})
		return
	}
	userClaps, err := h.claps.UserClaps(c.Request.Context(), articleID, req.UserAddress)
	if err != nil {
		userClaps = 0
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "userClaps": userClaps})
}

func (h *Handler) getClaps(c *gin.Context) {
	articleID := c.Param("id")
	if _, ok := h.registry.Lookup(articleID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	}
	total, err := h.claps.Total(c.Request.Context(), articleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read claps"})
		return
	}
	resp := gin.H{"total": total}
	if addr := c.Query("address"); addr != "" {
		if n, err := h.claps.UserClaps(c.Request.Context(), articleID, addr); err == nil {
			resp["userClaps"] = n
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getPurchases(c *gin.Context) {
	purchases, err := h.ledger.PurchasesFor(c.Request.Context(), c.Param("address"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read purchases"})
		return
	}
	if purchases == nil {
		purchases = []ledger.Purchase{}
	}
	c.JSON(http.StatusOK, gin.H{"purchases": purchases})
}
