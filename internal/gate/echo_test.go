package gate

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/inkpress/inkgate/pkg/x402"
)

func TestEchoMiddleware(t *testing.T) {
	f := newFixture(t, &stubFacilitator{})

	e := echo.New()
	e.GET("/api/articles/:id/content", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"verified": c.Request().Header.Get(x402.HeaderPaymentVerified),
		})
	}, f.gate.EchoMiddleware("id"))

	req := httptest.NewRequest(http.MethodGet, "/api/articles/1/content", nil)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", w.Code)
	}
	if w.Header().Get(x402.HeaderPaymentRequired) == "" {
		t.Error("402 is missing the payment-required header mirror")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/articles/3/content", nil)
	w = httptest.NewRecorder()
	e.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("free article status = %d, want 200", w.Code)
	}
}
