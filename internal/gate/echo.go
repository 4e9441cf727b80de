package gate

import (
	"github.com/labstack/echo/v4"

	"github.com/inkpress/inkgate/pkg/x402"
)

// EchoMiddleware is the echo adapter over the same gate policy, for
// embedders whose resource server is echo rather than gin.
func (g *Gate) EchoMiddleware(articleParam string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := g.evaluate(c.Request(), c.Param(articleParam))

			switch {
			case d.passThrough:
				return next(c)
			case d.verified:
				c.Request().Header.Set(x402.HeaderPaymentVerified, "true")
				c.Request().Header.Set(x402.HeaderPaymentAmount, d.amount)
				return next(c)
			default:
				if d.header != "" {
					c.Response().Header().Set(x402.HeaderPaymentRequired, d.header)
				}
				return c.JSON(d.status, d.body)
			}
		}
	}
}
