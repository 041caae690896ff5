package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mentorship/core/risk"
)

func registerRiskAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	rg := g.Group("/risk", jwt)
	rg.POST("/assess", assessRisk)
}

// assessRisk classifies raw factors; it touches no stored data.
func assessRisk(ctx echo.Context) error {
	var data risk.Factors
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Factors")
	}

	a, err := risk.Assess(data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}
