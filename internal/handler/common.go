// Package handler exposes the allocation services over HTTP.  Handlers
// parse input, call one service operation and translate its error kind
// into a status code; all rules live in the service layer.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-allocation/internal/middleware"
	"github.com/iliyamo/restaurant-table-allocation/internal/model"
	"github.com/iliyamo/restaurant-table-allocation/internal/service"
)

func currentActor(c echo.Context) (model.Actor, bool) {
	return middleware.Actor(c)
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// query returns a query parameter with surrounding whitespace removed.
func query(c echo.Context, name string) string {
	return strings.TrimSpace(c.QueryParam(name))
}

// queryInt parses an optional integer query parameter; def is used when it
// is absent.
func queryInt(c echo.Context, name string, def int) (int, bool) {
	s := query(c, name)
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// respondError maps a service error to its HTTP status.  Unknown errors are
// logged and reported as 500 without detail.
func respondError(c echo.Context, err error) error {
	var se *service.Error
	msg := "internal error"
	if errors.As(err, &se) {
		msg = se.Msg
	}

	switch {
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	case errors.Is(err, service.ErrConflict):
		body := echo.Map{"error": msg}
		if se != nil && se.Suggestions != nil {
			body["suggestions"] = se.Suggestions
		}
		return c.JSON(http.StatusConflict, body)
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": msg})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": msg})
	case errors.Is(err, service.ErrCapacity):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": msg})
	case errors.Is(err, service.ErrTransientStore):
		c.Logger().Errorf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily unavailable, try again"})
	}
	c.Logger().Errorf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
