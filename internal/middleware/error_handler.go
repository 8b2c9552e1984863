package middleware

import (
	"net/http"
	"time"

	"github.com/alpinetrails/payment-engine/internal/dto"
	"github.com/labstack/echo/v4"
)

// ErrorHandler shapes every uncaught error into the structured response the
// gateway and support tooling expect. Internal detail stays out of 5xx
// bodies; the timestamp is there to correlate with delivery logs.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "internal server error"
	details := ""

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		switch m := he.Message.(type) {
		case string:
			msg = m
		case dto.ErrorResponse:
			msg = m.Error
			details = m.Details
		default:
			msg = http.StatusText(code)
		}
	}

	_ = c.JSON(code, dto.ErrorResponse{
		Error:     msg,
		Details:   details,
		Timestamp: time.Now().UTC(),
	})
}
