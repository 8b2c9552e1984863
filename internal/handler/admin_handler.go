package handler

import (
	"errors"
	"net/http"

	"github.com/alpinetrails/payment-engine/internal/dto"
	"github.com/alpinetrails/payment-engine/internal/service"
	"github.com/labstack/echo/v4"
)

// AdminHandler exposes the lookups operators use when reconciling a charge
// by hand — the booking a gateway reference landed on, what is left on a
// gift card, the billing profile on file — plus manual cancellation.
type AdminHandler struct {
	bookings  service.BookingService
	giftCards service.GiftCardService
	profiles  service.ProfileService
}

func NewAdminHandler(bookings service.BookingService, giftCards service.GiftCardService, profiles service.ProfileService) *AdminHandler {
	return &AdminHandler{bookings: bookings, giftCards: giftCards, profiles: profiles}
}

func (h *AdminHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/bookings/:id", h.GetBooking)
	e.POST("/api/v1/bookings/:id/cancel", h.CancelBooking)
	e.GET("/api/v1/gift-cards/:code", h.GetGiftCard)
	e.GET("/api/v1/users/:id/profile", h.GetProfile)
}

func (h *AdminHandler) GetBooking(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, dto.ErrorResponse{Error: "booking id is required"})
	}

	booking, err := h.bookings.GetBooking(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrBookingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, dto.ErrorResponse{Error: "booking not found"})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, dto.ErrorResponse{Error: "booking lookup failed"})
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *AdminHandler) CancelBooking(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, dto.ErrorResponse{Error: "booking id is required"})
	}

	booking, err := h.bookings.CancelBooking(c.Request().Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBookingNotFound):
			return echo.NewHTTPError(http.StatusNotFound, dto.ErrorResponse{Error: "booking not found"})
		case errors.Is(err, service.ErrCannotCancel):
			return echo.NewHTTPError(http.StatusConflict, dto.ErrorResponse{Error: "booking can no longer be cancelled"})
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, dto.ErrorResponse{Error: "booking cancellation failed"})
		}
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *AdminHandler) GetProfile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, dto.ErrorResponse{Error: "user id is required"})
	}

	profile, err := h.profiles.GetProfile(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, dto.ErrorResponse{Error: "user profile not found"})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, dto.ErrorResponse{Error: "profile lookup failed"})
	}

	return c.JSON(http.StatusOK, profile)
}

func (h *AdminHandler) GetGiftCard(c echo.Context) error {
	code := c.Param("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, dto.ErrorResponse{Error: "gift card code is required"})
	}

	card, redemptions, err := h.giftCards.GetByCode(c.Request().Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrGiftCardNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, dto.ErrorResponse{Error: "gift card not found"})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, dto.ErrorResponse{Error: "gift card lookup failed"})
	}

	return c.JSON(http.StatusOK, dto.ToGiftCardResponse(card, redemptions))
}
