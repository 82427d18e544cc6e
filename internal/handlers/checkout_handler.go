package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zapikart/shopify-mpwa/internal/models"
	"github.com/zapikart/shopify-mpwa/internal/services"
)

// CODResponse is the envelope of both checkout steps. Callers branch on OK,
// not on the HTTP status: an expired or wrong OTP is still a 200.
type CODResponse struct {
	OK    bool            `json:"ok"`
	Msg   string          `json:"msg,omitempty"`
	Order json.RawMessage `json:"order,omitempty" swaggertype:"object"`
}

type VerifyCODRequest struct {
	Phone models.FlexString `json:"phone"`
	OTP   models.FlexString `json:"otp"`
}

type CheckoutHandler struct {
	Service *services.CheckoutService
}

func NewCheckoutHandler(s *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{Service: s}
}

// @Summary      Start COD checkout
// @Description  Stores the checkout draft and sends a 6-digit OTP to the phone over WhatsApp
// @Tags         COD
// @Accept       json
// @Produce      json
// @Param        draft  body      models.CheckoutDraft  true  "Checkout form"
// @Success      200    {object}  CODResponse
// @Failure      400    {object}  CODResponse
// @Failure      500    {object}  CODResponse
// @Router       /start-cod [post]
func (h *CheckoutHandler) StartCOD(c *gin.Context) {
	var draft models.CheckoutDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, CODResponse{OK: false, Msg: "Invalid input"})
		return
	}

	err := h.Service.Start(c.Request.Context(), draft)
	var nErr *services.NotificationError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, CODResponse{OK: true, Msg: "OTP sent!"})
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, CODResponse{OK: false, Msg: "Missing phone / variant / quantity"})
	case errors.As(err, &nErr):
		slog.Error("[cod][start] otp delivery failed", "error", err)
		c.JSON(http.StatusInternalServerError, CODResponse{OK: false, Msg: "Could not send OTP"})
	default:
		slog.Error("[cod][start] failed", "error", err)
		c.JSON(http.StatusInternalServerError, CODResponse{OK: false})
	}
}

// @Summary      Verify OTP and create the COD order
// @Tags         COD
// @Accept       json
// @Produce      json
// @Param        body  body      VerifyCODRequest  true  "Phone and OTP"
// @Success      200   {object}  CODResponse
// @Failure      400   {object}  CODResponse
// @Failure      500   {object}  CODResponse
// @Router       /verify-cod [post]
func (h *CheckoutHandler) VerifyCOD(c *gin.Context) {
	var req VerifyCODRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, CODResponse{OK: false, Msg: "Invalid input"})
		return
	}

	created, err := h.Service.Verify(c.Request.Context(), req.Phone.String(), req.OTP.String())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionExpired):
			c.JSON(http.StatusOK, CODResponse{OK: false, Msg: "Session expired"})
		case errors.Is(err, services.ErrInvalidOTP):
			c.JSON(http.StatusOK, CODResponse{OK: false, Msg: "Invalid OTP"})
		case errors.Is(err, services.ErrTooManyAttempts):
			c.JSON(http.StatusOK, CODResponse{OK: false, Msg: "Too many attempts, please request a new OTP"})
		case errors.Is(err, services.ErrOrderCreationFailed):
			c.JSON(http.StatusInternalServerError, CODResponse{OK: false, Msg: "Shopify order create failed"})
		default:
			slog.Error("[cod][verify] failed", "error", err)
			c.JSON(http.StatusInternalServerError, CODResponse{OK: false})
		}
		return
	}

	c.JSON(http.StatusOK, CODResponse{OK: true, Order: created.Raw})
}
