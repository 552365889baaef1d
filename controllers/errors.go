package controllers

import (
	"errors"
	"net/http"

	"loyalty-backend/services"
	"loyalty-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondWithServiceError maps domain errors to the response envelope.
// Unknown errors become a 500 without leaking their text.
func respondWithServiceError(c *gin.Context, err error) {
	var insufficient *services.InsufficientPointsError
	var finalized *services.AlreadyFinalizedError
	var invalidSpec *services.InvalidCouponSpecError
	var compensation *services.CompensationFailedError

	switch {
	case errors.As(err, &insufficient):
		utils.RespondWithErrorData(c, http.StatusBadRequest, "Insufficient loyalty points", gin.H{
			"points_required":  insufficient.Required,
			"points_available": insufficient.Available,
			"points_needed":    insufficient.Shortfall(),
		})
	case errors.As(err, &finalized):
		utils.RespondWithErrorData(c, http.StatusBadRequest, finalized.Error(), gin.H{"status": finalized.Status})
	case errors.As(err, &invalidSpec):
		utils.RespondWithErrorData(c, http.StatusBadRequest, invalidSpec.Error(), gin.H{"field": invalidSpec.Field})
	case errors.As(err, &compensation):
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to activate coupon")
	case errors.Is(err, services.ErrCouponNotFound),
		errors.Is(err, services.ErrAccountNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrShopNotFound):
		utils.RespondWithError(c, http.StatusNotFound, capitalize(err.Error()))
	case errors.Is(err, services.ErrNoLoyaltyAccount),
		errors.Is(err, services.ErrRedemptionNotFound),
		errors.Is(err, services.ErrShopMismatch),
		errors.Is(err, services.ErrExpired),
		errors.Is(err, services.ErrShopNotAssociated),
		errors.Is(err, services.ErrMalformedRedemptionCode),
		errors.Is(err, services.ErrInvalidAmount):
		utils.RespondWithError(c, http.StatusBadRequest, capitalize(err.Error()))
	case errors.Is(err, services.ErrInvalidAPIKey),
		errors.Is(err, services.ErrInvalidCredentials):
		utils.RespondWithError(c, http.StatusUnauthorized, capitalize(err.Error()))
	case errors.Is(err, services.ErrEmailTaken):
		utils.RespondWithError(c, http.StatusConflict, capitalize(err.Error()))
	case errors.Is(err, services.ErrIDGenerationExhausted):
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate unique redemption ID")
	case errors.Is(err, services.ErrReservationFailed):
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to activate coupon")
	default:
		utils.RespondWithError(c, http.StatusInternalServerError, "Internal server error")
	}
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

// contextUUID reads a UUID the auth middleware stored under key.
func contextUUID(c *gin.Context, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString(key))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := contextUUID(c, utils.ContextUserID)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
	}
	return id, ok
}

func currentShopID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := contextUUID(c, utils.ContextShopID)
	if !ok {
		utils.RespondWithError(c, http.StatusForbidden, "Shop ID not found in context")
	}
	return id, ok
}

func pathUUID(c *gin.Context, param, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+label+" ID format")
		return uuid.Nil, false
	}
	return id, true
}
