package controllers

import (
	"net/http"

	"loyalty-backend/models"
	"loyalty-backend/services"
	"loyalty-backend/utils"

	"github.com/gin-gonic/gin"
)

const apiKeyHeader = "x-api-key"

type POSController struct {
	pos services.POSService
}

func NewPOSController(pos services.POSService) *POSController {
	return &POSController{pos: pos}
}

// ValidateCoupon finalizes a redemption for a point-of-sale terminal. The
// response never includes points balances.
func (pc *POSController) ValidateCoupon(c *gin.Context) {
	apiKey := c.GetHeader(apiKeyHeader)
	if apiKey == "" {
		utils.RespondWithError(c, http.StatusUnauthorized, "POS API key required")
		return
	}

	var input models.ValidateRedemptionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "shop_id and redemption_id are required")
		return
	}

	result, err := pc.pos.Validate(c.Request.Context(), apiKey, input.ShopID, input.RedemptionID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	redemption := result.Redemption
	utils.RespondWithSuccess(c, http.StatusOK, "Coupon validated and redeemed successfully. "+result.Discount.Message, gin.H{
		"redemption_id": redemption.Code,
		"coupon":        couponSummary(result.Coupon),
		"customer": gin.H{
			"id":    result.Customer.ID,
			"email": result.Customer.Email,
			"name":  result.Customer.DisplayName(),
		},
		"shop": gin.H{
			"id":   result.Shop.ID,
			"name": result.Shop.Name,
		},
		"discount_info": result.Discount,
		"valid":         true,
		"redeemed_at":   redemption.ReservedAt,
		"validated_at":  redemption.ValidatedAt,
	})
}
