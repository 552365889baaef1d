package controllers

import (
	"net/http"
	"time"

	"loyalty-backend/models"
	"loyalty-backend/services"
	"loyalty-backend/utils"

	"github.com/gin-gonic/gin"
)

// RedemptionController serves the customer side of the redemption
// lifecycle.
type RedemptionController struct {
	redemptions services.RedemptionService
	ledger      services.LedgerService
}

func NewRedemptionController(redemptions services.RedemptionService, ledger services.LedgerService) *RedemptionController {
	return &RedemptionController{redemptions: redemptions, ledger: ledger}
}

// ActivateCoupon reserves a coupon for the caller: points are debited now
// and a short-lived redemption code is returned.
func (rc *RedemptionController) ActivateCoupon(c *gin.Context) {
	customerID, ok := currentUserID(c)
	if !ok {
		return
	}
	couponID, ok := pathUUID(c, "couponId", "coupon")
	if !ok {
		return
	}

	result, err := rc.redemptions.Reserve(c.Request.Context(), customerID, couponID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	redemption := result.Redemption
	shop := gin.H{"id": result.Coupon.ShopID}
	if result.Coupon.Shop != nil {
		shop["name"] = result.Coupon.Shop.Name
	}

	utils.RespondWithSuccess(c, http.StatusOK, "Coupon activated successfully", gin.H{
		"redemption_id": redemption.Code,
		"qr_code_data":  redemption.Code,
		"coupon":        couponSummary(result.Coupon),
		"customer": gin.H{
			"points_balance_before": result.BalanceBefore,
			"points_balance_after":  result.BalanceAfter,
			"points_redeemed":       redemption.PointsDeducted,
		},
		"shop":              shop,
		"expires_at":        redemption.ExpiresAt,
		"valid_for_minutes": int(rc.redemptions.TTL() / time.Minute),
	})
}

// CancelRedemption releases the caller's own active redemption and refunds
// its points.
func (rc *RedemptionController) CancelRedemption(c *gin.Context) {
	customerID, ok := currentUserID(c)
	if !ok {
		return
	}
	code := c.Param("redemptionId")
	if !utils.ValidRedemptionCode(code) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid redemption code format")
		return
	}

	result, err := rc.redemptions.Cancel(c.Request.Context(), customerID, code)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	utils.RespondWithSuccess(c, http.StatusOK, "Coupon redemption cancelled", gin.H{
		"redemption_id":        result.Redemption.Code,
		"status":               result.Redemption.Status,
		"points_refunded":      result.Refunded,
		"points_balance_after": result.BalanceAfter,
	})
}

func (rc *RedemptionController) GetBalance(c *gin.Context) {
	customerID, ok := currentUserID(c)
	if !ok {
		return
	}
	shopID, ok := pathUUID(c, "shopId", "shop")
	if !ok {
		return
	}

	balance, err := rc.ledger.GetBalance(c.Request.Context(), customerID, shopID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	utils.RespondWithSuccess(c, http.StatusOK, "", gin.H{
		"shop_id":        shopID,
		"points_balance": balance,
	})
}

func couponSummary(coupon *models.Coupon) gin.H {
	return gin.H{
		"id":          coupon.ID,
		"type":        coupon.Type,
		"name":        coupon.Name,
		"description": coupon.Description,
		"articles":    coupon.Articles,
	}
}
