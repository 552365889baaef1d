package controllers

import (
	"net/http"
	"strconv"

	"loyalty-backend/models"
	"loyalty-backend/services"
	"loyalty-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreditPointsInput defines the expected JSON structure for crediting points
type CreditPointsInput struct {
	CustomerID string `json:"customer_id" binding:"required"`
	Amount     int64  `json:"amount" binding:"required,min=1"`
	Reason     string `json:"reason"`
}

// ShopAdminController serves a shop's redemption history and manual point
// credits.
type ShopAdminController struct {
	redemptions services.RedemptionService
	ledger      services.LedgerService
	logger      *zap.Logger
}

func NewShopAdminController(redemptions services.RedemptionService, ledger services.LedgerService, logger *zap.Logger) *ShopAdminController {
	return &ShopAdminController{redemptions: redemptions, ledger: ledger, logger: logger}
}

// GetRedemptions lists the shop's redemptions, optionally filtered by status
func (sc *ShopAdminController) GetRedemptions(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}

	status := models.RedemptionStatus(c.Query("status"))
	switch status {
	case "", models.RedemptionActive, models.RedemptionUsed, models.RedemptionExpired, models.RedemptionCancelled:
	default:
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid status filter")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	redemptions, err := sc.redemptions.ListForShop(c.Request.Context(), shopID, status, limit)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve redemptions")
		return
	}
	if redemptions == nil {
		redemptions = []models.Redemption{}
	}
	utils.RespondWithSuccess(c, http.StatusOK, "", redemptions)
}

// CreditPoints adds points to a customer's account at the caller's shop
func (sc *ShopAdminController) CreditPoints(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}

	var input CreditPointsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	customerID, err := uuid.Parse(input.CustomerID)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
		return
	}

	balance, err := sc.ledger.Credit(c.Request.Context(), customerID, shopID, input.Amount)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	sc.logger.Info("Points credited by shop admin",
		zap.String("shop_id", shopID.String()),
		zap.String("customer_id", customerID.String()),
		zap.String("admin_id", c.GetString(utils.ContextUserID)),
		zap.Int64("amount", input.Amount),
		zap.String("reason", input.Reason),
	)
	utils.RespondWithSuccess(c, http.StatusOK, "Points credited successfully", gin.H{
		"customer_id":    customerID,
		"shop_id":        shopID,
		"points_added":   input.Amount,
		"points_balance": balance,
	})
}
