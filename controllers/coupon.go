// controllers/coupon.go
package controllers

import (
	"net/http"

	"loyalty-backend/models"
	"loyalty-backend/services"
	"loyalty-backend/utils"

	"github.com/gin-gonic/gin"
)

// CouponController is the shop admin's view of the coupon catalog. Every
// handler is scoped to the shop in the caller's token.
type CouponController struct {
	coupons services.CouponService
}

func NewCouponController(coupons services.CouponService) *CouponController {
	return &CouponController{coupons: coupons}
}

// CreateCoupon creates a new coupon for the shop
func (cc *CouponController) CreateCoupon(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}

	var input models.CreateCouponRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	coupon, err := cc.coupons.CreateCoupon(c.Request.Context(), shopID, &input)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	utils.RespondWithSuccess(c, http.StatusCreated, "Coupon created successfully", coupon)
}

// GetCoupons retrieves all coupons for the shop
func (cc *CouponController) GetCoupons(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}

	coupons, err := cc.coupons.ListCoupons(c.Request.Context(), shopID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve coupons")
		return
	}
	if coupons == nil {
		coupons = []models.Coupon{}
	}
	utils.RespondWithSuccess(c, http.StatusOK, "", coupons)
}

// GetCoupon retrieves a specific coupon by ID
func (cc *CouponController) GetCoupon(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}
	couponID, ok := pathUUID(c, "couponId", "coupon")
	if !ok {
		return
	}

	coupon, err := cc.coupons.GetCoupon(c.Request.Context(), shopID, couponID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	utils.RespondWithSuccess(c, http.StatusOK, "", coupon)
}

// UpdateCoupon replaces a coupon's details and can switch it back on
func (cc *CouponController) UpdateCoupon(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}
	couponID, ok := pathUUID(c, "couponId", "coupon")
	if !ok {
		return
	}

	var input models.CreateCouponRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	coupon, err := cc.coupons.UpdateCoupon(c.Request.Context(), shopID, couponID, &input)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	utils.RespondWithSuccess(c, http.StatusOK, "Coupon updated successfully", coupon)
}

// DeleteCoupon soft deletes a coupon
func (cc *CouponController) DeleteCoupon(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}
	couponID, ok := pathUUID(c, "couponId", "coupon")
	if !ok {
		return
	}

	if err := cc.coupons.DeactivateCoupon(c.Request.Context(), shopID, couponID); err != nil {
		respondWithServiceError(c, err)
		return
	}
	utils.RespondWithSuccess(c, http.StatusOK, "Coupon deactivated successfully", nil)
}
