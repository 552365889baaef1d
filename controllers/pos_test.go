package controllers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"loyalty-backend/controllers"
	"loyalty-backend/models"
	"loyalty-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPOSService struct {
	validate func(apiKey, shopID, code string) (*services.ValidationResult, error)
	calls    int
}

func (s *stubPOSService) Validate(_ context.Context, apiKey, shopID, code string) (*services.ValidationResult, error) {
	s.calls++
	return s.validate(apiKey, shopID, code)
}

func posRouter(svc services.POSService) *gin.Engine {
	pc := controllers.NewPOSController(svc)
	router := gin.New()
	router.POST("/pos/coupons/validate", pc.ValidateCoupon)
	return router
}

func TestValidateCoupon_Success(t *testing.T) {
	shopID := uuid.New()
	validatedAt := time.Date(2026, 3, 14, 12, 3, 0, 0, time.UTC)
	svc := &stubPOSService{validate: func(apiKey, sid, code string) (*services.ValidationResult, error) {
		assert.Equal(t, "pos_key", apiKey)
		assert.Equal(t, shopID.String(), sid)
		assert.Equal(t, "K42-917", code)
		return &services.ValidationResult{
			Redemption: &models.Redemption{Code: code, Status: models.RedemptionUsed, ValidatedAt: &validatedAt},
			Coupon:     &models.Coupon{Name: "Spring Sale", Type: models.DiscountPercentage},
			Customer:   &models.User{ID: uuid.New(), Email: "ana@example.com", FirstName: "Ana", LastName: "Silva"},
			Shop:       &models.Shop{ID: shopID, Name: "Corner Bakery"},
			Discount: models.DiscountInfo{
				Type:    models.DiscountPercentage,
				Value:   decimal.NewFromInt(20),
				Message: "Apply 20% discount to Croissant",
			},
		}, nil
	}}

	body := `{"shop_id":"` + shopID.String() + `","redemption_id":"K42-917"}`
	w, resp := perform(t, posRouter(svc), http.MethodPost, "/pos/coupons/validate", body, map[string]string{"X-API-Key": "pos_key"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Coupon validated and redeemed successfully. Apply 20% discount to Croissant", resp.Message)
	assert.Equal(t, true, resp.Data["valid"])
	assert.Equal(t, "K42-917", resp.Data["redemption_id"])

	customer := resp.Data["customer"].(map[string]interface{})
	assert.Equal(t, "Ana Silva", customer["name"])
	assert.NotContains(t, customer, "points_balance")

	discount := resp.Data["discount_info"].(map[string]interface{})
	assert.Equal(t, float64(20), discount["value"])
	assert.Equal(t, "percentage", discount["type"])
}

func TestValidateCoupon_RequestErrors(t *testing.T) {
	svc := &stubPOSService{}
	router := posRouter(svc)

	w, resp := perform(t, router, http.MethodPost, "/pos/coupons/validate", `{"shop_id":"x","redemption_id":"A12-345"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "POS API key required", resp.Message)

	w, _ = perform(t, router, http.MethodPost, "/pos/coupons/validate", `{"shop_id":"x"}`, map[string]string{"X-API-Key": "k"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Zero(t, svc.calls)
}

func TestValidateCoupon_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		data   string
	}{
		{"bad key", services.ErrInvalidAPIKey, http.StatusUnauthorized, ""},
		{"foreign shop", services.ErrShopNotAssociated, http.StatusBadRequest, ""},
		{"unknown code", services.ErrRedemptionNotFound, http.StatusBadRequest, ""},
		{"shop mismatch", services.ErrShopMismatch, http.StatusBadRequest, ""},
		{"expired", services.ErrExpired, http.StatusBadRequest, ""},
		{"already used", &services.AlreadyFinalizedError{Status: models.RedemptionUsed}, http.StatusBadRequest, "used"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubPOSService{validate: func(string, string, string) (*services.ValidationResult, error) {
				return nil, tt.err
			}}
			body := `{"shop_id":"` + uuid.NewString() + `","redemption_id":"A12-345"}`
			w, resp := perform(t, posRouter(svc), http.MethodPost, "/pos/coupons/validate", body, map[string]string{"X-API-Key": "k"})

			assert.Equal(t, tt.status, w.Code)
			assert.False(t, resp.Success)
			if tt.data != "" {
				assert.Equal(t, tt.data, resp.Data["status"])
			}
		})
	}
}
