package controllers

import (
	"net/http"

	"loyalty-backend/models"
	"loyalty-backend/services"
	"loyalty-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CreateShopInput struct {
	Name          string `json:"name" binding:"required"`
	PointsPerEuro int64  `json:"points_per_euro"`
	POSProviderID string `json:"pos_provider_id"`
}

type CreatePOSProviderInput struct {
	Name string `json:"name" binding:"required"`
}

type CreateUserInput struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone"`
}

type CreateTestCustomerInput struct {
	CreateUserInput
	InitialPoints *int64 `json:"initial_points"`
}

// AdminController serves platform admin onboarding and testing tools.
type AdminController struct {
	admin services.AdminService
}

func NewAdminController(admin services.AdminService) *AdminController {
	return &AdminController{admin: admin}
}

func (ac *AdminController) CreateShop(c *gin.Context) {
	var input CreateShopInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var providerID *uuid.UUID
	if input.POSProviderID != "" {
		id, err := uuid.Parse(input.POSProviderID)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid POS provider ID format")
			return
		}
		providerID = &id
	}

	shop, err := ac.admin.CreateShop(c.Request.Context(), input.Name, input.PointsPerEuro, providerID)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	utils.RespondWithSuccess(c, http.StatusCreated, "Shop created successfully", shop)
}

// CreatePOSProvider returns the API key exactly once.
func (ac *AdminController) CreatePOSProvider(c *gin.Context) {
	var input CreatePOSProviderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	provider, apiKey, err := ac.admin.CreatePOSProvider(c.Request.Context(), input.Name)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}
	utils.RespondWithSuccess(c, http.StatusCreated, "Store this API key now, it will not be shown again", gin.H{
		"provider": provider,
		"api_key":  apiKey,
	})
}

func (ac *AdminController) CreateShopAdmin(c *gin.Context) {
	shopID, ok := pathUUID(c, "shopId", "shop")
	if !ok {
		return
	}

	var input CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	user := input.toUser()
	if err := ac.admin.CreateShopAdmin(c.Request.Context(), shopID, user); err != nil {
		respondWithServiceError(c, err)
		return
	}
	utils.RespondWithSuccess(c, http.StatusCreated, "Shop admin created successfully", user)
}

func (ac *AdminController) CreateTestCustomer(c *gin.Context) {
	var input CreateTestCustomerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Email, password, first_name, and last_name are required")
		return
	}
	if input.Phone != "" && !utils.ValidatePhone(input.Phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
		return
	}

	result, err := ac.admin.CreateTestCustomer(c.Request.Context(), services.TestCustomerInput{
		Email:         input.Email,
		Password:      input.Password,
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		Phone:         input.Phone,
		InitialPoints: input.InitialPoints,
	})
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	accounts := result.Accounts
	if accounts == nil {
		accounts = []models.LoyaltyAccount{}
	}
	utils.RespondWithSuccess(c, http.StatusCreated, "Test customer created successfully", gin.H{
		"customer":         result.Customer,
		"loyalty_accounts": accounts,
	})
}

func (in CreateUserInput) toUser() *models.User {
	return &models.User{
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
	}
}
