// controllers/report.go
package controllers

import (
	"net/http"

	"loyalty-backend/services"
	"loyalty-backend/utils"

	"github.com/gin-gonic/gin"
)

// ReportController serves shop admin analytics.
type ReportController struct {
	reports services.ReportService
}

func NewReportController(reports services.ReportService) *ReportController {
	return &ReportController{reports: reports}
}

// GetReportAnalytics returns the caller's shop summary
func (rc *ReportController) GetReportAnalytics(c *gin.Context) {
	shopID, ok := currentShopID(c)
	if !ok {
		return
	}

	report, err := rc.reports.ShopSummary(c.Request.Context(), shopID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to build report")
		return
	}
	utils.RespondWithSuccess(c, http.StatusOK, "", report)
}
