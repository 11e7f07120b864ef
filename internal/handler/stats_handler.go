package handler

import (
	"net/http"

	"savefood/internal/middleware"
	"savefood/internal/model"
	"savefood/internal/service"
	"savefood/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	statsService service.StatsService
	auth         *middleware.Auth
}

func NewStatsHandler(statsService service.StatsService, auth *middleware.Auth) *StatsHandler {
	return &StatsHandler{statsService: statsService, auth: auth}
}

func (h *StatsHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/admin/stats", h.auth.RequireRole(model.RoleAdmin), h.GetLifecycleStats)
}

// @Summary      Lifecycle statistics
// @Description  Buy requests created per period with their outcome and delivery progress. Defaults to the current month by day.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        group_by    query     string  false  "day | week | month"
// @Param        start_date  query     string  false  "Start Date (RFC3339)"
// @Param        end_date    query     string  false  "End Date (RFC3339)"
// @Success      200         {object}  response.Response{data=service.LifecycleStatsResponse}
// @Failure      400         {object}  response.Response
// @Router       /api/admin/stats [get]
func (h *StatsHandler) GetLifecycleStats(c *gin.Context) {
	res, err := h.statsService.GetLifecycleStats(c.Request.Context(), service.StatsFilter{
		GroupBy:   c.Query("group_by"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
