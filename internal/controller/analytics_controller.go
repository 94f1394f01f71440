package controller

import (
	"learner_dashboard/internal/service"
	"learner_dashboard/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	AnalyticsService *service.AnalyticsService
}

func NewAnalyticsController(analyticsService *service.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{AnalyticsService: analyticsService}
}

// GetAnalytics godoc
// @Summary 学习分析报表
// @Description 按类别返回报表；数据源不可用时 degraded_sources 列出缺失的数据源
// @Tags 分析
// @Produce json
// @Security ApiKeyAuth
// @Param category path string true "报表类别" Enums(overview, courses, activity, performance, engagement)
// @Param days query int false "统计窗口（天）" default(30)
// @Success 200 {object} util.Response{data=model.AnalyticsReport}
// @Failure 400 {object} util.Response "类别无效"
// @Router /api/analytics/{category} [get]
func (c *AnalyticsController) GetAnalytics(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	days := util.DefaultWindowDays
	if raw := ctx.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > util.MaxWindowDays {
			util.BadRequest(ctx, "invalid days")
			return
		}
		days = n
	}

	report, err := c.AnalyticsService.GetUserAnalytics(ctx.Request.Context(), user.UserID, ctx.Param("category"), days)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, report)
}
