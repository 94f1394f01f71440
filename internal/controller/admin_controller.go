package controller

import (
	"learner_dashboard/internal/service"
	"learner_dashboard/internal/util"

	"github.com/gin-gonic/gin"
)

// AdminController 手动触发定时任务
type AdminController struct {
	ReportService *service.ReportService
}

func NewAdminController(reportService *service.ReportService) *AdminController {
	return &AdminController{ReportService: reportService}
}

// RefreshTopLearners godoc
// @Summary 刷新排行榜
// @Tags 管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/admin/jobs/top-learners [post]
func (c *AdminController) RefreshTopLearners(ctx *gin.Context) {
	n, err := c.ReportService.RefreshTopLearners(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"ranked": n})
}

// RunCleanup godoc
// @Summary 清理过期聊天记录与事件
// @Tags 管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/admin/jobs/cleanup [post]
func (c *AdminController) RunCleanup(ctx *gin.Context) {
	if err := c.ReportService.Cleanup(ctx.Request.Context()); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Cleanup done"})
}

// SendWeeklyReports godoc
// @Summary 立即发送周报
// @Tags 管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/admin/jobs/weekly-reports [post]
func (c *AdminController) SendWeeklyReports(ctx *gin.Context) {
	sent, err := c.ReportService.SendWeeklyReports(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"sent": sent})
}
