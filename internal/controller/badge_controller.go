package controller

import (
	"learner_dashboard/internal/service"
	"learner_dashboard/internal/util"

	"github.com/gin-gonic/gin"
)

type BadgeController struct {
	BadgeService *service.BadgeService
}

func NewBadgeController(badgeService *service.BadgeService) *BadgeController {
	return &BadgeController{BadgeService: badgeService}
}

// GetBadges godoc
// @Summary 当前徽章
// @Description 返回徽章等级、特殊徽章与积分
// @Tags 徽章
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.BadgeStatus}
// @Router /api/badges [get]
func (c *BadgeController) GetBadges(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	status, err := c.BadgeService.GetStatus(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, status)
}

// Recompute godoc
// @Summary 重新计算徽章
// @Tags 徽章
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.BadgeStatus}
// @Router /api/badges/recompute [post]
func (c *BadgeController) Recompute(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	status, err := c.BadgeService.Recompute(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, status)
}

// GetMetrics godoc
// @Summary 徽章判定所用的指标
// @Tags 徽章
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.BadgeMetrics}
// @Router /api/badges/metrics [get]
func (c *BadgeController) GetMetrics(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	metrics, degraded, err := c.BadgeService.ComputeMetrics(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"metrics":          metrics,
		"degraded_sources": degraded,
	})
}
