package controller

import (
	"learner_dashboard/internal/service"
	"learner_dashboard/internal/util"

	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	NotificationService *service.NotificationService
}

func NewNotificationController(notificationService *service.NotificationService) *NotificationController {
	return &NotificationController{NotificationService: notificationService}
}

// MarkReadRequest 为空时全部标记为已读
type MarkReadRequest struct {
	Indexes []int `json:"indexes"`
}

// GetNotifications godoc
// @Summary 通知列表
// @Tags 通知
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/notifications [get]
func (c *NotificationController) GetNotifications(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	list, err := c.NotificationService.List(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}

	util.Success(ctx, gin.H{
		"notifications": list,
		"unread":        unread,
	})
}

// MarkRead godoc
// @Summary 标记通知已读
// @Tags 通知
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body MarkReadRequest false "通知下标"
// @Success 200 {object} util.Response{data=object}
// @Router /api/notifications/read [post]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req MarkReadRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	changed, err := c.NotificationService.MarkRead(ctx.Request.Context(), user.UserID, req.Indexes)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"marked": changed})
}
