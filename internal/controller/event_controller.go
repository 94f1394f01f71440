package controller

import (
	"learner_dashboard/internal/service"
	"learner_dashboard/internal/util"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type EventController struct {
	EventService    *service.EventService
	TrackingService *service.TrackingService
}

func NewEventController(eventService *service.EventService, trackingService *service.TrackingService) *EventController {
	return &EventController{EventService: eventService, TrackingService: trackingService}
}

// TrackEvent godoc
// @Summary 上报学习事件
// @Description LMS 回调：记录事件并同步更新连续天数、积分与徽章
// @Tags 事件
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param type path string true "事件类型" Enums(lesson-completed, course-completed, quiz-completed, course-started, forum-post, helpful-vote)
// @Param body body object false "事件负载"
// @Success 200 {object} util.Response{data=service.TrackResult}
// @Failure 400 {object} util.Response "事件类型无效"
// @Router /api/events/{type} [post]
func (c *EventController) TrackEvent(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	payload := map[string]interface{}{}
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&payload); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	result, err := c.TrackingService.Handle(ctx.Request.Context(), user.UserID, ctx.Param("type"), payload)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// ListEvents godoc
// @Summary 查询事件
// @Tags 事件
// @Produce json
// @Security ApiKeyAuth
// @Param types query string false "逗号分隔的事件类型"
// @Param days query int false "窗口（天）" default(30)
// @Success 200 {object} util.Response{data=[]model.Event}
// @Router /api/events [get]
func (c *EventController) ListEvents(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var types []string
	if raw := ctx.Query("types"); raw != "" {
		types = strings.Split(raw, ",")
	}
	days := util.ClampWindow(int(util.MustParseUint(ctx.DefaultQuery("days", "30"))))
	since := time.Now().AddDate(0, 0, -days)

	events, err := c.EventService.QueryEvents(ctx.Request.Context(), user.UserID, types, since, time.Time{})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, events)
}
