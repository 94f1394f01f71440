package controller

import (
	"learner_dashboard/internal/model"
	"learner_dashboard/internal/service"
	"learner_dashboard/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	ProgressService *service.ProgressService
}

func NewCourseController(progressService *service.ProgressService) *CourseController {
	return &CourseController{ProgressService: progressService}
}

// GetProgress godoc
// @Summary 课程进度
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=model.CourseProgress}
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{courseId}/progress [get]
func (c *CourseController) GetProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	courseID, err := strconv.ParseUint(ctx.Param("courseId"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid courseId")
		return
	}

	progress, err := c.ProgressService.CalculateCourseProgress(ctx.Request.Context(), user.UserID, uint(courseID))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, progress)
}

// GetRecommendations godoc
// @Summary 推荐课程
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "数量" default(5)
// @Success 200 {object} util.Response{data=[]service.Recommendation}
// @Router /api/courses/recommendations [get]
func (c *CourseController) GetRecommendations(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "5"))
	recs, err := c.ProgressService.RecommendCourses(ctx.Request.Context(), user.UserID, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, recs)
}

// GetPreferences godoc
// @Summary 推荐偏好
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.Preferences}
// @Router /api/courses/preferences [get]
func (c *CourseController) GetPreferences(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	prefs, err := c.ProgressService.Preferences(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, prefs)
}

// UpdatePreferences godoc
// @Summary 更新推荐偏好
// @Tags 课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body model.Preferences true "偏好"
// @Success 200 {object} util.Response{data=model.Preferences}
// @Router /api/courses/preferences [put]
func (c *CourseController) UpdatePreferences(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var prefs model.Preferences
	if err := ctx.ShouldBindJSON(&prefs); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.ProgressService.SavePreferences(ctx.Request.Context(), user.UserID, prefs); err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, prefs)
}
