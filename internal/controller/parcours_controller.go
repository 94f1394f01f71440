package controller

import (
	"learner_dashboard/internal/service"
	"learner_dashboard/internal/util"

	"github.com/gin-gonic/gin"
)

type ParcoursController struct {
	ParcoursService *service.ParcoursService
}

func NewParcoursController(parcoursService *service.ParcoursService) *ParcoursController {
	return &ParcoursController{ParcoursService: parcoursService}
}

// ToggleWeekRequest swagger:model ToggleWeekRequest
type ToggleWeekRequest struct {
	Month   int  `json:"month" binding:"required,min=1"`
	Week    int  `json:"week" binding:"required,min=1"`
	Checked bool `json:"checked"`
}

// ListParcours godoc
// @Summary 学习路径列表
// @Tags 学习路径
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.ParcoursProgress}
// @Router /api/parcours [get]
func (c *ParcoursController) ListParcours(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	list, err := c.ParcoursService.List(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, list)
}

// GetParcours godoc
// @Summary 学习路径详情
// @Tags 学习路径
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "路径ID"
// @Success 200 {object} util.Response{data=service.ParcoursDetail}
// @Failure 404 {object} util.Response
// @Router /api/parcours/{id} [get]
func (c *ParcoursController) GetParcours(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	detail, err := c.ParcoursService.Get(ctx.Request.Context(), user.UserID, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, detail)
}

// ToggleWeek godoc
// @Summary 勾选或取消一周
// @Description 所有周勾选后路径完成并颁发证书；完成后返回 409
// @Tags 学习路径
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "路径ID"
// @Param body body ToggleWeekRequest true "周次"
// @Success 200 {object} util.Response{data=model.ParcoursProgress}
// @Failure 400 {object} util.Response "周次无效"
// @Failure 403 {object} util.Response "会员等级不足"
// @Failure 409 {object} util.Response "路径已完成"
// @Router /api/parcours/{id}/weeks [post]
func (c *ParcoursController) ToggleWeek(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req ToggleWeekRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	progress, err := c.ParcoursService.ToggleWeek(ctx.Request.Context(), user.UserID, ctx.Param("id"), req.Month, req.Week, req.Checked)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, progress)
}
