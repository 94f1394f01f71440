package controller

import (
	"learner_dashboard/internal/service"
	"learner_dashboard/internal/util"

	"github.com/gin-gonic/gin"
)

type ProfileController struct {
	ProfileService *service.ProfileService
}

func NewProfileController(profileService *service.ProfileService) *ProfileController {
	return &ProfileController{ProfileService: profileService}
}

// ChangePasswordRequest swagger:model ChangePasswordRequest
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// UpdateEmailRequest swagger:model UpdateEmailRequest
type UpdateEmailRequest struct {
	Email string `json:"email"`
}

// ChangePassword godoc
// @Summary 修改密码
// @Description 字段校验失败返回 422，data 中给出字段名
// @Tags 个人资料
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body ChangePasswordRequest true "密码"
// @Success 200 {object} util.Response
// @Failure 422 {object} util.Response{data=util.ValidationError}
// @Router /api/profile/password [put]
func (c *ProfileController) ChangePassword(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req ChangePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.ProfileService.ChangePassword(ctx.Request.Context(), user.UserID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"message": "Password updated"})
}

// UpdateEmail godoc
// @Summary 修改邮箱
// @Tags 个人资料
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body UpdateEmailRequest true "新邮箱"
// @Success 200 {object} util.Response
// @Failure 422 {object} util.Response{data=util.ValidationError}
// @Router /api/profile/email [put]
func (c *ProfileController) UpdateEmail(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req UpdateEmailRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.ProfileService.UpdateEmail(ctx.Request.Context(), user.UserID, req.Email); err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"message": "Email updated"})
}
