package controller

import (
	"learner_dashboard/internal/service"
	"learner_dashboard/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ChatbotController struct {
	ChatbotService *service.ChatbotService
}

func NewChatbotController(chatbotService *service.ChatbotService) *ChatbotController {
	return &ChatbotController{ChatbotService: chatbotService}
}

// ChatMessageRequest swagger:model ChatMessageRequest
type ChatMessageRequest struct {
	Message string `json:"message" binding:"required,max=1000"`
}

// SendMessage godoc
// @Summary 发送聊天消息
// @Description 机器人内部出错时仍返回 200，type 为 error
// @Tags 聊天机器人
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body ChatMessageRequest true "消息"
// @Success 200 {object} util.Response{data=service.ChatResponse}
// @Router /api/chatbot/message [post]
func (c *ChatbotController) SendMessage(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req ChatMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Success(ctx, c.ChatbotService.ProcessMessage(ctx.Request.Context(), user.UserID, req.Message))
}

// GetHistory godoc
// @Summary 聊天记录
// @Tags 聊天机器人
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "条数，最多 50" default(50)
// @Success 200 {object} util.Response{data=[]model.ChatMessage}
// @Router /api/chatbot/history [get]
func (c *ChatbotController) GetHistory(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	history, err := c.ChatbotService.History(ctx.Request.Context(), user.UserID, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, history)
}

// GetKeywords godoc
// @Summary 聊天关键词统计
// @Tags 管理
// @Produce json
// @Security ApiKeyAuth
// @Param days query int false "统计窗口（天）" default(30)
// @Param top query int false "返回前 N 个" default(20)
// @Success 200 {object} util.Response{data=[]model.KeywordCount}
// @Router /api/admin/chatbot/keywords [get]
func (c *ChatbotController) GetKeywords(ctx *gin.Context) {
	days, _ := strconv.Atoi(ctx.DefaultQuery("days", "30"))
	top, _ := strconv.Atoi(ctx.DefaultQuery("top", "20"))

	counts, err := c.ChatbotService.KeywordFrequency(ctx.Request.Context(), util.ClampWindow(days), top)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, counts)
}
