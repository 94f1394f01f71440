package controller

import (
	"context"
	"learner_dashboard/internal/service"
	"learner_dashboard/internal/util"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// ActivityProbe LMS 学习记录表是否可读
type ActivityProbe interface {
	Available(ctx context.Context) bool
}

type HealthController struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Activity ActivityProbe
	started  time.Time
}

func NewHealthController(db *gorm.DB, rdb *redis.Client, activity ActivityProbe) *HealthController {
	return &HealthController{DB: db, Redis: rdb, Activity: activity, started: time.Now()}
}

// @Summary 健康检查
// @Description 数据库不可用时返回 503；Redis 或 LMS 表缺失时服务降级但仍返回 200
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := c.DB.DB()
	if err != nil || sqlDB.PingContext(reqCtx) != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	status := "ok"
	var degraded []string

	// Redis 只影响排行榜
	cache := "disabled"
	if c.Redis != nil {
		cache = "up"
		if err := c.Redis.Ping(reqCtx).Err(); err != nil {
			cache = "down"
			status = "degraded"
		}
	}

	lms := "up"
	if c.Activity != nil && !c.Activity.Available(reqCtx) {
		lms = "missing"
		status = "degraded"
		degraded = append(degraded, service.SourceLMS)
	}

	util.Success(ctx, gin.H{
		"status":           status,
		"uptime_seconds":   int64(time.Since(c.started).Seconds()),
		"degraded_sources": degraded,
		"components": gin.H{
			"database":     "up",
			"redis":        cache,
			"lms_activity": lms,
		},
	})
}
