// 手动重算所有用户的徽章并刷新排行榜
//
// 徽章在登录、事件上报和学习路径完成时已同步重算，排行榜由每日任务刷新。
// 此脚本用于规则调整后或大量导入 LMS 数据后的全量回填。
//
// 用法: go run scripts/recompute_badges.go

package main

import (
	"context"
	"learner_dashboard/internal/config"
	"learner_dashboard/internal/repository"
	"learner_dashboard/internal/service"
	"learner_dashboard/pkg/database"
	"learner_dashboard/pkg/logger"
	"learner_dashboard/pkg/monitoring"
	"log"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	if err := logger.InitLogger(cfg); err != nil {
		log.Fatalf("logger: %v", err)
	}
	monitoring.Init()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Printf("Redis 不可用，排行榜仅保存在内存中: %v", err)
		rdb = nil
	}

	users := repository.NewUserRepository(db)
	meta := repository.NewUserMetaRepository(db)
	events := service.NewEventService(repository.NewEventRepository(db))
	badges := service.NewBadgeService(
		repository.NewEventRepository(db),
		repository.NewActivityRepository(db, cfg.Database.LMSTable),
		repository.NewCertificateRepository(db),
		meta,
		users,
		repository.NewLeaderboardRepository(rdb),
		events,
		service.NewNotificationService(meta),
		service.NewMailService(service.NewLogMailer(cfg.Mail.AppName)),
		service.DefaultCatalog(),
		cfg.Analytics.Location(),
	)

	ctx := context.Background()
	log.Println("刷新排行榜...")
	ranked, err := badges.RefreshTopLearners(ctx)
	if err != nil {
		log.Fatalf("排行榜刷新失败: %v", err)
	}

	list, err := users.ListActive(ctx)
	if err != nil {
		log.Fatalf("读取用户失败: %v", err)
	}
	failed := 0
	for _, u := range list {
		if _, err := badges.Recompute(ctx, u.ID); err != nil {
			failed++
			logger.Log.Warn("徽章重算失败", zap.Uint("userID", u.ID), zap.Error(err))
		}
	}
	log.Printf("完成！排行榜 %d 人，重算 %d 人，失败 %d 人", ranked, len(list), failed)
}
