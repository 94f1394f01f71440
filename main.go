// @title Learner Dashboard API
// @version 1.0
// @description 学习者仪表盘：学习分析、徽章、学习路径与聊天机器人。

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"fmt"
	"learner_dashboard/internal/app"
	"learner_dashboard/internal/config"
	"learner_dashboard/pkg/logger"
	"log"
	"os"
)

func main() {
	configDir := flag.String("config", "configs", "配置文件 config.yaml 所在目录")
	migrate := flag.Bool("migrate", false, "release 模式下也在启动时执行数据库迁移")
	migrateOnly := flag.Bool("migrate-only", false, "执行数据库迁移后退出")
	checkConfig := flag.Bool("check-config", false, "校验配置文件后退出")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("加载配置失败 (%s): %v", *configDir, err)
	}
	if *checkConfig {
		fmt.Fprintf(os.Stdout, "配置有效: mode=%s storage=%s mail=%s\n", cfg.Server.Mode, cfg.Storage.Type, cfg.Mail.Provider)
		return
	}

	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if cfg.MigrateOnly {
		logger.Log.Info("数据库迁移完成")
		return
	}
	application.Run()
}
