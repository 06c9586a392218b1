package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/systematicfunnels/smartX-v0.1/internal/common"
	"github.com/systematicfunnels/smartX-v0.1/internal/dao"
	"github.com/systematicfunnels/smartX-v0.1/internal/retention"
)

func main() {
	common.InitConf()
	common.InitLog()
	config := common.GetConfig()
	logger := common.GetLogger()
	defer logger.Sync()

	db, err := dao.Open(config)
	if err != nil {
		logger.Fatal("connect database failed", zap.Error(err))
	}

	sweeper := retention.NewSweeper(
		dao.NewTenantDao(db),
		dao.NewMeetingDao(db),
		dao.NewRepositoryDao(db),
		dao.NewMasterJobDao(db),
		logger,
	)

	c := cron.New()
	_, err = c.AddFunc(config.RetentionCron, func() {
		if err := sweeper.Run(context.Background()); err != nil {
			logger.Error("retention sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Fatal("invalid retention schedule", zap.String("cron", config.RetentionCron), zap.Error(err))
	}

	logger.Info("retention sweeper scheduled", zap.String("cron", config.RetentionCron))
	c.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	<-c.Stop().Done()
	logger.Info("retention sweeper stopped")
}
