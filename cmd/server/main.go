package main

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/systematicfunnels/smartX-v0.1/internal/auth"
	"github.com/systematicfunnels/smartX-v0.1/internal/common"
	"github.com/systematicfunnels/smartX-v0.1/internal/dao"
	"github.com/systematicfunnels/smartX-v0.1/internal/dispatcher"
	"github.com/systematicfunnels/smartX-v0.1/internal/pipeline"
	"github.com/systematicfunnels/smartX-v0.1/internal/queue"
	"github.com/systematicfunnels/smartX-v0.1/internal/server/handler"
	"github.com/systematicfunnels/smartX-v0.1/internal/server/middleware"
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

	masters := dao.NewMasterJobDao(db)
	tasks := dao.NewTaskJobDao(db)
	tenants := dao.NewTenantDao(db)
	users := dao.NewUserDao(db)

	broker := queue.NewAsynqBroker(config.RedisAddr, config.RedisPassword)
	defer broker.Close()

	disp := dispatcher.New(masters, tasks, pipeline.NewRegistry(), broker, logger)

	jobHandler := handler.NewJobHandler(disp, masters, tasks)
	userHandler := handler.NewUserHandler(users, tenants, config.JWTKey)

	if config.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/login", userHandler.Login)

	authed := r.Group("/", middleware.JWTAuth(config.JWTKey))
	authed.POST("/job", middleware.RequireCapability(auth.CapSubmitPipeline), jobHandler.SubmitJob)
	authed.GET("/job/:id", middleware.RequireCapability(auth.CapViewJobs), jobHandler.GetJob)
	authed.GET("/job/:id/tasks", middleware.RequireCapability(auth.CapViewJobs), jobHandler.ListTasks)
	authed.POST("/job/:id/cancel", middleware.RequireCapability(auth.CapCancelJob), jobHandler.CancelJob)
	authed.POST("/tenant", middleware.RequireCapability(auth.CapManageTenants), userHandler.CreateTenant)

	logger.Info("server listening on " + config.ServerAddr)
	if config.CertPath != "" && config.KeyPath != "" {
		err = r.RunTLS(config.ServerAddr, config.CertPath, config.KeyPath)
	} else {
		err = r.Run(config.ServerAddr)
	}
	if err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
