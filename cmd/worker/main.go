package main

import (
	"context"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/systematicfunnels/smartX-v0.1/internal/common"
	"github.com/systematicfunnels/smartX-v0.1/internal/dao"
	"github.com/systematicfunnels/smartX-v0.1/internal/dispatcher"
	"github.com/systematicfunnels/smartX-v0.1/internal/llm"
	"github.com/systematicfunnels/smartX-v0.1/internal/pipeline"
	"github.com/systematicfunnels/smartX-v0.1/internal/queue"
	"github.com/systematicfunnels/smartX-v0.1/internal/storage"
	"github.com/systematicfunnels/smartX-v0.1/internal/worker"
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

	broker := queue.NewAsynqBroker(config.RedisAddr, config.RedisPassword)
	defer broker.Close()

	disp := dispatcher.New(masters, tasks, pipeline.NewRegistry(), broker, logger)

	blobs, err := storage.NewMinioStore(context.Background(), config)
	if err != nil {
		logger.Fatal("connect object storage failed", zap.Error(err))
	}

	completer, err := llm.NewClient(config)
	if err != nil {
		logger.Fatal("init completion client failed", zap.Error(err))
	}

	prompts := worker.DefaultPrompts()
	if config.PromptsPath != "" {
		prompts, err = worker.LoadPrompts(config.PromptsPath)
		if err != nil {
			logger.Fatal("load prompt templates failed", zap.Error(err))
		}
	}

	runtime := worker.NewRuntime(tasks, disp, logger,
		worker.NewTranscribeWorker(blobs, completer, prompts),
		worker.NewMeaningWorker(blobs, completer, prompts),
		worker.NewDocumentWorker(blobs, completer, prompts),
		worker.NewCodegenWorker(blobs, completer, prompts),
	)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
		},
		asynq.Config{
			Concurrency:    config.WorkerConcurrency,
			Queues:         queue.Queues(),
			RetryDelayFunc: queue.RetryDelay,
		},
	)

	mux := asynq.NewServeMux()
	runtime.Register(mux)

	logger.Info("worker starting", zap.Int("concurrency", config.WorkerConcurrency))
	if err := srv.Run(mux); err != nil {
		logger.Fatal("worker exited", zap.Error(err))
	}
}
