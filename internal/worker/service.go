package worker

import (
	"context"
	"errors"

	"github.com/hubflow-next/internal/config"
	"github.com/hubflow-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 后台服务：异步队列消费与定时任务
type Service struct {
	name      string
	server    *asynq.Server
	mux       *asynq.ServeMux
	consumer  *Consumer
	scheduler *Scheduler
}

// NewService 创建后台服务，队列与定时任务均未启用时返回错误
func NewService(cfg *config.QueueConfig, consumer *Consumer, scheduler *Scheduler) (*Service, error) {
	queueEnabled := cfg != nil && cfg.Enabled
	if !queueEnabled && scheduler == nil {
		return nil, errors.New("queue and scheduler disabled")
	}
	s := &Service{
		name:      "worker",
		consumer:  consumer,
		scheduler: scheduler,
	}
	if queueEnabled {
		if consumer == nil {
			return nil, errors.New("consumer is nil")
		}
		opt, serverCfg := queue.BuildServerConfig(cfg)
		s.server = asynq.NewServer(opt, serverCfg)
		s.mux = asynq.NewServeMux()
		consumer.Register(s.mux)
	}
	return s, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || (s.server == nil && s.scheduler == nil) {
		return errors.New("worker not initialized")
	}
	s.scheduler.Start()
	if s.server == nil {
		<-ctx.Done()
		return nil
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.scheduler.Stop(ctx)
	if s.server != nil {
		s.server.Shutdown()
	}
	return nil
}
