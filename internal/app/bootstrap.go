package app

import (
	"errors"

	"github.com/hubflow-next/internal/config"
	"github.com/hubflow-next/internal/logger"
	"github.com/hubflow-next/internal/provider"
	"github.com/hubflow-next/internal/router"
	"github.com/hubflow-next/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := ValidateMode(mode); err != nil {
		return nil, err
	}

	container := provider.NewContainer(cfg)

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server, engine))
	}

	// 初始化 Worker 服务（队列消费 + 定时任务）
	if mode == ModeAll || mode == ModeWorker {
		workerService, err := buildWorker(cfg, container)
		switch {
		case err == nil:
			services = append(services, workerService)
		case mode == ModeWorker:
			container.Close()
			return nil, err
		default:
			logger.Warnw("app_worker_skipped", "error", err)
		}
	}

	if len(services) == 0 {
		container.Close()
		return nil, errors.New("no services initialized (check mode and config)")
	}

	runner := NewRunner(services...)
	runner.OnShutdown(container.Close)
	return runner, nil
}

func buildWorker(cfg *config.Config, container *provider.Container) (*worker.Service, error) {
	scheduler, err := worker.NewScheduler(cfg.Scheduler, container)
	if err != nil {
		return nil, err
	}
	return worker.NewService(&cfg.Queue, worker.NewConsumer(container), scheduler)
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	opts.Logger.Infow("app_start", "addr", opts.Config.Server.Addr(), "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
