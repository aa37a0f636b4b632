package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"pipelinehealth/app"
	"pipelinehealth/pkg/core/start"
	"pipelinehealth/pkg/db"
	"pipelinehealth/pkg/live"
	"pipelinehealth/router"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP API、实时推送与定时任务",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	in, err := loadInfra()
	if err != nil {
		return err
	}
	log := in.Logger.WithEntryName("Serve")

	if err := db.AutoMigrate(in.DB); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	appRoot := app.NewApp(in)

	sched := appRoot.NewScheduler()
	if err := appRoot.RegisterJobs(sched); err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return fmt.Errorf("启动调度器失败: %w", err)
	}

	if in.Relay != nil {
		go in.Relay.Run(ctx)
	}

	go func() {
		if err := in.Notifier.Watch(ctx, in.ConfigPath, in.LoadNotify); err != nil {
			log.WithErr(err).Warn("无法监听通知配置，热加载已关闭")
		}
	}()

	var liveServer *live.Server
	if in.Config.Live.Addr != "" {
		liveServer = live.NewServer(in.Config.Live.Addr, in.Hub, in.Metrics.Registry(), in.Logger)
		liveServer.Start()
	}

	fiberApp := start.GetApp(in.Config, in.Logger, in.Tracer)
	router.Register(appRoot, fiberApp)

	errCh := make(chan error, 1)
	go func() {
		errCh <- fiberApp.Listen(fmt.Sprintf(":%d", in.Config.Port))
	}()
	log.WithField("port", in.Config.Port).Info("HTTP 服务已启动")

	select {
	case <-ctx.Done():
		log.Info("收到退出信号，开始优雅关闭")
	case err = <-errCh:
		log.WithErr(err).Error("HTTP 服务异常退出")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if e := fiberApp.ShutdownWithContext(shutdownCtx); e != nil {
		log.WithErr(e).Warn("关闭 HTTP 服务失败")
	}
	if e := sched.Stop(); e != nil {
		log.WithErr(e).Warn("停止调度器失败")
	}
	if liveServer != nil {
		if e := liveServer.Shutdown(shutdownCtx); e != nil {
			log.WithErr(e).Warn("关闭实时推送服务失败")
		}
	}
	in.Close(shutdownCtx)
	log.Info("服务已关闭")
	return err
}
