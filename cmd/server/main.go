package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"syscall"

	"github.com/hubflow-next/internal/app"
	"github.com/hubflow-next/internal/config"
	"github.com/hubflow-next/internal/logger"
	"github.com/hubflow-next/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiGreen = "\033[32m"
	ansiCyan  = "\033[36m"
)

func main() {
	var (
		mode        string
		migrateOnly bool
	)
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.BoolVar(&migrateOnly, "migrate-only", false, "仅执行数据库迁移后退出")
	flag.Parse()
	if err := app.ValidateMode(mode); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	printStartupBanner()

	// .env 仅用于本地开发，缺失时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "警告: 读取 .env 失败: %v\n", err)
	}

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()
	stdLog := logger.StdLogger()
	release := cfg.Server.Mode == "release"

	if isWeakSecret(cfg.JWT.SecretKey) {
		if release {
			stdLog.Fatalf("JWT secret 过弱或仍为默认值，请配置与身份服务一致的强随机密钥")
		}
		stdLog.Printf("警告: JWT secret 过弱或仍为默认值，建议在生产环境中更换")
	}

	if err := openDatabase(cfg); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}
	if migrateOnly {
		logger.Infow("migrate_only_done", "driver", cfg.Database.Driver)
		return
	}

	// 默认管理员即放行审批人；生产环境必须显式给出密码
	switch {
	case release && cfg.Bootstrap.AdminPassword == "":
		stdLog.Printf("警告: 未设置 bootstrap.admin_password，已跳过默认管理员初始化")
	default:
		if err := models.InitDefaultAdmin(cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword); err != nil {
			stdLog.Printf("警告: 初始化默认管理员失败: %v", err)
		}
	}

	if release {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

// openDatabase 建立连接并迁移表结构
func openDatabase(cfg *config.Config) error {
	pool := cfg.Database.Pool
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           pool.MaxOpenConns,
		MaxIdleConns:           pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: pool.ConnMaxIdleTimeSeconds,
		SQLLog:                 cfg.Database.SQLLog,
	}); err != nil {
		return err
	}
	if err := models.AutoMigrate(); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func printStartupBanner() {
	fmt.Println(ansiCyan + "╔══════════════════════════════════════════════════════╗" + ansiReset)
	fmt.Println(ansiCyan + "║            Hubflow 枢纽履约服务 启动中               ║" + ansiReset)
	fmt.Println(ansiCyan + "╚══════════════════════════════════════════════════════╝" + ansiReset)
	fmt.Println(ansiGreen + ansiBold + "seller hub → admin approval → customer hub → pickup" + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------" + ansiReset)
}

var weakSecretMarkers = []string{"change-me", "change-in-production", "your-secret-key"}

// isWeakSecret 长度不足 32 或包含占位词
func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	for _, marker := range weakSecretMarkers {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}
