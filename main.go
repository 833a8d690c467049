package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/talkincode/wabridge/config"
	"github.com/talkincode/wabridge/internal/adminapi"
	"github.com/talkincode/wabridge/internal/app"
	"github.com/talkincode/wabridge/internal/chatbot"
	"github.com/talkincode/wabridge/internal/pipeline"
	"github.com/talkincode/wabridge/internal/relay"
	"github.com/talkincode/wabridge/internal/webserver"
	"github.com/talkincode/wabridge/internal/whatsapp"
)

var (
	h        = flag.Bool("h", false, "help usage")
	showVer  = flag.Bool("v", false, "show version")
	confFile = flag.String("c", "/etc/wabridge.yml", "config file")
	initDb   = flag.Bool("initdb", false, "drop and recreate database tables")
)

var (
	BuildVersion = "unknown"
	BuildTime    = "unknown"
)

func printVersion() {
	fmt.Printf("wabridge %s (built %s)\n", BuildVersion, BuildTime)
}

func main() {
	flag.Parse()
	if *h {
		flag.Usage()
		return
	}
	if *showVer {
		printVersion()
		return
	}

	_ = godotenv.Load()

	cfg := config.LoadConfig(*confFile)
	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initDb {
		application.InitDb()
		zap.L().Info("database initialized")
		return
	}

	// WhatsApp stack
	container, err := whatsapp.NewContainer(cfg.GetDataDir())
	if err != nil {
		zap.L().Fatal("whatsapp store setup failed", zap.Error(err))
	}
	registry := whatsapp.NewRegistry()
	lifecycle := whatsapp.NewLifecycle(application.Store(), registry, application.Bus(), cfg.GetQrDir())
	manager := whatsapp.NewManager(registry, lifecycle, func(sessionName string) (whatsapp.Client, error) {
		return whatsapp.NewMeowClient(container, sessionName)
	})

	// Message pipeline
	gateway := chatbot.NewGateway(cfg.Chatbot.Url,
		time.Duration(cfg.Chatbot.Timeout)*time.Second,
		time.Duration(cfg.Chatbot.RetryWait)*time.Second,
		cfg.Chatbot.MaxAttempts)
	forwarder := relay.NewRelay(cfg.Relay.Url, time.Duration(cfg.Relay.Timeout)*time.Second)
	extractor := pipeline.NewExtractor(cfg.GetMediaDir(),
		pipeline.NewFFmpegTranscoder(cfg.WhatsApp.FFmpegBin, 10*time.Second))
	pipe := pipeline.NewPipeline(application.Store(), registry, lifecycle, extractor,
		gateway, forwarder, time.Duration(cfg.WhatsApp.SendTimeout)*time.Second)
	dispatcher, err := pipeline.NewDispatcher(cfg.WhatsApp.Workers, pipe)
	if err != nil {
		zap.L().Fatal("dispatcher setup failed", zap.Error(err))
	}
	defer dispatcher.Release()
	manager.OnEvent(dispatcher.Dispatch)

	// HTTP surface
	webserver.Init(cfg, adminapi.AuthMiddleware(cfg, application.Store()))
	adminapi.Init(cfg, application.Store(), registry, lifecycle, manager, gateway)

	application.StartBackgroundJobs(manager, registry)

	// bring up the default session so the service answers out of the box
	if cfg.WhatsApp.DefaultSession != "" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if _, err := manager.CreateSession(ctx, cfg.WhatsApp.DefaultSession,
				cfg.WhatsApp.DefaultSender, "", ""); err != nil {
				zap.L().Error("default session setup failed",
					zap.String("session", cfg.WhatsApp.DefaultSession), zap.Error(err))
				lifecycle.CleanupFailedSetup(ctx, cfg.WhatsApp.DefaultSession)
			}
		}()
	}

	go func() {
		if err := webserver.Instance().Start(); err != nil {
			zap.L().Fatal("webserver failed", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	zap.L().Info("shutting down")
}
