package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talkincode/stockroom/config"
	"github.com/talkincode/stockroom/internal/adminapi"
	"github.com/talkincode/stockroom/internal/app"
	"github.com/talkincode/stockroom/internal/webserver"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	h        = flag.Bool("h", false, "help usage")
	showVer  = flag.Bool("v", false, "show version")
	conffile = flag.String("c", "", "config yaml file")
	initdb   = flag.Bool("initdb", false, "drop and recreate all tables, restore the admin account, then exit")
	seed     = flag.Bool("seed", false, "create the admin account and demo products, then exit")
)

const version = "1.0.0"

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version)
		return
	}
	if *h {
		flag.Usage()
		return
	}

	cfg, err := config.LoadConfig(*conffile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.InitDirs(); err != nil {
		fmt.Fprintf(os.Stderr, "init dirs: %v\n", err)
		os.Exit(1)
	}

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.L().Info("database reset")
		return
	}
	if *seed {
		application.SeedDemoData(context.Background())
		return
	}

	adminapi.Init()
	server := webserver.NewAdminServer(cfg, application)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		zap.L().Info("shutting down admin server")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zap.L().Error("server exited", zap.Error(err))
	}
}
