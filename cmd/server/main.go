package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	ouroboros "github.com/i5heu/ouroboros-vault"
	"github.com/i5heu/ouroboros-vault/apiServer"
	"github.com/i5heu/ouroboros-vault/internal/config"
	"github.com/i5heu/ouroboros-vault/pkg/logging"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log, err := logging.New(logging.Config{
		Level: cfg.Log.Level,
		File:  cfg.Log.File,
		JSON:  cfg.Log.JSON,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}

	log.WithFields(logrus.Fields{
		"rootPath": cfg.RootPath,
		"port":     cfg.Port,
	}).Info("starting ouroboros vault server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("received shutdown signal")
		cancel()
	}()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Error("server error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	ouConfig, err := cfg.Ouroboros(log)
	if err != nil {
		return err
	}

	ou, err := ouroboros.New(ouConfig)
	if err != nil {
		return err
	}
	if err := ou.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := ou.Close(context.Background()); err != nil {
			log.WithError(err).Warn("close failed")
		}
	}()

	db, err := ou.DB()
	if err != nil {
		return err
	}
	keys, err := ou.KeySet()
	if err != nil {
		return err
	}

	server := apiServer.New(db, apiServer.WithLogger(log), apiServer.WithKeySet(keys))
	return server.ListenAndServe(ctx, cfg.Addr())
}
