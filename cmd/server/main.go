package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"simucrise/internal/config"
	"simucrise/internal/server"
)

func main() {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			logrus.Info(".env not found, using environment variables")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	srv, err := server.New(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Could not initialize server")
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logrus.Info("Shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logrus.WithError(err).Error("Forced shutdown")
		}
	}()

	if err := srv.Run(); err != nil {
		logrus.WithError(err).Fatal("Server stopped unexpectedly")
	}

	logrus.Info("Server exited")
}
