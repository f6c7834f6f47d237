package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/five82/cartsync/internal/stub"
)

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "127.0.0.1:8088", "listen address")
	token := flag.String("token", "dev-token", "bearer token to seed a cart for")
	debug := flag.Bool("debug", false, "log every request")
	flag.Parse()

	var logger *zap.Logger
	var err error
	if *debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "cartstub: init logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := stub.New(logger)
	snap := srv.Seed(*token, stub.DefaultMenu(), 2, 1, 1)
	logger.Info("cart seeded",
		zap.String("token", *token),
		zap.String("cart", snap.ID),
		zap.Int("lines", len(snap.Items)),
	)

	logger.Info("cart stub listening", zap.String("addr", *addr))
	if err := srv.ListenAndServe(ctx, *addr); err != nil {
		logger.Error("serve", zap.Error(err))
		return 1
	}
	return 0
}
