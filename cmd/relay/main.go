package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"cachet/internal/relay/server"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	redisAddr := flag.String("redis", "", "redis address for the backlog (empty = in-memory)")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	var queue server.Queue
	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		queue = server.NewRedisQueue(rdb)
		log.Info("using redis backlog", zap.String("addr", *redisAddr))
	} else {
		queue = server.NewMemoryQueue()
	}

	srv := server.New(log, queue)
	log.Info("relay listening", zap.String("addr", *addr))
	if err := http.ListenAndServe(*addr, srv.Router()); err != nil {
		log.Fatal("relay stopped", zap.Error(err))
	}
}
