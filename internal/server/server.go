package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"simucrise/internal/cache"
	"simucrise/internal/config"
	"simucrise/internal/database"
	"simucrise/internal/handlers"
	"simucrise/internal/scheduler"
	ws "simucrise/internal/websocket"
)

type Server struct {
	Router    *gin.Engine
	DB        *database.Database
	Redis     *redis.Client
	Hub       *ws.Hub
	Scheduler *scheduler.Scheduler

	http *http.Server
	log  *logrus.Entry
}

func New(cfg config.Config) (*Server, error) {
	db := &database.Database{}
	if err := db.Connect(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	hub := ws.NewHub()
	sched := scheduler.New(cfg.SchedulerMinDelay, cfg.SchedulerMaxDelay)
	roomCache := cache.NewRoomCache(rdb)

	gateway := handlers.NewGateway(db, hub, sched, roomCache)
	sched.Subscribe(gateway.HandleScheduledEvent)

	roomH := handlers.NewRoomHandler(db, hub, roomCache, gateway)
	wsH := handlers.NewWebSocketHandler(hub, gateway)

	router := gin.Default()
	APIEndpoints(router, roomH, wsH)

	return &Server{
		Router:    router,
		DB:        db,
		Redis:     rdb,
		Hub:       hub,
		Scheduler: sched,
		http: &http.Server{
			Addr:    ":" + cfg.Port,
			Handler: router,
		},
		log: logrus.WithField("component", "server"),
	}, nil
}

// Run starts the hub loop and serves HTTP until Shutdown is called.
func (s *Server) Run() error {
	go s.Hub.Run()

	s.log.WithField("addr", s.http.Addr).Info("Server listening")

	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains HTTP, cancels every pending room timer and closes the
// remaining realtime connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)

	s.Scheduler.StopAll()
	s.Hub.Stop()

	if cerr := s.Redis.Close(); cerr != nil && err == nil {
		err = cerr
	}

	return err
}
