// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/lunaveil/seance/internal/auth"
	"github.com/lunaveil/seance/internal/cache"
	"github.com/lunaveil/seance/internal/database"
	"github.com/lunaveil/seance/internal/handlers"
	"github.com/lunaveil/seance/internal/middleware"
	"github.com/sirupsen/logrus"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	// The room layer is fully in-memory. Postgres backs registered accounts
	// and the seance chronicle; Redis feeds the chronicler. Both are optional
	// so the server can run rooms alone.
	if os.Getenv("PG_HOST") != "" {
		database.ConnectDB()
	} else {
		logger.Warn("PG_HOST not set, running without persistence")
	}
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, transcripts disabled: %v", err)
		cache.Rdb = nil
	}

	mux := http.NewServeMux()

	// user endpoints
	mux.HandleFunc("/user/create", handlers.CreateUserHandler)
	mux.HandleFunc("/user/login", handlers.LoginHandler)

	rs := handlers.NewRoomServer()

	// room endpoints
	mux.Handle("/room/create", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.CreateRoomHandler(rs),
	)))
	mux.Handle("/room/list", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.ListRoomsHandler(rs),
	)))
	mux.Handle("/room/history", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.SeanceHistoryHandler(),
	)))

	// room ws
	mux.Handle("/room/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.RoomWSHandler(logger, rs),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
