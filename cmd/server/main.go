package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/simplestock/backend/internal/config"
	"github.com/simplestock/backend/internal/database"
	"github.com/simplestock/backend/internal/handler"
	"github.com/simplestock/backend/internal/queue"
	"github.com/simplestock/backend/internal/repository"
	"github.com/simplestock/backend/internal/router"
	"github.com/simplestock/backend/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting disabled")
	}

	logs := repository.NewAuthLogRepo(db)
	auth := &service.AuthService{
		Cfg:           cfg,
		Users:         repository.NewUserRepo(db),
		Tokens:        repository.NewRefreshTokenRepo(db),
		OTPs:          repository.NewOTPRepo(db),
		Links:         repository.NewMagicLinkRepo(db),
		Verifications: repository.NewVerificationTokenRepo(db),
		Resets:        repository.NewPasswordResetRepo(db),
		Logs:          logs,
		Mail:          service.NewAMQPMailPublisher(),
	}

	// The mail consumer owns outbound delivery; the request path only ever
	// publishes events.
	go queue.StartMailConsumer(cfg)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(cfg.Env)
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowCredentials: true,
	}))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, auth, logs), cfg, auth, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
