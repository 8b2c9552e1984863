package main

import (
	"log"

	"github.com/alpinetrails/payment-engine/config"
	"github.com/alpinetrails/payment-engine/internal/handler"
	"github.com/alpinetrails/payment-engine/internal/middleware"
	"github.com/alpinetrails/payment-engine/internal/notify"
	"github.com/alpinetrails/payment-engine/internal/repository"
	"github.com/alpinetrails/payment-engine/internal/service"
	"github.com/alpinetrails/payment-engine/pkg/database"
	"github.com/alpinetrails/payment-engine/pkg/rabbitmq"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()
	if cfg.StripeWebhookSecret == "" {
		log.Fatal("STRIPE_WEBHOOK_SECRET is required")
	}

	db := database.NewPostgresDB(cfg.DSN())

	// Notification transport. The engine only publishes; a separate email
	// worker drains the queue.
	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer publisher.Close()
	dispatcher := notify.NewDispatcher(publisher, cfg.OperatorEmail)

	// Repositories
	eventRepo := repository.NewProcessedEventRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	giftCardRepo := repository.NewGiftCardRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	// Services
	giftCardSvc := service.NewGiftCardService(giftCardRepo)
	profileSvc := service.NewProfileService(profileRepo)
	bookingSvc := service.NewBookingService(bookingRepo, giftCardSvc, profileSvc, dispatcher)

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "payment-engine"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	handler.NewWebhookHandler(cfg.StripeWebhookSecret, eventRepo, giftCardSvc, bookingSvc, dispatcher).RegisterRoutes(e)
	handler.NewAdminHandler(bookingSvc, giftCardSvc, profileSvc).RegisterRoutes(e)

	log.Printf("Payment Engine starting on :%s", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
