package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quizora/evaluation-api/internal/config"
	"github.com/quizora/evaluation-api/internal/database"
	"github.com/quizora/evaluation-api/internal/dto"
	"github.com/quizora/evaluation-api/internal/engine"
	"github.com/quizora/evaluation-api/internal/handler"
	"github.com/quizora/evaluation-api/internal/middleware"
	"github.com/quizora/evaluation-api/internal/router"
	"github.com/quizora/evaluation-api/internal/service"
	"github.com/quizora/evaluation-api/pkg/ai"
	"github.com/quizora/evaluation-api/pkg/embedding"
	"github.com/quizora/evaluation-api/pkg/nli"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewResultCache(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	encoder, err := embedding.NewOpenAIEncoder(embedding.OpenAIConfig{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.EmbeddingModel,
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("failed to create embedding encoder: %v", err)
	}

	var classifier nli.Classifier
	if cfg.NLIServiceURL != "" {
		classifier, err = nli.NewHTTPClassifier(nli.HTTPConfig{
			BaseURL: cfg.NLIServiceURL,
			Timeout: cfg.NLITimeout,
			Logger:  logger,
		})
		if err != nil {
			log.Fatalf("failed to create nli classifier: %v", err)
		}
	}

	judge, err := ai.NewOpenAIJudge(ai.OpenAIJudgeConfig{
		APIKey:       cfg.OpenAIAPIKey,
		Model:        cfg.JudgeModel,
		Timeout:      cfg.JudgeTimeout,
		MaxRetries:   cfg.JudgeRetries,
		RetryBackoff: cfg.JudgeBackoff,
		Logger:       logger,
	})
	if err != nil {
		log.Fatalf("failed to create judge: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	evaluationService := service.NewEvaluationService(
		engine.NewValidator(),
		engine.NewDepthEstimator(),
		engine.NewSimilarityEngine(encoder, logger),
		engine.NewEntailmentEngine(classifier, logger),
		judge,
		validate,
		logger,
		service.EvaluationConfig{
			Cache:         redisClient,
			CacheTTL:      cfg.ResultCacheTTL,
			NATS:          natsConn,
			NATSSubject:   cfg.NATSSubject,
			DefaultRubric: dto.DefaultRubricWeights(),
		},
	)

	evaluationHandler := handler.NewEvaluationHandler(evaluationService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})

	var jwtMiddleware fiber.Handler
	if cfg.JWTSecret != "" {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	router.Register(app, cfg, router.Dependencies{
		EvaluationHandler: evaluationHandler,
		JWTMiddleware:     jwtMiddleware,
		RateLimit:         middleware.RateLimit("evaluation", cfg.RateLimitMax, cfg.RateLimitWindow),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
