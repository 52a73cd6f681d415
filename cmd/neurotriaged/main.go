// Command neurotriaged serves the neurological risk assessment API.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/neurotriage/neurotriage/assess"
	"github.com/neurotriage/neurotriage/config"
	"github.com/neurotriage/neurotriage/provider"
	"github.com/neurotriage/neurotriage/store"
)

func main() {
	configFile := flag.String("config", "", "path to config.yml")
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	transcriber := provider.NewHTTPTranscriber(provider.TranscriptionConfig{
		BaseURL:     cfg.Transcription.BaseURL,
		APIKey:      cfg.Transcription.APIKey,
		CallTimeout: cfg.Transcription.CallTimeout,
		Logger:      log.With().Str("adapter", "transcription").Logger(),
	})

	reasoner, err := provider.NewGollmReasoner(provider.ReasoningConfig{
		Name:        "reasoning",
		Provider:    cfg.Reasoning.Provider,
		Model:       cfg.Reasoning.Model,
		APIKey:      cfg.Reasoning.APIKey,
		Temperature: cfg.Reasoning.Temperature,
		MaxTokens:   cfg.Reasoning.MaxTokens,
		CallTimeout: cfg.Reasoning.CallTimeout,
		Logger:      log.With().Str("adapter", "reasoning").Logger(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("create reasoning adapter")
	}

	validationAdapter, err := provider.NewGollmReasoner(provider.ReasoningConfig{
		Name:        "validation",
		Provider:    cfg.Validation.Provider,
		Model:       cfg.Validation.Model,
		APIKey:      cfg.Validation.APIKey,
		Temperature: cfg.Validation.Temperature,
		MaxTokens:   cfg.Validation.MaxTokens,
		CallTimeout: cfg.Validation.CallTimeout,
		Logger:      log.With().Str("adapter", "validation").Logger(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("create validation adapter")
	}

	monitor := provider.NewHealthMonitor(
		[]provider.Adapter{transcriber, reasoner, validationAdapter},
		provider.WithTTL(cfg.Health.TTL),
		provider.WithProbeTimeout(cfg.Health.ProbeTimeout),
		provider.WithHealthLogger(log),
	)

	db, err := store.Open(cfg.Store.Path, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open assessment store")
	}

	orch := assess.NewOrchestrator(
		assess.WithTranscriber(transcriber),
		assess.WithReasoner(reasoner),
		assess.WithValidator(validationAdapter),
		assess.WithHealthMonitor(monitor),
		assess.WithSaver(db),
		assess.WithConfig(orchestratorConfig(cfg)),
		assess.WithLogger(log),
	)

	router := newRouter(orch, monitor, db, log)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

func orchestratorConfig(cfg *config.Config) assess.Config {
	c := assess.DefaultConfig()
	if cfg.Assess.TranscriptionWeight > 0 || cfg.Assess.ReasoningWeight > 0 || cfg.Assess.ValidationWeight > 0 {
		c.Weights = assess.Weights{
			Transcription: cfg.Assess.TranscriptionWeight,
			Reasoning:     cfg.Assess.ReasoningWeight,
			Validation:    cfg.Assess.ValidationWeight,
		}
	}
	if cfg.Assess.DefaultTimeout > 0 {
		c.DefaultTimeout = cfg.Assess.DefaultTimeout
	}
	if cfg.Reasoning.Temperature > 0 {
		c.Temperature = cfg.Reasoning.Temperature
	}
	if cfg.Reasoning.MaxTokens > 0 {
		c.MaxOutputTokens = cfg.Reasoning.MaxTokens
	}
	c.TranscriptionTimeout = cfg.Transcription.CallTimeout
	c.ReasoningTimeout = cfg.Reasoning.CallTimeout
	c.ValidationTimeout = cfg.Validation.CallTimeout
	return c
}

func newRouter(orch *assess.Orchestrator, monitor *provider.HealthMonitor, db *store.Store, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	validate := validator.New()

	router.POST("/v1/assess", func(c *gin.Context) {
		var req assess.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, diag, err := orch.Assess(c.Request.Context(), req)
		if err != nil {
			// The only orchestrator error is structural misuse.
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"assessment":  result,
			"diagnostics": diag,
		})
	})

	router.GET("/v1/status", func(c *gin.Context) {
		matrix := monitor.Check(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"capabilities": matrix})
	})

	router.GET("/v1/assessments", func(c *gin.Context) {
		limit := 20
		if n, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil && n > 0 && n <= 200 {
			limit = n
		}
		recs, err := db.Recent(c.Request.Context(), limit)
		if err != nil {
			log.Error().Err(err).Msg("list assessments")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list assessments"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"assessments": recs})
	})

	router.GET("/v1/assessments/:id", func(c *gin.Context) {
		rec, err := db.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "assessment not found"})
			return
		}
		c.JSON(http.StatusOK, rec)
	})

	return router
}
