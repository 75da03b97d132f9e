package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"

	"deal-checker/handler"
	"deal-checker/internal/assets"
	"deal-checker/internal/config"
	"deal-checker/internal/integrations/kleinanzeigen"
	"deal-checker/internal/integrations/openai"
	"deal-checker/internal/integrations/paramstore"
	"deal-checker/internal/logger"
	"deal-checker/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// ---- Clients ----
	aiOpts := []openai.Option{openai.WithAPIKey(cfg.OpenAIKey), openai.WithBaseURL(cfg.OpenAIBaseURL)}
	if cfg.ParamPrefix != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			log.Fatal("failed to load AWS config", zap.Error(err))
		}
		ssmClient, err := paramstore.NewFromConfig(awsCfg)
		if err != nil {
			log.Fatal("failed to create SSM client", zap.Error(err))
		}
		aiOpts = append(aiOpts, openai.WithParamStore(ssmClient, cfg.ParamPrefix))
	}
	aiClient, err := openai.NewClient(aiOpts...)
	if err != nil {
		log.Fatal("failed to create OpenAI client", zap.Error(err))
	}

	scraper := kleinanzeigen.New()

	// ---- Handler ----
	svc, err := usecase.NewItemService(scraper, aiClient, usecase.Models{Check: cfg.CheckModel, Question: cfg.QuestionModel})
	if err != nil {
		log.Fatal("failed to create item service", zap.Error(err))
	}

	ui, err := assets.New(cfg.AssetRoot)
	if err != nil {
		log.Fatal("failed to create asset reader", zap.Error(err))
	}

	router, err := handler.NewRouter(svc, ui, log)
	if err != nil {
		log.Fatal("failed to create router", zap.Error(err))
	}

	log.Info("starting lambda", zap.String("check_model", cfg.CheckModel), zap.String("question_model", cfg.QuestionModel))
	lambda.Start(router.Handle)
}
