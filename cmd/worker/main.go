package main

import (
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/mkowalczyk/skryba/internal/config"
	"github.com/mkowalczyk/skryba/internal/docgen"
	"github.com/mkowalczyk/skryba/internal/jobs"
	"github.com/mkowalczyk/skryba/internal/llm"
	"github.com/mkowalczyk/skryba/internal/media"
	"github.com/mkowalczyk/skryba/internal/queue"
	"github.com/mkowalczyk/skryba/internal/queue/workers"
	"github.com/mkowalczyk/skryba/internal/transcribe"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	pipeline := transcribe.NewPipeline(
		media.NewProber(cfg.Media.FFprobePath),
		media.NewExporter(cfg.Media.FFmpegPath),
		transcribe.NewOpenAITranscriber(cfg.OpenAI.APIKey, cfg.OpenAI.TranscriptionModel),
		transcribe.PipelineConfig{
			ByteBudget:   cfg.Media.ByteBudget,
			MinChunkMS:   cfg.Media.MinChunkMS,
			ShrinkFactor: cfg.Media.ShrinkFactor,
		},
	)

	provider, model := generationProvider(cfg)
	synth := docgen.NewSynthesizer(
		provider,
		docgen.NewLatexRenderer(cfg.Docgen.PDFLatexPath),
		model,
		docgen.DefaultTasks(),
	)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			// Lecture runs are heavy on external processes and remote
			// calls; a small pool keeps the host responsive.
			Concurrency: 2,
		},
	)

	registry := queue.NewHandlersRegistry()
	lectureWorker := workers.NewLectureWorker(pipeline, synth, jobs.NewStore(rdb))
	registry.Register(queue.TypeLectureProcess, asynq.HandlerFunc(lectureWorker.ProcessTask))

	slog.Info("starting worker", "provider", provider.Name(), "model", model)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}

func generationProvider(cfg *config.Config) (llm.Provider, string) {
	if cfg.Docgen.Provider == "anthropic" {
		return llm.NewAnthropicProvider(cfg.Anthropic.APIKey), cfg.Anthropic.GenerationModel
	}
	return llm.NewOpenAIProvider(cfg.OpenAI.APIKey), cfg.OpenAI.GenerationModel
}
