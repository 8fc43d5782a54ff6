package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/mkowalczyk/skryba/internal/api/handlers"
	"github.com/mkowalczyk/skryba/internal/api/middleware"
	"github.com/mkowalczyk/skryba/internal/auth"
	"github.com/mkowalczyk/skryba/internal/config"
	"github.com/mkowalczyk/skryba/internal/jobs"
	"github.com/mkowalczyk/skryba/internal/media"
	"github.com/mkowalczyk/skryba/internal/queue"
	"github.com/mkowalczyk/skryba/internal/transcribe"
)

type Router struct {
	mux    *chi.Mux
	redis  *redis.Client
	cfg    *config.Config
	apikey *auth.APIKeyMiddleware
}

func NewRouter(rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:    chi.NewRouter(),
		redis:  rdb,
		cfg:    cfg,
		apikey: auth.NewAPIKeyMiddleware(cfg.Auth.APIKey, cfg.Auth.APIKeyHeader),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	health := handlers.NewHealthHandler(rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	pipeline := transcribe.NewPipeline(
		media.NewProber(rt.cfg.Media.FFprobePath),
		media.NewExporter(rt.cfg.Media.FFmpegPath),
		transcribe.NewOpenAITranscriber(rt.cfg.OpenAI.APIKey, rt.cfg.OpenAI.TranscriptionModel),
		transcribe.PipelineConfig{
			ByteBudget:   rt.cfg.Media.ByteBudget,
			MinChunkMS:   rt.cfg.Media.MinChunkMS,
			ShrinkFactor: rt.cfg.Media.ShrinkFactor,
		},
	)
	queueClient := queue.NewClient(rt.cfg.Redis)
	jobStore := jobs.NewStore(rt.redis)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.apikey.Authenticate)

		lectureH := handlers.NewLectureHandler(pipeline, queueClient, jobStore)
		r.Post("/lectures", lectureH.Upload)

		jobH := handlers.NewJobHandler(jobStore)
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/{id}", jobH.Get)
			r.Get("/{id}/transcript", jobH.Transcript)
			r.Get("/{id}/documents/{key}/{kind}", jobH.Document)
		})
	})

	return r
}
