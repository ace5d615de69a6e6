package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"

	swagger "github.com/go-swagno/swagno-fiber/swagger"

	"github.com/civitas-labs/facegate/internal/api/docs"
	"github.com/civitas-labs/facegate/internal/api/handler"
	"github.com/civitas-labs/facegate/internal/api/middleware"
	"github.com/civitas-labs/facegate/internal/audit"
	"github.com/civitas-labs/facegate/internal/capture"
	"github.com/civitas-labs/facegate/internal/config"
	"github.com/civitas-labs/facegate/internal/enroll"
	"github.com/civitas-labs/facegate/internal/fallback"
	"github.com/civitas-labs/facegate/internal/liveness"
	"github.com/civitas-labs/facegate/internal/provider"
	"github.com/civitas-labs/facegate/internal/quality"
	"github.com/civitas-labs/facegate/internal/ratelimit"
	"github.com/civitas-labs/facegate/internal/repository"
	"github.com/civitas-labs/facegate/internal/verify"
	"github.com/civitas-labs/facegate/internal/ws"
)

type Dependencies struct {
	EnrollmentRepo *repository.EnrollmentRepository
	AttemptRepo    *repository.AttemptRepository
	ModelProvider  provider.ModelProvider
	DB             *pgxpool.Pool
	APIKey         string
	FallbackURL    string
	Recognition    config.Recognition
}

type Router struct {
	app       *fiber.App
	logger    *slog.Logger
	deps      *Dependencies
	wsHub     *ws.Hub
	cancelHub context.CancelFunc

	// Session building blocks, assembled once in Setup and shared by
	// every capture session
	analyzer     *quality.Analyzer
	livenessCfg  liveness.Config
	verifyEngine *verify.Engine
	auditLogger  audit.Logger
	fallbackAuth fallback.Authenticator
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Facegate API",
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Swagger documentation (no auth required)
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	// Health check endpoints (no auth required)
	var pinger handler.Pinger
	if r.deps != nil && r.deps.DB != nil {
		pinger = r.deps.DB
	}
	healthHandler := handler.NewHealthHandler(pinger)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// API v1 group with authentication
	v1 := r.app.Group("/v1")

	// Only configure authenticated routes if dependencies were provided
	if r.deps != nil {
		if r.deps.APIKey != "" {
			v1.Use(middleware.Auth(r.deps.APIKey))
		}

		// WebSocket hub for session event streaming
		r.wsHub = ws.NewHub()
		hubCtx, hubCancel := context.WithCancel(context.Background())
		r.cancelHub = hubCancel
		go r.wsHub.Run(hubCtx)

		rec := r.deps.Recognition
		r.analyzer = quality.NewAnalyzer(quality.Thresholds{
			BrightnessMin: rec.BrightnessMin,
			BrightnessMax: rec.BrightnessMax,
			SharpnessMin:  rec.SharpnessMin,
			FaceSizeMin:   rec.FaceSizeMin,
			FaceSizeMax:   rec.FaceSizeMax,
			MaxTiltDeg:    rec.MaxTiltDeg,
		})
		r.livenessCfg = liveness.Config{
			MotionMinPct:   rec.MotionMinPct,
			MotionMaxPct:   rec.MotionMaxPct,
			PixelDelta:     rec.PixelDelta,
			SampleStride:   rec.SampleStride,
			PoseVarMinDeg:  rec.PoseVarMinDeg,
			PoseVarMaxDeg:  rec.PoseVarMaxDeg,
			EyeOpenMinDist: rec.EyeOpenMinDist,
		}

		r.auditLogger = audit.NewSlogLogger(r.logger)

		if r.deps.FallbackURL != "" {
			r.fallbackAuth = fallback.NewClient(fallback.Config{
				BaseURL: r.deps.FallbackURL,
				APIKey:  r.deps.APIKey,
			})
		} else {
			r.fallbackAuth = fallback.NoOp{}
		}

		enrollEngine := enroll.NewEngine(r.deps.ModelProvider, r.analyzer, r.deps.EnrollmentRepo, r.auditLogger, r.logger, enroll.Config{
			SampleCount:         rec.SampleCount,
			InterSampleDelay:    rec.InterSampleDelay,
			DetectTimeout:       rec.DetectTimeout,
			ConfidenceThreshold: rec.StrictConfidence,
		})

		r.verifyEngine = verify.NewEngine(r.deps.EnrollmentRepo, r.deps.AttemptRepo, r.auditLogger, r.logger, verify.Config{
			StrictDistance:         rec.StrictDistance,
			StrictConfidence:       rec.StrictConfidence,
			LenientDistance:        rec.LenientDistance,
			LenientConfidence:      rec.LenientConfidence,
			RelaxStep:              rec.RelaxStep,
			DistanceCeiling:        rec.DistanceCeiling,
			PermissiveMode:         rec.PermissiveMode,
			PermissiveAfterAttempt: rec.PermissiveAfterAttempt,
		})

		guard := ratelimit.NewGuard(r.deps.AttemptRepo, rec.LockoutLookback, rec.LockoutFailures)

		faceHandler := handler.NewFaceHandler(enrollEngine, r.verifyEngine, guard, r.deps.ModelProvider, r.analyzer, r.livenessCfg, r.logger)
		sessionHandler := handler.NewSessionHandler(r, r.logger)

		v1.Post("/enroll", faceHandler.Enroll)
		v1.Post("/verify", faceHandler.Verify)
		v1.Post("/sessions/verify", sessionHandler.StartVerification)
		v1.Post("/liveness", faceHandler.CheckLiveness)
		v1.Delete("/enrollments/:voter_id", faceHandler.RemoveEnrollment)

		// WebSocket endpoint
		v1.Get("/ws", ws.UpgradeMiddleware(), ws.Handler(r.wsHub))
	}
}

// NewCaptureSession assembles a controller for one verification session.
// Each session owns a fresh liveness detector; events are published to
// the WebSocket hub and exhausted sessions hand off to the configured
// fallback channel.
func (r *Router) NewCaptureSession(regime verify.Regime) *capture.Controller {
	rec := r.deps.Recognition
	ctrl := capture.NewController(
		r.deps.ModelProvider,
		r.analyzer,
		liveness.NewDetector(r.livenessCfg),
		r.verifyEngine,
		r.fallbackAuth,
		r.auditLogger,
		r.logger,
		capture.Config{
			DetectTimeout:       rec.DetectTimeout,
			CaptureTimeout:      rec.CaptureTimeout,
			RecognitionInterval: rec.RecognitionInterval,
			MaxAttempts:         rec.MaxAttempts,
			Regime:              regime,
			RequireLiveness:     true,
		},
	)
	ctrl.AddListener(ws.CaptureListener(r.wsHub))
	return ctrl
}

// RunCaptureSession drives a capture session over source until it
// reaches a terminal state.
func (r *Router) RunCaptureSession(ctx context.Context, source capture.FrameSource, voterID string, regime verify.Regime) (*capture.Result, error) {
	ctrl := r.NewCaptureSession(regime)
	pacer := capture.NewTickerPacer(r.deps.Recognition.FrameInterval)
	return ctrl.Run(ctx, source, pacer, voterID)
}

// Hub exposes the WebSocket hub so capture sessions can publish their
// state transitions to subscribed clients.
func (r *Router) Hub() *ws.Hub {
	return r.wsHub
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	if r.cancelHub != nil {
		r.cancelHub()
	}
	return r.app.Shutdown()
}
