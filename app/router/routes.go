// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/victorycadets/admissions-agent/app/dto"
	"github.com/victorycadets/admissions-agent/app/handlers"
	"github.com/victorycadets/admissions-agent/app/middleware"
	businessflow "github.com/victorycadets/admissions-agent/business_flow"
	"github.com/victorycadets/admissions-agent/config"
	"github.com/victorycadets/admissions-agent/utils"
)

const healthPath = "/api/health"

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// Handlers groups the endpoint handlers the router mounts
type Handlers struct {
	Voice  handlers.VoiceHandlerInterface
	Call   handlers.CallHandlerInterface
	Script handlers.AgentScriptHandlerInterface
	Health *handlers.HealthHandler
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app      *fiber.App
	server   config.ServerConfig
	metrics  config.MetricsConfig
	handlers Handlers
	logger   *zap.Logger
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(server config.ServerConfig, metrics config.MetricsConfig, h Handlers, log *zap.Logger) Router {
	if log == nil {
		log = zap.NewNop()
	}
	r := &FiberRouter{
		server:   server,
		metrics:  metrics,
		handlers: h,
		logger:   log,
	}

	bodyLimit := server.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 1024 * 1024
	}
	r.app = fiber.New(fiber.Config{
		AppName:      "Victory Cadets Admissions Agent",
		ServerHeader: "admissions-agent",
		ErrorHandler: r.errorHandler,
		BodyLimit:    bodyLimit,
		ReadTimeout:  server.ReadTimeout,
		WriteTimeout: server.WriteTimeout,
		IdleTimeout:  server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	return r
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.setupMiddleware()

	if r.metrics.Enabled {
		r.app.Get(r.metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api")
	api.Get("/health", r.handlers.Health.Check)

	// Provider webhooks sit outside the API rate limiter
	r.app.Post(businessflow.VoicePathInbound, r.handlers.Voice.Inbound)
	r.app.Get(businessflow.VoicePathOutbound, r.handlers.Voice.Outbound)
	r.app.Post(businessflow.VoicePathOutbound, r.handlers.Voice.Outbound)
	r.app.Post(businessflow.VoicePathObjection, r.handlers.Voice.Objection)
	r.app.Post(businessflow.VoicePathContinue, r.handlers.Voice.Continue)
	r.app.Post(businessflow.VoicePathStatus, r.handlers.Voice.Status)

	rl := r.rateLimiter()
	api.Post("/leads/:id/call", rl, r.handlers.Call.InitiateCall)
	api.Get("/calls/export", rl, r.handlers.Call.ExportCallLedger)
	api.Get("/scripts/default", rl, r.handlers.Script.GetDefault)
	api.Patch("/scripts/:id", rl, r.handlers.Script.Update)

	r.app.Use(r.notFoundHandler)

	r.logger.Info("Routes configured")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: uuid.NewString,
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.Error("Panic while serving request",
				zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
				zap.Any("panic", e),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()))
		},
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000,
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginResourcePolicy: "cross-origin",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins: r.server.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PATCH", "HEAD", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"X-Requested-With",
			"X-Request-ID",
		},
		ExposeHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:        utils.CORSMaxAge,
	}))

	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","request_id":"${respHeader:X-Request-ID}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == healthPath || c.Path() == r.metrics.Path
		},
	}))

	if r.metrics.Enabled {
		r.app.Use(middleware.Metrics(r.metrics.Path))
	}
}

func (r *FiberRouter) rateLimiter() fiber.Handler {
	limit := r.server.APIRateLimit
	if limit <= 0 {
		limit = 600
	}
	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
	})
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	r.logger.Info("Starting server", zap.String("address", address))
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
			},
		},
	})
}

// errorHandler renders errors that escaped a handler
func (r *FiberRouter) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	r.logger.Error("Request failed",
		zap.Int("status", code),
		zap.String("path", c.Path()),
		zap.Error(err))

	message := "An internal server error occurred"
	if code < fiber.StatusInternalServerError && fe != nil {
		message = fe.Message
	}

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
			},
		},
	})
}
