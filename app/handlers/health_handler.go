package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/victorycadets/admissions-agent/utils"
)

// HealthHandler reports service and dependency health
type HealthHandler struct {
	db      *gorm.DB
	cache   *redis.Client
	version string
}

func NewHealthHandler(db *gorm.DB, cache *redis.Client, version string) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, version: version}
}

// Check reports "ok", or "degraded" when the database is unreachable and webhooks run offline
// @Router /api/health [get]
func (h *HealthHandler) Check(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	database := h.databaseStatus(ctx)
	cache := "disabled"
	if h.cache != nil {
		cache = "ok"
		if err := h.cache.Ping(ctx).Err(); err != nil {
			cache = "unreachable"
		}
	}

	status := "ok"
	if database != "ok" {
		status = "degraded"
	}

	return successResponse(c, fiber.StatusOK, "Service is healthy", fiber.Map{
		"status":    status,
		"database":  database,
		"cache":     cache,
		"timestamp": utils.UTCNow().Unix(),
		"version":   h.version,
		"service":   "admissions-agent",
	})
}

func (h *HealthHandler) databaseStatus(ctx context.Context) string {
	if h.db == nil {
		return "offline"
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return "unreachable"
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return "unreachable"
	}
	return "ok"
}
