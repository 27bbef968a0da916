package handlers

import (
	"context"
	"strconv"
	"time"

	"backend/internal/api/middleware"
	"backend/internal/models"
	"backend/internal/service"
	"backend/internal/worker"

	"github.com/gofiber/fiber/v2"
)

// LeaderboardHandler handles leaderboard and rank HTTP requests
type LeaderboardHandler struct {
	leaderboard *service.LeaderboardService
	ranks       *service.RankService
	pool        *worker.Pool
	health      func(ctx context.Context) error
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(leaderboard *service.LeaderboardService, ranks *service.RankService, pool *worker.Pool, healthCheck func(ctx context.Context) error) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboard: leaderboard,
		ranks:       ranks,
		pool:        pool,
		health:      healthCheck,
	}
}

// GetLeaderboard handles GET /api/v1/leaderboard
func (h *LeaderboardHandler) GetLeaderboard(c *fiber.Ctx) error {
	offset, err := strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100 // Max limit to prevent abuse
	}

	page, err := h.leaderboard.GetLeaderboard(c.Context(), offset, limit)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(page)
}

// GetMyRank handles GET /api/v1/rank
func (h *LeaderboardHandler) GetMyRank(c *fiber.Ctx) error {
	card, err := h.ranks.GetUserRank(c.Context(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(card)
}

// Recalculate handles POST /api/v1/admin/recalculate. Admin and scheduler
// only; returns the full change list. The pool flush bounds how long the
// response can run ahead of the persisted state.
func (h *LeaderboardHandler) Recalculate(c *fiber.Ctx) error {
	changes, err := h.ranks.RecalculateAll(c.Context())
	if err != nil {
		return respondError(c, err)
	}

	if h.pool != nil {
		if err := h.pool.Flush(30 * time.Second); err != nil {
			// persists lag behind but will complete; report, don't fail
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"changes": changes,
				"warning": "some rank writes are still in flight",
			})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"changes": changes,
	})
}

// HealthCheck handles GET /api/v1/health
func (h *LeaderboardHandler) HealthCheck(c *fiber.Ctx) error {
	if h.health != nil {
		if err := h.health(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
				Error:   "unhealthy",
				Message: err.Error(),
			})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "healthy",
		"message": "All systems operational",
	})
}
