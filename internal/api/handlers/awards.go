package handlers

import (
	"backend/internal/api/middleware"
	"backend/internal/apperr"
	"backend/internal/models"
	"backend/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AwardHandler handles achievements, badges, and the completion events
// that drive the two-phase award pipeline
type AwardHandler struct {
	achievements *service.AchievementService
	validator    *validator.Validate
}

// NewAwardHandler creates a new award handler
func NewAwardHandler(achievements *service.AchievementService) *AwardHandler {
	return &AwardHandler{
		achievements: achievements,
		validator:    validator.New(),
	}
}

// ListAchievements handles GET /api/v1/achievements
func (h *AwardHandler) ListAchievements(c *fiber.Ctx) error {
	statuses, err := h.achievements.ListWithStatus(c.Context(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"achievements": statuses,
	})
}

// SyncAchievements handles POST /api/v1/achievements/sync, the pull-based
// resync a client calls to catch up on missed triggers
func (h *AwardHandler) SyncAchievements(c *fiber.Ctx) error {
	result, err := h.achievements.CheckAndAward(c.Context(), middleware.UserID(c), models.TriggerSync, service.AwardContext{})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// MarkSeen handles POST /api/v1/achievements/seen
func (h *AwardHandler) MarkSeen(c *fiber.Ctx) error {
	if err := h.achievements.MarkNotificationsSeen(c.Context(), middleware.UserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "notifications marked seen",
	})
}

// CompleteLesson handles POST /api/v1/lessons/:id/complete. The handler
// owns the fan-out: badges first, then the badge_earned achievement check
// only when the badge batch actually awarded something.
func (h *AwardHandler) CompleteLesson(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	lessonID := c.Params("id")

	var req models.LessonCompletionRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Wrap(apperr.KindValidationFailed, "invalid request body", err))
	}
	if err := h.validator.Struct(&req); err != nil {
		return respondError(c, apperr.Wrap(apperr.KindValidationFailed, "validation failed", err))
	}

	badges, err := h.achievements.AwardForLessonCompletion(c.Context(), userID, lessonID, req.ModuleID, req.ModuleComplete)
	if err != nil {
		return respondError(c, err)
	}

	var awards *models.AwardResult
	if len(badges.Awarded) > 0 {
		awards, err = h.achievements.CheckAndAward(c.Context(), userID, models.TriggerBadgeEarned, service.AwardContext{})
		if err != nil {
			return respondError(c, err)
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"badges":       badges,
		"achievements": awards,
	})
}

// CompleteQuiz handles POST /api/v1/quizzes/:id/complete
func (h *AwardHandler) CompleteQuiz(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	quizID := c.Params("id")

	var req models.QuizCompletionRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Wrap(apperr.KindValidationFailed, "invalid request body", err))
	}
	if err := h.validator.Struct(&req); err != nil {
		return respondError(c, apperr.Wrap(apperr.KindValidationFailed, "validation failed", err))
	}

	badges, err := h.achievements.AwardForQuizCompletion(c.Context(), userID, quizID, models.MasteryTier(req.MasteryTier), req.Percentage, req.ParentQuiz)
	if err != nil {
		return respondError(c, err)
	}

	var awards *models.AwardResult
	if len(badges.Awarded) > 0 {
		awards, err = h.achievements.CheckAndAward(c.Context(), userID, models.TriggerBadgeEarned, service.AwardContext{})
		if err != nil {
			return respondError(c, err)
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"badges":       badges,
		"achievements": awards,
	})
}
