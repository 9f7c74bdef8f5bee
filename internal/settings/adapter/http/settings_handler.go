package http

import (
	stderrors "errors"
	"fmt"

	"product-studio/internal/settings/usecase"
	"product-studio/internal/shared/errors"
	"product-studio/internal/shared/logger"
	"product-studio/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
)

// SettingsHandler serves the settings snapshot endpoints
type SettingsHandler struct {
	settingsUC usecase.SettingsUsecaseInterface
	log        logger.Logger
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settingsUC usecase.SettingsUsecaseInterface, log logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		settingsUC: settingsUC,
		log:        log.WithComponent("settings-handler"),
	}
}

// RegisterRoutes mounts POST and GET /settings
func (h *SettingsHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/settings", h.SaveSettings)
	router.Get("/settings", h.GetSettings)
}

// SaveSettings handles POST /settings
func (h *SettingsHandler) SaveSettings(c *fiber.Ctx) error {
	ctx := utils.WithOperation(c.UserContext(), "settings.save")

	var req usecase.SaveSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":    "invalid_request_body",
			"detailed": err.Error(),
		})
	}

	snapshot, err := h.settingsUC.Save(ctx, req)
	if err != nil {
		if errors.IsValidation(err) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":    "invalid_settings",
				"detailed": errorMessage(err),
			})
		}

		entry := h.log.WithContext(ctx).WithFields(map[string]interface{}{
			"error": err.Error(),
		})
		if errors.IsInfrastructure(err) {
			entry.Error("SAVE ERROR: storage unavailable")
		} else {
			entry.Error("SAVE ERROR")
		}
		return c.Status(errors.HTTPStatus(err)).JSON(fiber.Map{
			"error":    errorMessage(err),
			"detailed": errorDetail(err),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(snapshot)
}

// GetSettings handles GET /settings. An empty object means nothing has been saved.
func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	ctx := utils.WithOperation(c.UserContext(), "settings.load")

	snapshot, err := h.settingsUC.GetLatest(ctx)
	if err != nil {
		h.log.WithContext(ctx).Errorf("Failed to load settings: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": errorMessage(err),
		})
	}
	if snapshot == nil {
		return c.JSON(fiber.Map{})
	}

	return c.JSON(snapshot.ToView())
}

// errorMessage prefers the AppError message over the wrapped chain
func errorMessage(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// errorDetail renders an error as "<kind>: <message>"
func errorDetail(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return fmt.Sprintf("%s: %s", appErr.Type, appErr.Message)
	}
	return err.Error()
}
