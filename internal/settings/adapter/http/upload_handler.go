package http

import (
	"io"

	"product-studio/internal/settings/usecase"
	"product-studio/internal/shared/errors"
	"product-studio/internal/shared/logger"
	"product-studio/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UploadFormField is the multipart field holding the model file
const UploadFormField = "model"

// UploadHandler turns an uploaded model file into a data URI
type UploadHandler struct {
	uploadUC usecase.UploadUsecaseInterface
	log      logger.Logger
}

// NewUploadHandler creates a new UploadHandler
func NewUploadHandler(uploadUC usecase.UploadUsecaseInterface, log logger.Logger) *UploadHandler {
	return &UploadHandler{
		uploadUC: uploadUC,
		log:      log.WithComponent("upload-handler"),
	}
}

// RegisterRoutes mounts POST /upload
func (h *UploadHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/upload", h.Upload)
}

// Upload handles POST /upload. It never touches the database.
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	ctx := utils.WithOperation(c.UserContext(), "model.upload")

	fileHeader, err := c.FormFile(UploadFormField)
	if err != nil {
		h.log.WithContext(ctx).Debug("Upload request without a file", zap.Error(errors.ErrNoFileUploaded))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "no_file_uploaded",
			"message": "No file uploaded.",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.log.WithContext(ctx).Error("Failed to open uploaded file", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "upload_failed",
			"message": err.Error(),
		})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.log.WithContext(ctx).Error("Failed to read uploaded file", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "upload_failed",
			"message": err.Error(),
		})
	}

	asset, err := h.uploadUC.Encode(ctx, usecase.UploadRequest{
		FileName: fileHeader.Filename,
		MimeType: fileHeader.Header.Get(fiber.HeaderContentType),
		Data:     data,
	})
	if err != nil {
		code := "upload_failed"
		if errors.IsUnsupported(err) {
			code = "upload_rejected"
		}
		return c.Status(errors.HTTPStatus(err)).JSON(fiber.Map{
			"error":   code,
			"message": errorMessage(err),
		})
	}

	return c.JSON(asset)
}
