package controller

import (
	"video-segmentation-be/internal/dto"
	"video-segmentation-be/internal/pkg/serverutils"
	"video-segmentation-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IVideoController interface {
	RegisterRoutes(r fiber.Router)
	DefaultVideo(ctx *fiber.Ctx) error
	Gallery(ctx *fiber.Ctx) error
	UploadVideo(ctx *fiber.Ctx) error
}

type videoController struct {
	service     service.IVideoService
	uploadGuard fiber.Handler
}

// NewVideoController wires the catalog routes. uploadGuard protects the
// upload endpoint; pass a pass-through handler to leave it open.
func NewVideoController(service service.IVideoService, uploadGuard fiber.Handler) IVideoController {
	return &videoController{service: service, uploadGuard: uploadGuard}
}

func (c *videoController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/api")
	h.Get("/default_video", c.DefaultVideo)
	h.Get("/videos", c.Gallery)
	h.Post("/upload_video", c.uploadGuard, c.UploadVideo)
}

func (c *videoController) DefaultVideo(ctx *fiber.Ctx) error {
	res, err := c.service.DefaultVideo(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *videoController) Gallery(ctx *fiber.Ctx) error {
	res, err := c.service.ListVideos(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *videoController) UploadVideo(ctx *fiber.Ctx) error {
	file, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing file part")
	}

	var req dto.UploadVideoRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.UploadVideo(ctx.Context(), file, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}
