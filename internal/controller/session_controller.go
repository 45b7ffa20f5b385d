package controller

import (
	"video-segmentation-be/internal/dto"
	"video-segmentation-be/internal/pkg/serverutils"
	"video-segmentation-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	StartSession(ctx *fiber.Ctx) error
	CloseSession(ctx *fiber.Ctx) error
}

type sessionController struct {
	service service.ISessionService
}

func NewSessionController(service service.ISessionService) ISessionController {
	return &sessionController{service: service}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/api")
	h.Post("/start_session", c.StartSession)
	h.Post("/close_session", c.CloseSession)
}

func (c *sessionController) StartSession(ctx *fiber.Ctx) error {
	var req dto.StartSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.StartSession(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *sessionController) CloseSession(ctx *fiber.Ctx) error {
	var req dto.CloseSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CloseSession(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}
