package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"strconv"

	"video-segmentation-be/internal/dto"
	"video-segmentation-be/internal/pkg/serverutils"
	"video-segmentation-be/internal/service"
	"video-segmentation-be/pkg/multipart"

	"github.com/gofiber/fiber/v2"
)

// streamBoundary delimits frame chunks of a propagation response. Clients
// parse it out of the Content-Type header, but the token itself is part of
// the wire contract and must not change.
const streamBoundary = "frame"

type ISegmentationController interface {
	RegisterRoutes(r fiber.Router)
	AddPoints(ctx *fiber.Ctx) error
	ClearPointsInFrame(ctx *fiber.Ctx) error
	ClearPointsInVideo(ctx *fiber.Ctx) error
	RemoveObject(ctx *fiber.Ctx) error
	PropagateInVideo(ctx *fiber.Ctx) error
	CancelPropagateInVideo(ctx *fiber.Ctx) error
}

type segmentationController struct {
	segmentation service.ISegmentationService
	propagation  service.IPropagationService
}

func NewSegmentationController(
	segmentation service.ISegmentationService,
	propagation service.IPropagationService,
) ISegmentationController {
	return &segmentationController{
		segmentation: segmentation,
		propagation:  propagation,
	}
}

func (c *segmentationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/api")
	h.Post("/add_points", c.AddPoints)
	h.Post("/clear_points_in_frame", c.ClearPointsInFrame)
	h.Post("/clear_points_in_video", c.ClearPointsInVideo)
	h.Post("/remove_object", c.RemoveObject)
	h.Post("/cancel_propagate_in_video", c.CancelPropagateInVideo)

	// The stream endpoint predates the /api prefix and stays at the root.
	r.Post("/propagate_in_video", c.PropagateInVideo)
}

func (c *segmentationController) AddPoints(ctx *fiber.Ctx) error {
	var req dto.AddPointsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.segmentation.AddPoints(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *segmentationController) ClearPointsInFrame(ctx *fiber.Ctx) error {
	var req dto.ClearPointsInFrameRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.segmentation.ClearPointsInFrame(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *segmentationController) ClearPointsInVideo(ctx *fiber.Ctx) error {
	var req dto.ClearPointsInVideoRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.segmentation.ClearPointsInVideo(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *segmentationController) RemoveObject(ctx *fiber.Ctx) error {
	var req dto.RemoveObjectRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.segmentation.RemoveObject(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *segmentationController) CancelPropagateInVideo(ctx *fiber.Ctx) error {
	var req dto.CancelPropagateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.propagation.Cancel(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

// PropagateInVideo streams one multipart chunk per computed frame. Errors
// before the run starts map to HTTP statuses as usual; once the stream is
// open, a failure arrives as a final error chunk instead.
func (c *segmentationController) PropagateInVideo(ctx *fiber.Ctx) error {
	var req dto.PropagateInVideoRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	stream, err := c.propagation.Start(ctx.Context(), &req)
	if err != nil {
		return err
	}

	builder := multipart.NewBuilder(streamBoundary)
	ctx.Set(fiber.HeaderContentType, builder.ContentType())

	sessionID := req.SessionID
	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// If the writer bails early (client gone, marshal failure), the
		// engine must not stay blocked on its unbuffered channel: cancel
		// the run and drain to completion.
		defer func() {
			c.propagation.Cancel(context.Background(), &dto.CancelPropagateRequest{SessionID: sessionID})
			for range stream {
			}
		}()

		for event := range stream {
			var body []byte
			if event.Err != nil {
				body, _ = json.Marshal(serverutils.ErrorResponse(event.Err.Error()))
			} else {
				var err error
				body, err = json.Marshal(event.Result)
				if err != nil {
					return
				}
			}

			chunk := builder.Chunk(frameChunkHeaders(len(body)), body)
			if _, err := w.Write(chunk); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
			if event.Err != nil {
				return
			}
		}
	})

	return nil
}

// frameChunkHeaders mirrors the legacy stream contract: frame counters are
// always -1 (clients track position from the payload's frameIndex).
func frameChunkHeaders(bodyLen int) []multipart.Header {
	return []multipart.Header{
		{Key: "Content-Type", Value: "application/json; charset=utf-8"},
		{Key: "Content-Length", Value: strconv.Itoa(bodyLen)},
		{Key: "Frame-Current", Value: "-1"},
		{Key: "Frame-Total", Value: "-1"},
		{Key: "Mask-Type", Value: "RLE[]"},
	}
}
