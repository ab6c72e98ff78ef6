package controller

import (
	"medical-assistant-be/internal/dto"
	"medical-assistant-be/internal/pkg/serverutils"
	"medical-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IThreadController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
	GetMessages(ctx *fiber.Ctx) error
	GetFirstUserMessages(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type threadController struct {
	service service.IThreadService
}

func NewThreadController(service service.IThreadService) IThreadController {
	return &threadController{service: service}
}

func (c *threadController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/thread/v1")
	h.Get("", c.GetAll)
	h.Post("", c.Create)
	h.Get(":id/messages", c.GetMessages)
	h.Get(":id/first-messages", c.GetFirstUserMessages)
	h.Delete(":id", c.Delete)
}

func (c *threadController) Create(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromRequest(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateThreadRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	res, err := c.service.Create(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create thread", res))
}

func (c *threadController) GetAll(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromRequest(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetAll(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all threads", res))
}

func (c *threadController) GetMessages(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromRequest(ctx)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid thread id")
	}

	res, err := c.service.GetMessages(ctx.Context(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get thread messages", res))
}

func (c *threadController) GetFirstUserMessages(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromRequest(ctx)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid thread id")
	}

	res, err := c.service.GetFirstUserMessages(ctx.Context(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get thread preview", res))
}

func (c *threadController) Delete(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromRequest(ctx)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid thread id")
	}

	if err := c.service.Delete(ctx.Context(), userId, id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete thread", nil))
}
