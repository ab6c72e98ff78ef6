package controller

import (
	"medical-assistant-be/internal/dto"
	"medical-assistant-be/internal/pkg/serverutils"
	"medical-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Init(ctx *fiber.Ctx) error
	GenerateFollowUp(ctx *fiber.Ctx) error
	GetAnswers(ctx *fiber.Ctx) error
	GenerateFinalPrompt(ctx *fiber.Ctx) error
	GenerateDiagnosis(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
}

func NewChatController(service service.IChatService) IChatController {
	return &chatController{service: service}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	chat := r.Group("/chat/v1")
	chat.Post("/init", c.Init)
	chat.Post("/generate_followUp", c.GenerateFollowUp)
	chat.Post("/get_answers", c.GetAnswers)
	chat.Post("/generate_final_prompt", c.GenerateFinalPrompt)

	diagnosis := r.Group("/diagnosis/v1")
	diagnosis.Post("/generate_diagnosis", c.GenerateDiagnosis)
}

func (c *chatController) Init(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromRequest(ctx)
	if err != nil {
		return err
	}

	var req dto.InitChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Init(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success init consultation", res))
}

func (c *chatController) GenerateFollowUp(ctx *fiber.Ctx) error {
	var req dto.GenerateFollowUpRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.GenerateFollowUp(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success generate follow-up questions", res))
}

func (c *chatController) GetAnswers(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromRequest(ctx)
	if err != nil {
		return err
	}

	var req dto.GetAnswersRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.GetAnswers(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success process answers", res))
}

func (c *chatController) GenerateFinalPrompt(ctx *fiber.Ctx) error {
	var req dto.GenerateFinalPromptRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.GenerateFinalPrompt(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success assemble final prompt", res))
}

func (c *chatController) GenerateDiagnosis(ctx *fiber.Ctx) error {
	var req dto.GenerateDiagnosisRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.GenerateDiagnosis(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success generate assessment", res))
}
