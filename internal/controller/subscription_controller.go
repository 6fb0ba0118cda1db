package controller

import (
	"meal-subscription-be/internal/dto"
	"meal-subscription-be/internal/pkg/serverutils"
	"meal-subscription-be/internal/service"
	"meal-subscription-be/pkg/calendar"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ISubscriptionController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Calendar(ctx *fiber.Ctx) error
	Skip(ctx *fiber.Ctx) error
	PurchaseAddOns(ctx *fiber.Ctx) error
	SkipAddOns(ctx *fiber.Ctx) error
	Cutoff(ctx *fiber.Ctx) error
	Acknowledge(ctx *fiber.Ctx) error
}

type subscriptionController struct {
	subscriptionService service.SubscriptionService
	skipService         service.SkipService
	addOnService        service.AddOnService
	ackService          service.AckService
	jwtSecret           string
}

func NewSubscriptionController(
	subscriptionService service.SubscriptionService,
	skipService service.SkipService,
	addOnService service.AddOnService,
	ackService service.AckService,
	jwtSecret string,
) ISubscriptionController {
	return &subscriptionController{
		subscriptionService: subscriptionService,
		skipService:         skipService,
		addOnService:        addOnService,
		ackService:          ackService,
		jwtSecret:           jwtSecret,
	}
}

func (c *subscriptionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/subscriptions")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Get("", c.List)
	h.Post("", c.Create)
	h.Get(":id", c.Show)
	h.Get(":id/calendar", c.Calendar)
	h.Get(":id/cutoff", c.Cutoff)
	h.Post(":id/skip", c.Skip)
	h.Post(":id/addons", c.PurchaseAddOns)
	h.Post(":id/addons/skip", c.SkipAddOns)
	h.Post(":id/deliveries/:date/ack", c.Acknowledge)
}

func (c *subscriptionController) Create(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateSubscriptionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.subscriptionService.Create(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create subscription", res))
}

func (c *subscriptionController) List(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.subscriptionService.ListForCustomer(ctx.UserContext(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get subscriptions", res))
}

func (c *subscriptionController) Show(ctx *fiber.Ctx) error {
	userId, id, err := userAndSubscription(ctx)
	if err != nil {
		return err
	}

	res, err := c.subscriptionService.Get(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show subscription", res))
}

func (c *subscriptionController) Calendar(ctx *fiber.Ctx) error {
	userId, id, err := userAndSubscription(ctx)
	if err != nil {
		return err
	}

	from, err := optionalDay(ctx.Query("from"))
	if err != nil {
		return err
	}
	to, err := optionalDay(ctx.Query("to"))
	if err != nil {
		return err
	}

	res, err := c.subscriptionService.Calendar(ctx.UserContext(), userId, id, from, to)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get calendar", res))
}

func (c *subscriptionController) Cutoff(ctx *fiber.Ctx) error {
	userId, id, err := userAndSubscription(ctx)
	if err != nil {
		return err
	}
	date, err := requiredDay(ctx.Query("date"))
	if err != nil {
		return err
	}

	res, err := c.subscriptionService.CutoffStatus(ctx.UserContext(), userId, id, date)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get cut-off status", res))
}

func (c *subscriptionController) Skip(ctx *fiber.Ctx) error {
	userId, id, err := userAndSubscription(ctx)
	if err != nil {
		return err
	}

	var req dto.SkipMealRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	date, err := requiredDay(req.Date)
	if err != nil {
		return err
	}

	res, err := c.skipService.SkipMeal(ctx.UserContext(), userId, id, date)
	if err != nil {
		return err
	}

	message := "Meal skipped"
	if res.AlreadySkipped {
		message = "Meal already skipped"
	}
	return ctx.JSON(serverutils.SuccessResponse(message, res))
}

func (c *subscriptionController) PurchaseAddOns(ctx *fiber.Ctx) error {
	userId, id, err := userAndSubscription(ctx)
	if err != nil {
		return err
	}

	var req dto.PurchaseAddOnsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	date, err := requiredDay(req.Date)
	if err != nil {
		return err
	}

	res, err := c.addOnService.PurchaseForDate(ctx.UserContext(), userId, id, date, req.AddOnIds)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success purchase add-ons", res))
}

func (c *subscriptionController) SkipAddOns(ctx *fiber.Ctx) error {
	userId, id, err := userAndSubscription(ctx)
	if err != nil {
		return err
	}

	var req dto.SkipAddOnsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	date, err := requiredDay(req.Date)
	if err != nil {
		return err
	}

	res, err := c.addOnService.SkipAddOnsForDate(ctx.UserContext(), userId, id, date)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success skip add-ons", res))
}

func (c *subscriptionController) Acknowledge(ctx *fiber.Ctx) error {
	userId, id, err := userAndSubscription(ctx)
	if err != nil {
		return err
	}
	date, err := requiredDay(ctx.Params("date"))
	if err != nil {
		return err
	}

	res, err := c.ackService.Acknowledge(ctx.UserContext(), userId, id, date)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Delivery acknowledged", res))
}

func userAndSubscription(ctx *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid subscription id")
	}
	return userId, id, nil
}

func requiredDay(raw string) (calendar.Day, error) {
	d, err := calendar.ParseDay(raw)
	if err != nil {
		return calendar.Day{}, fiber.NewError(fiber.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
	}
	return d, nil
}

func optionalDay(raw string) (calendar.Day, error) {
	if raw == "" {
		return calendar.Day{}, nil
	}
	return requiredDay(raw)
}
