package controller

import (
	"meal-subscription-be/internal/dto"
	"meal-subscription-be/internal/pkg/serverutils"
	"meal-subscription-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IDeliveryController interface {
	RegisterRoutes(r fiber.Router)
	ListAssigned(ctx *fiber.Ctx) error
	UpdateStatus(ctx *fiber.Ctx) error
}

type deliveryController struct {
	subscriptionService service.SubscriptionService
	deliveryService     service.DeliveryService
	jwtSecret           string
}

func NewDeliveryController(subscriptionService service.SubscriptionService, deliveryService service.DeliveryService, jwtSecret string) IDeliveryController {
	return &deliveryController{
		subscriptionService: subscriptionService,
		deliveryService:     deliveryService,
		jwtSecret:           jwtSecret,
	}
}

// Agent-only routes.
func (c *deliveryController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/delivery")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret), serverutils.RequireRole(serverutils.RoleDelivery))
	h.Get("/subscriptions", c.ListAssigned)
	h.Post("/subscriptions/:id/deliveries/:date/status", c.UpdateStatus)
}

func (c *deliveryController) ListAssigned(ctx *fiber.Ctx) error {
	agentId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.subscriptionService.ListAssigned(ctx.UserContext(), agentId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get assigned subscriptions", res))
}

func (c *deliveryController) UpdateStatus(ctx *fiber.Ctx) error {
	agentId, id, err := userAndSubscription(ctx)
	if err != nil {
		return err
	}
	date, err := requiredDay(ctx.Params("date"))
	if err != nil {
		return err
	}

	var req dto.UpdateDeliveryStatusRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.deliveryService.UpdateStatus(ctx.UserContext(), agentId, id, date, req.Status)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Delivery status updated", res))
}
