package foodHandler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	foodService "foodlens/internal/api/food/service"
	"foodlens/internal/middleware"
	"foodlens/pkg/utils"
)

type FoodHandler struct {
	log         *logrus.Logger
	validator   *validator.Validate
	middleware  middleware.Middleware
	foodService foodService.IFoodService
	utils       utils.IUtils
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	fs foodService.IFoodService,
	utils utils.IUtils,
) *FoodHandler {
	return &FoodHandler{
		log:         log,
		validator:   validator,
		middleware:  middleware,
		foodService: fs,
		utils:       utils,
	}
}

func (h *FoodHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	srv.Post("/identify", h.middleware.NewRateLimiter, h.IdentifyFood)
	srv.Get("/calories", h.middleware.NewRateLimiter, h.GetCalories)

	identify := srv.Group("/identify")
	identify.Use("/ws", wsMiddleware)
	identify.Get("/ws", websocket.New(h.handleLiveWebSocket))
}
