package foodHandler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"

	"foodlens/internal/api/food"
	contextPkg "foodlens/pkg/context"
	"foodlens/pkg/handlerUtil"
	"foodlens/pkg/log"
	"foodlens/pkg/utils"
)

// The cascade can walk three remote recognizers plus the estimator, each
// with its own retries, so the request budget is generous.
const identifyTimeout = 120 * time.Second

func (h *FoodHandler) IdentifyFood(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), identifyTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing identify request")

	file, err := ctx.FormFile("food_image")
	if err != nil {
		return errHandler.Handle(ctx, requestID, food.ErrMissingImage, ctx.Path(), "read_form_file")
	}

	if file.Filename == "" {
		return errHandler.Handle(ctx, requestID, food.ErrEmptyFilename, ctx.Path(), "check_filename")
	}

	if err := h.utils.ValidateImageFile(file); err != nil {
		mapped := food.ErrInvalidFileType
		if errors.Is(err, utils.ErrFileTooLarge) {
			mapped = food.ErrFileTooLarge
		}
		return errHandler.Handle(ctx, requestID, mapped, ctx.Path(), "validate_image_file")
	}

	fileContent, err := file.Open()
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "open_file")
	}
	defer fileContent.Close()

	imageBytes, err := h.utils.ReadFileBytes(fileContent)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_file")
	}

	result, err := h.foodService.Identify(c, imageBytes, file.Filename)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "identify_food")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"name":       result.Name,
			"confidence": result.Confidence,
		}).Info("Identify successful")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}

func (h *FoodHandler) GetCalories(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), identifyTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req food.CaloriesQuery
	if err := ctx.QueryParser(&req); err != nil {
		return errHandler.HandleCalories(ctx, requestID, food.ErrMissingFoodName, ctx.Path(), "parse_query")
	}

	if err := h.validator.Struct(req); err != nil {
		mapped := food.ErrMissingWeight
		if req.FoodName == "" {
			mapped = food.ErrMissingFoodName
		}
		return errHandler.HandleCalories(ctx, requestID, mapped, ctx.Path(), "validate_query")
	}

	weight, err := strconv.Atoi(req.Weight)
	if err != nil || weight <= 0 {
		return errHandler.HandleCalories(ctx, requestID, food.ErrInvalidWeight, ctx.Path(), "parse_weight")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"food_name":  req.FoodName,
		"weight":     weight,
	}).Debug("Processing calories request")

	calories, err := h.foodService.Calories(c, req.FoodName, weight)
	if err != nil {
		return errHandler.HandleCalories(ctx, requestID, err, ctx.Path(), "get_calories")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, food.CaloriesResponse{Calories: calories})
	}
}

func (h *FoodHandler) handleLiveWebSocket(c *websocket.Conn) {
	h.log.Info("Live recognition WebSocket client connected")
	defer h.log.Info("Live recognition WebSocket client disconnected")

	maxReadTimeout := 60 * time.Second

	for {
		if err := c.SetReadDeadline(time.Now().Add(maxReadTimeout)); err != nil {
			h.log.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, frame, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Errorf("Live recognition WebSocket error: %v", err)
			} else {
				h.log.Info("Live recognition WebSocket connection closed")
			}
			break
		}

		if messageType != websocket.BinaryMessage {
			h.log.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		result, err := h.foodService.ClassifyFrame(context.Background(), frame)
		if err != nil {
			if writeErr := c.WriteJSON(map[string]string{"error": err.Error()}); writeErr != nil {
				h.log.Errorf("Error sending error response: %v", writeErr)
				break
			}
			continue
		}

		if err := c.WriteJSON(food.LiveResult{
			Name:       result.Label,
			Confidence: result.Confidence,
			IsFood:     result.IsFood,
		}); err != nil {
			h.log.Errorf("Error writing JSON response: %v", err)
			break
		}
	}
}
