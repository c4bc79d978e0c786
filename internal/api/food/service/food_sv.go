package foodService

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"foodlens/internal/api/food"
	"foodlens/internal/entity"
	contextPkg "foodlens/pkg/context"
	"foodlens/pkg/retry"
)

// Identify classifies the image, estimates a serving when it is food, and
// records the estimate so later calorie lookups can rescale it.
func (s *foodService) Identify(ctx context.Context, image []byte, filename string) (*food.IdentifyResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	result, err := s.classify(ctx, image)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"label":      result.Label,
		"confidence": result.Confidence,
		"is_food":    result.IsFood,
	}).Info("Classification complete")

	if !result.IsFood {
		return &food.IdentifyResponse{
			Name:       result.Label,
			Confidence: result.Confidence,
			Message:    food.NotEdibleMessage,
		}, nil
	}

	estimate := s.estimate(ctx, result.Label, base64.StdEncoding.EncodeToString(image))

	if err := s.cache.Record(ctx, result.Label, estimate); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"label":      result.Label,
			"error":      err.Error(),
		}).Error("Failed to record estimate in cache")
	}

	s.archiveImage(requestID, result.Label, filename, image)

	return &food.IdentifyResponse{
		Name:       result.Label,
		Confidence: result.Confidence,
		Weight:     estimate.WeightGrams,
		Calories:   estimate.Calories,
	}, nil
}

// archiveImage is best effort; a failed upload never fails the request.
func (s *foodService) archiveImage(requestID, label, filename string, image []byte) {
	if s.s3 == nil {
		return
	}

	id, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		id = fmt.Sprintf("%d", time.Now().UnixNano())
	}

	key := fmt.Sprintf("identified/%s-%s", id, filename)
	location, err := s.s3.UploadImage(key, image)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"label":      label,
			"key":        key,
			"error":      err.Error(),
		}).Warn("Image archive upload failed")
		return
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"label":      label,
		"location":   location,
	}).Debug("Image archived")
}

// Calories answers a lookup for weightGrams of a labeled food. In cache mode
// the last recorded estimate is rescaled linearly; in live mode the number
// is recomputed from the reasoning service every time.
func (s *foodService) Calories(ctx context.Context, foodName string, weightGrams int) (int, error) {
	if s.caloriesMode == CaloriesModeLive {
		return s.caloriesLive(ctx, foodName, weightGrams)
	}
	return s.caloriesFromCache(ctx, foodName, weightGrams)
}

func (s *foodService) caloriesFromCache(ctx context.Context, foodName string, weightGrams int) (int, error) {
	entry, err := s.cache.Lookup(ctx, foodName)
	if err != nil {
		return 0, err
	}

	if entry.WeightGrams <= 0 {
		return 0, food.ErrFoodNotFound
	}

	// Deliberate simplification: calories scale linearly with weight.
	rescaled := int(math.Round(float64(entry.Calories) * float64(weightGrams) / float64(entry.WeightGrams)))

	s.log.WithFields(logrus.Fields{
		"request_id":    contextPkg.GetRequestID(ctx),
		"label":         foodName,
		"weight":        weightGrams,
		"cached_weight": entry.WeightGrams,
		"cached_kcal":   entry.Calories,
		"calories":      rescaled,
	}).Info("Calories rescaled from cache")

	return rescaled, nil
}

func (s *foodService) caloriesLive(ctx context.Context, foodName string, weightGrams int) (int, error) {
	if s.openAI == nil {
		return 0, errors.New("no reasoning service configured for live calories")
	}

	calories, err := retry.DoValue(ctx, func() (int, error) {
		callCtx, cancel := context.WithTimeout(ctx, remoteCallTimeout)
		defer cancel()
		return s.openAI.EstimateCalories(callCtx, foodName, weightGrams)
	})
	if err != nil {
		return 0, err
	}

	if calories > maxTextCalories {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"label":      foodName,
			"calories":   calories,
		}).Warn("Live calorie estimate out of range, clamping")
		calories = clampedTextCalories
	}

	return calories, nil
}

// ClassifyFrame serves the live websocket stream: classification only, no
// estimation and no cache writes.
func (s *foodService) ClassifyFrame(ctx context.Context, frame []byte) (*entity.ClassificationResult, error) {
	return s.classify(ctx, frame)
}
