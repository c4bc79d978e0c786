package foodService

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"foodlens/internal/entity"
	contextPkg "foodlens/pkg/context"
	"foodlens/pkg/nlp"
	"foodlens/pkg/retry"
)

var errEmptyReply = errors.New("empty reply")

// Plausibility bounds for the vision-grounded estimator. Out-of-range pairs
// are rejected wholesale, not clamped.
const (
	minPlausibleWeight   = 50
	maxPlausibleWeight   = 1000
	minPlausibleCalories = 20
	maxPlausibleCalories = 1000

	// Looser text-mode caps, clamped per field.
	maxTextWeight       = 1000
	maxTextCalories     = 2000
	clampedTextCalories = 800
)

// estimate never fails outward: any remote or parse problem degrades to the
// category default for the label.
func (s *foodService) estimate(ctx context.Context, label string, base64Image string) entity.FoodEstimate {
	requestID := contextPkg.GetRequestID(ctx)

	var est entity.FoodEstimate
	var err error

	if s.estimatorMode == EstimatorModeVision && s.gemini != nil {
		est, err = s.estimateFromImage(ctx, label, base64Image)
	} else {
		est, err = s.estimateFromText(ctx, label)
	}

	if err != nil {
		def := nlp.DefaultEstimate(label)
		s.log.WithFields(logrus.Fields{
			"request_id":     requestID,
			"label":          label,
			"error":          err.Error(),
			"default_weight": def.WeightGrams,
			"default_kcal":   def.Calories,
		}).Warn("Estimation failed, using category default")
		return entity.FoodEstimate{WeightGrams: def.WeightGrams, Calories: def.Calories}
	}

	return est
}

const visionEstimatePrompt = `你是一个食物份量估算专家。请根据图片估算这份「%s」的重量（克）和卡路里。
估算时使用参照物：
1. 餐盘直径一般为20-25厘米
2. 一碗米饭约200-300克、约300卡
3. 一份肉类菜品约150-250克、约250卡
4. 一份青菜约100-150克、约50卡
根据图中食物占餐盘的比例调整估算值。
只返回JSON对象：{"weight": 250, "calories": 350}
不要返回任何其他文字。`

func (s *foodService) estimateFromImage(ctx context.Context, label string, base64Image string) (entity.FoodEstimate, error) {
	reply, err := retry.DoValue(ctx, func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, remoteCallTimeout)
		defer cancel()
		return s.gemini.AnalyzeImage(callCtx, base64Image, fmt.Sprintf(visionEstimatePrompt, label))
	})
	if err != nil {
		return entity.FoodEstimate{}, err
	}

	weight, calories, err := parseEstimateReply(reply)
	if err != nil {
		return entity.FoodEstimate{}, err
	}

	if weight < minPlausibleWeight || weight > maxPlausibleWeight {
		return entity.FoodEstimate{}, fmt.Errorf("implausible weight %d", weight)
	}
	if calories < minPlausibleCalories || calories > maxPlausibleCalories {
		return entity.FoodEstimate{}, fmt.Errorf("implausible calories %d", calories)
	}

	return entity.FoodEstimate{WeightGrams: weight, Calories: calories}, nil
}

// parseEstimateReply reads the nominal {"weight": w, "calories": c} object
// out of free text. Strict JSON first (values may arrive quoted), then the
// first two digit runs positionally as weight and calories.
func parseEstimateReply(reply string) (int, int, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return 0, 0, errEmptyReply
	}

	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start != -1 && end > start {
		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err == nil {
			weight, wok := coerceInt(raw["weight"])
			calories, cok := coerceInt(raw["calories"])
			if wok && cok {
				return weight, calories, nil
			}
		}
	}

	weight, calories, ok := nlp.ExtractDigitPair(reply)
	if !ok {
		return 0, 0, fmt.Errorf("no usable numbers in reply %q", reply)
	}
	return weight, calories, nil
}

// coerceInt accepts the number however the model serialized it: a JSON
// number, or a string with stray quotes or units around the digits.
func coerceInt(v interface{}) (int, bool) {
	switch value := v.(type) {
	case float64:
		return int(value), true
	case string:
		return nlp.ExtractDigits(value)
	case json.Number:
		if n, err := value.Int64(); err == nil {
			return int(n), true
		}
	}
	return 0, false
}

// estimateFromText asks for weight and calories as bare digits in two calls.
// Each field is clamped independently: a runaway weight becomes the category
// default weight, runaway calories collapse to the single-serving cap.
func (s *foodService) estimateFromText(ctx context.Context, label string) (entity.FoodEstimate, error) {
	if s.openAI == nil {
		return entity.FoodEstimate{}, errors.New("no text estimator configured")
	}
	requestID := contextPkg.GetRequestID(ctx)
	def := nlp.DefaultEstimate(label)

	weight, err := retry.DoValue(ctx, func() (int, error) {
		callCtx, cancel := context.WithTimeout(ctx, remoteCallTimeout)
		defer cancel()
		return s.openAI.EstimateWeight(callCtx, label)
	})
	if err != nil || weight <= 0 {
		if err != nil {
			return entity.FoodEstimate{}, err
		}
		return entity.FoodEstimate{}, errors.New("non-positive weight estimate")
	}
	if weight > maxTextWeight {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"label":      label,
			"weight":     weight,
		}).Warn("Weight estimate out of range, using category default")
		weight = def.WeightGrams
	}

	calories, err := retry.DoValue(ctx, func() (int, error) {
		callCtx, cancel := context.WithTimeout(ctx, remoteCallTimeout)
		defer cancel()
		return s.openAI.EstimateCalories(callCtx, label, weight)
	})
	if err != nil || calories <= 0 {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"label":      label,
		}).Warn("Calorie estimate unavailable, using category default")
		calories = def.Calories
	} else if calories > maxTextCalories {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"label":      label,
			"calories":   calories,
		}).Warn("Calorie estimate out of range, clamping")
		calories = clampedTextCalories
	}

	return entity.FoodEstimate{WeightGrams: weight, Calories: calories}, nil
}
