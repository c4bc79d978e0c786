package foodService

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"foodlens/internal/api/food"
	"foodlens/internal/entity"
	contextPkg "foodlens/pkg/context"
	geminiPkg "foodlens/pkg/gemini"
	"foodlens/pkg/nlp"
	openaiPkg "foodlens/pkg/openai"
	rekognitionPkg "foodlens/pkg/rekognition"
	"foodlens/pkg/retry"
)

const remoteCallTimeout = 30 * time.Second

// classify runs the recognizer cascade: dish, then ingredient, then general
// object detection. A stage's transport or parse failure only drops that
// stage; the hard failure is all three coming back empty.
func (s *foodService) classify(ctx context.Context, image []byte) (*entity.ClassificationResult, error) {
	requestID := contextPkg.GetRequestID(ctx)
	base64Image := base64.StdEncoding.EncodeToString(image)

	if result := s.tryDish(ctx, base64Image); result != nil {
		return result, nil
	}

	if result := s.tryIngredient(ctx, base64Image); result != nil {
		return result, nil
	}

	if result := s.tryObject(ctx, image); result != nil {
		return result, nil
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
	}).Warn("All recognizer stages exhausted")

	return nil, food.ErrRecognitionFailed
}

func (s *foodService) tryDish(ctx context.Context, base64Image string) *entity.ClassificationResult {
	if s.openAI == nil {
		return nil
	}
	requestID := contextPkg.GetRequestID(ctx)

	candidates, err := retry.DoValue(ctx, func() ([]openaiPkg.Candidate, error) {
		callCtx, cancel := context.WithTimeout(ctx, remoteCallTimeout)
		defer cancel()
		return s.openAI.RecognizeDish(callCtx, base64Image)
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Dish recognizer unavailable, falling through")
		return nil
	}

	if len(candidates) == 0 || candidates[0].Name == openaiPkg.SentinelNotDish {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
		}).Debug("Dish recognizer found no dish")
		return nil
	}

	return &entity.ClassificationResult{
		Label:      candidates[0].Name,
		Confidence: candidates[0].Score,
		IsFood:     true,
	}
}

const ingredientPrompt = `你是一个食材识别专家。识别图片中的果蔬或食材，返回JSON数组，按置信度从高到低排列：
[{"name": "食材名", "score": 0.95}]
如果图片里不是果蔬或食材，返回 [{"name": "非果蔬食材", "score": 1.0}]。
只返回JSON，不要任何其他文字。`

func (s *foodService) tryIngredient(ctx context.Context, base64Image string) *entity.ClassificationResult {
	if s.gemini == nil {
		return nil
	}
	requestID := contextPkg.GetRequestID(ctx)

	reply, err := retry.DoValue(ctx, func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, remoteCallTimeout)
		defer cancel()
		return s.gemini.AnalyzeImage(callCtx, base64Image, ingredientPrompt)
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Ingredient recognizer unavailable, falling through")
		return nil
	}

	candidates, err := parseIngredientReply(reply)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Unparseable ingredient reply, falling through")
		return nil
	}

	if len(candidates) == 0 || candidates[0].Name == geminiPkg.SentinelNotProduce {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
		}).Debug("Ingredient recognizer found no produce")
		return nil
	}

	return &entity.ClassificationResult{
		Label:      candidates[0].Name,
		Confidence: candidates[0].Score,
		IsFood:     true,
	}
}

type ingredientCandidate struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func parseIngredientReply(reply string) ([]ingredientCandidate, error) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")

	if start == -1 || end <= start {
		name := nlp.NormalizeLabel(reply)
		if name == "" {
			return nil, errEmptyReply
		}
		return []ingredientCandidate{{Name: name, Score: 0.9}}, nil
	}

	var candidates []ingredientCandidate
	if err := json.Unmarshal([]byte(reply[start:end+1]), &candidates); err != nil {
		return nil, err
	}

	for i := range candidates {
		candidates[i].Name = nlp.NormalizeLabel(candidates[i].Name)
	}
	return candidates, nil
}

// tryObject is the last stage: it always labels the image when the call
// succeeds, and only decides food-ness from the label and its categories.
func (s *foodService) tryObject(ctx context.Context, image []byte) *entity.ClassificationResult {
	if s.rekognition == nil {
		return nil
	}
	requestID := contextPkg.GetRequestID(ctx)

	labels, err := retry.DoValue(ctx, func() ([]rekognitionPkg.Label, error) {
		callCtx, cancel := context.WithTimeout(ctx, remoteCallTimeout)
		defer cancel()
		return s.rekognition.DetectLabels(callCtx, image)
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Object recognizer unavailable")
		return nil
	}

	if len(labels) == 0 {
		return nil
	}

	// Labels are ranked; prefer the best food-tagged one.
	chosen := labels[0]
	isFood := false
	for _, label := range labels {
		if nlp.IsFoodIndicator(label.Name, strings.Join(label.Parents, " ")) {
			chosen = label
			isFood = true
			break
		}
	}

	name := nlp.NormalizeLabel(chosen.Name)
	if s.translateLabels && s.openAI != nil {
		if translated, err := s.openAI.TranslateLabel(ctx, name); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"label":      name,
				"error":      err.Error(),
			}).Warn("Label translation failed, keeping original")
		} else {
			name = translated
		}
	}

	return &entity.ClassificationResult{
		Label:      name,
		Confidence: chosen.Confidence,
		IsFood:     isFood,
	}
}
