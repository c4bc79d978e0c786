package foodService

import (
	"context"
	"errors"
	"strings"
	"testing"

	"foodlens/internal/api/food"
	"foodlens/internal/entity"
	openaiPkg "foodlens/pkg/openai"
	rekognitionPkg "foodlens/pkg/rekognition"
)

func TestParseEstimateReplyStrictJSON(t *testing.T) {
	weight, calories, err := parseEstimateReply(`{"weight": 250, "calories": 350}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if weight != 250 || calories != 350 {
		t.Fatalf("expected 250/350, got %d/%d", weight, calories)
	}
}

func TestParseEstimateReplyQuotedValues(t *testing.T) {
	weight, calories, err := parseEstimateReply("```json\n{\"weight\": \"250克\", \"calories\": \"350\"}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if weight != 250 || calories != 350 {
		t.Fatalf("expected 250/350, got %d/%d", weight, calories)
	}
}

func TestParseEstimateReplyDigitFallback(t *testing.T) {
	weight, calories, err := parseEstimateReply("约250克，350卡")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if weight != 250 || calories != 350 {
		t.Fatalf("expected 250/350, got %d/%d", weight, calories)
	}
}

func TestParseEstimateReplyNoNumbers(t *testing.T) {
	if _, _, err := parseEstimateReply("这张图看不清楚"); err == nil {
		t.Fatalf("expected a parse failure")
	}
}

func TestIdentifyOutOfRangeEstimateFallsBackToDefault(t *testing.T) {
	openAI := &fakeOpenAI{dish: []openaiPkg.Candidate{{Name: "米饭", Score: 0.95}}}
	gemini := &fakeGemini{analyze: func(prompt string) (string, error) {
		if !strings.Contains(prompt, "米饭") {
			return "", errors.New("unexpected prompt")
		}
		return `{"weight": 1500, "calories": 350}`, nil
	}}

	svc, _ := newTestService(openAI, gemini, nil)

	result, err := svc.Identify(context.Background(), []byte("img"), "rice.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 1500g is implausible; the staple-bucket default must replace it.
	if result.Weight != 300 || result.Calories != 350 {
		t.Fatalf("expected staple default 300g/350kcal, got %dg/%dkcal", result.Weight, result.Calories)
	}
}

func TestIdentifyRecordsEstimateInCache(t *testing.T) {
	openAI := &fakeOpenAI{dish: []openaiPkg.Candidate{{Name: "红烧肉", Score: 0.9}}}
	gemini := &fakeGemini{analyze: func(string) (string, error) {
		return `{"weight": 200, "calories": 400}`, nil
	}}

	svc, cache := newTestService(openAI, gemini, nil)

	if _, err := svc.Identify(context.Background(), []byte("img"), "pork.jpg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry, err := cache.Lookup(context.Background(), "红烧肉")
	if err != nil {
		t.Fatalf("expected a cache entry, got %v", err)
	}
	if entry.WeightGrams != 200 || entry.Calories != 400 {
		t.Fatalf("unexpected cache entry: %+v", entry)
	}
}

func TestIdentifyNonFoodOmitsEstimate(t *testing.T) {
	openAI := &fakeOpenAI{dish: []openaiPkg.Candidate{{Name: openaiPkg.SentinelNotDish, Score: 1.0}}}
	gemini := &fakeGemini{analyze: func(string) (string, error) {
		return `[{"name": "非果蔬食材", "score": 1.0}]`, nil
	}}
	rek := &fakeRekognition{labels: []rekognitionPkg.Label{
		{Name: "Sneaker", Confidence: 0.93, Parents: []string{"Footwear"}},
	}}

	svc, cache := newTestService(openAI, gemini, rek)

	result, err := svc.Identify(context.Background(), []byte("img"), "shoe.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Message != food.NotEdibleMessage {
		t.Fatalf("expected the not-edible message, got %q", result.Message)
	}
	if result.Weight != 0 || result.Calories != 0 {
		t.Fatalf("non-food must not carry an estimate: %+v", result)
	}
	if _, err := cache.Lookup(context.Background(), "Sneaker"); !errors.Is(err, food.ErrFoodNotFound) {
		t.Fatalf("non-food must not be cached, got %v", err)
	}
}

func TestCaloriesRescaleIdentityAndMonotonic(t *testing.T) {
	svc, cache := newTestService(&fakeOpenAI{}, &fakeGemini{}, nil)
	ctx := context.Background()

	if err := cache.Record(ctx, "米饭", entity.FoodEstimate{WeightGrams: 300, Calories: 350}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Identity at the cached point.
	calories, err := svc.Calories(ctx, "米饭", 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calories != 350 {
		t.Fatalf("rescale at the cached weight must be exact, got %d", calories)
	}

	previous := 0
	for _, w := range []int{150, 300, 600, 900} {
		calories, err := svc.Calories(ctx, "米饭", w)
		if err != nil {
			t.Fatalf("unexpected error at %dg: %v", w, err)
		}
		if calories <= previous {
			t.Fatalf("rescale must grow with weight: %dg -> %d (previous %d)", w, calories, previous)
		}
		previous = calories
	}
}

func TestTextEstimatorInRange(t *testing.T) {
	t.Setenv("ESTIMATOR_MODE", EstimatorModeText)

	openAI := &fakeOpenAI{
		dish:     []openaiPkg.Candidate{{Name: "红烧肉", Score: 0.9}},
		weight:   220,
		calories: 310,
	}
	svc, _ := newTestService(openAI, &fakeGemini{}, nil)

	result, err := svc.Identify(context.Background(), []byte("img"), "pork.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Weight != 220 || result.Calories != 310 {
		t.Fatalf("expected 220g/310kcal, got %dg/%dkcal", result.Weight, result.Calories)
	}
}

func TestTextEstimatorWeightClampsToCategoryDefault(t *testing.T) {
	t.Setenv("ESTIMATOR_MODE", EstimatorModeText)

	openAI := &fakeOpenAI{
		dish:     []openaiPkg.Candidate{{Name: "红烧肉", Score: 0.9}},
		weight:   1500,
		calories: 400,
	}
	svc, _ := newTestService(openAI, &fakeGemini{}, nil)

	result, err := svc.Identify(context.Background(), []byte("img"), "pork.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The runaway weight collapses to the meat-bucket default; the calorie
	// estimate is within its own cap and survives untouched.
	if result.Weight != 200 || result.Calories != 400 {
		t.Fatalf("expected 200g/400kcal, got %dg/%dkcal", result.Weight, result.Calories)
	}
}

func TestTextEstimatorCaloriesClamp(t *testing.T) {
	t.Setenv("ESTIMATOR_MODE", EstimatorModeText)

	openAI := &fakeOpenAI{
		dish:     []openaiPkg.Candidate{{Name: "红烧肉", Score: 0.9}},
		weight:   250,
		calories: 5000,
	}
	svc, _ := newTestService(openAI, &fakeGemini{}, nil)

	result, err := svc.Identify(context.Background(), []byte("img"), "pork.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Weight != 250 || result.Calories != clampedTextCalories {
		t.Fatalf("expected 250g/%dkcal, got %dg/%dkcal", clampedTextCalories, result.Weight, result.Calories)
	}
}

func TestTextEstimatorErrorFallsBackToDefaults(t *testing.T) {
	t.Setenv("ESTIMATOR_MODE", EstimatorModeText)

	openAI := &fakeOpenAI{
		dish:      []openaiPkg.Candidate{{Name: "米饭", Score: 0.95}},
		weightErr: errors.New("transport error"),
	}
	svc, _ := newTestService(openAI, &fakeGemini{}, nil)

	result, err := svc.Identify(context.Background(), []byte("img"), "rice.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Weight != 300 || result.Calories != 350 {
		t.Fatalf("expected staple default 300g/350kcal, got %dg/%dkcal", result.Weight, result.Calories)
	}
}

func TestCaloriesLiveIgnoresCache(t *testing.T) {
	t.Setenv("CALORIES_MODE", CaloriesModeLive)

	svc, cache := newTestService(&fakeOpenAI{calories: 460}, &fakeGemini{}, nil)
	ctx := context.Background()

	if err := cache.Record(ctx, "米饭", entity.FoodEstimate{WeightGrams: 300, Calories: 350}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calories, err := svc.Calories(ctx, "米饭", 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calories != 460 {
		t.Fatalf("live mode must recompute, not rescale the cached entry: got %d", calories)
	}
}

func TestCaloriesLiveClamp(t *testing.T) {
	t.Setenv("CALORIES_MODE", CaloriesModeLive)

	svc, _ := newTestService(&fakeOpenAI{calories: 5000}, &fakeGemini{}, nil)

	calories, err := svc.Calories(context.Background(), "红烧肉", 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calories != clampedTextCalories {
		t.Fatalf("expected clamp to %d, got %d", clampedTextCalories, calories)
	}
}

func TestCaloriesLiveError(t *testing.T) {
	t.Setenv("CALORIES_MODE", CaloriesModeLive)

	svc, _ := newTestService(&fakeOpenAI{caloriesErr: errors.New("transport error")}, &fakeGemini{}, nil)

	if _, err := svc.Calories(context.Background(), "红烧肉", 200); err == nil {
		t.Fatalf("expected the live estimator failure to surface")
	}
}

func TestCaloriesUnknownLabel(t *testing.T) {
	svc, _ := newTestService(&fakeOpenAI{}, &fakeGemini{}, nil)

	_, err := svc.Calories(context.Background(), "从未识别过的菜", 200)
	if !errors.Is(err, food.ErrFoodNotFound) {
		t.Fatalf("expected ErrFoodNotFound, got %v", err)
	}
}
