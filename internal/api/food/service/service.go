package foodService

import (
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"foodlens/internal/api/food"
	foodRepository "foodlens/internal/api/food/repository"
	"foodlens/internal/entity"
	geminiPkg "foodlens/pkg/gemini"
	openaiPkg "foodlens/pkg/openai"
	rekognitionPkg "foodlens/pkg/rekognition"
	s3Pkg "foodlens/pkg/s3"
	"foodlens/pkg/utils"
)

type IFoodService interface {
	Identify(ctx context.Context, image []byte, filename string) (*food.IdentifyResponse, error)
	Calories(ctx context.Context, foodName string, weightGrams int) (int, error)
	ClassifyFrame(ctx context.Context, frame []byte) (*entity.ClassificationResult, error)
}

// Estimator and calories modes. The calories mode is fixed per process:
// either the cache is the source of truth or every lookup is recomputed,
// never a mix of the two.
const (
	EstimatorModeVision = "vision"
	EstimatorModeText   = "text"

	CaloriesModeCache = "cache"
	CaloriesModeLive  = "live"
)

type foodService struct {
	log         *logrus.Logger
	cache       foodRepository.ICalorieCache
	openAI      openaiPkg.IOpenAI
	gemini      geminiPkg.IGemini
	rekognition rekognitionPkg.IRekognition
	s3          s3Pkg.ItfS3
	utils       utils.IUtils

	estimatorMode   string
	caloriesMode    string
	translateLabels bool
}

func New(
	log *logrus.Logger,
	cache foodRepository.ICalorieCache,
	openAI openaiPkg.IOpenAI,
	gemini geminiPkg.IGemini,
	rekognition rekognitionPkg.IRekognition,
	s3 s3Pkg.ItfS3,
	utils utils.IUtils,
) IFoodService {
	estimatorMode := os.Getenv("ESTIMATOR_MODE")
	if estimatorMode != EstimatorModeText {
		estimatorMode = EstimatorModeVision
	}

	caloriesMode := os.Getenv("CALORIES_MODE")
	if caloriesMode != CaloriesModeLive {
		caloriesMode = CaloriesModeCache
	}

	return &foodService{
		log:             log,
		cache:           cache,
		openAI:          openAI,
		gemini:          gemini,
		rekognition:     rekognition,
		s3:              s3,
		utils:           utils,
		estimatorMode:   estimatorMode,
		caloriesMode:    caloriesMode,
		translateLabels: os.Getenv("TRANSLATE_LABELS") == "true",
	}
}
