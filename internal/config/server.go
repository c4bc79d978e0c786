package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	foodHandler "foodlens/internal/api/food/handler"
	foodRepository "foodlens/internal/api/food/repository"
	foodService "foodlens/internal/api/food/service"
	"foodlens/internal/middleware"
	"foodlens/pkg/gemini"
	openaiPkg "foodlens/pkg/openai"
	"foodlens/pkg/rekognition"
	"foodlens/pkg/s3"
	"foodlens/pkg/utils"
)

type ServerOption func(*Server) error

type Server struct {
	engine       *fiber.App
	log          *logrus.Logger
	middleware   middleware.Middleware
	validator    *validator.Validate
	utils        utils.IUtils
	handlers     []handler
	calorieCache foodRepository.ICalorieCache
	openAIClient openaiPkg.IOpenAI
	geminiClient gemini.IGemini
	rekClient    rekognition.IRekognition
	s3Client     s3.ItfS3
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithCalorieCache() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before the calorie cache")
		}
		s.calorieCache = foodRepository.New(s.log)
		return nil
	}
}

func WithOpenAIClient() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before remote clients")
		}
		if os.Getenv("OPENAI_API_KEY") == "" {
			s.log.Warn("OPENAI_API_KEY not set; dish recognition and text estimation disabled")
			return nil
		}
		s.openAIClient = openaiPkg.New()
		return nil
	}
}

func WithGeminiClient() ServerOption {
	return func(s *Server) error {
		client, err := gemini.NewGeminiClient()
		if err != nil {
			s.log.Warnf("Gemini client unavailable, ingredient recognition disabled: %v", err)
			return nil
		}
		s.geminiClient = client
		return nil
	}
}

func WithRekognitionClient() ServerOption {
	return func(s *Server) error {
		client, err := rekognition.New()
		if err != nil {
			s.log.Warnf("Rekognition client unavailable, object recognition disabled: %v", err)
			return nil
		}
		s.rekClient = client
		return nil
	}
}

func WithS3Client() ServerOption {
	return func(s *Server) error {
		if os.Getenv("AWS_BUCKET_NAME") == "" {
			s.log.Warn("AWS_BUCKET_NAME not set; image archival disabled")
			return nil
		}
		client, err := s3.New()
		if err != nil {
			s.log.Warnf("S3 client unavailable, image archival disabled: %v", err)
			return nil
		}
		s.s3Client = client
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	foodServices := foodService.New(
		s.log,
		s.calorieCache,
		s.openAIClient,
		s.geminiClient,
		s.rekClient,
		s.s3Client,
		s.utils,
	)
	foodHandlers := foodHandler.New(s.log, s.validator, s.middleware, foodServices, s.utils)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, foodHandlers)
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(middleware.LoggerConfig())

	// Endpoints live at the root; existing clients address /identify and
	// /calories without a version prefix.
	for _, h := range s.handlers {
		h.Start(s.engine)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "5000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
