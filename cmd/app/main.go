package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"foodlens/internal/config"
	"foodlens/pkg/log"
)

func main() {
	logger := log.NewLogger()
	if err := godotenv.Load(); err != nil {
		logger.Warnf("No .env file loaded: %v", err)
	}

	checkCredentials(logger)

	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithMiddleware(),
		config.WithCalorieCache(),
		config.WithOpenAIClient(),
		config.WithGeminiClient(),
		config.WithRekognitionClient(),
		config.WithS3Client(),
		config.WithUtils(),
	)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")
}

// checkCredentials logs which provider credentials are present, never their
// values. A missing one disables the matching cascade stage at startup.
func checkCredentials(logger *logrus.Logger) {
	for _, name := range []string{
		"OPENAI_API_KEY",
		"GEMINI_API_KEY",
		"AWS_REGION",
		"AWS_BUCKET_NAME",
		"REDIS_ADDRESS",
	} {
		logger.Infof("credential check: %s present=%t", name, os.Getenv(name) != "")
	}
}
