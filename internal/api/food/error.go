package food

import "foodlens/pkg/response"

var (
	ErrMissingImage      = response.NewError(400, "no file provided")
	ErrEmptyFilename     = response.NewError(400, "no file selected")
	ErrInvalidFileType   = response.NewError(400, "invalid file type, only images are allowed")
	ErrFileTooLarge      = response.NewError(400, "file too large")
	ErrRecognitionFailed = response.NewError(400, "recognition failed")
	ErrMissingFoodName   = response.NewError(400, "foodName is required")
	ErrMissingWeight     = response.NewError(400, "weight is required")
	ErrInvalidWeight     = response.NewError(400, "weight must be a positive number")
	ErrFoodNotFound      = response.NewError(400, "food has not been identified yet")
)
