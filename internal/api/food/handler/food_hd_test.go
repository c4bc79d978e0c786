package foodHandler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"foodlens/internal/api/food"
	"foodlens/internal/entity"
	"foodlens/internal/middleware"
	"foodlens/pkg/log"
	"foodlens/pkg/utils"
)

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")
	log.NewLogger()
	os.Exit(m.Run())
}

type fakeFoodService struct {
	identify    *food.IdentifyResponse
	identifyErr error
	calories    int
	caloriesErr error
}

func (f *fakeFoodService) Identify(context.Context, []byte, string) (*food.IdentifyResponse, error) {
	return f.identify, f.identifyErr
}

func (f *fakeFoodService) Calories(context.Context, string, int) (int, error) {
	return f.calories, f.caloriesErr
}

func (f *fakeFoodService) ClassifyFrame(context.Context, []byte) (*entity.ClassificationResult, error) {
	return nil, nil
}

func newTestApp(svc *fakeFoodService) *fiber.App {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	app := fiber.New()
	handler := New(logger, validator.New(), middleware.New(logger), svc, utils.New())
	handler.Start(app)
	return app
}

// imageForm builds a multipart body with an image-typed food_image part.
func imageForm(t *testing.T, filename, contentType string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="food_image"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := part.Write([]byte("fake image bytes")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return body, writer.FormDataContentType()
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("unexpected body %q: %v", raw, err)
	}
	return body
}

func TestIdentifyMissingImage(t *testing.T) {
	app := newTestApp(&fakeFoodService{})

	req := httptest.NewRequest(http.MethodPost, "/identify", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["error"] != "no file provided" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestIdentifyEmptyFilename(t *testing.T) {
	app := newTestApp(&fakeFoodService{})

	form, contentType := imageForm(t, "", "image/jpeg")
	req := httptest.NewRequest(http.MethodPost, "/identify", form)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if msg, ok := body["error"].(string); !ok || msg == "" {
		t.Fatalf("expected an error message, got %v", body)
	}
}

func TestIdentifyRejectsNonImageUpload(t *testing.T) {
	app := newTestApp(&fakeFoodService{})

	form, contentType := imageForm(t, "notes.txt", "text/plain")
	req := httptest.NewRequest(http.MethodPost, "/identify", form)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["error"] != "invalid file type, only images are allowed" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestIdentifySuccess(t *testing.T) {
	app := newTestApp(&fakeFoodService{
		identify: &food.IdentifyResponse{
			Name:       "宫保鸡丁",
			Confidence: 0.95,
			Weight:     250,
			Calories:   380,
		},
	})

	form, contentType := imageForm(t, "dish.jpg", "image/jpeg")
	req := httptest.NewRequest(http.MethodPost, "/identify", form)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["name"] != "宫保鸡丁" {
		t.Fatalf("unexpected body: %v", body)
	}
	if body["weight"] != float64(250) || body["calories"] != float64(380) {
		t.Fatalf("unexpected estimate in body: %v", body)
	}
	if _, ok := body["message"]; ok {
		t.Fatalf("food result must not carry a message: %v", body)
	}
}

func TestIdentifyNonFoodOmitsEstimateFields(t *testing.T) {
	app := newTestApp(&fakeFoodService{
		identify: &food.IdentifyResponse{
			Name:       "Laptop",
			Confidence: 0.88,
			Message:    food.NotEdibleMessage,
		},
	})

	form, contentType := imageForm(t, "laptop.jpg", "image/jpeg")
	req := httptest.NewRequest(http.MethodPost, "/identify", form)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["message"] != food.NotEdibleMessage {
		t.Fatalf("unexpected body: %v", body)
	}
	if _, ok := body["weight"]; ok {
		t.Fatalf("non-food result must omit weight: %v", body)
	}
	if _, ok := body["calories"]; ok {
		t.Fatalf("non-food result must omit calories: %v", body)
	}
}

func TestGetCaloriesMissingFoodName(t *testing.T) {
	app := newTestApp(&fakeFoodService{})

	req := httptest.NewRequest(http.MethodGet, "/calories?weight=100", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["error"] != "foodName is required" {
		t.Fatalf("unexpected body: %v", body)
	}
	if body["calories"] != float64(0) {
		t.Fatalf("error body must carry zero calories: %v", body)
	}
}

func TestGetCaloriesInvalidWeight(t *testing.T) {
	app := newTestApp(&fakeFoodService{})

	for _, weight := range []string{"abc", "0", "-50"} {
		req := httptest.NewRequest(http.MethodGet, "/calories?foodName=米饭&weight="+weight, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if resp.StatusCode != fiber.StatusBadRequest {
			t.Fatalf("weight %q: expected 400, got %d", weight, resp.StatusCode)
		}
		body := decodeBody(t, resp)
		if body["error"] != "weight must be a positive number" {
			t.Fatalf("weight %q: unexpected body: %v", weight, body)
		}
	}
}

func TestGetCaloriesUnknownFood(t *testing.T) {
	app := newTestApp(&fakeFoodService{caloriesErr: food.ErrFoodNotFound})

	req := httptest.NewRequest(http.MethodGet, "/calories?foodName=从未见过的菜&weight=200", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["error"] != "food has not been identified yet" {
		t.Fatalf("unexpected body: %v", body)
	}
	if body["calories"] != float64(0) {
		t.Fatalf("error body must carry zero calories: %v", body)
	}
}

func TestGetCaloriesSuccess(t *testing.T) {
	app := newTestApp(&fakeFoodService{calories: 350})

	req := httptest.NewRequest(http.MethodGet, "/calories?foodName=米饭&weight=300", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["calories"] != float64(350) {
		t.Fatalf("unexpected body: %v", body)
	}
}
