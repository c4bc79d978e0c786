package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"

	"foodlens/pkg/nlp"
)

// SentinelNotDish is what the dish recognizer prompt answers with when the
// image does not show a prepared dish. Distinct from an error.
const SentinelNotDish = "非菜"

type Candidate struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type IOpenAI interface {
	RecognizeDish(ctx context.Context, imageBase64 string) ([]Candidate, error)
	EstimateWeight(ctx context.Context, foodName string) (int, error)
	EstimateCalories(ctx context.Context, foodName string, weightGrams int) (int, error)
	TranslateLabel(ctx context.Context, label string) (string, error)
}

type openAIClient struct {
	client      *openai.Client
	chatModel   string
	visionModel string
}

func New() IOpenAI {
	apiKey := os.Getenv("OPENAI_API_KEY")

	cfg := openai.DefaultConfig(apiKey)
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	chatModel := os.Getenv("OPENAI_CHAT_MODEL")
	if chatModel == "" {
		chatModel = openai.GPT4TurboPreview
	}

	visionModel := os.Getenv("OPENAI_VISION_MODEL")
	if visionModel == "" {
		visionModel = openai.GPT4o
	}

	return &openAIClient{
		client:      openai.NewClientWithConfig(cfg),
		chatModel:   chatModel,
		visionModel: visionModel,
	}
}

const dishSystemPrompt = `你是一个菜品识别专家。识别图片中的菜品，返回JSON数组，按置信度从高到低排列：
[{"name": "菜名", "score": 0.95}]
如果图片里不是一道菜，返回 [{"name": "非菜", "score": 1.0}]。
只返回JSON，不要任何其他文字。`

func (c *openAIClient) RecognizeDish(ctx context.Context, imageBase64 string) ([]Candidate, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.visionModel,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: dishSystemPrompt,
				},
				{
					Role: openai.ChatMessageRoleUser,
					MultiContent: []openai.ChatMessagePart{
						{
							Type: openai.ChatMessagePartTypeText,
							Text: "这是什么菜？",
						},
						{
							Type: openai.ChatMessagePartTypeImageURL,
							ImageURL: &openai.ChatMessageImageURL{
								URL: fmt.Sprintf("data:image/jpeg;base64,%s", imageBase64),
							},
						},
					},
				},
			},
			MaxTokens: 150,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI vision API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from OpenAI vision")
	}

	return parseCandidates(resp.Choices[0].Message.Content)
}

// parseCandidates reads the nominal JSON array out of the reply. Replies that
// carry a bare food name instead are kept as a single candidate with the
// fixed confidence the dish prompt historically reported.
func parseCandidates(reply string) ([]Candidate, error) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")

	if start != -1 && end > start {
		var candidates []Candidate
		if err := json.Unmarshal([]byte(reply[start:end+1]), &candidates); err == nil && len(candidates) > 0 {
			for i := range candidates {
				candidates[i].Name = nlp.NormalizeLabel(candidates[i].Name)
			}
			return candidates, nil
		}
	}

	name := nlp.NormalizeLabel(reply)
	if name == "" {
		return nil, errors.New("empty recognition reply")
	}

	return []Candidate{{Name: name, Score: 0.9}}, nil
}

const weightSystemPrompt = `你是一个食物重量估算专家。请遵循以下规则：
1. 返回单人食用份量的合理重量
2. 普通主食（米饭、面条等）一般在200-400克之间
3. 肉类菜品一般在100-300克之间
4. 青菜类一般在100-200克之间
5. 水果根据大小一般在100-300克之间
6. 只返回数字，不要包含任何单位和文字
7. 确保返回的重量在合理范围内`

func (c *openAIClient) EstimateWeight(ctx context.Context, foodName string) (int, error) {
	reply, err := c.chat(ctx, weightSystemPrompt, fmt.Sprintf("估算一份%s的重量（克），请只返回数字", foodName))
	if err != nil {
		return 0, err
	}

	weight, ok := nlp.ExtractDigits(reply)
	if !ok {
		return 0, fmt.Errorf("no digits in weight reply %q", reply)
	}
	return weight, nil
}

const caloriesSystemPrompt = `你是一个营养专家，请根据食物重量计算卡路里。
1. 只返回数字，不要包含任何单位或说明
2. 确保返回的卡路里在合理范围内
3. 考虑食物的特性和烹饪方式
4. 如果不确定，返回相近食物的平均值`

func (c *openAIClient) EstimateCalories(ctx context.Context, foodName string, weightGrams int) (int, error) {
	reply, err := c.chat(ctx, caloriesSystemPrompt, fmt.Sprintf("请计算%d克%s的卡路里含量，只需要返回数字", weightGrams, foodName))
	if err != nil {
		return 0, err
	}

	calories, ok := nlp.ExtractDigits(reply)
	if !ok {
		return 0, fmt.Errorf("no digits in calories reply %q", reply)
	}
	return calories, nil
}

func (c *openAIClient) TranslateLabel(ctx context.Context, label string) (string, error) {
	reply, err := c.chat(ctx, "把用户给出的食物名称翻译成中文，只返回译名，不要任何其他文字。", label)
	if err != nil {
		return "", err
	}

	translated := nlp.NormalizeLabel(reply)
	if translated == "" {
		return "", errors.New("empty translation reply")
	}
	return translated, nil
}

func (c *openAIClient) chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.chatModel,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userPrompt,
				},
			},
			Temperature: 0.3,
			MaxTokens:   100,
		},
	)
	if err != nil {
		return "", fmt.Errorf("OpenAI chat API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI chat")
	}

	return resp.Choices[0].Message.Content, nil
}
