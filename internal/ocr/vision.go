package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/parcelops/labelsplit/internal/imaging"
	"github.com/parcelops/labelsplit/internal/logger"
)

// DefaultVisionModel is the vision model used when none is configured.
const DefaultVisionModel = "gpt-4o-mini"

// visionPrompt asks the model for the bare identifier only; the extract
// policy still validates whatever comes back.
const visionPrompt = `This image shows a region of a shipping label containing a tracking or order number.
Return ONLY the characters of that number, with no explanation, no formatting and no extra text.
If no number is visible, return an empty response.`

// VisionBackend performs OCR through a multimodal chat completion API.
type VisionBackend struct {
	logger *logger.Logger
	client openai.Client
	model  string
}

// VisionConfig holds configuration for the vision backend.
type VisionConfig struct {
	Logger     *logger.Logger
	APIKey     string
	Model      string
	MaxRetries int
}

// NewVisionBackend creates a new vision backend.
func NewVisionBackend(cfg *VisionConfig) *VisionBackend {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultVisionModel
	}

	return &VisionBackend{
		logger: log,
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Name returns the backend name.
func (v *VisionBackend) Name() string { return string(EngineVision) }

// Recognize sends the region image to the vision model and returns its raw
// text response.
func (v *VisionBackend) Recognize(ctx context.Context, img image.Image, _ Options) (string, error) {
	data, err := imaging.EncodePNG(img)
	if err != nil {
		return "", err
	}
	encoded := base64.StdEncoding.EncodeToString(data)

	resp, err := v.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: v.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(visionPrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: fmt.Sprintf("data:image/png;base64,%s", encoded),
				}),
			}),
		},
		Temperature: openai.Float(0.0),
	})
	if err != nil {
		return "", fmt.Errorf("vision API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from vision model")
	}

	text := resp.Choices[0].Message.Content
	v.logger.WithFields("backend", v.Name(), "raw_len", len(text)).Debug("Recognition completed")
	return text, nil
}

// Release is a no-op; the API client holds no engine state.
func (v *VisionBackend) Release() {}
