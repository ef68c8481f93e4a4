package ad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"samayan-ad-pro/internal/gemini"
)

const (
	DefaultImageModel = "gemini-2.5-flash-image"
	DefaultTextModel  = "gemini-2.5-flash"

	imageStylePrefix = "Professional advertisement photography, high resolution, 4k, cinematic lighting: "
)

var copySchema = &gemini.Schema{
	Type: gemini.TypeObject,
	Properties: map[string]*gemini.Schema{
		"headline":     {Type: gemini.TypeString, Description: "A catchy, short headline for the ad."},
		"tagline":      {Type: gemini.TypeString, Description: "A memorable slogan."},
		"body":         {Type: gemini.TypeString, Description: "Persuasive body text explaining the product/service."},
		"callToAction": {Type: gemini.TypeString, Description: "Short CTA like 'Buy Now' or 'Learn More'."},
	},
	Required: []string{"headline", "tagline", "body", "callToAction"},
}

type GeneratorOptions struct {
	Backend    gemini.Backend
	ImageModel string
	TextModel  string
	Logger     *slog.Logger
}

// Generator is the production Service: it shapes prompts for the backend and
// collapses every failure into one user-facing error per stage.
type Generator struct {
	backend    gemini.Backend
	imageModel string
	textModel  string
	validate   *validator.Validate
	logger     *slog.Logger
}

func NewGenerator(opts GeneratorOptions) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	imageModel := strings.TrimSpace(opts.ImageModel)
	if imageModel == "" {
		imageModel = DefaultImageModel
	}
	textModel := strings.TrimSpace(opts.TextModel)
	if textModel == "" {
		textModel = DefaultTextModel
	}

	return &Generator{
		backend:    opts.Backend,
		imageModel: imageModel,
		textModel:  textModel,
		validate:   validator.New(),
		logger:     logger,
	}
}

func (g *Generator) SynthesizeImage(ctx context.Context, prompt string, ratio AspectRatio) (string, error) {
	dataURI, err := g.backend.GenerateImage(ctx, g.imageModel, imageStylePrefix+prompt, string(ratio))
	if err != nil {
		return "", g.wrap(KindImage, MessageImage, err)
	}
	return dataURI, nil
}

func (g *Generator) SynthesizeCopy(ctx context.Context, prompt string) (Copy, error) {
	text, err := g.backend.GenerateJSON(ctx, g.textModel, copyInstruction(prompt), copySchema)
	if err != nil {
		return Copy{}, g.wrap(KindCopy, MessageCopy, err)
	}

	var out Copy
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &out); err != nil {
		return Copy{}, g.wrap(KindCopy, MessageCopy, fmt.Errorf("decode copy: %w", err))
	}
	if err := g.validate.Struct(out); err != nil {
		return Copy{}, g.wrap(KindCopy, MessageCopy, fmt.Errorf("validate copy: %w", err))
	}
	return out, nil
}

func (g *Generator) wrap(kind Kind, message string, err error) error {
	if errors.Is(err, gemini.ErrMissingAPIKey) {
		g.logger.Error("gemini credential missing", "stage", kind.String())
		return &Error{Kind: KindConfig, Message: MessageConfig, Err: err}
	}

	g.logger.Error("gemini call failed", "stage", kind.String(), "err", err)
	return &Error{Kind: kind, Message: message, Err: err}
}

func copyInstruction(prompt string) string {
	return fmt.Sprintf("Write professional marketing copy for an advertisement based on this request: \"%s\".\n"+
		"Make it engaging, professional, and suitable for a modern brand.", prompt)
}
