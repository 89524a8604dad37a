package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrInvalidImage means the chart payload could not be decoded as an image.
var ErrInvalidImage = errors.New("undecodable chart image")

const analysisPrompt = `Please analyze this financial chart focusing on:
1. SuperTrend direction and potential trend changes
2. Volume analysis - Is volume confirming the trend?
3. RSI (14) - Identify overbought (>70) or oversold (<30) conditions
4. Overall market structure and key price levels

Please provide a concise analysis with actionable insights.`

const maxAnalysisTokens = 500

// Analyzer turns a rendered chart image into technical commentary via a
// vision-capable chat model.
type Analyzer struct {
	cli oa.Client
}

func NewAnalyzer(apiKey string) *Analyzer {
	client := oa.NewClient(option.WithAPIKey(apiKey))
	return &Analyzer{cli: client}
}

// Analyze submits the chart plus the fixed instruction and returns the model
// text verbatim. The bytes are decode-checked first so an upstream HTML error
// page never reaches the model as an "image".
func (a *Analyzer) Analyze(ctx context.Context, img []byte) (string, error) {
	format, err := decodeFormat(img)
	if err != nil {
		return "", err
	}
	dataURI := fmt.Sprintf("data:image/%s;base64,%s", format, base64.StdEncoding.EncodeToString(img))

	resp, err := a.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model:     "gpt-4o",
		MaxTokens: oa.Int(maxAnalysisTokens),
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.UserMessage([]oa.ChatCompletionContentPartUnionParam{
				oa.TextContentPart(analysisPrompt),
				oa.ImageContentPart(oa.ChatCompletionContentPartImageImageURLParam{
					URL:    dataURI,
					Detail: "high",
				}),
			}),
		},
	})
	if err != nil {
		return "", fmt.Errorf("vision analysis failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("vision analysis returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func decodeFormat(img []byte) (string, error) {
	_, format, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return format, nil
}
