package completion

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements LLMClient using the OpenAI chat completions API.
// Vision requests attach the image as an inline data URL part on the last
// user message.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a client bound to one model.
func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("completion: openai api key is required")
	}
	if strings.TrimSpace(model) == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Complete sends a completion request and classifies failures into the
// package taxonomy.
func (c *OpenAIClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+len(req.System))
	for _, sys := range req.System {
		if strings.TrimSpace(sys) == "" {
			continue
		}
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: sys,
		})
	}
	for i, m := range req.Messages {
		if req.Image != nil && i == len(req.Messages)-1 && m.Role == ChatRoleUser {
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: m.Content},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: imageDataURL(req.Image),
						},
					},
				},
			})
			continue
		}
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	ccReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		ccReq.MaxTokens = int(req.MaxTokens)
	}
	if req.Temperature > 0 {
		ccReq.Temperature = req.Temperature
	}

	resp, err := c.client.CreateChatCompletion(ctx, ccReq)
	if err != nil {
		return LLMResponse{}, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return LLMResponse{}, errors.New("completion: openai returned no choices")
	}

	choice := resp.Choices[0]
	return LLMResponse{
		Text:       strings.TrimSpace(choice.Message.Content),
		StopReason: string(choice.FinishReason),
	}, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrQuota, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrAuth, err)
		}
		if apiErr.Type == "insufficient_quota" {
			return fmt.Errorf("%w: %v", ErrQuota, err)
		}
	}
	return fmt.Errorf("completion: openai request failed: %w", err)
}

func imageDataURL(img *ImagePayload) string {
	mime := img.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(img.Data))
}
