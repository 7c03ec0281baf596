package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"virallens-backend/internal/models"
)

const systemPrompt = "You are a helpful AI assistant. Provide clear, concise, and helpful responses to user questions."

// maxHistoryMessages bounds the context window sent upstream; older entries
// are dropped first.
const maxHistoryMessages = 10

// Sentinel errors for the provider failure taxonomy. The gateway never
// retries; whether to surface or degrade is the caller's decision.
var (
	ErrLLMNotConfigured = errors.New("OpenRouter API key is not configured")
	ErrInvalidAPIKey    = errors.New("invalid OpenRouter API key")
	ErrRateLimited      = errors.New("rate limit exceeded, please try again later")
	ErrQuotaExceeded    = errors.New("insufficient credits, please check your OpenRouter account")
)

// ProviderError covers any other non-success response, malformed body or
// transport failure, carrying the upstream message.
type ProviderError struct{ Message string }

func (e *ProviderError) Error() string { return "OpenRouter API error: " + e.Message }

// IsLLMError reports whether err belongs to the provider failure taxonomy.
func IsLLMError(err error) bool {
	var provErr *ProviderError
	return errors.Is(err, ErrLLMNotConfigured) ||
		errors.Is(err, ErrInvalidAPIKey) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrQuotaExceeded) ||
		errors.As(err, &provErr)
}

// LLMService wraps the single outbound call to OpenRouter's chat-completion
// endpoint.
type LLMService struct {
	apiKey  string
	model   string
	baseURL string
	referer string
	client  *http.Client
}

func NewLLMService(apiKey, model, baseURL, referer string, timeout time.Duration) *LLMService {
	return &LLMService{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		referer: referer,
		client:  &http.Client{Timeout: timeout},
	}
}

type completionRequest struct {
	Model       string              `json:"model"`
	Messages    []models.LLMMessage `json:"messages"`
	MaxTokens   int                 `json:"max_tokens"`
	Temperature float64             `json:"temperature"`
	Stream      bool                `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type completionAPIError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateChatResponse sends one completion request built from the fixed
// system prompt, the most recent history entries and the new user message,
// and returns the first choice's text. Exactly one provider call per
// invocation: no retry, no streaming, no caching.
func (s *LLMService) GenerateChatResponse(ctx context.Context, userMessage string, history []models.LLMMessage) (string, error) {
	if s.apiKey == "" {
		return "", ErrLLMNotConfigured
	}

	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}

	messages := make([]models.LLMMessage, 0, len(history)+2)
	messages = append(messages, models.LLMMessage{Role: models.RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, models.LLMMessage{Role: models.RoleUser, Content: userMessage})

	payload, err := json.Marshal(completionRequest{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   1000,
		Temperature: 0.7,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", s.referer)
	req.Header.Set("X-Title", "ViralLens Chat")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &ProviderError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return "", ErrInvalidAPIKey
		case http.StatusTooManyRequests:
			return "", ErrRateLimited
		case http.StatusPaymentRequired:
			return "", ErrQuotaExceeded
		}

		var apiErr completionAPIError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", &ProviderError{Message: apiErr.Error.Message}
		}
		return "", &ProviderError{Message: resp.Status}
	}

	var completion completionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", &ProviderError{Message: "invalid response from OpenRouter API"}
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", &ProviderError{Message: "invalid response from OpenRouter API"}
	}

	return completion.Choices[0].Message.Content, nil
}
