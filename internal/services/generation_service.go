package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"studymate/internal/models"
)

// Generator is the external text-generation collaborator. The chat service is
// the only caller.
type Generator interface {
	Generate(ctx context.Context, prompt string, history []models.Message) (string, error)
}

// GenerationService talks to an OpenAI-compatible chat completions endpoint.
// Calls are rate limited, bounded by a timeout, and protected by a circuit
// breaker so a dead backend fails fast instead of piling up requests.
type GenerationService struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

// NewGenerationService creates a new generation backend client.
func NewGenerationService(baseURL, apiKey, model string, timeout time.Duration, rps float64) *GenerationService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if rps <= 0 {
		rps = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "generation-backend",
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("⚡ [GENERATION] Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &GenerationService{
		httpClient: &http.Client{Timeout: timeout + 5*time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		timeout:    timeout,
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		breaker:    breaker,
	}
}

type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []chatCompletionMessage `json:"messages"`
	Temperature float64                 `json:"temperature"`
	MaxTokens   int                     `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate sends the prompt plus the trimmed history window to the backend
// and returns the raw model output. Timeout expiry and cancellation are both
// reported as plain errors for the caller to classify.
func (s *GenerationService) Generate(ctx context.Context, prompt string, history []models.Message) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.complete(ctx, prompt, history)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (s *GenerationService) complete(ctx context.Context, prompt string, history []models.Message) (string, error) {
	messages := make([]chatCompletionMessage, 0, len(history)+1)
	for _, m := range history {
		content := m.RawText
		if content == "" {
			content = m.Text
		}
		messages = append(messages, chatCompletionMessage{Role: m.Role, Content: content})
	}
	messages = append(messages, chatCompletionMessage{Role: models.RoleUser, Content: prompt})

	reqBody, err := json.Marshal(chatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   4096,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("backend returned status %d: %s", resp.StatusCode, truncateForLog(body))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("backend error: %s", completion.Error.Message)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("backend returned no choices")
	}

	return completion.Choices[0].Message.Content, nil
}

func truncateForLog(body []byte) string {
	const max = 300
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
