package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DefaultOllamaHost is where a local Ollama server listens.
const DefaultOllamaHost = "http://localhost:11434"

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// OllamaClient calls the /api/generate endpoint of an Ollama server.
type OllamaClient struct {
	host    string
	timeout time.Duration
}

// NewOllamaClient returns a client for host. A zero timeout leaves the
// deadline to the caller's context.
func NewOllamaClient(host string, timeout time.Duration) *OllamaClient {
	if host == "" {
		host = DefaultOllamaHost
	}
	return &OllamaClient{host: strings.TrimRight(host, "/"), timeout: timeout}
}

// Generate sends one non-streaming generation request.
func (c *OllamaClient) Generate(ctx context.Context, model, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", context.DeadlineExceeded
		}
		if timeout == 0 || remaining < timeout {
			timeout = remaining
		}
	}

	agent := fiber.Post(c.host + "/api/generate").JSON(ollamaRequest{
		Model:  model,
		Prompt: prompt,
	})
	if timeout > 0 {
		agent.Timeout(timeout)
	}

	var resp ollamaResponse
	code, body, errs := agent.Struct(&resp)
	if code != 0 && code != fiber.StatusOK {
		if resp.Error != "" {
			return "", fmt.Errorf("ollama generate: status %d: %s", code, resp.Error)
		}
		return "", fmt.Errorf("ollama generate: status %d: %s", code, strings.TrimSpace(string(body)))
	}
	if len(errs) > 0 {
		return "", fmt.Errorf("ollama generate: %w", errors.Join(errs...))
	}
	return strings.TrimSpace(resp.Response), nil
}
