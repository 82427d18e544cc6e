package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultMPWAEndpoint = "https://codesai.dev/send-message"
	defaultMPWATimeout  = 10 * time.Second
)

// MPWAClient talks to the MPWA WhatsApp gateway.
type MPWAClient struct {
	APIKey   string
	Sender   string
	Footer   string
	Endpoint string
	DryRun   bool // dry-run режим: ничего не отправляем, только пишем в лог

	HTTP *http.Client
}

type SendMessageResponse struct {
	Status *bool  `json:"status"`
	Msg    string `json:"msg"`
}

type sendMessageRequest struct {
	APIKey  string `json:"api_key"`
	Sender  string `json:"sender"`
	Number  string `json:"number"`
	Message string `json:"message"`
	Footer  string `json:"footer,omitempty"`
}

func NewMPWAClient(apiKey, sender string, dryRun bool) *MPWAClient {
	return NewMPWAClientWithOptions(apiKey, sender, "", DefaultMPWAEndpoint, defaultMPWATimeout, dryRun)
}

func NewMPWAClientWithOptions(apiKey, sender, footer, endpoint string, timeout time.Duration, dryRun bool) *MPWAClient {
	if endpoint == "" {
		endpoint = DefaultMPWAEndpoint
	}
	if timeout <= 0 {
		timeout = defaultMPWATimeout
	}
	return &MPWAClient{
		APIKey:   apiKey,
		Sender:   sender,
		Footer:   footer,
		Endpoint: endpoint,
		DryRun:   dryRun,
		HTTP:     &http.Client{Timeout: timeout},
	}
}

// SendMessage отправляет одно сообщение на уже нормализованный номер.
func (c *MPWAClient) SendMessage(ctx context.Context, number, message string) (*SendMessageResponse, error) {
	if c.DryRun || c.APIKey == "" || c.APIKey == "dry-run" {
		slog.Info("[mpwa][dry-run]", "to", number, "sender", c.Sender, "text", message)
		ok := true
		return &SendMessageResponse{Status: &ok}, nil
	}

	payload, err := json.Marshal(sendMessageRequest{
		APIKey:  c.APIKey,
		Sender:  c.Sender,
		Number:  number,
		Message: message,
		Footer:  c.Footer,
	})
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send message request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	slog.Debug("[mpwa][send] raw response", "status", resp.StatusCode, "body", string(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("mpwa returned http %d: %s", resp.StatusCode, string(body))
	}

	var result SendMessageResponse
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("parse response: %w", err)
		}
	}
	if result.Status != nil && !*result.Status {
		return nil, fmt.Errorf("mpwa rejected message: %s", result.Msg)
	}
	return &result, nil
}
