// Package llm is the external classification/evaluation capability: a chat
// completion endpoint constrained to structured JSON output. Callers describe
// what they want back with a reflected JSON schema and decode the raw content
// themselves, so transport and parsing stay independently replaceable.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"
)

// Client is the black-box capability handle threaded through every component
// that talks to the model.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Model() string
}

type Request struct {
	System     string
	User       string
	SchemaName string
	Schema     any // reflected JSON schema; nil for free-form text
	MaxTokens  int
}

type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	MaxTokens      int
	MaxElapsedTime time.Duration
}

type client struct {
	api        openai.Client
	model      string
	maxTokens  int
	maxElapsed time.Duration
	log        *logrus.Entry
}

func New(cfg Config, log *logrus.Entry) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}
	maxElapsed := cfg.MaxElapsedTime
	if maxElapsed == 0 {
		maxElapsed = 45 * time.Second
	}
	return &client{
		api:        openai.NewClient(opts...),
		model:      model,
		maxTokens:  maxTokens,
		maxElapsed: maxElapsed,
		log:        log.WithField("component", "llm"),
	}, nil
}

// Complete runs one structured-output chat completion with exponential
// backoff. 4xx responses other than rate limiting are permanent; everything
// else retries until the elapsed ceiling, after which the caller receives an
// error and must degrade.
func (c *client) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		MaxTokens: openai.Int(int64(maxTokens)),
	}
	if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        req.SchemaName,
					Description: openai.String("Structured response schema"),
					Schema:      req.Schema,
					Strict:      openai.Bool(true),
				},
			},
		}
	}

	var content string
	op := func() error {
		start := time.Now()
		resp, err := c.api.Chat.Completions.New(ctx, params)
		if err != nil {
			var apiErr *openai.Error
			if errors.As(err, &apiErr) &&
				apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
				apiErr.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("no choices in response")
		}
		c.log.WithFields(logrus.Fields{
			"schema":            req.SchemaName,
			"duration_ms":       time.Since(start).Milliseconds(),
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
		}).Debug("capability call completed")
		content = resp.Choices[0].Message.Content
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.maxElapsed
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return "", fmt.Errorf("capability call %s: %w", req.SchemaName, err)
	}
	return content, nil
}

func (c *client) Model() string {
	return c.model
}
