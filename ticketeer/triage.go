package ticketeer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	openai "github.com/sashabaranov/go-openai"
)

const (
	triageTimeout   = 15 * time.Second
	triageMaxTokens = 120

	triageSystemPrompt = "You summarize support tickets for staff. " +
		"Reply with a single short sentence describing the user's issue. " +
		"Do not add commentary."
)

// openaiChatCompleter is the slice of the OpenAI client used by the
// triage summarizer, so tests don't need a real API.
type openaiChatCompleter interface {
	CreateChatCompletion(
		ctx context.Context,
		request openai.ChatCompletionRequest,
	) (openai.ChatCompletionResponse, error)
}

// Triage produces one-line summaries of ticket issues for the webhook
// notifications, using OpenAI chat completions. It's strictly optional:
// without a token, Summarize always returns an empty string, and any
// API error degrades to the same.
type Triage struct {
	client openaiChatCompleter
	model  string
	logger *slog.Logger
}

func NewTriage(config OpenAIConfig, logger *slog.Logger) *Triage {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Triage{
		model:  config.Model,
		logger: logger.With(loggerNameKey, "triage"),
	}
	if config.Token != "" {
		t.client = openai.NewClient(config.Token)
	}
	return t
}

func (t *Triage) Enabled() bool {
	return t != nil && t.client != nil
}

// Summarize returns a one-line summary of the issue, or an empty string
// if summarization is disabled or fails.
func (t *Triage) Summarize(ctx context.Context, issue string) string {
	if !t.Enabled() {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, triageTimeout)
	defer cancel()

	rv, err := t.client.CreateChatCompletion(
		ctx, openai.ChatCompletionRequest{
			Model:     t.model,
			MaxTokens: triageMaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: triageSystemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: issue,
				},
			},
		},
	)
	if err != nil {
		t.logger.Warn("triage summary failed", tint.Err(err))
		return ""
	}
	if len(rv.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(rv.Choices[0].Message.Content)
}
