package ticketeer

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChatCompleter struct {
	request  *openai.ChatCompletionRequest
	response openai.ChatCompletionResponse
	err      error
}

func (s *stubChatCompleter) CreateChatCompletion(
	_ context.Context,
	request openai.ChatCompletionRequest,
) (openai.ChatCompletionResponse, error) {
	s.request = &request
	return s.response, s.err
}

func TestTriageDisabledWithoutToken(t *testing.T) {
	tr := NewTriage(OpenAIConfig{Model: DefaultOpenAIModel}, nil)
	assert.False(t, tr.Enabled())
	assert.Empty(t, tr.Summarize(context.Background(), "help"))
}

func TestTriageSummarize(t *testing.T) {
	stub := &stubChatCompleter{
		response: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{
					Message: openai.ChatCompletionMessage{
						Content: "  User cannot log in.  ",
					},
				},
			},
		},
	}
	tr := &Triage{client: stub, model: DefaultOpenAIModel, logger: testLogger(t)}
	require.True(t, tr.Enabled())

	summary := tr.Summarize(context.Background(), "i can't log in at all")
	assert.Equal(t, "User cannot log in.", summary)

	require.NotNil(t, stub.request)
	assert.Equal(t, DefaultOpenAIModel, stub.request.Model)
	assert.Equal(t, triageMaxTokens, stub.request.MaxTokens)
	require.Len(t, stub.request.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, stub.request.Messages[0].Role)
	assert.Equal(t, "i can't log in at all", stub.request.Messages[1].Content)
}

func TestTriageSummarizeDegradesOnError(t *testing.T) {
	stub := &stubChatCompleter{err: errors.New("api unavailable")}
	tr := &Triage{client: stub, model: DefaultOpenAIModel, logger: testLogger(t)}
	assert.Empty(t, tr.Summarize(context.Background(), "help"))

	stub = &stubChatCompleter{}
	tr = &Triage{client: stub, model: DefaultOpenAIModel, logger: testLogger(t)}
	assert.Empty(t, tr.Summarize(context.Background(), "help"))
}
