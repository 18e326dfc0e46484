// Package google adapts Gemini models to model.ChatModel.
package google

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/agentlib/workgraph/graph/model"
)

// DefaultModel is used when no model name is given.
const DefaultModel = "gemini-1.5-pro"

// sender sends one chat turn with the given system prompt and history.
type sender interface {
	send(ctx context.Context, system string, history []*genai.Content, last string) (*genai.GenerateContentResponse, error)
}

type clientSender struct {
	client    *genai.Client
	modelName string
}

func (c *clientSender) send(ctx context.Context, system string, history []*genai.Content, last string) (*genai.GenerateContentResponse, error) {
	gm := c.client.GenerativeModel(c.modelName)
	if system != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	cs := gm.StartChat()
	cs.History = history
	return cs.SendMessage(ctx, genai.Text(last))
}

// ChatModel implements model.ChatModel with the Gemini API. Call Close
// when done to release the underlying client.
type ChatModel struct {
	sender    sender
	client    *genai.Client
	modelName string
}

// NewChatModel creates a Gemini-backed chat model. An empty modelName
// selects DefaultModel.
func NewChatModel(ctx context.Context, apiKey, modelName string) (*ChatModel, error) {
	if apiKey == "" {
		return nil, model.ErrMissingAPIKey
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("google: create client: %w", err)
	}
	return &ChatModel{
		sender:    &clientSender{client: client, modelName: modelName},
		client:    client,
		modelName: modelName,
	}, nil
}

// Name returns the model name requests are sent to.
func (m *ChatModel) Name() string { return m.modelName }

// Close releases the client.
func (m *ChatModel) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}

// Chat implements model.ChatModel. The final message must be a user turn;
// earlier turns become chat history.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}

	system, turns := model.SplitSystem(messages)
	if len(turns) == 0 {
		return model.ChatOut{}, model.ErrNoMessages
	}
	last := turns[len(turns)-1]
	if last.Role != model.RoleUser {
		return model.ChatOut{}, fmt.Errorf("google: last message must be from the user, got %q", last.Role)
	}

	history := make([]*genai.Content, 0, len(turns)-1)
	for _, turn := range turns[:len(turns)-1] {
		role := "user"
		if turn.Role == model.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(turn.Content)}})
	}

	resp, err := m.sender.send(ctx, system, history, last.Content)
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("google: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return model.ChatOut{}, fmt.Errorf("google: empty response from %s", m.modelName)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	out := model.ChatOut{Text: text.String()}
	if resp.UsageMetadata != nil {
		out.Usage = model.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}
