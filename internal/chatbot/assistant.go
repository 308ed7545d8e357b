// Package chatbot answers platform questions through Gemini, degrading to a
// keyword responder when no model is configured or a call fails.
package chatbot

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	appErr "github.com/taakra/engine/pkg/errors"
	"google.golang.org/api/option"
)

// Role values match the Gemini content roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one side of a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Assistant produces a reply given the system instruction, the prior turns and a new message.
type Assistant interface {
	Reply(ctx context.Context, instruction string, history []Turn, message string) (string, error)
}

// GeminiAssistant talks to the Gemini API.
type GeminiAssistant struct {
	client *genai.Client
	model  string
}

func NewGeminiAssistant(ctx context.Context, apiKey, model string) (*GeminiAssistant, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "create gemini client failed")
	}
	return &GeminiAssistant{client: client, model: model}, nil
}

func (g *GeminiAssistant) Close() error {
	return g.client.Close()
}

func (g *GeminiAssistant) Reply(ctx context.Context, instruction string, history []Turn, message string) (string, error) {
	// a fresh model per call keeps the system instruction request-scoped
	m := g.client.GenerativeModel(g.model)
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(instruction)}}

	cs := m.StartChat()
	cs.History = make([]*genai.Content, 0, len(history))
	for _, t := range history {
		cs.History = append(cs.History, &genai.Content{Role: t.Role, Parts: []genai.Part{genai.Text(t.Content)}})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", appErr.Wrap(err, appErr.CodeUnavailable, "gemini request failed")
	}
	text := responseText(resp)
	if text == "" {
		return "", appErr.New(appErr.CodeUnavailable, "gemini returned no text")
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		break
	}
	return b.String()
}
