package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"chatrelay/platform"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/openai/openai-go"
)

// MentionMarker triggers an assistant reply when present in message content.
const MentionMarker = "@ai"

var urlRegex = regexp.MustCompile(`https?://[^\s]+`)

// Completer is the opaque completion provider.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAICompleter calls an OpenAI-compatible chat completion endpoint.
type OpenAICompleter struct {
	Client *openai.Client
	Model  string
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	type message struct {
		Role    openai.ChatCompletionMessageParamRole
		Content string
	}
	messages := []message{
		{Role: "system", Content: "You are a helpful assistant in a chat room. Answer concisely."},
		{Role: "user", Content: prompt},
	}

	params := openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{}),
		Model:    openai.F(c.Model),
	}
	for _, m := range messages {
		var content any = m.Content
		params.Messages.Value = append(params.Messages.Value, openai.ChatCompletionMessageParam{
			Role:    openai.F(m.Role),
			Content: openai.F(content),
		})
	}

	completion, err := c.Client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}
	return completion.Choices[0].Message.Content, nil
}

// AssistantService watches accepted human messages for the mention marker and
// produces the assistant's reply out of band: the completion runs on a
// detached goroutine holding no store or hub locks, so the human message's
// relay is never blocked.
type AssistantService struct {
	store     *MessageService
	hub       *Hub
	completer Completer
	timeout   time.Duration
}

func NewAssistantService(store *MessageService, hub *Hub, completer Completer) *AssistantService {
	return &AssistantService{
		store:     store,
		hub:       hub,
		completer: completer,
		timeout:   60 * time.Second,
	}
}

// Mentioned reports whether content requests an assistant reply.
func Mentioned(content string) bool {
	return strings.Contains(content, MentionMarker)
}

// PromptFrom strips the mention marker and surrounding whitespace.
func PromptFrom(content string) string {
	return strings.TrimSpace(strings.ReplaceAll(content, MentionMarker, ""))
}

// Maybe triggers the assistant if the content mentions it. It returns nil
// when no mention is present; otherwise it returns a channel that yields the
// outcome of the detached completion task exactly once, so callers and tests
// can await it deterministically. On provider failure the error is logged and
// reported on the channel; nothing is broadcast into the room.
func (s *AssistantService) Maybe(conversationID uint, senderID uint, content string) <-chan error {
	if !Mentioned(content) {
		return nil
	}

	prompt := PromptFrom(content)
	done := make(chan error, 1)

	go func() {
		defer close(done)

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		reply, err := s.completer.Complete(ctx, s.withPageContext(prompt))
		if err != nil {
			platform.Logger.Warnf("room %d: %v: %v", conversationID, ErrProvider, err)
			done <- fmt.Errorf("%w: %v", ErrProvider, err)
			return
		}

		reply = strings.TrimSpace(reply)
		msg, err := s.store.Append(conversationID, &senderID, reply, true)
		if err != nil {
			platform.Logger.Warnf("room %d: store assistant reply: %v", conversationID, err)
			done <- err
			return
		}
		if err := s.store.Enrich(msg); err != nil {
			platform.Logger.Warnf("room %d: enrich assistant reply: %v", conversationID, err)
		}

		s.hub.BroadcastToAll(conversationID, msg)
		done <- nil
	}()

	return done
}

// withPageContext fetches the first URL mentioned in the prompt and appends
// the page as markdown, so "@ai summarize https://..." works on the page
// body rather than the bare link. Fetch problems degrade to the raw prompt.
func (s *AssistantService) withPageContext(prompt string) string {
	url := urlRegex.FindString(prompt)
	if url == "" {
		return prompt
	}

	res, err := http.Get(url)
	if err != nil {
		platform.Logger.Warnf("assistant: fetch %s: %v", url, err)
		return prompt
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		platform.Logger.Warnf("assistant: read %s: %v", url, err)
		return prompt
	}

	page, err := htmltomarkdown.ConvertString(string(data))
	if err != nil {
		platform.Logger.Warnf("assistant: convert %s: %v", url, err)
		return prompt
	}
	return prompt + "\n\nLinked page content:\n\n" + page
}
