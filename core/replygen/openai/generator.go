package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	orchestration "github.com/Vioneyy/AI-VTuber-demo/core"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// passToken is what the persona prompt instructs the model to answer with
// when a message does not deserve a spoken reply.
const passToken = "[pass]"

const defaultPersona = `You are a cheerful virtual streamer talking to your live audience.
Keep replies short and conversational, at most two sentences, since they will be spoken aloud.
Never use emoji, markdown or stage directions.
If a message does not deserve a reply (spam, gibberish, empty), answer with exactly ` + passToken + `.`

// Options configure the reply generator. Fields mirror a minimal subset of
// chat completion parameters; extend via functional options.
type Options struct {
	Model               string
	Persona             string
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
}

// Generator produces spoken replies through the OpenAI Chat Completions API.
type Generator struct {
	client *openai.Client
	opts   Options
}

// NewGenerator creates a generator using the official client. The API key
// comes from OPENAI_API_KEY unless overridden in Options. Outbound requests
// carry trace propagation headers.
func NewGenerator(optFns ...func(o *Options)) *Generator {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Persona:             defaultPersona,
		Temperature:         0.8,
		MaxCompletionTokens: 256,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	clientOpts := []option.RequestOption{
		option.WithHTTPClient(&http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}),
	}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := openai.NewClient(clientOpts...)
	return &Generator{client: &client, opts: opts}
}

// Generate asks the model for a reply to one queued message. An empty or
// pass-token completion comes back as a suppressed reply rather than an
// error.
func (g *Generator) Generate(ctx context.Context, content string, userName string, source orchestration.Source) (orchestration.Reply, error) {
	ctx, span := tracer.Start(ctx, "generate reply")
	span.SetAttributes(
		attribute.String("model", g.opts.Model),
		attribute.String("source", string(source)),
	)
	defer span.End()

	userMessage := content
	if userName != "" {
		userMessage = fmt.Sprintf("%s says: %s", userName, content)
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.opts.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(g.opts.Persona),
			openai.UserMessage(userMessage),
		},
		Temperature:         openai.Float(g.opts.Temperature),
		MaxCompletionTokens: openai.Int(g.opts.MaxCompletionTokens),
	})
	if err != nil {
		recordedErr := fmt.Errorf("chat completion failed: %w", err)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
		return orchestration.Reply{}, recordedErr
	}

	if len(resp.Choices) == 0 {
		return orchestration.Reply{Suppressed: true, SuppressReason: "model returned no choices"}, nil
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" || strings.EqualFold(text, passToken) {
		logger.Info("model declined to reply", "source", source)
		return orchestration.Reply{Suppressed: true, SuppressReason: "model declined to reply"}, nil
	}

	return orchestration.Reply{Text: text}, nil
}
