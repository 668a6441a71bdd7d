// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"sync"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	openaisdk "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"google.golang.org/genai"

	"github.com/helmgate-dev/helmgate/internal/catalog"
)

// chatPayload is the subset of a chat request the SDK transport needs
// to rebuild vendor params. Fields the gateway does not interpret stay
// in the raw payload and are dropped for sdk providers.
type chatPayload struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	System      string        `json:"system,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// sdkTransport calls upstreams through their official Go SDKs,
// dispatching on the candidate's api_style. Clients are built lazily
// per style and reused.
type sdkTransport struct {
	cfg ProviderConfig

	mu        sync.Mutex
	anthropic *anthropicsdk.Client
	openai    *openaisdk.Client
	gemini    *genai.Client
}

func newSDKTransport(cfg ProviderConfig) *sdkTransport {
	return &sdkTransport{cfg: cfg}
}

func (t *sdkTransport) Kind() catalog.TransportKind { return catalog.TransportSDK }

func (t *sdkTransport) anthropicClient() *anthropicsdk.Client {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.anthropic == nil {
		opts := []anthropicopt.RequestOption{
			anthropicopt.WithAPIKey(t.cfg.APIKey),
		}
		if t.cfg.BaseURL != "" {
			opts = append(opts, anthropicopt.WithBaseURL(t.cfg.BaseURL))
		}
		c := anthropicsdk.NewClient(opts...)
		t.anthropic = &c
	}
	return t.anthropic
}

func (t *sdkTransport) openaiClient() *openaisdk.Client {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.openai == nil {
		opts := []openaiopt.RequestOption{
			openaiopt.WithAPIKey(t.cfg.APIKey),
		}
		if t.cfg.BaseURL != "" {
			opts = append(opts, openaiopt.WithBaseURL(t.cfg.BaseURL))
		}
		c := openaisdk.NewClient(opts...)
		t.openai = &c
	}
	return t.openai
}

func (t *sdkTransport) geminiClient(ctx context.Context) (*genai.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gemini == nil {
		cfg := &genai.ClientConfig{
			APIKey:  t.cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
		if t.cfg.BaseURL != "" {
			cfg.HTTPOptions.BaseURL = t.cfg.BaseURL
		}
		client, err := genai.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		t.gemini = client
	}
	return t.gemini, nil
}

// classifySDKError maps an SDK call failure onto a Result, recovering
// the upstream HTTP status when the SDK surfaced one.
func classifySDKError(err error) Result {
	var anthErr *anthropicsdk.Error
	if errors.As(err, &anthErr) {
		return ClassifyStatus(anthErr.StatusCode, err.Error())
	}
	var oaiErr *openaisdk.Error
	if errors.As(err, &oaiErr) {
		return ClassifyStatus(oaiErr.StatusCode, err.Error())
	}
	var genErr genai.APIError
	if errors.As(err, &genErr) {
		return ClassifyStatus(genErr.Code, err.Error())
	}
	return ClassifyError(err)
}

func invalidPayload(err error) Result {
	return Result{
		StatusCode: http.StatusBadRequest,
		ErrorText:  truncate(err.Error()),
		Category:   CategoryClientError,
	}
}

func (t *sdkTransport) parse(req Request) (chatPayload, Result, bool) {
	var p chatPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return p, invalidPayload(err), false
	}
	// The candidate's physical model id wins over whatever logical
	// name the caller put in the payload.
	p.Model = req.ModelID
	return p, Result{}, true
}

func (t *sdkTransport) Execute(ctx context.Context, req Request) Result {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	p, failure, ok := t.parse(req)
	if !ok {
		return failure
	}

	switch req.APIStyle {
	case catalog.APIStyleClaude:
		return t.executeAnthropic(ctx, p)
	case catalog.APIStyleOpenAI:
		return t.executeOpenAI(ctx, p)
	case catalog.APIStyleGemini:
		return t.executeGemini(ctx, p)
	default:
		return Result{
			ErrorText: "unsupported api_style " + string(req.APIStyle),
			Category:  CategoryClientError,
		}
	}
}

func (t *sdkTransport) Stream(ctx context.Context, req Request) (<-chan StreamEvent, Result) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)

	p, failure, ok := t.parse(req)
	if !ok {
		cancel()
		return nil, failure
	}

	var (
		events <-chan StreamEvent
		res    Result
	)
	switch req.APIStyle {
	case catalog.APIStyleClaude:
		events, res = t.streamAnthropic(ctx, cancel, p)
	case catalog.APIStyleOpenAI:
		events, res = t.streamOpenAI(ctx, cancel, p)
	case catalog.APIStyleGemini:
		events, res = t.streamGemini(ctx, cancel, p)
	default:
		cancel()
		return nil, Result{
			ErrorText: "unsupported api_style " + string(req.APIStyle),
			Category:  CategoryClientError,
		}
	}
	if !res.Success {
		cancel()
	}
	return events, res
}

// buildAnthropicParams rebuilds Messages API params from the neutral
// payload. System-role messages fold into the top-level system param.
func buildAnthropicParams(p chatPayload) (anthropicsdk.MessageNewParams, Result, bool) {
	maxTokens := int64(p.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	system := p.System
	var msgs []anthropicsdk.MessageParam
	for _, msg := range p.Messages {
		switch msg.Role {
		case "user":
			msgs = append(msgs, anthropicsdk.NewUserMessage(
				anthropicsdk.NewTextBlock(msg.Content),
			))
		case "assistant":
			msgs = append(msgs, anthropicsdk.NewAssistantMessage(
				anthropicsdk.NewTextBlock(msg.Content),
			))
		case "system":
			if system != "" {
				system += "\n"
			}
			system += msg.Content
		default:
			return anthropicsdk.MessageNewParams{}, Result{
				ErrorText: "unsupported message role " + msg.Role,
				Category:  CategoryClientError,
			}, false
		}
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(p.Model),
		Messages:  msgs,
		MaxTokens: maxTokens,
	}
	if system != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: system}}
	}
	if p.Temperature != nil {
		params.Temperature = anthropicsdk.Float(*p.Temperature)
	}
	return params, Result{}, true
}

func (t *sdkTransport) executeAnthropic(ctx context.Context, p chatPayload) Result {
	params, failure, ok := buildAnthropicParams(p)
	if !ok {
		return failure
	}

	msg, err := t.anthropicClient().Messages.New(ctx, params)
	if err != nil {
		return classifySDKError(err)
	}
	return Succeed(http.StatusOK, []byte(msg.RawJSON()))
}

func (t *sdkTransport) streamAnthropic(ctx context.Context, cancel context.CancelFunc, p chatPayload) (<-chan StreamEvent, Result) {
	params, failure, ok := buildAnthropicParams(p)
	if !ok {
		return nil, failure
	}

	stream := t.anthropicClient().Messages.NewStreaming(ctx, params)

	// Pull the first event synchronously so pre-stream failures follow
	// the normal retry rules instead of surfacing mid-stream.
	if !stream.Next() {
		if err := stream.Err(); err != nil {
			return nil, classifySDKError(err)
		}
		events := make(chan StreamEvent)
		close(events)
		cancel()
		return events, Result{Success: true}
	}
	first := stream.Current()

	events := make(chan StreamEvent, streamBuffer)
	go func() {
		defer close(events)
		defer cancel()

		if !emit(ctx, events, StreamEvent{Data: []byte(first.RawJSON())}) {
			return
		}
		for stream.Next() {
			ev := stream.Current()
			if !emit(ctx, events, StreamEvent{Data: []byte(ev.RawJSON())}) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			r := classifySDKError(err)
			r.Category = CategoryStream
			emit(ctx, events, StreamEvent{Err: &r})
		}
	}()
	return events, Result{Success: true}
}

// buildOpenAIParams rebuilds Chat Completions params from the neutral
// payload.
func buildOpenAIParams(p chatPayload) (openaisdk.ChatCompletionNewParams, Result, bool) {
	var msgs []openaisdk.ChatCompletionMessageParamUnion
	if p.System != "" {
		msgs = append(msgs, openaisdk.SystemMessage(p.System))
	}
	for _, msg := range p.Messages {
		switch msg.Role {
		case "user":
			msgs = append(msgs, openaisdk.UserMessage(msg.Content))
		case "assistant":
			msgs = append(msgs, openaisdk.AssistantMessage(msg.Content))
		case "system":
			msgs = append(msgs, openaisdk.SystemMessage(msg.Content))
		default:
			return openaisdk.ChatCompletionNewParams{}, Result{
				ErrorText: "unsupported message role " + msg.Role,
				Category:  CategoryClientError,
			}, false
		}
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.Model),
		Messages: msgs,
	}
	if p.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(p.MaxTokens))
	}
	if p.Temperature != nil {
		params.Temperature = param.NewOpt(*p.Temperature)
	}
	return params, Result{}, true
}

func (t *sdkTransport) executeOpenAI(ctx context.Context, p chatPayload) Result {
	params, failure, ok := buildOpenAIParams(p)
	if !ok {
		return failure
	}

	resp, err := t.openaiClient().Chat.Completions.New(ctx, params)
	if err != nil {
		return classifySDKError(err)
	}
	return Succeed(http.StatusOK, []byte(resp.RawJSON()))
}

func (t *sdkTransport) streamOpenAI(ctx context.Context, cancel context.CancelFunc, p chatPayload) (<-chan StreamEvent, Result) {
	params, failure, ok := buildOpenAIParams(p)
	if !ok {
		return nil, failure
	}

	stream := t.openaiClient().Chat.Completions.NewStreaming(ctx, params)

	if !stream.Next() {
		if err := stream.Err(); err != nil {
			return nil, classifySDKError(err)
		}
		events := make(chan StreamEvent)
		close(events)
		cancel()
		return events, Result{Success: true}
	}
	first := stream.Current()

	events := make(chan StreamEvent, streamBuffer)
	go func() {
		defer close(events)
		defer cancel()

		if !emit(ctx, events, StreamEvent{Data: []byte(first.RawJSON())}) {
			return
		}
		for stream.Next() {
			chunk := stream.Current()
			if !emit(ctx, events, StreamEvent{Data: []byte(chunk.RawJSON())}) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			r := classifySDKError(err)
			r.Category = CategoryStream
			emit(ctx, events, StreamEvent{Err: &r})
		}
	}()
	return events, Result{Success: true}
}

// buildGeminiRequest rebuilds GenerateContent inputs from the neutral
// payload. System content goes through SystemInstruction.
func buildGeminiRequest(p chatPayload) ([]*genai.Content, *genai.GenerateContentConfig, Result, bool) {
	cfg := &genai.GenerateContentConfig{}
	if p.System != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: p.System}},
		}
	}
	if p.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(p.MaxTokens)
	}
	if p.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*p.Temperature))
	}

	var contents []*genai.Content
	for _, msg := range p.Messages {
		switch msg.Role {
		case "user":
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		case "assistant":
			contents = append(contents, &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		case "system":
			if cfg.SystemInstruction == nil {
				cfg.SystemInstruction = &genai.Content{}
			}
			cfg.SystemInstruction.Parts = append(cfg.SystemInstruction.Parts,
				&genai.Part{Text: msg.Content})
		default:
			return nil, nil, Result{
				ErrorText: "unsupported message role " + msg.Role,
				Category:  CategoryClientError,
			}, false
		}
	}
	return contents, cfg, Result{}, true
}

func (t *sdkTransport) executeGemini(ctx context.Context, p chatPayload) Result {
	contents, cfg, failure, ok := buildGeminiRequest(p)
	if !ok {
		return failure
	}

	client, err := t.geminiClient(ctx)
	if err != nil {
		return classifySDKError(err)
	}

	resp, err := client.Models.GenerateContent(ctx, p.Model, contents, cfg)
	if err != nil {
		return classifySDKError(err)
	}
	body, err := json.Marshal(resp)
	if err != nil {
		return ClassifyError(err)
	}
	return Succeed(http.StatusOK, body)
}

func (t *sdkTransport) streamGemini(ctx context.Context, cancel context.CancelFunc, p chatPayload) (<-chan StreamEvent, Result) {
	contents, cfg, failure, ok := buildGeminiRequest(p)
	if !ok {
		return nil, failure
	}

	client, err := t.geminiClient(ctx)
	if err != nil {
		return nil, classifySDKError(err)
	}

	next, stop := iter.Pull2(client.Models.GenerateContentStream(ctx, p.Model, contents, cfg))

	resp, err, ok := next()
	if !ok {
		stop()
		events := make(chan StreamEvent)
		close(events)
		cancel()
		return events, Result{Success: true}
	}
	if err != nil {
		stop()
		return nil, classifySDKError(err)
	}

	events := make(chan StreamEvent, streamBuffer)
	go func() {
		defer close(events)
		defer cancel()
		defer stop()

		for {
			data, merr := json.Marshal(resp)
			if merr != nil {
				r := ClassifyError(merr)
				r.Category = CategoryStream
				emit(ctx, events, StreamEvent{Err: &r})
				return
			}
			if !emit(ctx, events, StreamEvent{Data: data}) {
				return
			}

			var serr error
			resp, serr, ok = next()
			if !ok {
				return
			}
			if serr != nil {
				r := classifySDKError(serr)
				r.Category = CategoryStream
				emit(ctx, events, StreamEvent{Err: &r})
				return
			}
		}
	}()
	return events, Result{Success: true}
}

// emit sends one frame, giving up when the caller has gone away.
func emit(ctx context.Context, events chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
