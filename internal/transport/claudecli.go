// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"

	"github.com/helmgate-dev/helmgate/internal/catalog"
)

// cliTransport bridges to a local claude binary in print mode. Useful
// for candidates served by a subscription login instead of an API key.
type cliTransport struct {
	cfg ProviderConfig
}

func newCLITransport(cfg ProviderConfig) *cliTransport {
	return &cliTransport{cfg: cfg}
}

func (t *cliTransport) Kind() catalog.TransportKind { return catalog.TransportClaudeCLI }

func (t *cliTransport) binary() string {
	if t.cfg.CLIPath != "" {
		return t.cfg.CLIPath
	}
	return "claude"
}

// cliResult is the envelope the claude binary prints with
// --output-format json.
type cliResult struct {
	IsError bool   `json:"is_error"`
	Result  string `json:"result"`
}

// buildPrompt flattens the chat payload into a single prompt string.
// A lone user message passes through untouched; multi-turn history is
// rendered as a transcript.
func buildPrompt(p chatPayload) (string, Result, bool) {
	var turns []string
	for _, msg := range p.Messages {
		switch msg.Role {
		case "user", "assistant", "system":
		default:
			return "", Result{
				ErrorText: "unsupported message role " + msg.Role,
				Category:  CategoryClientError,
			}, false
		}
	}

	var users int
	for _, msg := range p.Messages {
		if msg.Role == "user" {
			users++
		}
	}
	if users == len(p.Messages) && users == 1 {
		return p.Messages[0].Content, Result{}, true
	}

	for _, msg := range p.Messages {
		switch msg.Role {
		case "user":
			turns = append(turns, "User: "+msg.Content)
		case "assistant":
			turns = append(turns, "Assistant: "+msg.Content)
		case "system":
			turns = append(turns, "System: "+msg.Content)
		}
	}
	return strings.Join(turns, "\n\n"), Result{}, true
}

func (t *cliTransport) command(ctx context.Context, p chatPayload, prompt string, streaming bool) *exec.Cmd {
	args := []string{"-p", "--model", p.Model}
	if streaming {
		args = append(args, "--output-format", "stream-json", "--verbose")
	} else {
		args = append(args, "--output-format", "json")
	}
	if p.System != "" {
		args = append(args, "--append-system-prompt", p.System)
	}
	args = append(args, prompt)

	cmd := exec.CommandContext(ctx, t.binary(), args...)
	if t.cfg.APIKey != "" {
		cmd.Env = append(os.Environ(), "ANTHROPIC_API_KEY="+t.cfg.APIKey)
	}
	return cmd
}

// classifyExit folds a finished process into a Result. The binary has
// no HTTP status to report, so failures classify by shape: deadline
// and cancellation from the context, anything else as a retryable
// upstream failure carrying stderr.
func classifyExit(ctx context.Context, err error, stderr string) Result {
	if ctx.Err() != nil {
		return ClassifyError(ctx.Err())
	}
	if _, ok := err.(*exec.ExitError); ok {
		text := strings.TrimSpace(stderr)
		if text == "" {
			text = err.Error()
		}
		return Result{
			ErrorText: truncate(text),
			Retryable: true,
			Category:  CategoryServerError,
		}
	}
	// Binary missing or not startable.
	return ClassifyError(err)
}

func (t *cliTransport) Execute(ctx context.Context, req Request) Result {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	p, failure, ok := t.parsePayload(req)
	if !ok {
		return failure
	}
	prompt, failure, ok := buildPrompt(p)
	if !ok {
		return failure
	}

	cmd := t.command(ctx, p, prompt, false)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return classifyExit(ctx, err, stderr.String())
	}

	var out cliResult
	if err := json.Unmarshal(stdout.Bytes(), &out); err == nil && out.IsError {
		return Result{
			ErrorText: truncate(out.Result),
			Retryable: true,
			Category:  CategoryServerError,
		}
	}
	return Succeed(200, stdout.Bytes())
}

func (t *cliTransport) Stream(ctx context.Context, req Request) (<-chan StreamEvent, Result) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)

	p, failure, ok := t.parsePayload(req)
	if !ok {
		cancel()
		return nil, failure
	}
	prompt, failure, ok := buildPrompt(p)
	if !ok {
		cancel()
		return nil, failure
	}

	cmd := t.command(ctx, p, prompt, true)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, ClassifyError(err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, ClassifyError(err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// Read the first line synchronously: a binary that dies before
	// producing output fails the attempt, not the stream.
	if !scanner.Scan() {
		werr := cmd.Wait()
		cancel()
		if werr != nil {
			return nil, classifyExit(ctx, werr, stderr.String())
		}
		if serr := scanner.Err(); serr != nil {
			return nil, ClassifyError(serr)
		}
		events := make(chan StreamEvent)
		close(events)
		return events, Result{Success: true}
	}
	first := append([]byte(nil), scanner.Bytes()...)

	events := make(chan StreamEvent, streamBuffer)
	go func() {
		defer close(events)
		defer cancel()

		if !emit(ctx, events, StreamEvent{Data: first}) {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return
		}
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			if !emit(ctx, events, StreamEvent{Data: line}) {
				_ = cmd.Process.Kill()
				_ = cmd.Wait()
				return
			}
		}

		werr := cmd.Wait()
		if serr := scanner.Err(); serr != nil {
			r := ClassifyError(serr)
			r.Category = CategoryStream
			emit(ctx, events, StreamEvent{Err: &r})
			return
		}
		if werr != nil {
			r := classifyExit(ctx, werr, stderr.String())
			r.Category = CategoryStream
			emit(ctx, events, StreamEvent{Err: &r})
		}
	}()
	return events, Result{Success: true}
}

func (t *cliTransport) parsePayload(req Request) (chatPayload, Result, bool) {
	var p chatPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return p, invalidPayload(err), false
	}
	p.Model = req.ModelID
	return p, Result{}, true
}
