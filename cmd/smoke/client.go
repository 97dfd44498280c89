package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"

	relaymodel "github.com/e2bridge/e2bridge/relay/model"
)

type testResult struct {
	Model      string
	Turn       int
	Success    bool
	StatusCode int
	Chunks     int
	Duration   time.Duration
	Reply      string
	Error      string
}

// conversation runs two turns against model: the prompt, then a follow-up that
// replays the first exchange as history. It stops at the first failed turn.
func conversation(ctx context.Context, client *http.Client, cfg config, model string) []testResult {
	history := []relaymodel.Message{{Role: "user", Content: cfg.Prompt}}
	first := streamChat(ctx, client, cfg, model, history)
	first.Turn = 1
	if !first.Success {
		return []testResult{first}
	}

	history = append(history,
		relaymodel.Message{Role: "assistant", Content: first.Reply},
		relaymodel.Message{Role: "user", Content: followUpPrompt},
	)
	second := streamChat(ctx, client, cfg, model, history)
	second.Turn = 2
	return []testResult{first, second}
}

// streamChat sends one streaming chat completion and checks the SSE contract:
// every chunk shares one id, exactly one empty `stop` chunk comes last, and
// the stream ends with [DONE].
func streamChat(ctx context.Context, client *http.Client, cfg config, model string, messages []relaymodel.Message) testResult {
	res := testResult{Model: model}
	start := time.Now()

	fail := func(err error) testResult {
		res.Error = err.Error()
		res.Duration = time.Since(start)
		return res
	}

	body, err := json.Marshal(relaymodel.GeneralOpenAIRequest{
		Model:    model,
		Stream:   true,
		Messages: messages,
	})
	if err != nil {
		return fail(errors.Wrap(err, "marshal request"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.APIBase+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fail(errors.Wrap(err, "build request"))
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fail(errors.Wrap(err, "send request"))
	}
	defer func() { _ = resp.Body.Close() }()

	res.StatusCode = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
		return fail(errors.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))))
	}

	var (
		reply     strings.Builder
		id        string
		stops     int
		sawDone   bool
		lastFinal bool
	)
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxResponseBodySize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			return fail(errors.Errorf("unexpected SSE line %q", line))
		}
		data = strings.TrimSpace(data)
		if sawDone {
			return fail(errors.New("data after [DONE]"))
		}
		if data == "[DONE]" {
			sawDone = true
			continue
		}

		chunk := new(relaymodel.ChatCompletionsStreamResponse)
		if err := json.Unmarshal([]byte(data), chunk); err != nil {
			return fail(errors.Wrapf(err, "decode chunk %q", data))
		}
		res.Chunks++
		if id == "" {
			id = chunk.Id
		} else if chunk.Id != id {
			return fail(errors.Errorf("chunk id changed from %q to %q", id, chunk.Id))
		}

		lastFinal = chunk.FinishReason() == relaymodel.FinishReasonStop && chunk.Content() == ""
		if lastFinal {
			stops++
		} else if strings.HasPrefix(chunk.Content(), "Internal error:") {
			return fail(errors.Errorf("bridge reported %q", chunk.Content()))
		} else {
			reply.WriteString(chunk.Content())
		}
	}
	if err := scanner.Err(); err != nil {
		return fail(errors.Wrap(err, "read stream"))
	}

	switch {
	case !sawDone:
		return fail(errors.New("stream ended without [DONE]"))
	case stops != 1:
		return fail(errors.Errorf("expected exactly one terminal chunk, got %d", stops))
	case !lastFinal:
		return fail(errors.New("terminal chunk is not the last chunk"))
	}

	res.Reply = reply.String()
	res.Success = true
	res.Duration = time.Since(start)
	return res
}
