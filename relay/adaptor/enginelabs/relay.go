package enginelabs

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"

	"github.com/e2bridge/e2bridge/common/helper"
	"github.com/e2bridge/e2bridge/monitor"
	relaymodel "github.com/e2bridge/e2bridge/relay/model"
	"github.com/e2bridge/e2bridge/relay/streaming"
)

// ErrEmptyMessages is returned for a chat request without messages.
var ErrEmptyMessages = errors.New("messages must not be empty")

var errConsumerGone = errors.New("stream consumer is gone")

// Bridge translates OpenAI chat completions into upstream chat engine calls.
// A Bridge is safe for concurrent use; the conversation cache is its only
// shared mutable state.
type Bridge struct {
	credentials    *CredentialManager
	resolver       *Resolver
	cache          *ConversationCache
	upstream       *Upstream
	dialer         Dialer
	logger         glog.Logger
	defaultModel   string
	knownModels    []string
	appName        string
	requestTimeout time.Duration
}

// NewBridge validates opts and wires the bridge components. Errors are of
// kind KindConfiguration.
func NewBridge(opts Options) (*Bridge, error) {
	if err := opts.fillDefaults(); err != nil {
		return nil, err
	}

	credentials, err := NewCredentialManager(opts)
	if err != nil {
		return nil, err
	}

	return &Bridge{
		credentials:    credentials,
		resolver:       NewResolver(opts.Cache, opts.Logger),
		cache:          opts.Cache,
		upstream:       NewUpstream(opts),
		dialer:         opts.Dialer,
		logger:         opts.Logger,
		defaultModel:   opts.DefaultModel,
		knownModels:    append([]string(nil), opts.KnownModels...),
		appName:        opts.AppName,
		requestTimeout: opts.RequestTimeout,
	}, nil
}

// Stream is one running chat completion.
type Stream struct {
	// ID is shared by every chunk of the stream.
	ID    string
	Model string
	// Chunks yields the outbound chunks in order and is closed after the
	// terminal chunk, or early once the consumer's context is done.
	Chunks <-chan *relaymodel.ChatCompletionsStreamResponse
}

// ChatCompletion starts relaying req. ctx is the consumer's context: cancelling
// it stops the relay and closes the upstream channel. Only an empty message
// list is rejected synchronously; every later failure is reported in-stream.
func (b *Bridge) ChatCompletion(ctx context.Context, req *relaymodel.GeneralOpenAIRequest) (*Stream, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, ErrEmptyMessages
	}

	modelName := req.Model
	if modelName == "" {
		modelName = b.defaultModel
	}

	out := make(chan *relaymodel.ChatCompletionsStreamResponse)
	stream := &Stream{
		ID:     helper.GenCompletionID(),
		Model:  modelName,
		Chunks: out,
	}

	go b.run(ctx, stream, req.Messages, out)
	return stream, nil
}

func (b *Bridge) run(ctx context.Context, stream *Stream, messages []relaymodel.Message, out chan<- *relaymodel.ChatCompletionsStreamResponse) {
	defer close(out)
	startTime := time.Now()
	lg := b.logger.With(
		zap.String("completion_id", stream.ID),
		zap.String("model", stream.Model),
	)

	emit := func(chunk *relaymodel.ChatCompletionsStreamResponse) bool {
		if ctx.Err() != nil {
			return false
		}
		select {
		case out <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fin := streaming.NewFinalizer(stream.ID, stream.Model, helper.GetTimestamp(), emit)

	opCtx := ctx
	if b.requestTimeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeoutCause(ctx, b.requestTimeout,
			errors.Errorf("request exceeded timeout of %s", b.requestTimeout))
		defer cancel()
	}

	label := monitor.ModelLabel(stream.Model, b.knownModels)
	err := b.relay(opCtx, lg, stream.Model, label, messages, fin)
	if ctx.Err() != nil || errors.Is(err, errConsumerGone) {
		lg.Info("client went away, stream abandoned", zap.Duration("elapsed", time.Since(startTime)))
		monitor.RecordStream(label, monitor.OutcomeCancelled, startTime)
		return
	}
	if err != nil {
		lg.Error("stream error", zap.Error(err))
		fin.Fail(err)
	}
	fin.Finish()

	outcome := monitor.OutcomeCompleted
	if fin.Failed() {
		outcome = monitor.OutcomeFailed
	}
	monitor.RecordStream(label, outcome, startTime)
	lg.Info("stream completed",
		zap.String("outcome", outcome),
		zap.Int64("elapsed_ms", helper.CalcElapsedTime(startTime)))
}

// relay drives one stream from credential mint to the terminal state event.
// It returns nil on normal completion. label is the metrics label of modelName.
func (b *Bridge) relay(ctx context.Context, lg glog.Logger, modelName, label string, messages []relaymodel.Message, fin *streaming.Finalizer) error {
	token, err := b.credentials.Mint(ctx)
	if err != nil {
		return withCause(ctx, err)
	}

	handle := b.resolver.Resolve(messages[:len(messages)-1])
	lg = lg.With(zap.String("conversation", handle))

	trigger := TriggerRequest{
		Prompt:        messages[len(messages)-1].StringContent(),
		ChatHistoryID: handle,
		AdapterName:   modelName,
	}
	if err := b.upstream.Trigger(ctx, token, trigger); err != nil {
		return withCause(ctx, err)
	}
	lg.Debug("upstream generation triggered")

	ch, err := b.dialer.Dial(ctx, handle, token.Subject)
	if err != nil {
		return withCause(ctx, err)
	}
	defer func() { _ = ch.Close() }()
	lg.Debug("event channel connected")

	if !fin.Open() {
		return errConsumerGone
	}

	for {
		raw, err := ch.Recv()
		if err != nil {
			return withCause(ctx, err)
		}
		lg.Debug("received upstream event", zap.ByteString("event", raw))

		ev, err := DecodeEvent(raw)
		if err != nil {
			lg.Warn("skip malformed upstream event", zap.Error(err))
			continue
		}

		switch ev := ev.(type) {
		case StateEvent:
			if !ev.InProgress {
				lg.Debug("upstream generation finished")
				return nil
			}
		case UpdateEvent:
			chat, ok := ev.Payload.(ChatPayload)
			if !ok || chat.Content == "" {
				continue
			}
			if !fin.Content(chat.Content) {
				return errConsumerGone
			}
			monitor.RecordChunk(label)
		case UnknownEvent:
			lg.Debug("drop unknown upstream event", zap.String("type", ev.Type))
		default:
			lg.Warn("drop unhandled upstream event variant")
		}
	}
}

// withCause reports a failure provoked by the request deadline as the
// deadline itself.
func withCause(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
			return cause
		}
	}
	return err
}

// Models returns the static model catalog.
func (b *Bridge) Models() *relaymodel.OpenAIModelList {
	created := helper.GetTimestamp()
	list := &relaymodel.OpenAIModelList{
		Object: "list",
		Data:   make([]relaymodel.OpenAIModel, 0, len(b.knownModels)),
	}
	for _, name := range b.knownModels {
		list.Data = append(list.Data, relaymodel.OpenAIModel{
			Id:      name,
			Object:  "model",
			Created: created,
			OwnedBy: b.appName,
		})
	}
	return list
}

// Conversations returns the number of cached conversation handles.
func (b *Bridge) Conversations() int {
	return b.cache.Len()
}
