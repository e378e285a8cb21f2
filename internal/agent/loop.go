// Package agent implements the orchestration loop: the state machine
// that turns one user input into zero or more inference/tool
// round-trips and exactly one visible turn completion. A single
// coordination goroutine owns the conversation; inference and tool
// executions run on worker goroutines but are awaited sequentially, so
// history order on disk always matches turn order.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/amadeus-agent/amadeus/internal/conversation"
	"github.com/amadeus-agent/amadeus/internal/events"
	"github.com/amadeus-agent/amadeus/internal/llm"
	"github.com/amadeus-agent/amadeus/internal/tools"
	"github.com/amadeus-agent/amadeus/internal/transport"
)

// Defaults for optional loop settings.
const (
	DefaultHistoryLimit  = 50
	DefaultMaxIterations = 8
)

// Canned responses for states where the model never runs.
const (
	greetingMessage   = "System online. Waiting for input..."
	resetNotice       = "Conversation history cleared."
	unavailableNotice = "The inference engine is offline. I cannot respond right now."
	loopFallback      = "I stopped after too many consecutive tool calls. Tell me how you would like to continue."

	// Observation prefixes mark tool results fed back to the model.
	toolOutputPrefix = "Tool Output: "
	toolErrorPrefix  = "Tool Error: "
)

// Options configures a Loop.
type Options struct {
	Store     conversation.Store
	Engine    llm.Client
	Registry  *tools.Registry
	Transport *transport.Transport
	Bus       *events.Bus
	Logger    *slog.Logger

	// SystemPrompt seeds fresh conversations and replaces the stored
	// system message in the working history after restarts, so prompt
	// changes take effect without a reset.
	SystemPrompt string

	// HistoryLimit caps how many messages are sent to the model.
	HistoryLimit int
	// MaxIterations caps inference calls per turn.
	MaxIterations int
}

// Loop is the turn orchestrator. Run owns all conversation state;
// Ask and the transport feed it inputs.
type Loop struct {
	store    conversation.Store
	engine   llm.Client
	registry *tools.Registry
	tr       *transport.Transport
	bus      *events.Bus
	logger   *slog.Logger

	systemPrompt  string
	historyLimit  int
	maxIterations int

	// degraded is set when the engine reports itself unavailable.
	// Written from New and the Run goroutine, read concurrently by
	// Degraded callers (API handlers, MQTT state publisher).
	degraded atomic.Bool

	// needSeed is set when a reset cleared the store but re-seeding
	// the system message failed. The next append retries the seed
	// first so the persisted log always starts with it.
	needSeed bool

	// history mirrors the persisted conversation, windowed to
	// historyLimit with the system message pinned at the head.
	history []conversation.Message

	requests chan turnRequest
}

type turnRequest struct {
	text  string
	reply chan turnReply
}

type turnReply struct {
	content string
	err     error
}

// New creates the loop, seeds the conversation if the store is empty,
// and probes the inference engine. An unreachable engine does not fail
// construction; the loop starts in degraded mode instead.
func New(ctx context.Context, opts Options) (*Loop, error) {
	if opts.Store == nil {
		return nil, errors.New("agent: store is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("agent: inference engine is required")
	}
	if opts.SystemPrompt == "" {
		return nil, errors.New("agent: system prompt is required")
	}
	if opts.Registry == nil {
		opts.Registry = tools.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}

	l := &Loop{
		store:         opts.Store,
		engine:        opts.Engine,
		registry:      opts.Registry,
		tr:            opts.Transport,
		bus:           opts.Bus,
		logger:        opts.Logger,
		systemPrompt:  opts.SystemPrompt,
		historyLimit:  opts.HistoryLimit,
		maxIterations: opts.MaxIterations,
		requests:      make(chan turnRequest, 16),
	}

	if err := l.bootstrap(); err != nil {
		return nil, err
	}

	if err := l.engine.Ping(ctx); err != nil {
		l.logger.Warn("inference engine unreachable, starting degraded",
			"model", l.engine.Model(), "error", err)
		l.degraded.Store(true)
	}

	return l, nil
}

// bootstrap loads the working history from the store, seeding a fresh
// conversation with the system message when the store is empty.
func (l *Loop) bootstrap() error {
	count, err := l.store.Count()
	if err != nil {
		return fmt.Errorf("agent: read conversation: %w", err)
	}
	if count == 0 {
		if err := l.store.Append(conversation.Message{
			Role:    conversation.RoleSystem,
			Content: l.systemPrompt,
		}); err != nil {
			return fmt.Errorf("agent: seed conversation: %w", err)
		}
	}

	history, err := l.store.Recent(l.historyLimit)
	if err != nil {
		return fmt.Errorf("agent: load history: %w", err)
	}

	// Pin the current system prompt at the head of the working
	// history, whatever the recent window returned.
	l.history = append([]conversation.Message{{
		Role:    conversation.RoleSystem,
		Content: l.systemPrompt,
	}}, trimSystem(history)...)
	return nil
}

// trimSystem drops leading system messages from a loaded window.
func trimSystem(msgs []conversation.Message) []conversation.Message {
	for len(msgs) > 0 && msgs[0].Role == conversation.RoleSystem {
		msgs = msgs[1:]
	}
	return msgs
}

// Degraded reports whether the loop is in permanent degraded mode.
func (l *Loop) Degraded() bool {
	return l.degraded.Load()
}

// Greet emits the startup greeting to the transport. Not persisted.
func (l *Loop) Greet() {
	l.send(transport.Message(conversation.RoleAssistant, greetingMessage))
}

// Run consumes inputs until ctx is done. It is the only goroutine that
// mutates conversation state.
func (l *Loop) Run(ctx context.Context) error {
	var transportIn chan string
	if l.tr != nil {
		transportIn = l.tr.In
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-l.requests:
			l.handle(ctx, req)
		case text := <-transportIn:
			l.handle(ctx, turnRequest{text: text})
		}
	}
}

// Ask submits one input and waits for the turn to complete, returning
// the final assistant content. Used by the HTTP API; concurrent Ask
// calls queue and run strictly in order.
func (l *Loop) Ask(ctx context.Context, text string) (string, error) {
	req := turnRequest{text: text, reply: make(chan turnReply, 1)}
	select {
	case l.requests <- req:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case r := <-req.reply:
		return r.content, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (l *Loop) handle(ctx context.Context, req turnRequest) {
	content, err := l.turn(ctx, strings.TrimSpace(req.text))
	if req.reply != nil {
		req.reply <- turnReply{content: content, err: err}
	}
}

// turn runs the full state machine for one input.
func (l *Loop) turn(ctx context.Context, input string) (string, error) {
	if input == "" {
		return "", nil
	}
	if input == transport.ResetSentinel {
		return l.reset()
	}
	if l.degraded.Load() {
		l.send(transport.Message(conversation.RoleAssistant, unavailableNotice))
		return unavailableNotice, nil
	}

	turnID := uuid.NewString()
	started := time.Now()
	l.publish(events.KindTurnStart, map[string]any{
		"turn_id": turnID, "input_len": len(input),
	})

	if err := l.append(conversation.Message{Role: conversation.RoleUser, Content: input}); err != nil {
		return l.abort(turnID, started, 0, err)
	}
	l.send(transport.Status("Thinking...", true))

	for iter := 1; iter <= l.maxIterations; iter++ {
		l.publish(events.KindLLMCall, map[string]any{
			"turn_id": turnID, "iter": iter, "model": l.engine.Model(),
		})

		response, err := l.generate(ctx)
		if err != nil {
			if errors.Is(err, llm.ErrUnavailable) {
				l.logger.Error("inference engine lost, degrading permanently", "error", err)
				l.degraded.Store(true)
				l.send(transport.Status("", false))
				l.send(transport.Message(conversation.RoleAssistant, unavailableNotice))
				return unavailableNotice, nil
			}
			return l.abort(turnID, started, iter, fmt.Errorf("inference failed: %w", err))
		}

		call, isCall := ParseToolCall(response)
		l.publish(events.KindLLMResponse, map[string]any{
			"turn_id": turnID, "iter": iter, "model": l.engine.Model(),
			"response_len": len(response), "tool_call": isCall,
		})

		if err := l.append(conversation.Message{Role: conversation.RoleAssistant, Content: response}); err != nil {
			return l.abort(turnID, started, iter, err)
		}

		if !isCall {
			l.send(transport.Message(conversation.RoleAssistant, response))
			l.send(transport.Status("", false))
			l.publish(events.KindTurnComplete, map[string]any{
				"turn_id": turnID, "iterations": iter,
				"elapsed_ms": time.Since(started).Milliseconds(), "aborted": false,
			})
			return response, nil
		}

		if err := l.runTool(ctx, turnID, call); err != nil {
			return l.abort(turnID, started, iter, err)
		}
		l.send(transport.Status("Thinking...", true))
	}

	// The model produced nothing but tool calls for a full turn.
	if err := l.append(conversation.Message{Role: conversation.RoleAssistant, Content: loopFallback}); err != nil {
		return l.abort(turnID, started, l.maxIterations, err)
	}
	l.send(transport.Message(conversation.RoleAssistant, loopFallback))
	l.send(transport.Status("", false))
	l.publish(events.KindTurnComplete, map[string]any{
		"turn_id": turnID, "iterations": l.maxIterations,
		"elapsed_ms": time.Since(started).Milliseconds(), "aborted": true,
	})
	return loopFallback, nil
}

// reset clears the conversation and re-seeds the system message. The
// notice it emits is not persisted.
func (l *Loop) reset() (string, error) {
	if err := l.store.Clear(); err != nil {
		err = fmt.Errorf("agent: clear conversation: %w", err)
		l.send(transport.Message(conversation.RoleAssistant, fmt.Sprintf("Something went wrong: %v", err)))
		return "", err
	}
	// The store is empty now, so the mirror must be rebuilt whether or
	// not the seed write below succeeds.
	seed := conversation.Message{Role: conversation.RoleSystem, Content: l.systemPrompt}
	l.history = []conversation.Message{seed}
	if err := l.store.Append(seed); err != nil {
		l.needSeed = true
		err = fmt.Errorf("agent: seed conversation: %w", err)
		l.send(transport.Message(conversation.RoleAssistant, fmt.Sprintf("Something went wrong: %v", err)))
		return "", err
	}
	l.needSeed = false

	l.send(transport.Message(conversation.RoleAssistant, resetNotice))
	l.publish(events.KindReset, nil)
	l.logger.Info("conversation reset")
	return resetNotice, nil
}

// runTool executes one tool call and appends the observation. Tool
// failures, including unknown tool names, are recovered locally as
// error observations so the model can adapt on the next iteration.
func (l *Loop) runTool(ctx context.Context, turnID string, call *ToolCall) error {
	l.send(transport.Status(fmt.Sprintf("Running %s...", call.Name), true))
	l.publish(events.KindToolCall, map[string]any{"turn_id": turnID, "tool": call.Name})

	started := time.Now()
	out, err := l.execute(ctx, call)
	l.publish(events.KindToolDone, map[string]any{
		"turn_id": turnID, "tool": call.Name, "ok": err == nil,
		"duration_ms": time.Since(started).Milliseconds(),
	})

	observation := toolOutputPrefix + out
	if err != nil {
		observation = toolErrorPrefix + err.Error()
		l.logger.Warn("tool failed", "tool", call.Name, "error", err)
	} else {
		l.logger.Debug("tool succeeded", "tool", call.Name, "output_len", len(out))
	}
	return l.append(conversation.Message{Role: conversation.RoleUser, Content: observation})
}

// generate invokes the engine on a worker goroutine and awaits the
// result, keeping the coordination goroutine responsive to ctx.
func (l *Loop) generate(ctx context.Context) (string, error) {
	msgs := make([]llm.Message, len(l.history))
	for i, m := range l.history {
		msgs[i] = llm.Message{Role: m.Role, Content: m.Content}
	}

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := l.engine.Generate(ctx, msgs)
		ch <- result{text, err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.text, r.err
	}
}

// execute dispatches a tool call on a worker goroutine.
func (l *Loop) execute(ctx context.Context, call *ToolCall) (string, error) {
	type result struct {
		out string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		out, err := l.registry.Execute(ctx, call.Name, call.Args)
		ch <- result{out, err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.out, r.err
	}
}

// append persists a message and mirrors it into the working history.
// The store write must succeed before the message becomes visible
// anywhere else.
func (l *Loop) append(msg conversation.Message) error {
	if l.needSeed {
		if err := l.store.Append(l.history[0]); err != nil {
			return fmt.Errorf("agent: seed conversation: %w", err)
		}
		l.needSeed = false
	}
	if err := l.store.Append(msg); err != nil {
		return fmt.Errorf("agent: persist %s message: %w", msg.Role, err)
	}
	l.history = append(l.history, msg)
	// Window the history, keeping the system message pinned.
	if len(l.history) > l.historyLimit {
		overflow := len(l.history) - l.historyLimit
		l.history = append(l.history[:1], l.history[1+overflow:]...)
	}
	return nil
}

// abort ends the turn on a storage or generation fault. The fault is
// reported to the transport; subsequent turns proceed normally.
func (l *Loop) abort(turnID string, started time.Time, iterations int, err error) (string, error) {
	l.logger.Error("turn aborted", "turn_id", turnID, "error", err)
	l.send(transport.Status("", false))
	l.send(transport.Message(conversation.RoleAssistant, fmt.Sprintf("Something went wrong: %v", err)))
	l.publish(events.KindTurnComplete, map[string]any{
		"turn_id": turnID, "iterations": iterations,
		"elapsed_ms": time.Since(started).Milliseconds(), "aborted": true,
	})
	return "", err
}

func (l *Loop) send(e transport.Event) {
	l.tr.Send(e)
}

func (l *Loop) publish(kind string, data map[string]any) {
	l.bus.Publish(events.Event{Source: events.SourceAgent, Kind: kind, Data: data})
}
