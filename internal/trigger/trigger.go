package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/autofill-core/internal/audit"
	"github.com/nerrad567/autofill-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/autofill-core/internal/replay"
)

// commandQoS is the QoS used for the command subscription and acks.
const commandQoS = 1

const auditTimeout = 2 * time.Second

// Ack statuses.
const (
	AckAccepted = "accepted"
	AckRejected = "rejected"
)

// Ack error codes.
const (
	ErrCodeInvalidCommand = "invalid_command"
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeRunInProgress  = "run_in_progress"
	ErrCodeNoSteps        = "no_steps"
	ErrCodeInternal       = "internal_error"
)

// Broker is the subset of the MQTT client the listener uses.
type Broker interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	PublishJSON(topic string, v any, retained bool) error
}

// Runner starts replays in the background.
type Runner interface {
	Start(ctx context.Context, req replay.RunRequest) (*replay.RunResult, error)
}

// Logger defines the logging interface used by the Listener.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Command is the payload of a run command. An empty payload replays the
// website with no variables from its first step.
type Command struct {
	ID         string            `json:"id,omitempty"`
	OwnerID    string            `json:"owner_id,omitempty"`
	Variables  map[string]string `json:"variables,omitempty"`
	StartIndex int               `json:"start_index,omitempty"`
}

// Ack reports whether a run command started a run.
type Ack struct {
	CommandID string `json:"command_id,omitempty"`
	WebsiteID string `json:"website_id"`
	Status    string `json:"status"`
	RunID     string `json:"run_id,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Listener turns MQTT run commands into engine runs.
//
// Runs outlive the message that started them: they are bound to the
// context passed to Start and cancelled by Stop.
type Listener struct {
	broker Broker
	runner Runner
	audit  audit.Repository
	logger Logger
	now    func() time.Time

	mu      sync.Mutex
	runCtx  context.Context
	cancel  context.CancelFunc
	running bool
}

// New creates a listener. It does nothing until Start is called.
func New(broker Broker, runner Runner) *Listener {
	return &Listener{
		broker: broker,
		runner: runner,
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger.
func (l *Listener) SetLogger(logger Logger) {
	if logger != nil {
		l.logger = logger
	}
}

// SetAudit records accepted commands in the audit trail.
func (l *Listener) SetAudit(repo audit.Repository) {
	l.audit = repo
}

// Start subscribes to run commands for every website.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	topic := mqtt.Topics{}.AllRunCommands()
	if err := l.broker.Subscribe(topic, commandQoS, l.handleMessage); err != nil {
		cancel()
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}

	l.runCtx, l.cancel, l.running = runCtx, cancel, true
	l.logger.Info("run command listener started", "topic", topic)
	return nil
}

// Stop unsubscribes and cancels runs started by commands.
func (l *Listener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return nil
	}
	l.running = false
	l.cancel()

	if err := l.broker.Unsubscribe(mqtt.Topics{}.AllRunCommands()); err != nil {
		return fmt.Errorf("unsubscribing run commands: %w", err)
	}
	l.logger.Info("run command listener stopped")
	return nil
}

func (l *Listener) context() (context.Context, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.runCtx, l.running
}

// handleMessage starts a run for the website named in the topic and
// publishes an ack. Malformed commands are acked as rejected, never
// retried.
func (l *Listener) handleMessage(topic string, payload []byte) error {
	websiteID, ok := mqtt.Topics{}.ParseRunCommand(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	ctx, running := l.context()
	if !running {
		return nil
	}

	var cmd Command
	if len(strings.TrimSpace(string(payload))) > 0 {
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return l.reject(websiteID, cmd.ID, ErrCodeInvalidCommand, "invalid command payload: "+err.Error())
		}
	}

	l.logger.Info("run command received",
		"website_id", websiteID,
		"command_id", cmd.ID,
		"owner_id", cmd.OwnerID,
	)

	result, err := l.runner.Start(ctx, replay.RunRequest{
		WebsiteID:  websiteID,
		OwnerID:    cmd.OwnerID,
		Variables:  cmd.Variables,
		StartIndex: cmd.StartIndex,
	})
	if err != nil {
		return l.reject(websiteID, cmd.ID, errorCode(err), err.Error())
	}
	l.recordRun(ctx, cmd, result)

	return l.publishAck(Ack{
		CommandID: cmd.ID,
		WebsiteID: websiteID,
		Status:    AckAccepted,
		RunID:     result.ID,
	})
}

func (l *Listener) reject(websiteID, commandID, code, message string) error {
	l.logger.Warn("run command rejected",
		"website_id", websiteID,
		"command_id", commandID,
		"code", code,
		"reason", message,
	)
	return l.publishAck(Ack{
		CommandID: commandID,
		WebsiteID: websiteID,
		Status:    AckRejected,
		ErrorCode: code,
		Message:   message,
	})
}

func (l *Listener) publishAck(ack Ack) error {
	ack.Timestamp = l.now().UTC().Format(time.RFC3339)
	if err := l.broker.PublishJSON(mqtt.Topics{}.RunCommandAck(ack.WebsiteID), ack, false); err != nil {
		return fmt.Errorf("publishing run command ack: %w", err)
	}
	return nil
}

func (l *Listener) recordRun(ctx context.Context, cmd Command, run *replay.RunResult) {
	if l.audit == nil {
		return
	}
	details := map[string]any{"status": string(run.Status)}
	if cmd.ID != "" {
		details["command_id"] = cmd.ID
	}
	if cmd.OwnerID != "" {
		details["owner_id"] = cmd.OwnerID
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	err := l.audit.Record(ctx, &audit.Entry{
		Action:     audit.ActionRun,
		EntityType: audit.EntityRun,
		EntityID:   run.ID,
		WebsiteID:  run.WebsiteID,
		Source:     audit.SourceMQTT,
		Details:    details,
	})
	if err != nil {
		l.logger.Warn("audit write failed", "run_id", run.ID, "error", err)
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, replay.ErrInvalidRequest):
		return ErrCodeInvalidRequest
	case errors.Is(err, replay.ErrRunInProgress):
		return ErrCodeRunInProgress
	case errors.Is(err, replay.ErrNoSteps):
		return ErrCodeNoSteps
	default:
		return ErrCodeInternal
	}
}
