package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/platefront/edge-gateway/internal/cloud"
	"github.com/platefront/edge-gateway/internal/infrastructure/config"
	"github.com/platefront/edge-gateway/internal/infrastructure/logging"
	"github.com/platefront/edge-gateway/internal/store"
)

// Terminal failure reasons recorded in logs, events, and telemetry.
const (
	ReasonUnknownCommandType = "unknown_command_type"
	ReasonInvalidPayload     = "invalid_payload"
	ReasonRetriesExhausted   = "retries_exhausted"
)

// Sync log statuses, one row appended per replay attempt.
const (
	attemptSuccess = "success"
	attemptError   = "error"
	attemptFailed  = "failed"
)

// CloudGateway is the slice of the cloud client the engine needs.
type CloudGateway interface {
	// CheckReachable gates a sync pass; false leaves every row untouched.
	CheckReachable(ctx context.Context) bool

	// Replay sends one command to the cloud.
	Replay(ctx context.Context, cmd *store.QueuedCommand) error
}

// StatusBroadcaster pushes queue counters to connected devices after a pass.
type StatusBroadcaster interface {
	BroadcastSyncStatus(stats store.QueueStats)
}

// EventPublisher mirrors queue lifecycle onto the local event bus.
type EventPublisher interface {
	PublishCommandQueued(requestID, commandType string)
	PublishSyncPass(synced, failed int)
	PublishCommandFailed(requestID, reason string)
}

// MetricsRecorder writes sync observability points.
type MetricsRecorder interface {
	RecordSyncPass(synced, failed int, duration time.Duration)
	RecordCommandFailure(commandType, reason string)
}

// EnqueueResult identifies a freshly queued command for the caller.
type EnqueueResult struct {
	CommandID int64  `json:"command_id"`
	RequestID string `json:"request_id"`
}

// PassResult aggregates one sync pass.
type PassResult struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// Deps carries the engine's collaborators. Store, Cloud, and Logger are
// required; Broadcaster, Events, and Metrics are optional hooks.
type Deps struct {
	Store       *store.Store
	Cloud       CloudGateway
	Config      config.SyncConfig
	Logger      *logging.Logger
	Broadcaster StatusBroadcaster
	Events      EventPublisher
	Metrics     MetricsRecorder
}

// Engine owns the command queue lifecycle: enqueue, periodic sync passes,
// retry and failure bookkeeping.
//
// Thread Safety: All methods are safe for concurrent use. At most one sync
// pass runs at a time; StartSync and StopSync must not be called
// concurrently with each other.
type Engine struct {
	store   *store.Store
	cloud   CloudGateway
	logger  *logging.Logger
	events  EventPublisher
	metrics MetricsRecorder

	broadcaster StatusBroadcaster

	interval   time.Duration
	maxRetries int
	batchSize  int

	// syncing is the single-flight guard for sync passes.
	syncing atomic.Bool

	mu      sync.Mutex
	done    chan struct{}
	wg      sync.WaitGroup
	started bool
}

// New creates a sync engine. It does not start the timer; call StartSync.
func New(deps Deps) (*Engine, error) {
	if deps.Store == nil {
		return nil, errors.New("queue: store is required")
	}
	if deps.Cloud == nil {
		return nil, errors.New("queue: cloud gateway is required")
	}
	if deps.Logger == nil {
		return nil, errors.New("queue: logger is required")
	}

	return &Engine{
		store:       deps.Store,
		cloud:       deps.Cloud,
		logger:      deps.Logger.With("component", "sync_engine"),
		events:      deps.Events,
		metrics:     deps.Metrics,
		broadcaster: deps.Broadcaster,
		interval:    deps.Config.GetInterval(),
		maxRetries:  deps.Config.MaxRetries,
		batchSize:   deps.Config.BatchSize,
	}, nil
}

// SetBroadcaster wires the device hub in after construction. The hub and
// the engine reference each other, so one of them has to be attached late.
// Must be called before StartSync.
func (e *Engine) SetBroadcaster(b StatusBroadcaster) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.broadcaster = b
}

// Enqueue persists a command with a fresh request ID and opportunistically
// kicks a sync pass in the background. The caller is never blocked on
// network I/O; the only I/O on this path is the local insert.
func (e *Engine) Enqueue(ctx context.Context, commandType string, payload json.RawMessage, deviceID *string) (EnqueueResult, error) {
	requestID := uuid.NewString()

	commandID, err := e.store.EnqueueCommand(ctx, requestID, commandType, payload, deviceID)
	if err != nil {
		return EnqueueResult{}, fmt.Errorf("enqueueing command: %w", err)
	}

	e.logger.Info("command queued",
		"command_id", commandID,
		"request_id", requestID,
		"type", commandType,
	)
	if e.events != nil {
		e.events.PublishCommandQueued(requestID, commandType)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.SyncToCloud(context.Background())
	}()

	return EnqueueResult{CommandID: commandID, RequestID: requestID}, nil
}

// StartSync begins the periodic sync loop and runs an immediate pass.
func (e *Engine) StartSync() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	e.done = make(chan struct{})

	e.wg.Add(1)
	go e.syncLoop(e.done)

	e.logger.Info("sync loop started", "interval", e.interval)
}

// StopSync stops the timer and waits for any in-flight pass to finish.
// A pass is never aborted mid-batch.
func (e *Engine) StopSync() {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	e.started = false
	close(e.done)
	e.mu.Unlock()

	e.wg.Wait()
	e.logger.Info("sync loop stopped")
}

// syncLoop runs an immediate pass then one per tick until done closes.
func (e *Engine) syncLoop(done chan struct{}) {
	defer e.wg.Done()

	e.SyncToCloud(context.Background())

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.SyncToCloud(context.Background())
		case <-done:
			return
		}
	}
}

// ForceSyncNow runs a pass immediately, subject to the same single-flight
// guard as the timer.
func (e *Engine) ForceSyncNow(ctx context.Context) PassResult {
	return e.SyncToCloud(ctx)
}

// SyncToCloud runs one sync pass:
//
//  1. If a pass is already in flight, return immediately as a no-op.
//  2. Probe reachability; if the cloud is down, touch nothing.
//  3. Fetch up to batchSize oldest PENDING commands.
//  4. Replay each strictly in creation order. Success marks SYNCED.
//     A permanent error marks FAILED at once. A transient error burns one
//     retry; the command goes FAILED once retry_count reaches the bound.
//  5. A failing command never halts the batch.
//
// Every attempt outcome lands in sync_log.
func (e *Engine) SyncToCloud(ctx context.Context) PassResult {
	if !e.syncing.CompareAndSwap(false, true) {
		e.logger.Debug("sync pass already in flight, skipping")
		return PassResult{}
	}
	defer e.syncing.Store(false)

	if !e.cloud.CheckReachable(ctx) {
		e.logger.Debug("cloud unreachable, deferring sync")
		return PassResult{}
	}

	commands, err := e.store.ListPendingCommands(ctx, e.batchSize)
	if err != nil {
		e.logger.Error("listing pending commands", "error", err)
		return PassResult{}
	}
	if len(commands) == 0 {
		return PassResult{}
	}

	start := time.Now()
	var result PassResult
	for i := range commands {
		if e.replayOne(ctx, &commands[i]) {
			result.Synced++
		} else {
			result.Failed++
		}
	}

	e.logger.Info("sync pass complete",
		"synced", result.Synced,
		"failed", result.Failed,
		"batch", len(commands),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	e.afterPass(ctx, result, time.Since(start))
	return result
}

// replayOne attempts one command and applies the status transition.
// Returns true when the command reached SYNCED.
func (e *Engine) replayOne(ctx context.Context, cmd *store.QueuedCommand) bool {
	err := e.cloud.Replay(ctx, cmd)
	if err == nil {
		if err := e.store.MarkCommandSynced(ctx, cmd.ID, time.Now()); err != nil {
			e.logger.Error("marking command synced", "command_id", cmd.ID, "error", err)
			return false
		}
		e.appendLog(ctx, cmd.ID, attemptSuccess, nil)
		return true
	}

	if cloud.IsPermanent(err) {
		reason := ReasonInvalidPayload
		if errors.Is(err, cloud.ErrUnknownCommandType) {
			reason = ReasonUnknownCommandType
		}
		e.failCommand(ctx, cmd, err, reason)
		return false
	}

	msg := err.Error()
	if err := e.store.IncrementRetryCount(ctx, cmd.ID, msg); err != nil {
		e.logger.Error("incrementing retry count", "command_id", cmd.ID, "error", err)
	}
	if cmd.RetryCount+1 >= e.maxRetries {
		e.failCommand(ctx, cmd, err, ReasonRetriesExhausted)
		return false
	}

	e.appendLog(ctx, cmd.ID, attemptError, &msg)
	e.logger.Warn("command replay failed, will retry",
		"command_id", cmd.ID,
		"retry_count", cmd.RetryCount+1,
		"error", err,
	)
	return false
}

// failCommand moves a command to terminal FAILED and records the reason.
// Unknown command types are logged at Error level; they signal a
// deployment or version mismatch, not a transient fault.
func (e *Engine) failCommand(ctx context.Context, cmd *store.QueuedCommand, cause error, reason string) {
	msg := cause.Error()
	if err := e.store.MarkCommandFailed(ctx, cmd.ID, msg); err != nil {
		e.logger.Error("marking command failed", "command_id", cmd.ID, "error", err)
		return
	}
	e.appendLog(ctx, cmd.ID, attemptFailed, &msg)

	level := slog.LevelWarn
	if reason == ReasonUnknownCommandType {
		level = slog.LevelError
	}
	e.logger.Log(ctx, level, "command failed permanently",
		"command_id", cmd.ID,
		"request_id", cmd.RequestID,
		"type", cmd.Type,
		"reason", reason,
		"error", cause,
	)

	if e.events != nil {
		e.events.PublishCommandFailed(cmd.RequestID, reason)
	}
	if e.metrics != nil {
		e.metrics.RecordCommandFailure(cmd.Type, reason)
	}
}

// afterPass fans the pass outcome out to the optional hooks.
func (e *Engine) afterPass(ctx context.Context, result PassResult, duration time.Duration) {
	if e.events != nil {
		e.events.PublishSyncPass(result.Synced, result.Failed)
	}
	if e.metrics != nil {
		e.metrics.RecordSyncPass(result.Synced, result.Failed, duration)
	}
	e.mu.Lock()
	broadcaster := e.broadcaster
	e.mu.Unlock()
	if broadcaster != nil {
		stats, err := e.store.CommandStats(ctx)
		if err != nil {
			e.logger.Error("reading queue stats", "error", err)
			return
		}
		broadcaster.BroadcastSyncStatus(stats)
	}
}

// appendLog records one attempt outcome; a logging failure never affects
// the command's own transition.
func (e *Engine) appendLog(ctx context.Context, commandID int64, status string, errorMessage *string) {
	if err := e.store.AppendSyncLog(ctx, commandID, status, errorMessage); err != nil {
		e.logger.Error("appending sync log", "command_id", commandID, "error", err)
	}
}

// Stats returns aggregate queue counts.
func (e *Engine) Stats(ctx context.Context) (store.QueueStats, error) {
	return e.store.CommandStats(ctx)
}
