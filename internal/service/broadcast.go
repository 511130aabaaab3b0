package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/beaconhq/beacon/internal/config"
	"github.com/beaconhq/beacon/internal/models"
	"github.com/beaconhq/beacon/internal/platform"
)

// BroadcastStore is the slice of the store the dispatcher uses.
type BroadcastStore interface {
	CreateBroadcast(ctx context.Context, broadcast *models.Broadcast) error
	FinalizeBroadcast(ctx context.Context, id uint, status string, successful, failed int) error
}

// ValidationError rejects a dispatch request before any send work begins.
type ValidationError struct {
	Message string
	Invalid []InvalidRecipient
}

func (e *ValidationError) Error() string { return e.Message }

// DispatchRequest is the inbound surface of the dispatcher. Recipient
// sources (file upload, manual entries) arrive as separate slices and are
// merged and deduplicated before validation.
type DispatchRequest struct {
	Name      string
	CreatedBy uint
	Sources   [][]string
	Template  *platform.TemplateMessage
	Media     *platform.MediaMessage
	Body      string
}

// DispatchResult is returned synchronously, before fan-out runs.
type DispatchResult struct {
	BroadcastID     string             `json:"broadcast_id"`
	TotalRecipients int                `json:"total_recipients"`
	ValidCount      int                `json:"valid_count"`
	Invalid         []InvalidRecipient `json:"invalid"`
}

// Handle tracks one detached fan-out. Done is closed when the final
// counters have been written, which also gives a future cancellation
// feature something to hold on to.
type Handle struct {
	BroadcastID string
	done        chan struct{}
}

func (h *Handle) Done() <-chan struct{} { return h.done }

// Dispatcher validates and persists a broadcast synchronously, then fans
// out sends in a detached task. Fan-outs are sequential per broadcast and
// bounded across broadcasts by a semaphore.
type Dispatcher struct {
	logger    *zap.Logger
	store     BroadcastStore
	resolver  CredentialSource
	messages  platform.MessageAdapter
	sendDelay time.Duration
	sem       chan struct{}
	wg        sync.WaitGroup
}

func NewDispatcher(cfg *config.BroadcastConfig, logger *zap.Logger, store BroadcastStore, resolver CredentialSource, messages platform.MessageAdapter) (*Dispatcher, error) {
	delay, err := time.ParseDuration(cfg.SendDelay)
	if err != nil {
		return nil, fmt.Errorf("invalid send delay: %w", err)
	}
	if cfg.MaxConcurrent < 1 {
		return nil, fmt.Errorf("max_concurrent must be at least 1")
	}

	return &Dispatcher{
		logger:    logger,
		store:     store,
		resolver:  resolver,
		messages:  messages,
		sendDelay: delay,
		sem:       make(chan struct{}, cfg.MaxConcurrent),
	}, nil
}

// Dispatch merges and validates recipients, persists the QUEUED broadcast
// row, and starts the detached fan-out. The returned result reflects only
// the synchronous validation stage.
func (d *Dispatcher) Dispatch(ctx context.Context, req DispatchRequest) (*DispatchResult, *Handle, error) {
	merged := MergeRecipients(req.Sources...)
	valid, invalid := PartitionRecipients(merged)

	if len(valid) == 0 {
		return nil, nil, &ValidationError{
			Message: "no valid recipients",
			Invalid: invalid,
		}
	}

	// The payload variant is chosen once per broadcast, not per recipient.
	payload, err := platform.NewMessagePayload(req.Template, req.Media, req.Body)
	if err != nil {
		return nil, nil, &ValidationError{Message: err.Error()}
	}

	broadcast := &models.Broadcast{
		PublicID:        uuid.NewString(),
		Name:            req.Name,
		Status:          models.BroadcastStatusQueued,
		TotalRecipients: len(valid),
		CreatedBy:       req.CreatedBy,
	}
	if err := d.store.CreateBroadcast(ctx, broadcast); err != nil {
		return nil, nil, err
	}

	handle := &Handle{
		BroadcastID: broadcast.PublicID,
		done:        make(chan struct{}),
	}

	// Fan-out must outlive the request that triggered it.
	fanoutCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go d.fanOut(fanoutCtx, broadcast, valid, payload, handle)

	return &DispatchResult{
		BroadcastID:     broadcast.PublicID,
		TotalRecipients: len(valid),
		ValidCount:      len(valid),
		Invalid:         invalid,
	}, handle, nil
}

// Wait blocks until every in-flight fan-out has finalized its broadcast.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) fanOut(ctx context.Context, broadcast *models.Broadcast, recipients []string, payload platform.MessagePayload, handle *Handle) {
	defer d.wg.Done()
	defer close(handle.done)

	d.sem <- struct{}{}
	defer func() { <-d.sem }()

	start := time.Now()
	successful, failed := 0, 0

	cred, err := d.resolver.Resolve(ctx, broadcast.CreatedBy)
	if err != nil {
		d.logger.Warn("Broadcast fan-out aborted, no usable credential",
			zap.String("broadcast_id", broadcast.PublicID),
			zap.Error(err))
		failed = len(recipients)
		d.finalize(broadcast, successful, failed)
		return
	}

	// Burst 1 keeps a fixed inter-send gap, staying under the platform's
	// messages-per-second ceiling.
	limiter := rate.NewLimiter(rate.Every(d.sendDelay), 1)

	for _, recipient := range recipients {
		if err := limiter.Wait(ctx); err != nil {
			failed = len(recipients) - successful
			break
		}

		if _, err := d.messages.SendMessage(ctx, recipient, cred, payload); err != nil {
			d.logger.Warn("Broadcast send failed",
				zap.String("broadcast_id", broadcast.PublicID),
				zap.String("recipient", recipient),
				zap.Error(err))
			failed++
			continue
		}
		successful++
	}

	d.finalize(broadcast, successful, failed)

	d.logger.Info("Broadcast fan-out finished",
		zap.String("broadcast_id", broadcast.PublicID),
		zap.Int("successful", successful),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)))
}

func (d *Dispatcher) finalize(broadcast *models.Broadcast, successful, failed int) {
	status := DeriveBroadcastStatus(successful, failed)

	// Finalization must land even when the server is shutting down.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := d.store.FinalizeBroadcast(ctx, broadcast.ID, status, successful, failed); err != nil {
		d.logger.Error("Failed to finalize broadcast",
			zap.String("broadcast_id", broadcast.PublicID),
			zap.Error(err))
	}
}

// DeriveBroadcastStatus maps final counters to the terminal status:
// COMPLETED with no failures, FAILED with no successes, PARTIAL otherwise.
func DeriveBroadcastStatus(successful, failed int) string {
	switch {
	case failed == 0:
		return models.BroadcastStatusCompleted
	case successful == 0:
		return models.BroadcastStatusFailed
	default:
		return models.BroadcastStatusPartial
	}
}
