package ad

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Service is the remote capability the orchestrator sequences.
type Service interface {
	SynthesizeImage(ctx context.Context, prompt string, ratio AspectRatio) (string, error)
	SynthesizeCopy(ctx context.Context, prompt string) (Copy, error)
}

type Event struct {
	Status  Status  `json:"status"`
	Message string  `json:"message,omitempty"`
	Result  *Result `json:"result,omitempty"`
}

type Snapshot struct {
	Status  Status
	Message string
	Result  *Result
}

type OrchestratorOptions struct {
	Service Service
	Logger  *slog.Logger
	Now     func() time.Time
	NewID   func() string
}

// Orchestrator runs the image-then-copy pipeline for one user and tracks its status.
// At most one submission runs at a time; a second Submit while busy returns ErrBusy.
type Orchestrator struct {
	service Service
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string

	mu        sync.Mutex
	status    Status
	message   string
	result    *Result
	busy      bool
	observers map[int]func(Event)
	nextObs   int
}

func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}

	return &Orchestrator{
		service:   opts.Service,
		logger:    logger,
		now:       now,
		newID:     newID,
		status:    StatusIdle,
		observers: make(map[int]func(Event)),
	}
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Subscribe registers fn for every status transition. The returned func removes it.
func (o *Orchestrator) Subscribe(fn func(Event)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextObs
	o.nextObs++
	o.observers[id] = fn

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.observers, id)
	}
}

func (o *Orchestrator) Submit(ctx context.Context, prompt string, ratio AspectRatio) (Result, error) {
	return o.Run(ctx, prompt, ratio, nil)
}

// Run is Submit with a progress callback that only sees this submission's transitions.
func (o *Orchestrator) Run(ctx context.Context, prompt string, ratio AspectRatio, progress func(Event)) (Result, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Result{}, ErrEmptyPrompt
	}
	if !ratio.Valid() {
		ratio = AspectSquare
	}

	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return Result{}, ErrBusy
	}
	o.busy = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.busy = false
		o.mu.Unlock()
	}()

	o.transition(progress, StatusGeneratingImage, "", nil)

	imageURL, err := o.service.SynthesizeImage(ctx, prompt, ratio)
	if err != nil {
		return Result{}, o.fail(progress, "image", err)
	}

	o.transition(progress, StatusGeneratingCopy, "", nil)

	adCopy, err := o.service.SynthesizeCopy(ctx, prompt)
	if err != nil {
		return Result{}, o.fail(progress, "copy", err)
	}

	result := Result{
		ID:          o.newID(),
		Prompt:      prompt,
		ImageURL:    imageURL,
		Copy:        adCopy,
		Timestamp:   o.now(),
		AspectRatio: ratio,
	}
	o.transition(progress, StatusSuccess, "", &result)
	o.logger.Info("ad generated", "id", result.ID, "aspect_ratio", string(ratio))

	return result, nil
}

func (o *Orchestrator) fail(progress func(Event), stage string, err error) error {
	message := UserMessage(err)
	o.logger.Error("ad generation failed", "stage", stage, "err", err)
	o.transition(progress, StatusError, message, nil)
	return err
}

func (o *Orchestrator) transition(progress func(Event), status Status, message string, result *Result) {
	o.mu.Lock()
	o.status = status
	o.message = message
	o.result = result
	event := Event{Status: status, Message: message, Result: cloneResult(result)}
	observers := make([]func(Event), 0, len(o.observers))
	for _, fn := range o.observers {
		observers = append(observers, fn)
	}
	o.mu.Unlock()

	if progress != nil {
		progress(event)
	}
	for _, fn := range observers {
		fn(event)
	}
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	return Snapshot{
		Status:  o.status,
		Message: o.message,
		Result:  cloneResult(o.result),
	}
}

func cloneResult(r *Result) *Result {
	if r == nil {
		return nil
	}
	out := *r
	return &out
}
