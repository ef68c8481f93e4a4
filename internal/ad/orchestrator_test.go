package ad

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeService struct {
	mu         sync.Mutex
	imageURL   string
	imageErr   error
	copy       Copy
	copyErr    error
	imageCalls []string
	copyCalls  []string
	ratios     []AspectRatio
	block      chan struct{}
	started    chan struct{}
}

func (f *fakeService) SynthesizeImage(ctx context.Context, prompt string, ratio AspectRatio) (string, error) {
	f.mu.Lock()
	f.imageCalls = append(f.imageCalls, prompt)
	f.ratios = append(f.ratios, ratio)
	block, started := f.block, f.started
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if block != nil {
		<-block
	}
	return f.imageURL, f.imageErr
}

func (f *fakeService) SynthesizeCopy(ctx context.Context, prompt string) (Copy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copyCalls = append(f.copyCalls, prompt)
	return f.copy, f.copyErr
}

var sneakerCopy = Copy{
	Headline:     "Step Up",
	Tagline:      "Walk Bold",
	Body:         "Premium comfort meets street style.",
	CallToAction: "Shop Now",
}

func recordStatuses(o *Orchestrator) *[]Status {
	var statuses []Status
	o.Subscribe(func(ev Event) { statuses = append(statuses, ev.Status) })
	return &statuses
}

func TestSubmitSuccess(t *testing.T) {
	svc := &fakeService{imageURL: "data:image/png;base64,Zm9v", copy: sneakerCopy}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	o := NewOrchestrator(OrchestratorOptions{Service: svc, Now: func() time.Time { return fixed }})
	statuses := recordStatuses(o)

	if got := o.Snapshot().Status; got != StatusIdle {
		t.Fatalf("initial status = %q, want idle", got)
	}

	result, err := o.Submit(context.Background(), "  red sneaker on marble floor  ", AspectLandscape)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	want := []Status{StatusGeneratingImage, StatusGeneratingCopy, StatusSuccess}
	if len(*statuses) != len(want) {
		t.Fatalf("transitions = %v, want %v", *statuses, want)
	}
	for i := range want {
		if (*statuses)[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", *statuses, want)
		}
	}

	if result.ImageURL != "data:image/png;base64,Zm9v" {
		t.Errorf("ImageURL = %q", result.ImageURL)
	}
	if result.Copy.Headline != "Step Up" {
		t.Errorf("Headline = %q", result.Copy.Headline)
	}
	if result.AspectRatio != AspectLandscape {
		t.Errorf("AspectRatio = %q", result.AspectRatio)
	}
	if result.Prompt != "red sneaker on marble floor" {
		t.Errorf("Prompt = %q, want trimmed input", result.Prompt)
	}
	if !result.Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v, want %v", result.Timestamp, fixed)
	}
	if result.ID == "" {
		t.Error("ID is empty")
	}

	snap := o.Snapshot()
	if snap.Status != StatusSuccess || snap.Result == nil || snap.Result.ID != result.ID {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Message != "" {
		t.Errorf("Message = %q, want empty", snap.Message)
	}
	if svc.ratios[0] != AspectLandscape {
		t.Errorf("image ratio = %q", svc.ratios[0])
	}
	if svc.imageCalls[0] != "red sneaker on marble floor" || svc.copyCalls[0] != "red sneaker on marble floor" {
		t.Errorf("service prompts = %q / %q", svc.imageCalls, svc.copyCalls)
	}
}

func TestSubmitEmptyPrompt(t *testing.T) {
	for _, prompt := range []string{"", "   ", "\n\t"} {
		svc := &fakeService{imageURL: "data:image/png;base64,Zm9v", copy: sneakerCopy}
		o := NewOrchestrator(OrchestratorOptions{Service: svc})
		statuses := recordStatuses(o)

		_, err := o.Submit(context.Background(), prompt, AspectSquare)
		if !errors.Is(err, ErrEmptyPrompt) {
			t.Fatalf("Submit(%q) err = %v, want ErrEmptyPrompt", prompt, err)
		}
		if len(*statuses) != 0 {
			t.Errorf("Submit(%q) emitted %v", prompt, *statuses)
		}
		if snap := o.Snapshot(); snap.Status != StatusIdle || snap.Result != nil {
			t.Errorf("Submit(%q) changed state: %+v", prompt, snap)
		}
		if len(svc.imageCalls) != 0 {
			t.Errorf("Submit(%q) called the service", prompt)
		}
	}
}

func TestSubmitEmptyPromptKeepsPreviousResult(t *testing.T) {
	svc := &fakeService{imageURL: "data:image/png;base64,Zm9v", copy: sneakerCopy}
	o := NewOrchestrator(OrchestratorOptions{Service: svc})

	first, err := o.Submit(context.Background(), "coffee", AspectSquare)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := o.Submit(context.Background(), " ", AspectSquare); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("err = %v", err)
	}

	snap := o.Snapshot()
	if snap.Status != StatusSuccess || snap.Result == nil || snap.Result.ID != first.ID {
		t.Fatalf("snapshot = %+v, want previous success kept", snap)
	}
}

func TestSubmitImageFailure(t *testing.T) {
	cause := errors.New("quota exceeded")
	svc := &fakeService{
		imageErr: &Error{Kind: KindImage, Message: MessageImage, Err: cause},
		copy:     sneakerCopy,
	}
	o := NewOrchestrator(OrchestratorOptions{Service: svc})
	statuses := recordStatuses(o)

	_, err := o.Submit(context.Background(), "red sneaker", AspectSquare)
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v, want wrapped cause", err)
	}
	if len(svc.copyCalls) != 0 {
		t.Fatal("copy generation ran after image failure")
	}

	snap := o.Snapshot()
	if snap.Status != StatusError {
		t.Errorf("status = %q, want error", snap.Status)
	}
	if snap.Message != MessageImage {
		t.Errorf("message = %q, want %q", snap.Message, MessageImage)
	}
	if snap.Result != nil {
		t.Error("result exists after failure")
	}
	if got := *statuses; len(got) != 2 || got[0] != StatusGeneratingImage || got[1] != StatusError {
		t.Errorf("transitions = %v", got)
	}
}

func TestSubmitCopyFailure(t *testing.T) {
	svc := &fakeService{
		imageURL: "data:image/png;base64,Zm9v",
		copyErr:  &Error{Kind: KindCopy, Message: MessageCopy, Err: errors.New("bad json")},
	}
	o := NewOrchestrator(OrchestratorOptions{Service: svc})

	_, err := o.Submit(context.Background(), "red sneaker", AspectPortrait)
	if !IsKind(err, KindCopy) {
		t.Fatalf("err = %v, want copy error", err)
	}

	snap := o.Snapshot()
	if snap.Status != StatusError || snap.Message != MessageCopy || snap.Result != nil {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestSubmitUnknownErrorUsesFallback(t *testing.T) {
	svc := &fakeService{imageErr: errors.New("dial tcp: connection refused")}
	o := NewOrchestrator(OrchestratorOptions{Service: svc})

	_, _ = o.Submit(context.Background(), "anything", AspectSquare)

	if got := o.Snapshot().Message; got != MessageUnexpected {
		t.Errorf("message = %q, want %q", got, MessageUnexpected)
	}
}

func TestSubmitClearsPreviousState(t *testing.T) {
	svc := &fakeService{imageErr: &Error{Kind: KindImage, Message: MessageImage}}
	o := NewOrchestrator(OrchestratorOptions{Service: svc})
	_, _ = o.Submit(context.Background(), "first", AspectSquare)

	svc.imageErr = nil
	svc.imageURL = "data:image/png;base64,Zm9v"
	svc.copy = sneakerCopy

	var first Event
	seen := false
	o.Subscribe(func(ev Event) {
		if !seen {
			first, seen = ev, true
		}
	})

	if _, err := o.Submit(context.Background(), "second", AspectSquare); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if first.Status != StatusGeneratingImage || first.Message != "" || first.Result != nil {
		t.Errorf("first event = %+v, want cleared generating_image", first)
	}
}

func TestSubmitUniqueIDs(t *testing.T) {
	svc := &fakeService{imageURL: "data:image/png;base64,Zm9v", copy: sneakerCopy}
	o := NewOrchestrator(OrchestratorOptions{Service: svc})

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		result, err := o.Submit(context.Background(), "prompt", AspectSquare)
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if seen[result.ID] {
			t.Fatalf("duplicate id %q", result.ID)
		}
		seen[result.ID] = true
	}
}

func TestSubmitRejectsReentry(t *testing.T) {
	svc := &fakeService{
		imageURL: "data:image/png;base64,Zm9v",
		copy:     sneakerCopy,
		block:    make(chan struct{}),
		started:  make(chan struct{}),
	}
	o := NewOrchestrator(OrchestratorOptions{Service: svc})

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background(), "first", AspectSquare)
		done <- err
	}()
	<-svc.started

	if _, err := o.Submit(context.Background(), "second", AspectSquare); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Submit err = %v, want ErrBusy", err)
	}
	if got := o.Snapshot().Status; got != StatusGeneratingImage {
		t.Errorf("status = %q while first is in flight", got)
	}

	close(svc.block)
	if err := <-done; err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	svc.mu.Lock()
	svc.block, svc.started = nil, nil
	svc.mu.Unlock()
	if _, err := o.Submit(context.Background(), "third", AspectSquare); err != nil {
		t.Fatalf("Submit after completion: %v", err)
	}
}

func TestRunProgressAndUnsubscribe(t *testing.T) {
	svc := &fakeService{imageURL: "data:image/png;base64,Zm9v", copy: sneakerCopy}
	o := NewOrchestrator(OrchestratorOptions{Service: svc})

	observed := 0
	unsubscribe := o.Subscribe(func(Event) { observed++ })
	unsubscribe()

	var progress []Status
	result, err := o.Run(context.Background(), "tea", AspectSquare, func(ev Event) {
		progress = append(progress, ev.Status)
		if ev.Status == StatusSuccess && (ev.Result == nil || ev.Result.Prompt != "tea") {
			t.Errorf("success event result = %+v", ev.Result)
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(progress) != 3 {
		t.Errorf("progress = %v", progress)
	}
	if observed != 0 {
		t.Errorf("unsubscribed observer saw %d events", observed)
	}
	if result.Prompt != "tea" {
		t.Errorf("Prompt = %q", result.Prompt)
	}
}
