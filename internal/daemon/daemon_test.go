package daemon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chaz8081/speakd/internal/audio"
	"github.com/chaz8081/speakd/internal/hotkey"
	"github.com/chaz8081/speakd/internal/recording"
)

const (
	keyR       = 19
	keyT       = 20
	sampleRate = 16000
)

var testBindings = hotkey.Bindings{Modifier: hotkey.MaskAlt, PushToTalk: keyR, Toggle: keyT}

// fakeHook lets the test play the OS: raw events sent on in are handed to
// the router from Run's goroutine.
type fakeHook struct {
	in         chan hotkey.RawEvent
	installErr error
	enableErr  error

	mu       sync.Mutex
	enables  int
	verdicts []hotkey.Verdict
}

func newFakeHook() *fakeHook {
	return &fakeHook{in: make(chan hotkey.RawEvent)}
}

func (h *fakeHook) Install() error { return h.installErr }

func (h *fakeHook) Enable() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enables++
	return h.enableErr
}

func (h *fakeHook) Run(ctx context.Context, handle func(hotkey.RawEvent) hotkey.Verdict) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case raw := <-h.in:
			v := handle(raw)
			h.mu.Lock()
			h.verdicts = append(h.verdicts, v)
			h.mu.Unlock()
		}
	}
}

func (h *fakeHook) send(t *testing.T, raw hotkey.RawEvent) {
	t.Helper()
	select {
	case h.in <- raw:
	case <-time.After(2 * time.Second):
		t.Fatal("hook not running")
	}
}

func chord(key uint16, edge hotkey.Edge) hotkey.RawEvent {
	return hotkey.RawEvent{Kind: hotkey.RawKey, Key: key, Mask: hotkey.MaskAltL, Edge: edge}
}

type fakeDevice struct {
	mu       sync.Mutex
	onFrames audio.FrameFunc
	starts   int
	stops    int
}

func (d *fakeDevice) Start(onFrames audio.FrameFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onFrames = onFrames
	d.starts++
	return nil
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onFrames = nil
	d.stops++
	return nil
}

func (d *fakeDevice) counts() (starts, stops int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.starts, d.stops
}

// feed delivers n samples of v in 10ms chunks, as a capture device would.
func (d *fakeDevice) feed(n int, v float32) {
	const chunk = sampleRate / 100
	for n > 0 {
		size := min(chunk, n)
		frames := make([]float32, size)
		for i := range frames {
			frames[i] = v
		}
		d.mu.Lock()
		fn := d.onFrames
		d.mu.Unlock()
		if fn != nil {
			fn(frames)
		}
		n -= size
	}
}

type fakeModel struct {
	text    string
	loadErr error
	closed  bool

	mu    sync.Mutex
	clips []audio.Clip
}

func (m *fakeModel) Name() string { return "fake" }

func (m *fakeModel) Load(context.Context) error { return m.loadErr }

func (m *fakeModel) Transcribe(_ context.Context, clip audio.Clip, _ string) (string, error) {
	if clip.ID == "warmup" {
		return "", nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clips = append(m.clips, clip)
	return m.text, nil
}

func (m *fakeModel) Close() error {
	m.closed = true
	return nil
}

func (m *fakeModel) transcribed() []audio.Clip {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audio.Clip(nil), m.clips...)
}

type fakeInjector struct {
	texts chan string
}

func (f *fakeInjector) Inject(text string) error {
	f.texts <- text
	return nil
}

type harness struct {
	hook   *fakeHook
	device *fakeDevice
	model  *fakeModel
	inject *fakeInjector
	d      *Daemon
	cancel context.CancelFunc
	done   chan error
}

func startDaemon(t *testing.T, model *fakeModel) *harness {
	t.Helper()
	h := &harness{
		hook:   newFakeHook(),
		device: &fakeDevice{},
		model:  model,
		inject: &fakeInjector{texts: make(chan string, 8)},
		done:   make(chan error, 1),
	}
	h.d = New(Deps{
		Hook:     h.hook,
		Device:   h.device,
		Model:    h.model,
		Injector: h.inject,
	}, Options{
		Bindings:    testBindings,
		HotkeyQueue: 16,
		SampleRate:  sampleRate,
		MinDuration: 300 * time.Millisecond,
		Language:    "en",
		Workers:     1,
		QueueSize:   8,
		Warmup:      true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			t.Error("daemon did not stop")
		}
	})
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-time.After(time.Millisecond):
		}
	}
}

func (h *harness) expectText(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-h.inject.texts:
		if got != want {
			t.Errorf("injected %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func (h *harness) expectNoText(t *testing.T) {
	t.Helper()
	select {
	case got := <-h.inject.texts:
		t.Fatalf("unexpected injection %q", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPushToTalkEndToEnd(t *testing.T) {
	h := startDaemon(t, &fakeModel{text: "hello world"})
	waitFor(t, "model ready", h.d.Gate().Ready)

	h.hook.send(t, chord(keyR, hotkey.Press))
	waitFor(t, "capture start", func() bool { s, _ := h.device.counts(); return s == 1 })

	h.device.feed(sampleRate, 0.25)
	h.hook.send(t, chord(keyR, hotkey.Release))

	h.expectText(t, "hello world")
	h.expectNoText(t)

	clips := h.model.transcribed()
	if len(clips) != 1 {
		t.Fatalf("model saw %d clips, want 1", len(clips))
	}
	if got := clips[0].Duration(); got != time.Second {
		t.Errorf("clip duration = %v, want 1s", got)
	}
	if h.d.State() != recording.Idle {
		t.Errorf("State() = %v, want Idle", h.d.State())
	}
}

func TestToggleEndToEndStartsFreshSession(t *testing.T) {
	h := startDaemon(t, &fakeModel{text: "note"})

	h.hook.send(t, chord(keyT, hotkey.Press))
	h.hook.send(t, chord(keyT, hotkey.Release))
	waitFor(t, "capture start", func() bool { s, _ := h.device.counts(); return s == 1 })
	h.device.feed(sampleRate/2, 0.1)
	h.hook.send(t, chord(keyT, hotkey.Press))
	waitFor(t, "capture stop", func() bool { _, s := h.device.counts(); return s == 1 })

	h.expectText(t, "note")
	if n := len(h.model.transcribed()); n != 1 {
		t.Fatalf("model saw %d clips after first session, want 1", n)
	}

	// A third press opens an independent session.
	h.hook.send(t, chord(keyT, hotkey.Press))
	waitFor(t, "second capture start", func() bool { s, _ := h.device.counts(); return s == 2 })
	if h.d.State() != recording.RecordingToggle {
		t.Fatalf("State() = %v, want %v", h.d.State(), recording.RecordingToggle)
	}
	h.device.feed(sampleRate/2, 0.9)
	h.hook.send(t, chord(keyT, hotkey.Press))
	h.expectText(t, "note")

	clips := h.model.transcribed()
	if len(clips) != 2 {
		t.Fatalf("model saw %d clips, want 2", len(clips))
	}
	second := clips[1]
	if len(second.Samples) != sampleRate/2 {
		t.Fatalf("second clip has %d samples, want %d", len(second.Samples), sampleRate/2)
	}
	for i, s := range second.Samples {
		if s != 0.9 {
			t.Fatalf("second clip sample[%d] = %v, carried over from first session", i, s)
		}
	}
}

func TestClipsQueueUntilModelReady(t *testing.T) {
	release := make(chan struct{})
	blocking := &blockingModel{fakeModel: &fakeModel{text: "late"}, release: release}

	hook := newFakeHook()
	dev := &fakeDevice{}
	inj := &fakeInjector{texts: make(chan string, 8)}
	d := New(Deps{Hook: hook, Device: dev, Model: blocking, Injector: inj}, Options{
		Bindings:    testBindings,
		SampleRate:  sampleRate,
		MinDuration: 300 * time.Millisecond,
		Workers:     1,
		QueueSize:   8,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	hook.send(t, chord(keyR, hotkey.Press))
	waitFor(t, "capture start", func() bool { s, _ := dev.counts(); return s == 1 })
	dev.feed(sampleRate, 0.5)
	hook.send(t, chord(keyR, hotkey.Release))
	waitFor(t, "capture stop", func() bool { _, s := dev.counts(); return s == 1 })

	select {
	case got := <-inj.texts:
		t.Fatalf("injected %q before model was ready", got)
	case <-time.After(50 * time.Millisecond):
	}
	if d.Gate().Ready() {
		t.Fatal("gate open before model loaded")
	}

	close(release)
	select {
	case got := <-inj.texts:
		if got != "late" {
			t.Errorf("injected %q, want %q", got, "late")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("queued clip never transcribed")
	}
}

type blockingModel struct {
	*fakeModel
	release chan struct{}
}

func (m *blockingModel) Load(ctx context.Context) error {
	select {
	case <-m.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestShortTapNeverReachesModel(t *testing.T) {
	h := startDaemon(t, &fakeModel{text: "oops"})

	h.hook.send(t, chord(keyR, hotkey.Press))
	waitFor(t, "capture start", func() bool { s, _ := h.device.counts(); return s == 1 })
	h.device.feed(sampleRate/10, 0.1)
	h.hook.send(t, chord(keyR, hotkey.Release))
	waitFor(t, "capture stop", func() bool { _, s := h.device.counts(); return s == 1 })

	h.expectNoText(t)
	if n := len(h.model.transcribed()); n != 0 {
		t.Errorf("model saw %d clips, want 0", n)
	}
}

func TestNonChordKeysPassThrough(t *testing.T) {
	h := startDaemon(t, &fakeModel{})

	h.hook.send(t, hotkey.RawEvent{Kind: hotkey.RawKey, Key: keyR, Edge: hotkey.Press}) // no modifier
	h.hook.send(t, chord(keyR, hotkey.Press))

	h.hook.mu.Lock()
	defer h.hook.mu.Unlock()
	if len(h.hook.verdicts) < 1 || h.hook.verdicts[0] != hotkey.Pass {
		t.Errorf("verdicts = %v, want first event passed", h.hook.verdicts)
	}
}

func TestInstallFailureIsFatal(t *testing.T) {
	hook := newFakeHook()
	hook.installErr = errors.New("accessibility permission denied")
	d := New(Deps{Hook: hook, Device: &fakeDevice{}, Model: &fakeModel{}, Injector: &fakeInjector{}}, Options{})

	err := d.Run(context.Background())
	if !errors.Is(err, hook.installErr) {
		t.Errorf("Run() error = %v, want install error", err)
	}
}

func TestModelLoadFailureIsFatal(t *testing.T) {
	loadErr := errors.New("model file missing")
	model := &fakeModel{loadErr: loadErr}
	d := New(Deps{Hook: newFakeHook(), Device: &fakeDevice{}, Model: model, Injector: &fakeInjector{}}, Options{})

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()
	select {
	case err := <-done:
		if !errors.Is(err, loadErr) {
			t.Errorf("Run() error = %v, want load error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after model load failure")
	}
	if !model.closed {
		t.Error("model should be closed on exit")
	}
}

func TestReenableFailureIsFatal(t *testing.T) {
	hook := newFakeHook()
	hook.enableErr = errors.New("permission revoked")
	d := New(Deps{Hook: hook, Device: &fakeDevice{}, Model: &fakeModel{}, Injector: &fakeInjector{}}, Options{})

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	hook.send(t, hotkey.RawEvent{Kind: hotkey.RawDisabled})
	select {
	case err := <-done:
		if !errors.Is(err, hook.enableErr) {
			t.Errorf("Run() error = %v, want re-enable error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after re-enable failure")
	}
}

func TestCancelAbortsLiveSession(t *testing.T) {
	h := startDaemon(t, &fakeModel{text: "never"})

	h.hook.send(t, chord(keyT, hotkey.Press))
	waitFor(t, "capture start", func() bool { s, _ := h.device.counts(); return s == 1 })
	h.device.feed(sampleRate, 0.3)

	h.cancel()
	select {
	case err := <-h.done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil on cancel", err)
		}
		h.done <- nil // let Cleanup drain
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if _, stops := h.device.counts(); stops != 1 {
		t.Errorf("device stops = %d, want 1", stops)
	}
	if n := len(h.model.transcribed()); n != 0 {
		t.Errorf("aborted session reached the model %d times", n)
	}
}
