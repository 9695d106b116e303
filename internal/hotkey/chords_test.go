package hotkey

import (
	"context"
	"testing"
	"time"
)

func TestPumpChordsFeedsRouter(t *testing.T) {
	ptt, tgl := make(chan Edge), make(chan Edge)
	r := NewRouter(testBindings, &fakeHook{}, 16, nil)

	var verdicts []Verdict
	handle := func(raw RawEvent) Verdict {
		v := r.Handle(raw)
		verdicts = append(verdicts, v)
		return v
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		pumpChords(ctx, testBindings.Modifier, chordSignals{keyR, ptt}, chordSignals{keyT, tgl}, handle)
	}()

	ptt <- Press
	ptt <- Press // held: repeat
	ptt <- Release
	tgl <- Press
	tgl <- Release
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pumpChords did not return after cancel")
	}

	want := []Event{
		{ChordPushToTalk, Press},
		{ChordPushToTalk, Release},
		{ChordToggle, Press},
		{ChordToggle, Release},
	}
	got := drain(r)
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, got[i], want[i])
		}
	}
	for i, v := range verdicts {
		if v != Consume {
			t.Errorf("verdict %d = %v, want consume", i, v)
		}
	}
}
