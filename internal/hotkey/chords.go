package hotkey

import "context"

// chordSignals are the press and release edges of one hotkey registered
// with the OS, in the order they happened. The OS swallows registered
// chords, so they never reach the focused application.
type chordSignals struct {
	key   uint16
	edges <-chan Edge
}

// pumpChords feeds registered chord signals to handle as RawEvents until
// ctx is done. Events carry mask so they satisfy the router's modifier
// check. A press while the key is already down is flagged as a repeat.
func pumpChords(ctx context.Context, mask uint16, ptt, toggle chordSignals, handle func(RawEvent) Verdict) {
	held := make(map[uint16]bool, 2)
	emit := func(key uint16, edge Edge) {
		raw := RawEvent{Kind: RawKey, Key: key, Mask: mask, Edge: edge}
		if edge == Press {
			raw.Repeat = held[key]
			held[key] = true
		} else {
			delete(held, key)
		}
		handle(raw)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case edge := <-ptt.edges:
			emit(ptt.key, edge)
		case edge := <-toggle.edges:
			emit(toggle.key, edge)
		}
	}
}
