package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/jfmyers9/tracklist/internal/playlist"
	"github.com/jfmyers9/tracklist/internal/session"
)

// fakeController is an in-memory Controller
type fakeController struct {
	items   []session.Item
	playing bool
	calls   []string
	nextErr error
}

func (f *fakeController) List() []session.Item { return f.items }

func (f *fakeController) Current() (session.Item, bool) {
	for _, it := range f.items {
		if it.Current {
			return it, true
		}
	}
	return session.Item{}, false
}

func (f *fakeController) Playing() bool { return f.playing }

func (f *fakeController) PlayIndex(ctx context.Context, i int) (playlist.Entry, error) {
	f.calls = append(f.calls, "play")
	if i < 1 || i > len(f.items) {
		return playlist.Entry{}, playlist.ErrInvalidSelection
	}
	f.selectItem(i - 1)
	f.playing = true
	return f.items[i-1].Entry, nil
}

func (f *fakeController) Next(ctx context.Context) (session.Step, error) {
	f.calls = append(f.calls, "next")
	return session.Step{}, f.nextErr
}

func (f *fakeController) Prev(ctx context.Context) (session.Step, error) {
	f.calls = append(f.calls, "prev")
	return session.Step{}, playlist.ErrNoPrevious
}

func (f *fakeController) Stop(ctx context.Context) error {
	f.calls = append(f.calls, "stop")
	f.playing = false
	return nil
}

func (f *fakeController) Add(name string) (playlist.Entry, error) {
	f.calls = append(f.calls, "add")
	e := playlist.Entry{Name: name}
	f.items = append(f.items, session.Item{Position: len(f.items) + 1, Entry: e, Available: true})
	return e, nil
}

func (f *fakeController) RemoveEntry(e playlist.Entry) error {
	f.calls = append(f.calls, "remove")
	for i, it := range f.items {
		if it.Entry.Name == e.Name {
			f.items = append(f.items[:i], f.items[i+1:]...)
			break
		}
	}
	for i := range f.items {
		f.items[i].Position = i + 1
	}
	return nil
}

func (f *fakeController) selectItem(idx int) {
	for i := range f.items {
		f.items[i].Current = i == idx
	}
}

func newFakeController(names ...string) *fakeController {
	f := &fakeController{}
	for i, name := range names {
		f.items = append(f.items, session.Item{
			Position:  i + 1,
			Entry:     playlist.Entry{Name: name},
			Available: true,
		})
	}
	return f
}

func runeKey(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{-5 * time.Second, "00:00"},
		{65 * time.Second, "01:05"},
		{59*time.Minute + 59*time.Second, "59:59"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestItemLabel(t *testing.T) {
	tests := []struct {
		name     string
		item     session.Item
		contains []string
	}{
		{
			name:     "plain",
			item:     session.Item{Position: 2, Entry: playlist.Entry{Name: "a.wav"}, Available: true},
			contains: []string{"  2. a.wav"},
		},
		{
			name:     "current",
			item:     session.Item{Position: 1, Entry: playlist.Entry{Name: "b.wav"}, Current: true, Available: true},
			contains: []string{"▶", "1. b.wav"},
		},
		{
			name:     "missing",
			item:     session.Item{Position: 3, Entry: playlist.Entry{Name: "c.wav"}},
			contains: []string{"c.wav (missing)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := itemLabel(tt.item)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("itemLabel = %q, missing %q", got, want)
				}
			}
		})
	}
}

func TestRecentTracksRingBuffer(t *testing.T) {
	a := New(newFakeController())

	a.mu.Lock()
	for _, name := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		a.addToRecentTracks(name, "played")
	}
	recent := a.getRecentTracks()
	a.mu.Unlock()

	if len(recent) != maxRecentTracks {
		t.Fatalf("len = %d, want %d", len(recent), maxRecentTracks)
	}
	want := []string{"7", "6", "5", "4", "3"}
	for i, r := range recent {
		if r.Name != want[i] {
			t.Errorf("recent[%d] = %q, want %q", i, r.Name, want[i])
		}
	}
}

func TestHandleKeyEvent(t *testing.T) {
	ctrl := newFakeController("a.wav", "b.wav")
	a := New(ctrl)

	if got := a.list.GetItemCount(); got != 2 {
		t.Fatalf("list has %d items, want 2", got)
	}

	// Enter plays the highlighted (first) entry
	a.handleKeyEvent(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	if cur, ok := ctrl.Current(); !ok || cur.Entry.Name != "a.wav" {
		t.Errorf("current after enter = %+v, %v", cur, ok)
	}
	if !strings.Contains(a.message, "Now playing: a.wav") {
		t.Errorf("message = %q", a.message)
	}

	ctrl.nextErr = playlist.ErrNoNext
	a.handleKeyEvent(runeKey('n'))
	if !strings.Contains(a.message, "End of playlist") {
		t.Errorf("message after next = %q", a.message)
	}

	a.handleKeyEvent(runeKey('p'))
	if !strings.Contains(a.message, "Start of playlist") {
		t.Errorf("message after prev = %q", a.message)
	}

	a.handleKeyEvent(runeKey('s'))
	if ctrl.playing {
		t.Error("s should stop playback")
	}

	a.handleKeyEvent(runeKey('d'))
	if len(ctrl.items) != 1 || a.list.GetItemCount() != 1 {
		t.Errorf("after delete: %d items, list %d", len(ctrl.items), a.list.GetItemCount())
	}

	// Unhandled keys pass through
	if ev := a.handleKeyEvent(runeKey('x')); ev == nil {
		t.Error("unhandled key was swallowed")
	}

	want := []string{"play", "next", "prev", "stop", "remove"}
	if strings.Join(ctrl.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", ctrl.calls, want)
	}
}

func TestHandleEvent(t *testing.T) {
	a := New(newFakeController("a.wav", "b.wav"))

	a.handleEvent(session.Event{
		Kind:    session.EventAdvanced,
		Entry:   playlist.Entry{Name: "c.wav"},
		Skipped: []playlist.Entry{{Name: "b.wav"}},
	})

	a.mu.Lock()
	recent := a.getRecentTracks()
	msg := a.message
	a.mu.Unlock()

	if len(recent) != 2 || recent[0].Name != "c.wav" || recent[1].Note != "skipped" {
		t.Errorf("recent = %+v", recent)
	}
	if !strings.Contains(msg, "Now playing: c.wav") {
		t.Errorf("message = %q", msg)
	}
}
