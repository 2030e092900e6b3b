package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jfmyers9/tracklist/internal/config"
	"github.com/jfmyers9/tracklist/internal/history"
	"github.com/jfmyers9/tracklist/internal/player"
	"github.com/jfmyers9/tracklist/internal/playlist"
	"github.com/jfmyers9/tracklist/internal/session"
	"github.com/rs/zerolog"
)

// stubPlayer never starts a process
type stubPlayer struct {
	mu      sync.Mutex
	playing bool
	played  []string
}

func (p *stubPlayer) Play(ctx context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = true
	p.played = append(p.played, filepath.Base(path))
	return nil
}

func (p *stubPlayer) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	return nil
}

func (p *stubPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *stubPlayer) PID() int { return 0 }

func (p *stubPlayer) history() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.played)
}

// testApp opens an app over a playlist of names in a temp dir. Files are
// created for the names in present.
func testApp(t *testing.T, names []string, present ...string) (*app, *stubPlayer) {
	t.Helper()
	dir := t.TempDir()
	for _, name := range present {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("RIFF"), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if names != nil {
		data := strings.Join(names, "\n") + "\n"
		if err := os.WriteFile(filepath.Join(dir, "playlist.txt"), []byte(data), 0644); err != nil {
			t.Fatalf("write playlist: %v", err)
		}
	}

	cfg := &config.Config{
		PlaylistFile:         filepath.Join(dir, "playlist.txt"),
		DataDir:              filepath.Join(dir, "data"),
		MaxNameLength:        playlist.DefaultMaxNameLength,
		PersistMode:          config.PersistWriteThrough,
		AutoAdvance:          true,
		WatchInterval:        10,
		HistoryRetentionDays: 30,
	}
	p := &stubPlayer{}
	a, err := openApp(context.Background(), cfg, p, zerolog.Nop())
	if err != nil {
		t.Fatalf("openApp: %v", err)
	}
	return a, p
}

func runScript(t *testing.T, a *app, script string, prompt bool) string {
	t.Helper()
	var out strings.Builder
	sh := newShell(a.sess, strings.NewReader(script), &out, prompt)
	if err := sh.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	return out.String()
}

func TestShell_Session(t *testing.T) {
	a, p := testApp(t, []string{"a.wav", "b.wav", "c.wav"}, "a.wav", "c.wav")
	defer a.close()

	script := strings.Join([]string{
		"5",          // show
		"2", "1",     // choose and play a.wav
		"3",          // next skips b.wav
		"9", "c.wav", // remove
		"8", "zzz", // search miss
		"8", "a.wav", // search hit
		"6",
	}, "\n") + "\n"

	out := runScript(t, a, script, false)

	want := []string{
		"\n--- Playlist ---\n   a.wav\n   b.wav\n   c.wav\n----------------\n\n",
		"\nAvailable Songs:\n   1. a.wav\n   2. b.wav\n   3. c.wav\n\n",
		"Now playing: a.wav\n\n",
		"Skipping missing file: b.wav\nNow playing: c.wav\n\n",
		"Removed: c.wav\n\n",
		"Song not found: zzz\n\n",
		"Found: a.wav\n\n",
		"Exiting...\n",
	}
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q\nfull output:\n%s", w, out)
		}
	}

	if got := p.history(); !slices.Equal(got, []string{"a.wav", "c.wav"}) {
		t.Errorf("played = %v, want [a.wav c.wav]", got)
	}
	if p.Playing() {
		t.Error("playback should be stopped when the shell exits")
	}

	data, err := os.ReadFile(a.sess.PlaylistPath())
	if err != nil {
		t.Fatalf("read playlist: %v", err)
	}
	if string(data) != "a.wav\nb.wav\n" {
		t.Errorf("playlist file = %q", data)
	}
}

func TestShell_ShowMarksCurrent(t *testing.T) {
	a, _ := testApp(t, []string{"a.wav", "b.wav"}, "a.wav", "b.wav")
	defer a.close()

	out := runScript(t, a, "2\n2\n5\n6\n", false)

	if !strings.Contains(out, "   a.wav\n-> b.wav (Now Playing)\n") {
		t.Errorf("current track not marked:\n%s", out)
	}
}

func TestShell_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		names  []string
		script string
		want   string
	}{
		{name: "non-numeric choice", script: "abc\n6\n", want: "Invalid choice.\n\n"},
		{name: "choice out of range", script: "42\n6\n", want: "Invalid choice.\n\n"},
		{name: "choose from empty playlist", script: "2\n6\n", want: "Playlist is empty.\n\n"},
		{name: "bad song number", names: []string{"a.wav"}, script: "2\n7\n6\n", want: "Invalid song number.\n\n"},
		{name: "non-numeric song number", names: []string{"a.wav"}, script: "2\nx\n6\n", want: "Invalid song number.\n\n"},
		{name: "next without selection", names: []string{"a.wav"}, script: "3\n6\n", want: "End of playlist or no valid next song found.\n\n"},
		{name: "prev without selection", names: []string{"a.wav"}, script: "4\n6\n", want: "Start of playlist or no valid previous song found.\n\n"},
		{name: "play missing file", names: []string{"gone.wav"}, script: "2\n1\n6\n", want: "File not found: gone.wav\n\n"},
		{name: "remove unknown", names: []string{"a.wav"}, script: "9\nb.wav\n6\n", want: "Song not found: b.wav\n\n"},
		{name: "add empty name", script: "1\n\n6\n", want: "Invalid name: "},
		{name: "stop", script: "7\n6\n", want: "Music stopped.\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := testApp(t, tt.names)
			defer a.close()

			out := runScript(t, a, tt.script, false)
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q\nfull output:\n%s", tt.want, out)
			}
		})
	}
}

func TestShell_EOFWithoutTrailingNewline(t *testing.T) {
	a, _ := testApp(t, nil)
	defer a.close()

	out := runScript(t, a, "1\r\nnew.wav", false)

	if !strings.Contains(out, "Added: new.wav\n\n") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "Exiting...") {
		t.Error("end of input should exit quietly")
	}
	if items := a.sess.List(); len(items) != 1 || items[0].Entry.Name != "new.wav" {
		t.Errorf("List = %+v", items)
	}
}

func TestShell_PromptsWhenInteractive(t *testing.T) {
	a, _ := testApp(t, nil)
	defer a.close()

	out := runScript(t, a, "1\nx.wav\n6\n", true)

	for _, w := range []string{
		"Welcome to Your Music Player\n",
		"======== MUSIC PLAYER MENU ========\n1. Add Song\n",
		"9. Remove Song\n===================================\n",
		"Enter your choice: ",
		"Enter .wav filename: Added: x.wav\n\n",
	} {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q", w)
		}
	}
}

func TestPlayMessage(t *testing.T) {
	e := playlist.Entry{Name: "song.wav"}
	tests := []struct {
		err  error
		want string
	}{
		{nil, "Now playing: song.wav"},
		{fmt.Errorf("%w: song.wav", player.ErrResourceMissing), "File not found: song.wav"},
		{playlist.ErrInvalidSelection, "Invalid song number."},
		{playlist.ErrNoNext, "End of playlist or no valid next song found."},
		{playlist.ErrNoPrevious, "Start of playlist or no valid previous song found."},
		{session.ErrNoCurrent, "No song to play."},
		{errors.New("boom"), "Error: boom"},
	}

	for _, tt := range tests {
		if got := playMessage(e, tt.err); got != tt.want {
			t.Errorf("playMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestMutationMessage(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   string
		wantOK bool
	}{
		{name: "success", want: "Added: a.wav", wantOK: true},
		{
			name:   "persist failure still applied",
			err:    &playlist.PersistError{Err: errors.New("disk full")},
			want:   "Added: a.wav (warning: playlist not saved: disk full)",
			wantOK: true,
		},
		{name: "not found", err: playlist.ErrNotFound, want: "Song not found: a.wav"},
		{name: "other", err: errors.New("boom"), want: "Error: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := mutationMessage("Added", "a.wav", tt.err)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("got (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestPrintHistory(t *testing.T) {
	var empty strings.Builder
	printHistory(&empty, nil)
	if empty.String() != "No plays recorded.\n" {
		t.Errorf("empty history = %q", empty.String())
	}

	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.Local)
	plays := []history.Play{
		{Name: "b.wav", PlayedAt: at, Outcome: history.OutcomeFailed, Error: "exit status 1"},
		{Name: "a.wav", PlayedAt: at, Outcome: history.OutcomePlayed},
	}
	var sb strings.Builder
	printHistory(&sb, plays)

	want := "2026-03-01 12:30:00  failed   b.wav  (exit status 1)\n" +
		"2026-03-01 12:30:00  played   a.wav\n"
	if sb.String() != want {
		t.Errorf("printHistory =\n%q\nwant\n%q", sb.String(), want)
	}
}

func TestPrintPlaylist_Items(t *testing.T) {
	items := []session.Item{
		{Position: 1, Entry: playlist.Entry{Name: "a.wav"}, Available: true},
		{Position: 2, Entry: playlist.Entry{Name: "long-name.wav"}, Current: true, Available: true},
		{Position: 3, Entry: playlist.Entry{Name: "gone.wav"}},
	}

	tests := []struct {
		name     string
		maxWidth int
		want     string
	}{
		{
			name: "aligned",
			want: "   1. a.wav\n" +
				"-> 2. long-name.wav\n" +
				"   3. gone.wav       (missing)\n",
		},
		{
			name:     "truncated",
			maxWidth: 8,
			want: "   1. a.wav\n" +
				"-> 2. long-...\n" +
				"   3. gone.wav  (missing)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			printPlaylist(&sb, items, tt.maxWidth)
			if sb.String() != tt.want {
				t.Errorf("printPlaylist =\n%q\nwant\n%q", sb.String(), tt.want)
			}
		})
	}
}
