//go:build integration

package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// buildBinary compiles tracklist into a temp dir
func buildBinary(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "tracklist_test")
	buildCmd := exec.Command("go", "build", "-o", bin, ".")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build binary: %v\n%s", err, out)
	}
	return bin
}

// runner invokes the binary against an isolated home and playlist
type runner struct {
	t        *testing.T
	bin      string
	home     string
	playlist string
}

func (r runner) run(args ...string) (string, error) {
	r.t.Helper()
	cmd := exec.Command(r.bin, append([]string{"--playlist", r.playlist}, args...)...)
	cmd.Env = append(os.Environ(),
		"HOME="+r.home,
		"TRACKLIST_PLAYER_COMMAND=true",
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func (r runner) mustRun(args ...string) string {
	r.t.Helper()
	out, err := r.run(args...)
	if err != nil {
		r.t.Fatalf("tracklist %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

// TestPlaylistLifecycle drives add, list, search, remove and play through
// the built binary
func TestPlaylistLifecycle(t *testing.T) {
	bin := buildBinary(t)
	home := t.TempDir()
	music := t.TempDir()

	for _, name := range []string{"a.wav", "c.wav"} {
		if err := os.WriteFile(filepath.Join(music, name), []byte("RIFF"), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	r := runner{t: t, bin: bin, home: home, playlist: filepath.Join(music, "playlist.txt")}

	out := r.mustRun("add", "a.wav", "b.wav", "c.wav")
	for _, name := range []string{"a.wav", "b.wav", "c.wav"} {
		if !strings.Contains(out, "Added: "+name) {
			t.Errorf("add output missing %s:\n%s", name, out)
		}
	}

	data, err := os.ReadFile(r.playlist)
	if err != nil {
		t.Fatalf("playlist not written: %v", err)
	}
	if string(data) != "a.wav\nb.wav\nc.wav\n" {
		t.Errorf("playlist file = %q", data)
	}

	out = r.mustRun("list")
	if !strings.Contains(out, "2. b.wav  (missing)") {
		t.Errorf("list should flag b.wav as missing:\n%s", out)
	}

	out = r.mustRun("search", "c.wav")
	if !strings.Contains(out, "Found: c.wav (position 3)") {
		t.Errorf("search output = %q", out)
	}
	if _, err := r.run("search", "zzz.wav"); err == nil {
		t.Error("search for an unknown name should fail")
	}

	out = r.mustRun("play", "1")
	if !strings.Contains(out, "Now playing: a.wav") {
		t.Errorf("play output = %q", out)
	}

	// The cursor survives between invocations
	out = r.mustRun("next")
	if !strings.Contains(out, "Skipping missing file: b.wav") || !strings.Contains(out, "Now playing: c.wav") {
		t.Errorf("next output = %q", out)
	}

	out = r.mustRun("now", "--selected")
	if strings.TrimSpace(out) != "c.wav" {
		t.Errorf("now --selected = %q", out)
	}

	if _, err := r.run("play", "9"); err == nil {
		t.Error("play with an out-of-range number should fail")
	}

	r.mustRun("remove", "b.wav")
	data, err = os.ReadFile(r.playlist)
	if err != nil {
		t.Fatalf("read playlist: %v", err)
	}
	if string(data) != "a.wav\nc.wav\n" {
		t.Errorf("playlist after remove = %q", data)
	}

	out = r.mustRun("history")
	if !strings.Contains(out, "played   c.wav") || !strings.Contains(out, "played   a.wav") {
		t.Errorf("history output = %q", out)
	}
}

// TestShellScript pipes menu choices into the default command
func TestShellScript(t *testing.T) {
	bin := buildBinary(t)
	music := t.TempDir()
	r := runner{t: t, bin: bin, home: t.TempDir(), playlist: filepath.Join(music, "playlist.txt")}

	cmd := exec.Command(r.bin, "--playlist", r.playlist)
	cmd.Env = append(os.Environ(), "HOME="+r.home, "TRACKLIST_PLAYER_COMMAND=true")
	cmd.Stdin = strings.NewReader("1\nx.wav\n5\n6\n")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("shell failed: %v\n%s", err, out)
	}

	for _, want := range []string{"No playlist file found", "Added: x.wav", "   x.wav\n", "Exiting..."} {
		if !strings.Contains(string(out), want) {
			t.Errorf("shell output missing %q:\n%s", want, out)
		}
	}
}
