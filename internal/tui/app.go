package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/jfmyers9/tracklist/internal/player"
	"github.com/jfmyers9/tracklist/internal/playlist"
	"github.com/jfmyers9/tracklist/internal/session"
	"github.com/rivo/tview"
)

const maxRecentTracks = 5

// actionTimeout bounds a single key-triggered player call
const actionTimeout = 2 * time.Second

// Config holds TUI configuration options
type Config struct {
	RefreshRate time.Duration // How often to refresh the display
}

// DefaultConfig returns the default TUI configuration
func DefaultConfig() Config {
	return Config{
		RefreshRate: 500 * time.Millisecond,
	}
}

// Controller is the playlist session driven by the TUI
type Controller interface {
	List() []session.Item
	Current() (session.Item, bool)
	Playing() bool
	PlayIndex(ctx context.Context, i int) (playlist.Entry, error)
	Next(ctx context.Context) (session.Step, error)
	Prev(ctx context.Context) (session.Step, error)
	Stop(ctx context.Context) error
	Add(name string) (playlist.Entry, error)
	RemoveEntry(e playlist.Entry) error
}

// RecentTrack is one line of the activity panel
type RecentTrack struct {
	Name     string
	Note     string // "played", "skipped", ...
	PlayedAt time.Time
}

// App is the TUI application for browsing and playing the playlist
type App struct {
	app        *tview.Application
	nowPlaying *tview.TextView
	list       *tview.List
	recent     *tview.TextView
	status     *tview.TextView
	input      *tview.InputField
	footer     *tview.Pages

	config Config
	ctrl   Controller

	// mu guards the fields below, shared by the UI goroutine and the
	// event consumer
	mu          sync.Mutex
	message     string
	playStarted time.Time

	// Ring buffer of recent activity
	recentBuf   [maxRecentTracks]RecentTrack
	recentCount int

	// Last-rendered content for change detection
	lastNowPlaying string
	lastRecent     string
	lastItems      []string

	cancelFunc context.CancelFunc
}

// New creates a new TUI application over ctrl with default config
func New(ctrl Controller) *App {
	return NewWithConfig(ctrl, DefaultConfig())
}

// NewWithConfig creates a new TUI application with the given config
func NewWithConfig(ctrl Controller, cfg Config) *App {
	a := &App{
		app:    tview.NewApplication(),
		config: cfg,
		ctrl:   ctrl,
	}
	a.setupUI()
	return a
}

// setupUI creates the UI layout
func (a *App) setupUI() {
	a.nowPlaying = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.nowPlaying.SetBorder(true).
		SetTitle(" Now Playing ").
		SetTitleAlign(tview.AlignLeft)

	a.list = tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)
	a.list.SetBorder(true).
		SetTitle(" Playlist ").
		SetTitleAlign(tview.AlignLeft)

	a.recent = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.recent.SetBorder(true).
		SetTitle(" Recent ").
		SetTitleAlign(tview.AlignLeft)

	a.status = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)

	a.input = tview.NewInputField().
		SetLabel("Add: ").
		SetDoneFunc(a.handleInputDone)

	a.footer = tview.NewPages().
		AddPage("status", a.status, true, true).
		AddPage("input", a.input, true, false)

	// Top row: now playing
	// Middle row: playlist | recent activity
	// Footer: status bar or add prompt
	middleRow := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.list, 0, 2, true).
		AddItem(a.recent, 0, 1, false)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.nowPlaying, 5, 1, false).
		AddItem(middleRow, 0, 1, true).
		AddItem(a.footer, 1, 1, false)

	a.app.SetInputCapture(a.handleKeyEvent)
	a.app.SetRoot(flex, true).SetFocus(a.list)

	a.render()
}

// handleKeyEvent processes keyboard input
func (a *App) handleKeyEvent(event *tcell.EventKey) *tcell.EventKey {
	if a.app.GetFocus() == a.input {
		return event
	}

	if event.Key() == tcell.KeyEnter {
		a.playSelected()
		return nil
	}

	switch event.Rune() {
	case 'q', 'Q':
		a.Stop()
		return nil
	case 'n', 'N':
		a.step(true)
		return nil
	case 'p', 'P':
		a.step(false)
		return nil
	case 's', 'S':
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := a.ctrl.Stop(ctx); err != nil {
			a.setMessage("[red]" + tview.Escape(err.Error()) + "[-]")
		} else {
			a.setMessage("Music stopped.")
		}
		a.render()
		return nil
	case 'd', 'D':
		a.removeSelected()
		return nil
	case 'a', 'A':
		a.input.SetText("")
		a.footer.SwitchToPage("input")
		a.app.SetFocus(a.input)
		return nil
	}
	return event
}

// handleInputDone finishes the add prompt
func (a *App) handleInputDone(key tcell.Key) {
	name := a.input.GetText()
	a.footer.SwitchToPage("status")
	a.app.SetFocus(a.list)

	if key != tcell.KeyEnter || name == "" {
		a.render()
		return
	}

	e, err := a.ctrl.Add(name)
	var perr *playlist.PersistError
	switch {
	case errors.As(err, &perr):
		a.setMessage("[yellow]Added but not saved: " + tview.Escape(perr.Err.Error()) + "[-]")
	case err != nil:
		a.setMessage("[red]" + tview.Escape(err.Error()) + "[-]")
	default:
		a.setMessage("Added: " + tview.Escape(e.Name))
	}
	a.render()
}

// playSelected plays the highlighted entry
func (a *App) playSelected() {
	if a.list.GetItemCount() == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	e, err := a.ctrl.PlayIndex(ctx, a.list.GetCurrentItem()+1)
	a.reportPlay(e, err)
	a.render()
}

// step moves to the next or previous available entry
func (a *App) step(forward bool) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	var st session.Step
	var err error
	if forward {
		st, err = a.ctrl.Next(ctx)
	} else {
		st, err = a.ctrl.Prev(ctx)
	}

	a.addSkipped(st.Skipped)
	switch {
	case errors.Is(err, playlist.ErrNoNext):
		a.setMessage("End of playlist or no valid next song found.")
	case errors.Is(err, playlist.ErrNoPrevious):
		a.setMessage("Start of playlist or no valid previous song found.")
	default:
		a.reportPlay(st.Entry, err)
	}
	a.render()
}

// removeSelected deletes the highlighted entry
func (a *App) removeSelected() {
	items := a.ctrl.List()
	idx := a.list.GetCurrentItem()
	if idx < 0 || idx >= len(items) {
		return
	}

	e := items[idx].Entry
	err := a.ctrl.RemoveEntry(e)
	var perr *playlist.PersistError
	switch {
	case errors.As(err, &perr):
		a.setMessage("[yellow]Removed but not saved: " + tview.Escape(perr.Err.Error()) + "[-]")
	case err != nil:
		a.setMessage("[red]" + tview.Escape(err.Error()) + "[-]")
	default:
		a.setMessage("Removed: " + tview.Escape(e.Name))
	}
	a.render()
}

// reportPlay records the outcome of a play request
func (a *App) reportPlay(e playlist.Entry, err error) {
	switch {
	case errors.Is(err, player.ErrResourceMissing):
		a.setMessage("[red]File not found: " + tview.Escape(e.Name) + "[-]")
	case errors.Is(err, playlist.ErrInvalidSelection):
		a.setMessage("Invalid song number.")
	case err != nil:
		a.setMessage("[red]" + tview.Escape(err.Error()) + "[-]")
	default:
		a.mu.Lock()
		a.playStarted = time.Now()
		a.addToRecentTracks(e.Name, "played")
		a.message = "Now playing: " + tview.Escape(e.Name)
		a.mu.Unlock()
	}
}

func (a *App) setMessage(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.message = msg
}

func (a *App) addSkipped(skipped []playlist.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range skipped {
		a.addToRecentTracks(e.Name, "skipped")
	}
}

// Run starts the TUI. Events from the session watcher update the display
// as tracks finish and auto-advance.
func (a *App) Run(ctx context.Context, events <-chan session.Event) error {
	ctx, a.cancelFunc = context.WithCancel(ctx)

	go a.handleUpdates(ctx, events)

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// handleUpdates consumes watcher events and drives periodic redraws.
// The ticker is the only source of redraws outside key handlers.
func (a *App) handleUpdates(ctx context.Context, events <-chan session.Event) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				a.handleEvent(ev)
			}
		}
	}()

	refreshRate := a.config.RefreshRate
	if refreshRate <= 0 {
		refreshRate = 500 * time.Millisecond
	}
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.app.Stop()
			return
		case <-ticker.C:
			a.app.QueueUpdateDraw(a.render)
		}
	}
}

// handleEvent applies a watcher event to the activity state
func (a *App) handleEvent(ev session.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, e := range ev.Skipped {
		a.addToRecentTracks(e.Name, "skipped")
	}

	switch ev.Kind {
	case session.EventAdvanced:
		a.playStarted = time.Now()
		a.addToRecentTracks(ev.Entry.Name, "played")
		a.message = "Now playing: " + tview.Escape(ev.Entry.Name)
	case session.EventExhausted:
		a.message = "End of playlist or no valid next song found."
	case session.EventError:
		a.message = "[red]" + tview.Escape(ev.Err.Error()) + "[-]"
	}
}

// addToRecentTracks writes into the ring buffer. Must be called with a.mu held.
func (a *App) addToRecentTracks(name, note string) {
	idx := a.recentCount % maxRecentTracks
	a.recentBuf[idx] = RecentTrack{
		Name:     name,
		Note:     note,
		PlayedAt: time.Now(),
	}
	a.recentCount++
}

// getRecentTracks returns recent activity, most recent first.
// Must be called with a.mu held.
func (a *App) getRecentTracks() []RecentTrack {
	n := min(a.recentCount, maxRecentTracks)
	result := make([]RecentTrack, n)
	for i := 0; i < n; i++ {
		idx := (a.recentCount - 1 - i) % maxRecentTracks
		result[i] = a.recentBuf[idx]
	}
	return result
}

// render updates all UI components. Must run on the UI goroutine.
func (a *App) render() {
	items := a.ctrl.List()
	cur, hasCur := a.ctrl.Current()
	playing := a.ctrl.Playing()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.updateNowPlaying(cur, hasCur, playing)
	a.updateList(items)
	a.updateRecentTracks()

	help := "[gray]enter:play  n:next  p:prev  s:stop  a:add  d:delete  q:quit[-]"
	if a.message != "" {
		help = a.message + "  " + help
	}
	a.status.SetText(help)
}

// updateNowPlaying updates the now playing panel
func (a *App) updateNowPlaying(cur session.Item, hasCur, playing bool) {
	var text string

	switch {
	case !hasCur:
		text = "\n[gray]No track selected[-]"
	case playing:
		text = fmt.Sprintf("\n[white::b]%s[-:-:-]\n[green]▶[-] %s",
			tview.Escape(cur.Entry.Name), formatDuration(time.Since(a.playStarted)))
	default:
		text = fmt.Sprintf("\n[white::b]%s[-:-:-]\n[gray]■ stopped[-]",
			tview.Escape(cur.Entry.Name))
	}

	if text != a.lastNowPlaying {
		a.lastNowPlaying = text
		a.nowPlaying.SetText(text)
	}
}

// updateList rebuilds the playlist view when its contents change
func (a *App) updateList(items []session.Item) {
	labels := make([]string, len(items))
	for i, it := range items {
		labels[i] = itemLabel(it)
	}

	if slices.Equal(labels, a.lastItems) {
		return
	}
	a.lastItems = labels

	selected := a.list.GetCurrentItem()
	a.list.Clear()
	for _, label := range labels {
		a.list.AddItem(label, "", 0, nil)
	}
	if selected >= len(labels) {
		selected = len(labels) - 1
	}
	if selected >= 0 {
		a.list.SetCurrentItem(selected)
	}
}

// itemLabel formats one playlist row
func itemLabel(it session.Item) string {
	marker := "  "
	if it.Current {
		marker = "[green]▶[-] "
	}
	name := tview.Escape(it.Entry.Name)
	if !it.Available {
		name = "[red]" + name + " (missing)[-]"
	}
	return fmt.Sprintf("%s%3d. %s", marker, it.Position, name)
}

// updateRecentTracks updates the recent activity panel
func (a *App) updateRecentTracks() {
	var sb strings.Builder

	tracks := a.getRecentTracks()
	if len(tracks) == 0 {
		sb.WriteString("[gray]No recent tracks[-]")
	} else {
		for i, track := range tracks {
			if i > 0 {
				sb.WriteString("\n")
			}

			if track.Note == "played" {
				sb.WriteString("[green]✓[-] ")
			} else {
				sb.WriteString("[red]✗[-] ")
			}

			name := []rune(track.Name)
			if len(name) > 20 {
				name = append(name[:17], []rune("...")...)
			}
			sb.WriteString(fmt.Sprintf("[white]%s[-]", tview.Escape(string(name))))
		}
	}

	text := sb.String()
	if text != a.lastRecent {
		a.lastRecent = text
		a.recent.SetText(text)
	}
}

// Stop stops the TUI application
func (a *App) Stop() {
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	a.app.Stop()
}

// formatDuration formats a duration as MM:SS or HH:MM:SS for longer durations
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
