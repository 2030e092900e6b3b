package cmd

import (
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

const ellipsis = "..."

// padToWidth fits text to exactly width display columns: shorter text is
// padded with spaces, longer text is cut and ends in "...". Wide runes
// (CJK, emoji) count as two columns. width <= 0 returns text unchanged.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	w := runewidth.StringWidth(text)
	switch {
	case w == width:
		return text
	case w < width:
		return text + strings.Repeat(" ", width-w)
	}

	if width <= len(ellipsis) {
		return ellipsis[:width]
	}

	// Truncate may stop one column short before a wide rune
	cut := runewidth.Truncate(text, width-len(ellipsis), "") + ellipsis
	if gap := width - runewidth.StringWidth(cut); gap > 0 {
		cut += strings.Repeat(" ", gap)
	}
	return cut
}

// marqueeText shows a width-column window of text that scrolls speed
// columns per second, looping through separator. Text that already fits is
// padded instead. The window position is derived from now, so repeated
// invocations (a status bar refresh) appear to scroll without any saved
// state.
func marqueeText(text string, width, speed int, separator string, now time.Time) string {
	if width <= 0 {
		return text
	}
	if runewidth.StringWidth(text) <= width {
		return padToWidth(text, width)
	}

	loop := []rune(text + separator)
	start := int(now.Unix()*int64(speed)) % len(loop)
	if start < 0 {
		start += len(loop)
	}

	var sb strings.Builder
	used := 0
	// One pass over loop is wider than width, so this always breaks
	for i := 0; i < len(loop); i++ {
		r := loop[(start+i)%len(loop)]
		rw := runewidth.RuneWidth(r)
		if used+rw > width {
			break
		}
		sb.WriteRune(r)
		used += rw
	}

	return sb.String() + strings.Repeat(" ", width-used)
}
