package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"hydra/internal/playback"
	"hydra/internal/tui/styles"
)

// Layout of the player screen. The progress bar sits on a fixed row so
// mouse clicks can be mapped back to a position.
const (
	indent     = 2
	barRow     = 4
	minBarSize = 10
)

// barLayout returns the column where the progress bar starts and its width.
func (m Model) barLayout() (x, width int) {
	x = indent + lipgloss.Width(m.screen.elapsed) + 1
	width = m.width - x - 1 - lipgloss.Width(m.screen.duration) - indent
	if width < minBarSize {
		width = minBarSize
	}
	return x, width
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.width == 0 {
		return "Loading..."
	}

	switch {
	case m.screen.dialog != "":
		return m.renderDialog()
	case m.picker != nil:
		return m.renderPicker()
	case m.showHelp:
		return m.renderHelp()
	case m.showProps:
		return m.renderProperties()
	}
	return m.renderPlayer()
}

func (m Model) renderPlayer() string {
	pad := styles.Repeat(" ", indent)
	s := m.screen

	header := styles.Highlight.Render(" hydra ") + " " + styles.Dim.Render(m.ctrl.State().String())

	title := styles.Muted.Render("No media loaded")
	if s.title != "" {
		title = styles.Title.Render(s.title)
	}
	nowPlaying := pad + styles.StatusIcon(s.button == playback.ButtonPause) + " " + title

	_, width := m.barLayout()
	bar := m.bar
	bar.Width = width
	progress := pad + s.elapsed + " " + bar.ViewAs(s.fraction()) + " " + s.duration

	controls := pad +
		styles.Label.Render(s.button.Tooltip()) + "   " +
		styles.RepeatIcon(s.repeat) + " " + styles.Label.Render(playback.RepeatTooltip(s.repeat)) + "   " +
		styles.Label.Render("Vol ") + styles.VolumeBar(s.volume, m.opts.Playback.VolumeMax, 10) + fmt.Sprintf(" %3d", s.volume)

	lines := []string{header, "", nowPlaying, "", progress, "", controls}

	status := m.renderStatusBar()
	if list := m.renderPlaylist(m.height - len(lines) - 3); list != "" {
		lines = append(lines, "", list)
	}

	body := lipgloss.JoinVertical(lipgloss.Left, lines...)
	gap := m.height - lipgloss.Height(body) - lipgloss.Height(status)
	if gap > 0 {
		body += strings.Repeat("\n", gap)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, status)
}

// renderPlaylist shows a window of at most rows entries around the
// current one.
func (m Model) renderPlaylist(rows int) string {
	paths, index := m.screen.playlist, m.screen.index
	if len(paths) == 0 || rows < 2 {
		return ""
	}
	rows-- // heading

	start := 0
	if index >= rows {
		start = index - rows + 1
	}
	end := start + rows
	if end > len(paths) {
		end = len(paths)
	}

	var b strings.Builder
	b.WriteString(styles.PanelTitle(fmt.Sprintf("Playlist %d/%d", index+1, len(paths)), true))
	for i := start; i < end; i++ {
		b.WriteString("\n")
		name := fmt.Sprintf("%2d. %s", i+1, filepath.Base(paths[i]))
		if i == index {
			b.WriteString(styles.Playing.Render("  ▶ " + name))
		} else {
			b.WriteString(styles.Muted.Render("    " + name))
		}
	}
	return b.String()
}

func (m Model) renderStatusBar() string {
	status := m.help.ShortHelpView(m.keys.ShortHelp())
	if notice := m.screen.activeNotice(); notice != "" {
		status = styles.Notice.Render(notice)
	}

	return lipgloss.NewStyle().
		Width(m.width).
		Padding(0, 1).
		Render(status)
}

func (m Model) centered(box string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(box)
}

func (m Model) renderDialog() string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		styles.ErrorText.Render("Error"),
		"",
		m.screen.dialog,
		"",
		styles.Dim.Render("Press Enter to continue"),
	)
	return m.centered(styles.ErrorBorder.Padding(1, 3).Render(content))
}

func (m Model) renderHelp() string {
	title := "hydra - Keyboard Shortcuts"
	divider := styles.Repeat("═", len(title))

	full := m.help
	full.ShowAll = true

	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.Title.Render(title),
		divider,
		"",
		full.FullHelpView(m.keys.FullHelp()),
		"",
		"Click the progress bar to seek.",
		"",
		styles.Dim.Render("Press ? or Esc to close"),
	)
	return m.centered(styles.BorderStyle.Padding(1, 2).Render(content))
}

func (m Model) renderProperties() string {
	var body string
	if m.propsErr != nil {
		body = styles.Muted.Render(m.propsErr.Error())
	} else {
		p := m.props
		track := "none"
		if p.Track >= 0 {
			track = fmt.Sprintf("%d of %d", p.Track+1, p.TrackCount)
		}
		rows := [][2]string{
			{"Title", p.Title},
			{"File", p.Path},
			{"Duration", playback.FormatClock(p.Duration)},
			{"Resolution", p.Resolution()},
			{"Frame rate", fmt.Sprintf("%.2f fps", p.FPS)},
			{"Aspect ratio", p.AspectRatio},
			{"Scale", fmt.Sprintf("%.2f", p.Scale)},
			{"Speed", fmt.Sprintf("%.2fx", p.Rate)},
			{"Video track", track},
		}
		var b strings.Builder
		for i, r := range rows {
			if i > 0 {
				b.WriteString("\n")
			}
			value := r[1]
			if value == "" {
				value = "-"
			}
			b.WriteString(styles.Label.Render(fmt.Sprintf("%-13s", r[0])) + value)
		}
		body = b.String()
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.Title.Render("Media Properties"),
		"",
		body,
		"",
		styles.Dim.Render("Press i or Esc to close"),
	)
	return m.centered(styles.BorderStyle.Padding(1, 2).Render(content))
}

func (m Model) renderPicker() string {
	p := m.picker

	lines := []string{
		styles.PanelTitle(p.title(), true) + " " + styles.Dim.Render(p.fp.CurrentDirectory),
		"",
		p.fp.View(),
	}
	if p.mode == pickPlaylist {
		chosen := styles.Muted.Render("nothing selected")
		if names := p.chosenNames(); len(names) > 0 {
			chosen = strings.Join(names, ", ")
		}
		lines = append(lines, styles.Label.Render(fmt.Sprintf("Selected (%d): ", len(p.chosen)))+chosen)
	}
	lines = append(lines, styles.Dim.Render(p.hint()))

	return styles.FocusedBorder.
		Width(m.width-2).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
