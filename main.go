package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/ldelacroix/cadenza/internal/config"
	"github.com/ldelacroix/cadenza/internal/engine"
	"github.com/ldelacroix/cadenza/internal/library"
	"github.com/ldelacroix/cadenza/internal/mpris"
	"github.com/ldelacroix/cadenza/internal/session"
	"github.com/ldelacroix/cadenza/internal/state"
)

var (
	playerBarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170")).
			Bold(true)

	playingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))
)

type tickMsg time.Time

type model struct {
	session  *session.Session
	stateMgr *state.Manager
	cfg      *config.Config
	mpris    *mpris.Adapter

	folder  string
	tracks  []library.Track
	devices []string
	device  int // index into devices, -1 means system default

	cursor int
	offset int
	width  int
	height int
	errMsg string
}

func initialModel() (model, error) {
	cfg, err := config.Load()
	if err != nil {
		return model{}, err
	}
	setupLogging(cfg.LogLevel)

	stateMgr, err := state.Open()
	if err != nil {
		return model{}, err
	}

	saved, _ := stateMgr.GetPlayer()

	// Determine folder: argument > saved state > config default > cwd
	folder := ""
	if len(os.Args) > 1 {
		folder = os.Args[1]
	} else if saved != nil && saved.Folder != "" {
		if _, statErr := os.Stat(saved.Folder); statErr == nil {
			folder = saved.Folder
		}
	}
	if folder == "" {
		folder = cfg.DefaultFolder
	}
	if folder == "" {
		folder, err = os.Getwd()
		if err != nil {
			stateMgr.Close()
			return model{}, err
		}
	}
	folder, err = filepath.Abs(folder)
	if err != nil {
		stateMgr.Close()
		return model{}, err
	}

	tracks, err := library.Scan(folder)
	if err != nil {
		stateMgr.Close()
		return model{}, err
	}

	sess := session.New(engine.New())

	playlist := make([]session.Track, len(tracks))
	for i, t := range tracks {
		playlist[i] = session.Track{Path: t.Path, Title: t.Title}
	}
	sess.SetPlaylist(playlist)

	m := model{
		session:  sess,
		stateMgr: stateMgr,
		cfg:      cfg,
		folder:   folder,
		tracks:   tracks,
		device:   -1,
	}

	if devices, devErr := sess.OutputDevices(); devErr == nil {
		for _, d := range devices {
			m.devices = append(m.devices, d.Name)
		}
	}

	// Restore saved audio settings and device
	deviceName := cfg.OutputDevice
	if saved != nil {
		sess.SetVolume(saved.Volume)
		if saved.Speed > 0 {
			sess.SetSpeed(saved.Speed)
		}
		if saved.TrackIndex > 0 && saved.TrackIndex < len(tracks) {
			m.cursor = saved.TrackIndex
		}
		if saved.OutputDevice != "" {
			deviceName = saved.OutputDevice
		}
	}
	if deviceName != "" {
		sess.SetOutputDevice(deviceName)
		for i, name := range m.devices {
			if name == deviceName {
				m.device = i
				break
			}
		}
	}

	if adapter, mprisErr := mpris.New(sess); mprisErr == nil {
		m.mpris = adapter
	}

	return m, nil
}

// setupLogging sends logrus output to a file so it never corrupts the
// terminal UI.
func setupLogging(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)

	path, err := xdg.StateFile(filepath.Join("cadenza", "cadenza.log"))
	if err != nil {
		logrus.SetOutput(io.Discard)
		return
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		logrus.SetOutput(io.Discard)
		return
	}
	logrus.SetOutput(f)
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

const playerBarHeight = 3 // top border + content + bottom border

func (m model) listHeight() int {
	h := m.height - playerBarHeight - 1 // player bar + header line
	if h < 1 {
		h = 1
	}
	return h
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		if m.session.Status().Finished {
			if info, err := m.session.Next(); err == nil {
				m.cursor = info.Index
				m.saveState()
			}
		}
		return m, tickCmd()
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.errMsg = ""

	switch msg.String() {
	case "q", "ctrl+c":
		m.quit()
		return m, tea.Quit

	case "j", "down":
		if m.cursor < len(m.tracks)-1 {
			m.cursor++
		}

	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}

	case "g", "home":
		m.cursor = 0

	case "G", "end":
		if len(m.tracks) > 0 {
			m.cursor = len(m.tracks) - 1
		}

	case "enter":
		if _, err := m.session.Play(m.cursor, 0); err != nil {
			m.errMsg = err.Error()
		} else {
			m.saveState()
		}

	case " ":
		if _, err := m.session.TogglePause(); err != nil {
			m.errMsg = err.Error()
		}

	case "s":
		m.session.Stop()

	case "n":
		if info, err := m.session.Next(); err == nil {
			m.cursor = info.Index
			m.saveState()
		} else {
			m.errMsg = err.Error()
		}

	case "p":
		if info, err := m.session.Previous(); err == nil {
			m.cursor = info.Index
			m.saveState()
		} else {
			m.errMsg = err.Error()
		}

	case "+", "=":
		m.session.SetVolume(m.session.Status().Volume + m.cfg.VolumeStep)
		m.saveState()

	case "-":
		m.session.SetVolume(m.session.Status().Volume - m.cfg.VolumeStep)
		m.saveState()

	case "left":
		if _, err := m.session.SeekRelative(-m.seekStep()); err != nil {
			m.errMsg = err.Error()
		}

	case "right":
		if _, err := m.session.SeekRelative(m.seekStep()); err != nil {
			m.errMsg = err.Error()
		}

	case "<":
		m.session.SetSpeed(m.session.Status().Speed - 0.25)
		m.saveState()

	case ">":
		m.session.SetSpeed(m.session.Status().Speed + 0.25)
		m.saveState()

	case "o":
		m.cycleDevice()
	}

	m.clampScroll()
	return m, nil
}

func (m *model) cycleDevice() {
	if len(m.devices) == 0 {
		m.errMsg = "no output devices found"
		return
	}
	m.device = (m.device + 1) % len(m.devices)
	m.session.SetOutputDevice(m.devices[m.device])
	m.saveState()
}

func (m model) seekStep() time.Duration {
	return time.Duration(m.cfg.SeekStepSeconds) * time.Second
}

func (m *model) clampScroll() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
}

func (m model) saveState() {
	st := m.session.Status()
	device := ""
	if m.device >= 0 && m.device < len(m.devices) {
		device = m.devices[m.device]
	}
	m.stateMgr.SavePlayer(state.PlayerState{
		Folder:       m.folder,
		TrackIndex:   st.Index,
		Volume:       st.Volume,
		Speed:        st.Speed,
		OutputDevice: device,
	})
}

func (m model) quit() {
	m.saveState()
	if m.mpris != nil {
		m.mpris.Close()
	}
	m.session.Close()
	m.stateMgr.Close()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) View() string {
	var b strings.Builder

	st := m.session.Status()

	header := filepath.Base(m.folder)
	if len(m.tracks) == 0 {
		header += "  (no playable files)"
	}
	b.WriteString(header + "\n")

	h := m.listHeight()
	end := m.offset + h
	if end > len(m.tracks) {
		end = len(m.tracks)
	}
	for i := m.offset; i < end; i++ {
		line := m.tracks[i].Title
		switch {
		case i == m.cursor:
			line = selectedStyle.Render("> " + line)
		case st.Playing && i == st.Index:
			line = playingStyle.Render("  " + line)
		default:
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	for i := end - m.offset; i < h; i++ {
		b.WriteString("\n")
	}

	b.WriteString(m.playerBar(st))
	return b.String()
}

func (m model) playerBar(st session.Status) string {
	innerWidth := m.width - 2
	if innerWidth < 0 {
		innerWidth = 0
	}

	var left string
	switch {
	case m.errMsg != "":
		left = " ! " + m.errMsg
	case !st.Playing:
		left = " ⏹  stopped"
	case st.Paused:
		left = " ⏸  " + st.TrackTitle
	default:
		left = " ▶  " + st.TrackTitle
	}

	right := formatDuration(st.Elapsed)
	if st.HasDuration {
		right += " / " + formatDuration(st.Duration)
	}
	right += fmt.Sprintf("  vol %3.0f%%", st.Volume*100)
	if st.Speed != 1 {
		right += fmt.Sprintf("  %.2fx", st.Speed)
	}
	right += " "

	padding := innerWidth - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 0 {
		padding = 0
	}

	content := left + strings.Repeat(" ", padding) + right
	return playerBarStyle.Width(innerWidth).Render(content)
}

func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

func main() {
	m, err := initialModel()
	if err != nil {
		fmt.Printf("Error initializing: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}
