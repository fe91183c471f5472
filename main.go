package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hypebeast/go-osc/osc"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/schollz/polysurface/internal/audio"
	"github.com/schollz/polysurface/internal/config"
	"github.com/schollz/polysurface/internal/engine"
	"github.com/schollz/polysurface/internal/input"
	"github.com/schollz/polysurface/internal/model"
	"github.com/schollz/polysurface/internal/recorder"
	"github.com/schollz/polysurface/internal/storage"
	"github.com/schollz/polysurface/internal/transport"
	"github.com/schollz/polysurface/internal/views"
)

var (
	Version = "dev"

	// Command-line configuration
	flags struct {
		config     string
		debug      string
		engine     string
		oscHost    string
		oscPort    int
		listenPort int
		midiPort   string
		channel    int
		tempo      float64
		project    string
		seed       uint64
		export     bool
		noColor    bool
		tap        string
		tapRate    int
		dump       string
	}
)

// DumpTickMsg triggers periodic dumps to file
type DumpTickMsg struct{}

// shutdownMsg asks the program to release everything and quit.
type shutdownMsg struct{}

var rootCmd = &cobra.Command{
	Use:   "polysurface",
	Short: "A terminal control surface for a polyphonic synth",
	Long: `polysurface plays a polyphonic synth from the computer keyboard.

Features:
• Two-octave keyboard with octave shift
• Arpeggiator, step sequencer and metronome locked to one transport
• Source → reverb → delay → distortion effect chain with presets
• Performance recording, replay and Standard MIDI File export
• OSC, MIDI or built-in software engines`,
	Version: Version,
	RunE:    runSurface,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write the effective configuration to the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if path == "" {
			return fmt.Errorf("no config path")
		}
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	defaultConfig, _ := config.DefaultPath()
	defaults := config.Default()

	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", defaultConfig,
		"Config file (missing file uses defaults)")
	rootCmd.PersistentFlags().StringVarP(&flags.debug, "log", "l", "",
		"Write debug logs to specified file (empty disables)")
	rootCmd.PersistentFlags().StringVarP(&flags.engine, "engine", "e", string(defaults.Engine),
		"Synth engine: osc, midi, soft or silent")
	rootCmd.PersistentFlags().StringVar(&flags.oscHost, "osc-host", defaults.OSC.Host,
		"Host of the OSC synth")
	rootCmd.PersistentFlags().IntVar(&flags.oscPort, "port", defaults.OSC.Port,
		"OSC port of the synth")
	rootCmd.PersistentFlags().IntVar(&flags.listenPort, "listen", defaults.OSC.ListenPort,
		"OSC port to receive analysis samples on (0 disables)")
	rootCmd.PersistentFlags().StringVar(&flags.midiPort, "midi-port", defaults.MIDI.PortName,
		"MIDI output port name (substring match)")
	rootCmd.PersistentFlags().IntVar(&flags.channel, "channel", defaults.MIDI.Channel,
		"MIDI channel, 1-16")
	rootCmd.PersistentFlags().Float64VarP(&flags.tempo, "tempo", "t", defaults.Tempo,
		"Initial tempo in BPM")
	rootCmd.PersistentFlags().StringVarP(&flags.project, "project", "p", defaults.ProjectDir,
		"Project directory for presets and takes")
	rootCmd.PersistentFlags().Uint64Var(&flags.seed, "seed", defaults.Seed,
		"Arpeggiator random seed")
	rootCmd.PersistentFlags().BoolVarP(&flags.export, "export", "x", defaults.ExportTakes,
		"Export every recorded take as a MIDI file")
	rootCmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false,
		"Disable colours")
	rootCmd.PersistentFlags().StringVar(&flags.tap, "tap", "",
		"Write the last analysis tap to this WAV file on exit")
	rootCmd.PersistentFlags().IntVar(&flags.tapRate, "tap-rate", 44100,
		"Sample rate of the --tap WAV file")
	rootCmd.PersistentFlags().StringVarP(&flags.dump, "dump", "d", "",
		"Write terminal frames to specified file every 10 seconds (empty disables)")

	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and layers explicitly set flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path := flags.config
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, path, err
		}
	}

	f := cmd.Flags()
	if f.Changed("engine") {
		cfg.Engine = engine.Kind(flags.engine)
	}
	if f.Changed("osc-host") {
		cfg.OSC.Host = flags.oscHost
	}
	if f.Changed("port") {
		cfg.OSC.Port = flags.oscPort
	}
	if f.Changed("listen") {
		cfg.OSC.ListenPort = flags.listenPort
	}
	if f.Changed("midi-port") {
		cfg.MIDI.PortName = flags.midiPort
	}
	if f.Changed("channel") {
		cfg.MIDI.Channel = flags.channel
	}
	if f.Changed("tempo") {
		cfg.Tempo = flags.tempo
	}
	if f.Changed("project") {
		cfg.ProjectDir = flags.project
	}
	if f.Changed("seed") {
		cfg.Seed = flags.seed
	}
	if f.Changed("export") {
		cfg.ExportTakes = flags.export
	}

	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func setupLogging() (io.Closer, error) {
	if flags.debug == "" {
		// send log to io.Discard
		log.SetOutput(io.Discard)
		return nil, nil
	}
	f, err := tea.LogToFile(flags.debug, "debug")
	if err != nil {
		return nil, err
	}
	// Set log flags to include file and line number for VS Code clickable links
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	return f, nil
}

// openEngine builds the configured engine. The OSC engine registers its
// analysis handler on d.
func openEngine(cfg *config.Config, d *osc.StandardDispatcher) (engine.Engine, error) {
	switch cfg.Engine {
	case engine.KindOSC:
		e := engine.NewOSCEngine(cfg.OSC.Host, cfg.OSC.Port)
		if cfg.OSC.ListenPort > 0 {
			if err := e.Attach(d); err != nil {
				return nil, err
			}
		}
		log.Printf("OSC engine at %s:%d", cfg.OSC.Host, cfg.OSC.Port)
		return e, nil
	case engine.KindMIDI:
		e, err := engine.OpenMIDIEngine(cfg.MIDI.PortName, cfg.MIDI.Channel)
		if err != nil {
			return nil, err
		}
		return e, nil
	case engine.KindSilent:
		return engine.Silent{}, nil
	default:
		return engine.NewSoftEngine(), nil
	}
}

func runSurface(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logFile, err := setupLogging()
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}
	log.Printf("polysurface %s", Version)

	if flags.noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	d := osc.NewStandardDispatcher()
	eng, err := openEngine(cfg, d)
	if err != nil {
		return err
	}
	if cfg.Engine == engine.KindMIDI {
		defer midi.CloseDriver()
	}

	store := storage.NewDirStore(filepath.Join(cfg.ProjectDir, "presets"))
	m := model.NewModel(cfg, eng, transport.NewSystemClock(), store)
	if err := m.LoadPreset(cfg.PresetKey); err != nil {
		log.Printf("starting from default parameters: %v", err)
		m.ClearError()
	}
	if cfg.ExportTakes {
		sink := recorder.NewSMFSink(filepath.Join(cfg.ProjectDir, "takes"), m.Transport.Tempo)
		sink.NoteLength = cfg.ReplayNoteLength
		sink.Channel = uint8(cfg.MIDI.Channel - 1)
		m.Recorder.SetSink(sink)
	}

	sm := &surfaceModel{model: m, help: help.New()}
	if flags.dump != "" {
		f, err := os.Create(flags.dump)
		if err != nil {
			return fmt.Errorf("create dump file: %w", err)
		}
		sm.dumpFile = f
		// Close dump file when function exits
		defer func() {
			if err := f.Close(); err != nil {
				log.Printf("Error closing dump file: %v", err)
			}
		}()
	}

	p := tea.NewProgram(sm, tea.WithAltScreen())

	if cfg.Engine == engine.KindOSC && cfg.OSC.ListenPort > 0 {
		server := &osc.Server{Addr: fmt.Sprintf(":%d", cfg.OSC.ListenPort), Dispatcher: d}
		go func() {
			log.Printf("Starting OSC server on port %d", cfg.OSC.ListenPort)
			if err := server.ListenAndServe(); err != nil {
				log.Printf("Error starting OSC server: %v", err)
			}
		}()
	}

	setupCleanupOnExit(p)

	_, err = p.Run()
	// the program loop has stopped, so the model is ours again
	m.Shutdown()
	writeTap(m)
	return err
}

func writeTap(m *model.Model) {
	if flags.tap == "" {
		return
	}
	if err := audio.WriteAnalysisWAV(flags.tap, m.Analysis(), flags.tapRate); err != nil {
		log.Printf("Error writing tap: %v", err)
		return
	}
	log.Printf("wrote analysis tap to %s", flags.tap)
}

// surfaceModel wraps the model and implements the tea.Model interface
type surfaceModel struct {
	model    *model.Model
	help     help.Model
	width    int
	height   int
	dumpFile *os.File
}

// tickDump schedules the next DumpTickMsg for periodic dumps
func tickDump() tea.Cmd {
	return tea.Tick(10*time.Second, func(time.Time) tea.Msg {
		return DumpTickMsg{}
	})
}

func (sm *surfaceModel) Init() tea.Cmd {
	cmds := []tea.Cmd{input.Tick(sm.model)}

	// Start dump ticker if dump file is enabled
	if sm.dumpFile != nil {
		cmds = append(cmds, tickDump())
	}
	return tea.Batch(cmds...)
}

func (sm *surfaceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		sm.width = msg.Width
		sm.height = msg.Height
		sm.help.Width = msg.Width
		return sm, nil

	case input.TickMsg:
		// drains posted input, advances the transport and fires due events
		sm.model.Tick()
		return sm, input.Tick(sm.model)

	case DumpTickMsg:
		// Write current view to dump file
		if sm.dumpFile != nil {
			timestamp := time.Now().Format("2006-01-02 15:04:05")
			fmt.Fprintf(sm.dumpFile, "\n=== Frame at %s ===\n", timestamp)
			fmt.Fprintf(sm.dumpFile, "%s\n", sm.View())
			sm.dumpFile.Sync()
		}
		return sm, tickDump()

	case shutdownMsg:
		sm.model.Shutdown()
		return sm, tea.Quit

	case tea.KeyMsg:
		if key.Matches(msg, input.Keys.Help) {
			sm.help.ShowAll = !sm.help.ShowAll
			return sm, nil
		}
		return sm, input.HandleKey(sm.model, msg)
	}

	return sm, nil
}

func (sm *surfaceModel) View() string {
	return views.Render(sm.model.Snapshot(), views.Options{
		Width:  sm.width,
		Height: sm.height,
		Help:   sm.help,
		Keys:   input.Keys,
	})
}

func setupCleanupOnExit(p *tea.Program) {
	// Handle cleanup on various exit signals
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-c
		p.Send(shutdownMsg{})
	}()
}
