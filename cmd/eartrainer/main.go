package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"eartrainer/internal/audio"
	"eartrainer/internal/config"
	"eartrainer/internal/listen"
	"eartrainer/internal/logger"
	"eartrainer/internal/midiecho"
	"eartrainer/internal/note"
	"eartrainer/internal/trainer"
)

const version = "0.1.0"

// App holds all application state
type App struct {
	logger   *zap.Logger
	config   *config.Config
	session  *trainer.Session
	listener *listen.Listener
	echo     *midiecho.Echo
	notation note.Notation

	mu         sync.Mutex
	lastStatus listen.Status
}

func main() {
	configPath := flag.String("config", config.GetConfigPath(), "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	listDevices := flag.Bool("list-devices", false, "list audio input devices and exit")
	flag.Parse()

	log, err := logger.New(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *listDevices {
		devices, err := audio.ListDevices()
		if err != nil {
			log.Fatal("failed to list devices", zap.Error(err))
		}
		for _, dev := range devices {
			marker := " "
			if dev.IsDefault {
				marker = "*"
			}
			fmt.Printf("%s %3d  %s\n", marker, dev.ID, dev.Name)
		}
		return
	}

	app := &App{logger: log, lastStatus: listen.Listening}

	app.config, err = config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load config", zap.String("path", *configPath), zap.Error(err))
	}
	if err := app.config.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}
	log.Info("eartrainer starting", zap.String("version", version), zap.String("config", *configPath))

	low, high, err := app.config.Range()
	if err != nil {
		log.Fatal("invalid note range", zap.Error(err))
	}
	app.notation = app.config.NotationSystem()
	app.session = trainer.NewSession(low, high, app.config.IncludeAccidentals)

	if app.config.MIDIEcho {
		app.echo, err = midiecho.Open(app.config.MIDIPort, log)
		if err != nil {
			log.Warn("MIDI echo unavailable, continuing without it", zap.Error(err))
		} else {
			defer app.echo.Close()
		}
	}

	audioCfg := audio.DefaultConfig()
	audioCfg.DeviceID = app.config.AudioDeviceID

	opts := listen.Options{
		StabilityWindow: time.Duration(app.config.StabilityMs) * time.Millisecond,
		RearmWindow:     time.Duration(app.config.RearmMs) * time.Millisecond,
		RearmThreshold:  app.config.RearmThreshold,
		RecoveryTimeout: time.Duration(app.config.RecoveryTimeoutMs) * time.Millisecond,
		OnStatus:        app.onStatus,
	}
	app.listener = listen.New(audio.OpenPortAudio, audioCfg, opts, log)

	if err := app.listener.Start(app.onNote); err != nil {
		log.Fatal("failed to start listening", zap.Error(err))
	}

	app.printNextTarget()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.listener.Stop()
	fmt.Println()
	fmt.Println(app.session.Summary())
}

// onNote judges each detected note against the current target. Called from
// the capture loop goroutine.
func (a *App) onNote(detected note.Note) {
	result := a.session.Judge(detected)

	if a.echo != nil {
		a.echo.Play(uint8(detected.MIDI()), 300*time.Millisecond)
	}

	target, _ := a.session.Target()
	switch result {
	case trainer.Correct:
		fmt.Printf("  ✓ %s\n", detected.Format(a.notation))
		a.printNextTarget()
	default:
		fmt.Printf("  ✗ heard %s, want %s\n",
			detected.Format(a.notation), target.Format(a.notation))
	}
}

func (a *App) printNextTarget() {
	target, err := a.session.NextTarget()
	if err != nil {
		a.logger.Error("failed to pick target", zap.Error(err))
		return
	}
	fmt.Printf("Sing: %s\n", target.Format(a.notation))
}

// onStatus prints session-health transitions. Level updates arrive on every
// frame; only status changes are shown.
func (a *App) onStatus(status listen.Status, level float64) {
	a.mu.Lock()
	changed := status != a.lastStatus
	a.lastStatus = status
	a.mu.Unlock()

	if !changed {
		return
	}
	switch status {
	case listen.Recovering:
		fmt.Println("  (microphone lost, recovering...)")
	case listen.Listening:
		fmt.Println("  (listening)")
	case listen.Error:
		fmt.Println("  (microphone error: restart to try again)")
	}
}
