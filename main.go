package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"fluent/audio"
	"fluent/beep"
	"fluent/clipstore"
	"fluent/config"
	"fluent/doctor"
	"fluent/gemini"
	"fluent/log"
	"fluent/playback"
	"fluent/session"
	"fluent/shutdown"
	"fluent/speech"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	formatFlag := flag.String("format", "", "Recording encoding sent for analysis: flac or wav (default from FLUENT_FORMAT, else flac)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	sentenceFlag := flag.Int("sentence", 0, "Start on practice sentence N (1-5)")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven): fluent -test <wav-file>")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	noBeepFlag := flag.Bool("nobeep", false, "Disable audio cues")
	profileFlag := flag.String("profile", "", "Enable pprof profiling server (e.g., localhost:6060)")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("fluent %s\n", version)
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if *formatFlag != "" {
		cfg.Format = *formatFlag
	}
	if *logPathFlag != "" {
		cfg.LogPath = *logPathFlag
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logPath, err := log.ResolveDir(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	if crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	client, err := gemini.New(ctx, gemini.Config{
		APIKey:         cfg.GeminiAPIKey,
		BaseURL:        cfg.GeminiBaseURL,
		AnalysisModel:  cfg.AnalysisModel,
		SynthesisModel: cfg.SynthesisModel,
		Voice:          cfg.Voice,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *doctorFlag {
		return doctor.Run(ctx, cfg, client)
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	if !client.Configured() {
		log.Warn("GEMINI_API_KEY not set: analysis returns placeholders and reference playback uses the local voice")
	}

	if *testFlag {
		args := flag.Args()
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: fluent -test <wav-file>")
			return 1
		}
		return runTestMode(ctx, cfg, client, args[0], *sentenceFlag)
	}

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio context: %v\n", err)
		return 1
	}
	defer actx.Close()

	device, err := pickDevice(actx, *deviceFlag, *setupFlag)
	if errors.Is(err, audio.ErrPickerCancelled) {
		return 130
	}
	if err != nil {
		log.Warnf("device selection failed: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: device selection failed: %v (using default device)\n", err)
	}

	player, err := playback.NewPlayer()
	if err != nil {
		log.Warnf("audio output unavailable: %v", err)
		player = playback.Null{}
	}
	if *noBeepFlag {
		beep.Disable()
	} else {
		beep.Init(player)
	}

	speaker := localSpeaker()
	go client.Warm(ctx)

	rec := audio.NewRecorder(actx, device, cfg.Format)
	ui := newTUI(deviceLabel(device), modeLabel(cfg, client))
	watch := newLevelWatcher(true)

	ctrl := session.New(session.Deps{
		Recorder:    rec,
		Analyzer:    client.Analyzer(),
		Synthesizer: client.Synthesizer(player, speaker, cfg.FallbackRate),
		Player:      player,
		Store:       clipstore.New(""),
		Sink:        newCueSink(ui, watch),
	})
	ui.ctrl = ctrl

	rec.OnLevel = func(rms float64) {
		ui.send(AudioLevelMsg{Level: rms})
		switch watch.Level(rms) {
		case SilenceWarn:
			log.Info("no_voice_warning")
			ui.send(NoVoiceWarningMsg{})
			beep.PlayError()
		case SilenceWarnClear:
			ui.send(VoiceClearedMsg{})
		case SilenceAutoClose:
			log.Info("silence_auto_stop")
			go ctrl.Stop()
		}
	}

	if *sentenceFlag != 0 {
		s, err := session.Sentence(*sentenceFlag - 1)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: -sentence must be between 1 and %d\n", len(session.Catalog))
			return 1
		}
		ctrl.SelectSentence(s)
	}

	log.SessionStart(deviceName(device), cfg.Format, cfg.AnalysisModel, cfg.SynthesisModel)

	go func() {
		<-ctx.Done()
		ui.quit()
	}()

	err = ui.run(ctrl.State())
	ctrl.Close()
	if err != nil {
		log.Errorf("TUI error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// pickDevice resolves -device and -setup. A nil device means the system
// default.
func pickDevice(actx audio.Context, name string, setup bool) (*audio.DeviceInfo, error) {
	if name != "" {
		devices, err := actx.Devices()
		if err != nil {
			return nil, err
		}
		for i := range devices {
			if devices[i].Name == name {
				return &devices[i], nil
			}
		}
		return nil, fmt.Errorf("no device named %q", name)
	}
	if setup {
		return audio.SelectDevice(actx)
	}
	return nil, nil
}

func localSpeaker() speech.Speaker {
	l, err := speech.NewLocal()
	if err != nil {
		log.Warnf("local voice: %v", err)
		return speech.NoOp{}
	}
	log.Info("local_voice: " + l.Engine())
	return l
}

func deviceName(dev *audio.DeviceInfo) string {
	if dev == nil {
		return "default"
	}
	return dev.Name
}

func deviceLabel(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT!)"
		}
	}
	return "mic: " + name + suffix
}

func modeLabel(cfg *config.Config, client *gemini.Client) string {
	if !client.Configured() {
		return fmt.Sprintf("[%s | offline]", cfg.Format)
	}
	return fmt.Sprintf("[%s | %s | voice %s]", cfg.Format, cfg.AnalysisModel, cfg.Voice)
}
