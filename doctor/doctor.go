package doctor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"fluent/apperr"
	"fluent/audio"
	"fluent/config"
	"fluent/gemini"
	"fluent/playback"
	"fluent/session"
	"fluent/speech"
)

const recordFor = 3 * time.Second

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(ctx context.Context, cfg *config.Config, client *gemini.Client) int {
	resetTerminal()
	go func() {
		<-ctx.Done()
		fmt.Println("\nInterrupted")
		os.Exit(1)
	}()

	fmt.Println("fluent doctor - interactive system diagnostics")
	fmt.Println("==============================================")

	reader := bufio.NewReader(os.Stdin)
	allPass := true

	checkConfig(cfg)

	clip, ok := checkMicrophone(reader, cfg.Format)
	if !ok {
		allPass = false
	}
	if !checkGemini(ctx, client, clip) {
		allPass = false
	}
	if !checkOutput(ctx, reader, cfg.FallbackRate) {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func checkConfig(cfg *config.Config) {
	fmt.Println()
	fmt.Println("[1/4] Configuration")
	fmt.Printf("  analysis model:  %s\n", cfg.AnalysisModel)
	fmt.Printf("  synthesis model: %s (voice %s)\n", cfg.SynthesisModel, cfg.Voice)
	fmt.Printf("  recording format: %s\n", cfg.Format)
	if !cfg.HasAPIKey() {
		fmt.Println("  WARN: GEMINI_API_KEY not set; feedback and the native voice are unavailable")
		return
	}
	fmt.Println("  PASS: API key present")
}

func checkMicrophone(reader *bufio.Reader, format string) (*audio.Clip, bool) {
	fmt.Println()
	fmt.Println("[2/4] Microphone")

	actx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return nil, false
	}
	defer actx.Close()

	devices, err := actx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		return nil, false
	}
	if len(devices) == 0 {
		fmt.Println("  FAIL: no capture devices found")
		return nil, false
	}

	var device *audio.DeviceInfo
	if len(devices) == 1 {
		device = &devices[0]
		fmt.Printf("Using device: %s\n", device.Name)
	} else {
		fmt.Println()
		fmt.Println("Select input device:")
		for i, d := range devices {
			fmt.Printf("  %d. %s\n", i+1, d.Name)
		}
		fmt.Printf("Choice [1-%d]: ", len(devices))

		devChoice, _ := reader.ReadString('\n')
		devChoice = strings.TrimSpace(devChoice)
		idx := 0
		if devChoice != "" {
			fmt.Sscanf(devChoice, "%d", &idx)
			idx--
		}
		if idx < 0 || idx >= len(devices) {
			fmt.Printf("  FAIL: invalid choice\n")
			return nil, false
		}
		device = &devices[idx]
		fmt.Printf("Selected: %s\n", device.Name)
	}
	if audio.IsBluetooth(device.Name) {
		fmt.Println("  WARN: Bluetooth microphones lower recording quality")
	}

	fmt.Println()
	fmt.Printf("Press Enter and read aloud: %q\n", session.DefaultSentence())
	reader.ReadString('\n')

	rec := audio.NewRecorder(actx, device, format)
	var peak float64
	rec.OnLevel = func(rms float64) {
		if rms > peak {
			peak = rms
		}
	}
	if err := rec.Start(); err != nil {
		if apperr.KindOf(err) == apperr.PermissionDenied {
			fmt.Println("  FAIL: microphone access denied")
		} else {
			fmt.Printf("  FAIL: %v\n", err)
		}
		return nil, false
	}

	fmt.Print("  Recording")
	for range int(recordFor / (500 * time.Millisecond)) {
		time.Sleep(500 * time.Millisecond)
		fmt.Print(".")
	}
	clip, err := rec.Stop()
	fmt.Println(" done")
	if err != nil {
		fmt.Printf("  FAIL: recording error: %v\n", err)
		return nil, false
	}
	if clip == nil {
		fmt.Println("  FAIL: no audio captured")
		return nil, false
	}

	fmt.Printf("  Recorded %.1fs in %d chunks, %.1f KB %s (encoded in %s)\n",
		clip.Duration.Seconds(), clip.Chunks, float64(len(clip.Data))/1024, clip.Format, clip.Encode.Round(time.Millisecond))
	if peak < 0.02 {
		fmt.Printf("  FAIL: no voice detected (peak level %.3f)\n", peak)
		return clip, false
	}
	fmt.Printf("  PASS: peak level %.3f\n", peak)
	return clip, true
}

func checkGemini(ctx context.Context, client *gemini.Client, clip *audio.Clip) bool {
	fmt.Println()
	fmt.Println("[3/4] Gemini API")

	if !client.Configured() {
		fmt.Println("  SKIP: no API key")
		return true
	}

	pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	start := time.Now()
	if err := client.Ping(pingCtx); err != nil {
		fmt.Printf("  FAIL: %s unreachable: %v\n", client.BaseURL(), err)
		return false
	}
	fmt.Printf("  PASS: reachable in %dms\n", time.Since(start).Milliseconds())

	if clip == nil {
		return true
	}
	fmt.Println("  Analyzing your recording...")
	res := client.Analyzer().Analyze(ctx, gemini.Audio{Data: clip.Data, MIMEType: clip.MIMEType}, session.DefaultSentence())
	if res.Err != nil {
		fmt.Printf("  FAIL: analysis: %v\n", res.Err)
		return false
	}
	fmt.Println()
	for _, line := range strings.Split(res.Text, "\n") {
		fmt.Println("    " + line)
	}
	fmt.Println("  PASS: feedback received")
	return true
}

func checkOutput(ctx context.Context, reader *bufio.Reader, rate float64) bool {
	fmt.Println()
	fmt.Println("[4/4] Audio output and local voice")

	if _, err := playback.NewPlayer(); err != nil {
		fmt.Printf("  FAIL: cannot open audio output: %v\n", err)
		return false
	}

	local, err := speech.NewLocal()
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("  Speaking with %s...\n", local.Engine())
	if err := local.Speak(ctx, session.DefaultSentence(), rate); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}

	resetTerminal()
	fmt.Print("Did you hear the sentence? [y/n]: ")
	confirm, _ := reader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))
	if confirm != "y" && confirm != "yes" {
		fmt.Println("  FAIL: local voice not confirmed")
		return false
	}
	fmt.Println("  PASS: local voice verified by user")
	return true
}
