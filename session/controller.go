// Package session owns one practice session: which sentence is being
// practised, the recording, its critique and reference playback.
package session

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/google/uuid"

	"fluent/apperr"
	"fluent/audio"
	"fluent/clipstore"
	"fluent/encoder"
	"fluent/gemini"
	"fluent/log"
	"fluent/playback"
)

type Recorder interface {
	Start() error
	Stop() (*audio.Clip, error)
	Close()
}

type Analyzer interface {
	Analyze(ctx context.Context, audio gemini.Audio, sentence string) gemini.Analysis
}

type Synthesizer interface {
	Synthesize(ctx context.Context, sentence string) *gemini.Playback
}

type Deps struct {
	Recorder    Recorder
	Analyzer    Analyzer
	Synthesizer Synthesizer
	Player      playback.Player
	Store       *clipstore.Store
	Sink        Sink
}

// Controller serializes every session mutation behind mu. Remote calls and
// playback run in goroutines and report back through methods that check a
// generation counter first, so a result that arrives after Reset or a newer
// request is dropped.
type Controller struct {
	d Deps

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	st          State
	handle      *clipstore.Handle
	analysisGen uint64
	refGen      uint64
	recGen      uint64
	cancelRef   context.CancelFunc
	cancelRec   context.CancelFunc
	pending     []func(Sink)

	recordings int
	analyses   int

	// emitMu keeps sink delivery in mutation order across goroutines
	emitMu sync.Mutex
}

func New(d Deps) *Controller {
	if d.Sink == nil {
		d.Sink = nopSink{}
	}
	if d.Player == nil {
		d.Player = playback.Null{}
	}
	if d.Store == nil {
		d.Store = clipstore.New("")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		d:      d,
		ctx:    ctx,
		cancel: cancel,
		st:     State{ID: uuid.NewString(), Phase: Idle, Sentence: DefaultSentence()},
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

// Wait blocks until every background analysis and playback has reported.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) changed() {
	st := c.st
	c.pending = append(c.pending, func(s Sink) { s.StateChanged(st) })
}

func (c *Controller) notify(n Notification) {
	c.pending = append(c.pending, func(s Sink) { s.Notify(n) })
	if n.Level == Error {
		log.Warnf("%s: %s (%s)", n.Title, n.Body, n.Kind)
	}
}

// unlock releases mu and then delivers the events queued while it was held.
func (c *Controller) unlock() {
	events := c.pending
	c.pending = nil
	c.emitMu.Lock()
	c.mu.Unlock()
	defer c.emitMu.Unlock()
	for _, ev := range events {
		ev(c.d.Sink)
	}
}

// Start begins a recording. From Ready the previous recording and its
// feedback are discarded first.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.unlock()

	switch c.st.Phase {
	case Recording:
		return
	case Analyzing:
		c.notify(failure(apperr.Validation, "Analysis in progress", "Wait for the analysis to finish or reset the session"))
		return
	}

	c.discardLocked()
	if err := c.d.Recorder.Start(); err != nil {
		c.st.Phase = Idle
		c.notify(micFailure(err))
		c.changed()
		return
	}
	c.st.Phase = Recording
	c.notify(info("Recording started", "Speak the sentence clearly into your microphone"))
	c.changed()
}

// Stop finalizes the recording and immediately starts its analysis. When
// nothing is recording it only makes sure the phase says so.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.unlock()

	if c.st.Phase != Recording {
		return
	}

	clip, err := c.d.Recorder.Stop()
	if err != nil {
		c.st.Phase = Idle
		c.notify(failure(apperr.KindOf(err), "Recording Error", "Failed to record audio. Please try again."))
		c.changed()
		return
	}
	if clip == nil {
		c.st.Phase = Idle
		c.notify(failure(apperr.DeviceUnavailable, "No audio captured", "Nothing was recorded. Check your microphone and try again"))
		c.changed()
		return
	}

	c.releaseHandleLocked()
	h, err := c.d.Store.Create(clip.PCM)
	if err != nil {
		log.Warnf("playable copy of recording: %v", err)
	}
	c.handle = h
	c.st.HasHandle = h != nil
	c.st.Clip = clip
	c.recordings++
	log.Recording(clip.Duration.Seconds(), clip.Chunks, float64(len(clip.PCM))/1024, float64(len(clip.Data))/1024, clip.Format, float64(clip.Encode.Microseconds())/1000)

	c.notify(info("Recording complete", "Analyzing your pronunciation..."))
	c.beginAnalysisLocked()
	c.changed()
}

// Analyze critiques the stored recording again. A newer request supersedes
// any analysis still in flight.
func (c *Controller) Analyze() {
	c.mu.Lock()
	defer c.unlock()

	if c.st.Clip == nil {
		c.notify(failure(apperr.Validation, "No Recording", "Please record your pronunciation first"))
		return
	}
	c.beginAnalysisLocked()
	c.changed()
}

func (c *Controller) beginAnalysisLocked() {
	c.analysisGen++
	gen := c.analysisGen
	c.st.Phase = Analyzing
	c.st.Feedback = ""
	c.st.FeedbackErr = ""

	clip, sentence := c.st.Clip, c.st.Sentence
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res := c.d.Analyzer.Analyze(c.ctx, gemini.Audio{Data: clip.Data, MIMEType: clip.MIMEType}, sentence)
		c.finishAnalysis(gen, res)
	}()
}

func (c *Controller) finishAnalysis(gen uint64, res gemini.Analysis) {
	c.mu.Lock()
	defer c.unlock()

	if gen != c.analysisGen || c.st.Phase != Analyzing {
		log.Debug("dropping stale analysis")
		return
	}
	kind := apperr.KindOf(res.Err)
	c.analyses++
	log.Analysis(Index(c.st.Sentence), len(res.Text), string(kind))

	c.st.Phase = Ready
	c.st.Feedback = res.Text
	c.st.FeedbackErr = kind
	switch {
	case res.Err == nil:
		c.notify(info("Analysis complete", "Check your pronunciation feedback below"))
	case kind == apperr.MalformedResponse:
		c.notify(failure(kind, "Analysis incomplete", "Please try recording again with clearer audio"))
	default:
		c.notify(failure(kind, "Analysis Error", "Failed to analyze pronunciation. Please try again."))
	}
	c.changed()
}

// Reset returns to Idle from any state. An active recording is discarded
// and results still in flight are ignored when they arrive.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.unlock()
	c.resetLocked()
	c.notify(info("Session reset", "Ready for a new pronunciation practice"))
	c.changed()
}

func (c *Controller) resetLocked() {
	if c.st.Phase == Recording {
		c.d.Recorder.Close()
	}
	c.discardLocked()
	if c.cancelRef != nil {
		c.cancelRef()
		c.cancelRef = nil
	}
	c.refGen++
	c.st.PlayingReference = false
	c.st.Phase = Idle
	c.st.ID = uuid.NewString()
	log.Infof("session %s", c.st.ID)
}

// discardLocked drops the recording, its handle and feedback.
func (c *Controller) discardLocked() {
	c.releaseHandleLocked()
	if c.cancelRec != nil {
		c.cancelRec()
		c.cancelRec = nil
	}
	c.recGen++
	c.analysisGen++
	c.st.PlayingRecording = false
	c.st.Clip = nil
	c.st.Feedback = ""
	c.st.FeedbackErr = ""
}

func (c *Controller) releaseHandleLocked() {
	if c.handle == nil {
		return
	}
	if err := c.handle.Release(); err != nil {
		log.Warnf("release recording: %v", err)
	}
	c.handle = nil
	c.st.HasHandle = false
}

// SelectSentence switches the practice sentence, which resets the session.
func (c *Controller) SelectSentence(s string) error {
	if Index(s) < 0 {
		c.mu.Lock()
		c.notify(failure(apperr.Validation, "Unknown sentence", "Pick one of the practice sentences"))
		c.unlock()
		return apperr.Invalid("sentence is not in the catalog")
	}

	c.mu.Lock()
	defer c.unlock()
	c.st.Sentence = s
	c.resetLocked()
	c.notify(info("Session reset", "Ready for a new pronunciation practice"))
	c.changed()
	return nil
}

// PlayReference plays the current sentence in a native voice. It does
// nothing while a reference playback is already running.
func (c *Controller) PlayReference() {
	c.mu.Lock()
	defer c.unlock()

	if c.st.PlayingReference {
		return
	}
	if c.d.Synthesizer == nil {
		c.notify(failure(apperr.PlaybackFailure, "Reference unavailable", "No voice is configured for reference playback"))
		return
	}
	c.refGen++
	gen := c.refGen
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelRef = cancel
	c.st.PlayingReference = true
	c.changed()

	sentence := c.st.Sentence
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		p := c.d.Synthesizer.Synthesize(ctx, sentence)

		var first gemini.Source
		if src, ok := <-p.Started(); ok {
			first = src
			c.referenceStarted(gen, src)
		}
		o := <-p.Done()
		if o.Fallback && first == gemini.Remote {
			c.referenceStarted(gen, gemini.Local)
		}
		c.finishReference(gen, o)
	}()
}

func (c *Controller) referenceStarted(gen uint64, src gemini.Source) {
	c.mu.Lock()
	defer c.unlock()
	if gen != c.refGen {
		return
	}
	if src == gemini.Remote {
		c.notify(info("Playing correct pronunciation", "Listen carefully and try to match this pronunciation"))
	} else {
		c.notify(info("Using local TTS", "Playing pronunciation using local text-to-speech"))
	}
}

func (c *Controller) finishReference(gen uint64, o gemini.Outcome) {
	c.mu.Lock()
	defer c.unlock()
	if gen != c.refGen {
		return
	}
	c.cancelRef = nil
	c.st.PlayingReference = false
	c.changed()
}

// PlayRecording plays the user's own recording back.
func (c *Controller) PlayRecording() {
	c.mu.Lock()
	defer c.unlock()

	if c.st.Clip == nil {
		c.notify(failure(apperr.Validation, "No Recording", "Please record your pronunciation first"))
		return
	}
	if c.st.PlayingRecording {
		return
	}
	if c.handle == nil {
		c.notify(failure(apperr.PlaybackFailure, "Playback Error", "Could not play your recording"))
		return
	}

	c.recGen++
	gen := c.recGen
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelRec = cancel
	c.st.PlayingRecording = true
	c.changed()

	path := c.handle.Path()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		err := playFile(ctx, c.d.Player, path)
		c.finishRecording(gen, err)
	}()
}

func playFile(ctx context.Context, p playback.Player, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	pcm, rate, channels, err := encoder.ParseWAV(data)
	if err != nil {
		return err
	}
	return p.Play(ctx, playback.PCM{Data: pcm, SampleRate: rate, Channels: channels})
}

func (c *Controller) finishRecording(gen uint64, err error) {
	c.mu.Lock()
	defer c.unlock()
	if gen != c.recGen {
		return
	}
	c.cancelRec = nil
	c.st.PlayingRecording = false
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warnf("play recording: %v", err)
		c.notify(failure(apperr.PlaybackFailure, "Playback Error", "Could not play your recording"))
	}
	c.changed()
}

// Close ends the session for good: the microphone and any handle are
// released and background work is cancelled and awaited.
func (c *Controller) Close() {
	c.mu.Lock()
	c.resetLocked()
	recordings, analyses := c.recordings, c.analyses
	c.pending = nil
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	log.SessionEnd(recordings, analyses)
}
