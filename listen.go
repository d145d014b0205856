package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"auralite/assistant"
	"auralite/audio"
	"auralite/beep"
	"auralite/hotkey"
	"auralite/log"
	"auralite/shutdown"
	"auralite/task"
	"auralite/ui"
)

var assistantCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Listen for the assistant hotkey and act on spoken instructions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return listen(cmd.Context(), task.KindAssistant, opts.assistantKeys)
	},
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Listen for the dictation hotkey and insert transcriptions at the cursor",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return listen(cmd.Context(), task.KindTranscribe, opts.transcribeKeys)
	},
}

func listen(parent context.Context, kind task.Kind, keys string) error {
	switch opts.mode {
	case "ptt", "toggle", "hybrid":
	default:
		return fmt.Errorf("unknown mode %q (use ptt, toggle or hybrid)", opts.mode)
	}
	binding, err := hotkey.ParseBinding(keys)
	if err != nil {
		return err
	}

	a, err := newApp(settings)
	if err != nil {
		return err
	}
	stt, err := newTranscriber(settings)
	if err != nil {
		return err
	}

	audioCtx, err := audio.NewContext()
	if err != nil {
		return fmt.Errorf("initializing audio: %w", err)
	}
	defer audioCtx.Close()

	device := opts.device
	if device == "" {
		device = settings.Device
	}
	var dev *audio.DeviceInfo
	if opts.setup {
		dev, err = audio.SelectDevice(audioCtx, device)
	} else {
		dev, err = audio.FindDevice(audioCtx, device)
	}
	if err != nil {
		return err
	}

	hk, err := hotkey.New(binding)
	if err != nil {
		return err
	}
	if err := hk.Register(); err != nil {
		return fmt.Errorf("registering %s: %w", binding, err)
	}
	defer hk.Unregister()

	ctx, stop := shutdown.Context(parent)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if w, ok := stt.(interface{ Warm(context.Context) }); ok {
		w.Warm(ctx)
	}
	rec := audio.NewRecorder(audioCtx, dev, log.Component("audio"))
	defer rec.Teardown()
	ai := a.assistant(stt)

	cues := beep.NewSpeaker(log.Component("beep"))
	cues.SetEnabled(settings.SoundCues)
	defer cues.Wait()
	playCues(cues, rec, ai)

	var ctrl *task.Controller
	var sink task.StatusSink
	if opts.tui {
		p := ui.NewProgram(binding.String(), func() { ctrl.CancelCurrent() })
		sink = ui.NewProgramSink(p)
		go func() {
			if _, err := p.Run(); err != nil {
				a.log.Error().Err(err).Msg("tui")
			}
			cancel()
		}()
		defer p.Quit()
		p.Send(ui.ModeLineMsg{Text: modeLine(kind, a, stt)})
		p.Send(ui.NoteLineMsg{Text: noteLine(a.ws)})
	} else {
		sink = ui.NewLineSink(os.Stdout)
		fmt.Printf("%s: press %s to talk, Ctrl+C to quit\n", modeLine(kind, a, stt), binding)
	}
	ctrl = task.NewController(a.taskDeps(rec, ai, sink))

	if opts.follow {
		go func() {
			if err := a.ws.Follow(ctx); err != nil {
				a.log.Warn().Err(err).Msg("follow vault")
			}
		}()
	}

	log.SessionStart(string(kind), a.llm.Name(), settings.Model)
	hotkeyLoop(ctx, hk, ctrl, kind)
	ctrl.CancelCurrent()
	log.SessionEnd(ctrl.Started())
	return nil
}

// playCues marks recording start and stop and failed runs with a tone.
func playCues(p *beep.Player, rec *audio.Recorder, ai *assistant.Manager) {
	rec.On(audio.RecordingStarted, func(audio.Payload) { p.Play(beep.Start) })
	rec.On(audio.RecordingStopped, func(audio.Payload) { p.Play(beep.End) })
	rec.On(audio.Error, func(audio.Payload) { p.Play(beep.Error) })
	ai.On(assistant.Error, func(assistant.Payload) { p.Play(beep.Error) })
}

// hotkeyLoop drives the controller from key events until ctx ends.
func hotkeyLoop(ctx context.Context, hk hotkey.Hotkey, ctrl *task.Controller, kind task.Kind) {
	logger := log.Component("hotkey")
	start := func() {
		if _, err := ctrl.Start(kind); err != nil {
			logger.Warn().Err(err).Msg("start task")
		}
	}
	stop := func() {
		if err := ctrl.Stop(); err != nil {
			logger.Debug().Err(err).Msg("stop task")
		}
	}

	switch opts.mode {
	case "hybrid":
		hy := hotkey.NewHybrid(ctx, hk, opts.longPress)
		for {
			select {
			case <-ctx.Done():
				return
			case <-hy.Start():
				start()
			case <-hy.StopChan():
				stop()
			}
		}
	case "toggle":
		for {
			select {
			case <-ctx.Done():
				return
			case <-hk.Keydown():
				if _, err := ctrl.Toggle(kind); err != nil {
					logger.Warn().Err(err).Msg("toggle task")
				}
			case <-hk.Keyup():
			}
		}
	default:
		for {
			select {
			case <-ctx.Done():
				return
			case <-hk.Keydown():
				start()
			case <-hk.Keyup():
				stop()
			}
		}
	}
}
