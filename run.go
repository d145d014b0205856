package main

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"auralite/audio"
	"auralite/log"
	"auralite/shutdown"
	"auralite/task"
	"auralite/ui"
)

var runCmd = &cobra.Command{
	Use:   "run <instruction>",
	Short: "Plan and execute a typed instruction, without recording",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInstruction,
}

func runInstruction(cmd *cobra.Command, args []string) error {
	a, err := newApp(settings)
	if err != nil {
		return err
	}
	ai := a.assistant(nil)
	sink := ui.NewLineSink(cmd.OutOrStdout())
	for _, ref := range task.ShowAssistant(ai, sink) {
		defer ai.Off(ref)
	}

	ctx, stop := shutdown.Context(cmd.Context())
	defer stop()

	state := ai.Builder().CaptureEditorState()
	err = ai.Run(ctx, strings.Join(args, " "), state)
	if ctx.Err() != nil {
		return errors.New("cancelled")
	}
	return err
}

var fileAssistant bool

var transcribeFileCmd = &cobra.Command{
	Use:   "transcribe-file <wav>",
	Short: "Replay a 16 kHz mono WAV file through a full task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscribeFile,
}

func init() {
	transcribeFileCmd.Flags().BoolVar(&fileAssistant, "assistant", false, "run the assistant on the recording instead of inserting it")
}

func runTranscribeFile(cmd *cobra.Command, args []string) error {
	a, err := newApp(settings)
	if err != nil {
		return err
	}
	stt, err := newTranscriber(settings)
	if err != nil {
		return err
	}
	fake, err := audio.NewFakeContext(args[0], false)
	if err != nil {
		return err
	}

	rec := audio.NewRecorder(fake, nil, log.Component("audio"))
	defer rec.Teardown()
	deps := a.taskDeps(rec, a.assistant(stt), ui.NewLineSink(cmd.OutOrStdout()))
	deps.Silence.Enabled = false
	deps.Linger = time.Millisecond
	ctrl := task.NewController(deps)

	kind := task.KindTranscribe
	if fileAssistant {
		kind = task.KindAssistant
	}
	t, err := ctrl.Start(kind)
	if err != nil {
		return err
	}

	ctx, stop := shutdown.Context(cmd.Context())
	defer stop()

	select {
	case <-fake.Last().AudioDone():
	case <-ctx.Done():
		t.Cancel()
		return errors.New("cancelled")
	}
	if err := t.Stop(); err != nil {
		return err
	}
	select {
	case <-t.Done():
	case <-ctx.Done():
		t.Cancel()
		return errors.New("cancelled")
	}
	log.SessionEnd(ctrl.Started())
	return t.Err()
}
