package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"auralite/audio"
	"auralite/hotkey"
	"auralite/log"
	"auralite/task"
	"auralite/ui"
)

var testAssistant bool

// testCmd runs the hotkey loop headless against a WAV file, driven by
// commands on stdin: KEYDOWN, KEYUP, WAIT, WAIT_AUDIO_DONE, CANCEL,
// SLEEP <ms> and QUIT.
var testCmd = &cobra.Command{
	Use:    "test <wav>",
	Short:  "Test mode (headless, stdin-driven)",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE:   runTestMode,
}

func init() {
	f := testCmd.Flags()
	f.BoolVar(&testAssistant, "assistant", false, "run assistant tasks instead of transcription")
	f.StringVar(&opts.mode, "mode", "ptt", "hotkey mode: ptt, toggle or hybrid")
	f.DurationVar(&opts.longPress, "longpress", 350*time.Millisecond, "long-press threshold for hybrid mode")
}

func runTestMode(cmd *cobra.Command, args []string) error {
	a, err := newApp(settings)
	if err != nil {
		return err
	}
	stt, err := newTranscriber(settings)
	if err != nil {
		return err
	}
	fake, err := audio.NewFakeContext(args[0], true)
	if err != nil {
		return fmt.Errorf("loading WAV: %w", err)
	}

	kind := task.KindTranscribe
	if testAssistant {
		kind = task.KindAssistant
	}
	rec := audio.NewRecorder(fake, nil, log.Component("audio"))
	defer rec.Teardown()
	deps := a.taskDeps(rec, a.assistant(stt), ui.NewLineSink(cmd.OutOrStdout()))
	deps.Linger = 10 * time.Millisecond
	ctrl := task.NewController(deps)
	hk := hotkey.NewFake()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	log.SessionStart("test", a.llm.Name(), settings.Model)

	go func() {
		defer cancel()
		seen := 0
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			switch line {
			case "KEYDOWN":
				hk.SimKeydown()
			case "KEYUP":
				hk.SimKeyup()
			case "WAIT":
				seen = waitTask(ctrl, seen)
			case "WAIT_AUDIO_DONE":
				if fc := fake.Last(); fc != nil {
					<-fc.AudioDone()
				}
			case "CANCEL":
				ctrl.CancelCurrent()
			case "QUIT":
				return
			default:
				if ms, ok := strings.CutPrefix(line, "SLEEP "); ok {
					if n, err := strconv.Atoi(ms); err == nil {
						time.Sleep(time.Duration(n) * time.Millisecond)
					}
				}
			}
		}
	}()

	hotkeyLoop(ctx, hk, ctrl, kind)
	ctrl.CancelCurrent()
	log.SessionEnd(ctrl.Started())
	return nil
}

// waitTask blocks until a task newer than seen has started and ended.
func waitTask(ctrl *task.Controller, seen int) int {
	deadline := time.Now().Add(10 * time.Second)
	for ctrl.Started() <= seen && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if t := ctrl.Current(); t != nil {
		<-t.Done()
	}
	return ctrl.Started()
}
