package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"auralite/audio"
	"auralite/doctor"
	"auralite/hotkey"
	"auralite/log"
	"auralite/shutdown"
)

var doctorLive bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check settings, vault, credentials, audio input, hotkey and clipboard",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorLive, "live", false, "also wait for a hotkey press and transcribe a short recording")
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	ctx, stop := shutdown.Context(cmd.Context())
	defer stop()

	actx, err := audio.NewContext()
	if err != nil {
		return fmt.Errorf("initializing audio: %w", err)
	}
	defer actx.Close()

	checks := []doctor.Check{
		doctor.Settings(settingsPath),
		doctor.Vault(opts.vault),
		doctor.Devices(actx, settings.Device),
		doctor.Credentials(settings),
		doctor.Hotkey(),
		doctor.Clipboard(),
	}

	if doctorLive {
		b, err := hotkey.ParseBinding(opts.assistantKeys)
		if err != nil {
			return err
		}
		hk, err := hotkey.New(b)
		if err != nil {
			return err
		}
		stt, err := newTranscriber(settings)
		if err != nil {
			return err
		}
		// An unknown device name already fails the device check.
		dev, _ := audio.FindDevice(actx, settings.Device)
		rec := audio.NewRecorder(actx, dev, log.Component("doctor"))
		defer rec.Teardown()
		checks = append(checks,
			doctor.HotkeyPress(hk, b, out, 10*time.Second),
			doctor.Speech(rec, stt, out, 3*time.Second),
		)
	}

	fmt.Fprintln(out, keyStyle.Render("auralite doctor"))
	if !doctor.Run(ctx, out, checks) {
		return errors.New("some checks failed")
	}
	return nil
}
