package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"auralite/action"
	"auralite/audio"
	"auralite/config"
)

var (
	keyStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the actions the assistant can plan",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, a := range action.Defaults().All() {
			mode := "single"
			if a.SupportsStreaming() {
				mode = "stream"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s %s\n", keyStyle.Render(a.ID()), dimStyle.Render("["+mode+"]"), a.Description())
		}
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every setting (the API key is masked)",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, kv := range settings.Redacted() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-26s %s\n", kv[0], kv[1])
		}
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting and save the file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Reload so a --provider override is not persisted.
		s, err := config.Load(settingsPath)
		if err != nil {
			return err
		}
		if err := s.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := config.Save(settingsPath, s); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s saved to %s\n", args[0], settingsPath)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), settingsPath)
	},
}

var selectDevice bool

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List capture devices, or pick the default one with --select",
	Args:  cobra.NoArgs,
	RunE:  runDevices,
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configPathCmd)
	devicesCmd.Flags().BoolVar(&selectDevice, "select", false, "pick a device interactively and save it")
}

func runDevices(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	ctx, err := audio.NewContext()
	if err != nil {
		return fmt.Errorf("initializing audio: %w", err)
	}
	defer ctx.Close()

	if selectDevice {
		dev, err := audio.SelectDevice(ctx, settings.Device)
		if err != nil {
			return err
		}
		s, err := config.Load(settingsPath)
		if err != nil {
			return err
		}
		s.Device = dev.Name
		if err := config.Save(settingsPath, s); err != nil {
			return err
		}
		fmt.Fprintf(out, "Using %s\n", dev.Name)
		return nil
	}

	devices, err := ctx.Devices()
	if err != nil {
		return err
	}
	for _, d := range devices {
		line := "  " + d.Name
		if d.Name == settings.Device {
			line = keyStyle.Render("▶ " + d.Name)
		}
		if audio.IsBluetooth(d.Name) {
			line += warnStyle.Render(" (bluetooth: expect low quality)")
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, dimStyle.Render("run `auralite doctor` to check the rest of the setup"))
	return nil
}
