package main

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"

	"auralite/config"
	"auralite/hotkey"
	"auralite/log"
)

var version = "dev"

type options struct {
	vault      string
	note       string
	line       int
	ch         int
	follow     bool
	configPath string
	logPath    string
	provider   string
	device     string
	setup      bool
	tui        bool
	mode       string
	longPress  time.Duration
	profile    string

	assistantKeys  string
	transcribeKeys string
}

var (
	opts         options
	settings     config.Settings
	settingsPath string
)

var rootCmd = &cobra.Command{
	Use:   "auralite",
	Short: "Push-to-talk voice assistant for a Markdown vault",
	Long: `auralite records your voice on a global hotkey, transcribes it and lets a
language model write into, edit or create notes in a Markdown vault.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { log.Close() },
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&opts.vault, "vault", ".", "vault directory")
	f.StringVar(&opts.note, "note", "", "active note, relative to the vault")
	f.IntVar(&opts.line, "line", -1, "cursor line in the active note (default: end of file)")
	f.IntVar(&opts.ch, "ch", 0, "cursor column in the active note")
	f.BoolVar(&opts.follow, "follow", false, "make the most recently written note active")
	f.StringVar(&opts.configPath, "config", "", "settings file (default: $AURALITE_CONFIG or the user config dir)")
	f.StringVar(&opts.logPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	f.StringVar(&opts.provider, "provider", "", "language model provider: openai or ollama (overrides settings)")
	f.StringVar(&opts.profile, "profile", "", "enable pprof profiling server (e.g., localhost:6060)")

	for _, c := range []*cobra.Command{assistantCmd, transcribeCmd} {
		lf := c.Flags()
		lf.StringVar(&opts.device, "device", "", "use the capture device whose name contains this")
		lf.BoolVar(&opts.setup, "setup", false, "pick the capture device interactively")
		lf.BoolVar(&opts.tui, "tui", true, "run with terminal UI")
		lf.StringVar(&opts.mode, "mode", "ptt", "hotkey mode: ptt, toggle or hybrid")
		lf.DurationVar(&opts.longPress, "longpress", 350*time.Millisecond, "long-press threshold for PTT vs tap in hybrid mode")
	}
	assistantCmd.Flags().StringVar(&opts.assistantKeys, "hotkey", hotkey.DefaultAssistant, "key combination")
	transcribeCmd.Flags().StringVar(&opts.transcribeKeys, "hotkey", hotkey.DefaultTranscribe, "key combination")

	rootCmd.AddCommand(assistantCmd, transcribeCmd, runCmd, transcribeFileCmd, testCmd,
		actionsCmd, configCmd, devicesCmd, doctorCmd)
}

// setup resolves the log directory, sends crashes there and loads the
// settings.
func setup(cmd *cobra.Command, _ []string) error {
	logPath, err := log.ResolveDir(opts.logPath)
	if err != nil {
		return fmt.Errorf("failed to resolve log directory: %w", err)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	if opts.profile != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", opts.profile)
			if err := http.ListenAndServe(opts.profile, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	settingsPath, err = config.ResolvePath(opts.configPath)
	if err != nil {
		return err
	}
	settings, err = config.Load(settingsPath)
	if err != nil {
		return err
	}
	if opts.provider != "" {
		settings.Provider = opts.provider
	}
	mainLog := log.Component("main")
	mainLog.Debug().Str("cmd", cmd.Name()).Str("settings", settingsPath).Msg("start")
	return nil
}

func run() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
