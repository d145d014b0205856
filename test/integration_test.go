//go:build integration

package test_test

import (
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var testBinary string

func TestMain(m *testing.M) {
	testBinary = os.Getenv("AURALITE_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "AURALITE_TEST_BIN not set; build the binary and point the variable at it")
		os.Exit(1)
	}

	silencePath := filepath.Join("data", "silence.wav")
	if err := os.MkdirAll("data", 0755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create data dir: %v\n", err)
		os.Exit(1)
	}
	if err := generateSilenceWAV(silencePath, 16000, 1.0); err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate silence.wav: %v\n", err)
		os.Exit(1)
	}
	code := m.Run()
	os.Remove(silencePath)
	os.Exit(code)
}

func generateSilenceWAV(path string, sampleRate int, durationS float64) error {
	const headerSize = 44
	numSamples := int(float64(sampleRate) * durationS)
	dataSize := numSamples * 2

	buf := make([]byte, headerSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(headerSize-8+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)  // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	return os.WriteFile(path, buf, 0644)
}

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

type session struct {
	logDir string
	vault  string
	output string
}

// newVault creates a vault holding one empty note.
func newVault(t *testing.T) string {
	t.Helper()
	vault := t.TempDir()
	if err := os.WriteFile(filepath.Join(vault, "Inbox.md"), []byte("# Inbox\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return vault
}

func runAuralite(t *testing.T, vault, stdin string, args ...string) session {
	t.Helper()
	s := session{logDir: t.TempDir(), vault: vault}
	cmdArgs := append([]string{
		"--logpath", s.logDir,
		"--config", filepath.Join(s.logDir, "settings.toml"),
		"--vault", vault,
	}, args...)

	cmd := exec.Command(testBinary, cmdArgs...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = os.Environ()

	out, err := cmd.CombinedOutput()
	s.output = string(out)
	if err != nil {
		t.Fatalf("auralite exited with error: %v\noutput: %s", err, out)
	}
	return s
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

func requireKey(t *testing.T) {
	t.Helper()
	if os.Getenv("OPENAI_API_KEY") == "" {
		t.Skip("OPENAI_API_KEY not set")
	}
}

func requireSpeech(t *testing.T) string {
	t.Helper()
	path := filepath.Join("data", "short.wav")
	if _, err := os.Stat(path); err != nil {
		t.Skip("data/short.wav not present")
	}
	return path
}

func TestDictationInsertsIntoNote(t *testing.T) {
	requireKey(t)
	wav := requireSpeech(t)
	vault := newVault(t)
	s := runAuralite(t, vault, cmds("KEYDOWN", "WAIT_AUDIO_DONE", "KEYUP", "WAIT", "QUIT"),
		"--note", "Inbox.md", "test", wav)

	note := readFile(t, filepath.Join(vault, "Inbox.md"))
	if strings.TrimSpace(note) == "# Inbox" {
		t.Fatalf("nothing inserted\noutput: %s", s.output)
	}
	if strings.TrimSpace(readFile(t, filepath.Join(s.logDir, "transcribe_log.txt"))) == "" {
		t.Error("transcribe_log.txt is empty")
	}
	if !strings.Contains(s.output, "Added to editor") {
		t.Errorf("missing status\noutput: %s", s.output)
	}
}

func TestDictationConnReuse(t *testing.T) {
	requireKey(t)
	wav := requireSpeech(t)
	s := runAuralite(t, newVault(t),
		cmds("KEYDOWN", "WAIT_AUDIO_DONE", "KEYUP", "WAIT", "KEYDOWN", "WAIT_AUDIO_DONE", "KEYUP", "WAIT", "QUIT"),
		"--note", "Inbox.md", "test", wav)
	diag := readFile(t, filepath.Join(s.logDir, "diagnostics_log.txt"))
	if !strings.Contains(diag, "conn=reused") {
		t.Error("expected conn=reused in diagnostics")
	}
}

func TestNoActiveNoteFallsBack(t *testing.T) {
	requireKey(t)
	wav := requireSpeech(t)
	s := runAuralite(t, newVault(t), cmds("KEYDOWN", "WAIT_AUDIO_DONE", "KEYUP", "WAIT", "QUIT"), "test", wav)
	if !strings.Contains(s.output, "No cursor or active editor found") {
		t.Errorf("missing fallback status\noutput: %s", s.output)
	}
}

func TestSilenceRecording(t *testing.T) {
	requireKey(t)
	_ = runAuralite(t, newVault(t), cmds("KEYDOWN", "SLEEP 1200", "KEYUP", "WAIT", "QUIT"),
		"--note", "Inbox.md", "test", filepath.Join("data", "silence.wav"))
}

func TestCancelLeavesNoteUntouched(t *testing.T) {
	requireKey(t)
	wav := requireSpeech(t)
	vault := newVault(t)
	_ = runAuralite(t, vault, cmds("KEYDOWN", "SLEEP 300", "CANCEL", "SLEEP 200", "QUIT"),
		"--note", "Inbox.md", "test", wav)
	if got := readFile(t, filepath.Join(vault, "Inbox.md")); got != "# Inbox\n" {
		t.Errorf("note changed: %q", got)
	}
}

func TestAssistantWrites(t *testing.T) {
	requireKey(t)
	vault := newVault(t)
	s := runAuralite(t, vault, "", "--note", "Inbox.md", "run", "Write one sentence about the sea at the cursor.")
	if !strings.Contains(s.output, "Completed action:") {
		t.Errorf("action did not complete\noutput: %s", s.output)
	}
	if got := readFile(t, filepath.Join(vault, "Inbox.md")); got == "# Inbox\n" {
		t.Error("note unchanged")
	}
}

func TestConfigSetAndShow(t *testing.T) {
	vault := newVault(t)
	s := runAuralite(t, vault, "", "config", "set", "model", "gpt-4o-mini")
	if !strings.Contains(s.output, "model saved") {
		t.Fatalf("output: %s", s.output)
	}
	settings := readFile(t, filepath.Join(s.logDir, "settings.toml"))
	if !strings.Contains(settings, `model = "gpt-4o-mini"`) {
		t.Errorf("settings file:\n%s", settings)
	}
}
