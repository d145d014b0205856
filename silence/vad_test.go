package silence

import (
	"encoding/binary"
	"math"
	"testing"
)

func genTone(freq float64, durationMs int) []byte {
	n := 16000 * durationMs / 1000
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		sample := int16(16000 * math.Sin(2*math.Pi*freq*float64(i)/16000))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(sample))
	}
	return buf
}

func genSilence(durationMs int) []byte {
	return make([]byte, 16000*durationMs/1000*2)
}

func TestVoiceGateSilence(t *testing.T) {
	g, err := NewVoiceGate()
	if err != nil {
		t.Fatal(err)
	}
	g.Process(genSilence(200))
	if g.VoiceDetected() {
		t.Error("expected no voice on silence")
	}
	if g.HasSpeechTick() {
		t.Error("expected no speech tick on silence")
	}
	total, speech := g.Stats()
	if total != 10 || speech != 0 {
		t.Errorf("stats = %d/%d, want 10/0", total, speech)
	}
}

func TestVoiceGateOddChunkSizes(t *testing.T) {
	g, err := NewVoiceGate()
	if err != nil {
		t.Fatal(err)
	}
	pcm := genSilence(200)
	for i := 0; i < len(pcm); i += 100 {
		end := min(i+100, len(pcm))
		g.Process(pcm[i:end])
	}
	if total, _ := g.Stats(); total != 10 {
		t.Errorf("frames = %d, want 10", total)
	}
	if g.VoiceDetected() {
		t.Error("expected no voice on silence with odd chunks")
	}
}

func TestVoiceGateTickWithNoFrames(t *testing.T) {
	g, err := NewVoiceGate()
	if err != nil {
		t.Fatal(err)
	}
	g.Process(genSilence(10)) // half a frame
	if g.HasSpeechTick() {
		t.Error("tick with no complete frames should not be speech")
	}
}

func TestVoiceGateReset(t *testing.T) {
	g, err := NewVoiceGate()
	if err != nil {
		t.Fatal(err)
	}
	g.Process(genTone(440, 200))
	g.Reset()
	if g.VoiceDetected() {
		t.Error("expected no voice after reset")
	}
	if g.HasSpeechTick() {
		t.Error("expected tick window cleared after reset")
	}
}
