package silence

import (
	"sync"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"auralite/encoder"
)

const (
	vadMode       = 3
	vadFrameMs    = 20
	vadFrameBytes = encoder.SampleRate * vadFrameMs / 1000 * 2 // 640 bytes
	vadDebounce   = 3                                          // consecutive speech frames to confirm voice

	speechThreshold = 0.10 // share of frames in a tick that must be speech
)

// VoiceGate classifies PCM with WebRTC VAD so quiet speech still counts as
// speech.
type VoiceGate struct {
	vad *webrtcvad.VAD

	mu            sync.Mutex
	buf           []byte
	voiceDetected bool
	speechRun     int
	totalFrames   int
	speechFrames  int
	tickTotal     int
	tickSpeech    int
}

func NewVoiceGate() (*VoiceGate, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, err
	}
	if err := v.SetMode(vadMode); err != nil {
		return nil, err
	}
	return &VoiceGate{vad: v}, nil
}

// Process consumes 16 kHz mono 16-bit PCM.
func (g *VoiceGate) Process(data []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.buf = append(g.buf, data...)
	for len(g.buf) >= vadFrameBytes {
		frame := g.buf[:vadFrameBytes]
		g.buf = g.buf[vadFrameBytes:]

		active, err := g.vad.Process(encoder.SampleRate, frame)
		if err != nil {
			continue
		}
		g.totalFrames++
		if active {
			g.speechFrames++
			g.speechRun++
			if g.speechRun >= vadDebounce {
				g.voiceDetected = true
			}
		} else {
			g.speechRun = 0
		}
	}
}

func (g *VoiceGate) VoiceDetected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.voiceDetected
}

func (g *VoiceGate) Stats() (total, speech int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.totalFrames, g.speechFrames
}

// HasSpeechTick reports whether enough frames since the previous call were
// speech.
func (g *VoiceGate) HasSpeechTick() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	t := g.totalFrames - g.tickTotal
	s := g.speechFrames - g.tickSpeech
	g.tickTotal, g.tickSpeech = g.totalFrames, g.speechFrames
	if t == 0 {
		return false
	}
	return float64(s)/float64(t) >= speechThreshold
}

func (g *VoiceGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.buf = g.buf[:0]
	g.voiceDetected = false
	g.speechRun = 0
	g.tickTotal, g.tickSpeech = g.totalFrames, g.speechFrames
}
