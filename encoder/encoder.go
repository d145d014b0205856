// Package encoder compresses captured PCM into the upload format sent to
// the transcription providers.
package encoder

import (
	"errors"
	"time"
)

// Input format shared by capture and encoding: 16 kHz mono 16-bit PCM.
const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096

	FlacMimeType = "audio/flac"
)

var ErrBlockSize = errors.New("block size out of range")

type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
	AddEncodeTime(d time.Duration)
	EncodeTime() time.Duration
}

// FramesDuration converts a mono frame count to playback time.
func FramesDuration(frames uint64) time.Duration {
	return time.Duration(frames) * time.Second / SampleRate
}
