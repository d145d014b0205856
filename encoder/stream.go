package encoder

import (
	"encoding/binary"
	"errors"
	"sync"
	"time"
)

var ErrStreamClosed = errors.New("encoder stream closed")

// Stream accepts raw little-endian PCM in arbitrary chunk sizes, slices it
// into BlockSize blocks and encodes them on a background goroutine.
type Stream struct {
	enc        Encoder
	blockChan  chan []int16
	encodeDone chan struct{}

	mu        sync.Mutex
	sampleBuf []int16
	closed    bool
	encErr    error
}

func NewStream(enc Encoder) *Stream {
	s := &Stream{
		enc:        enc,
		blockChan:  make(chan []int16, 64),
		encodeDone: make(chan struct{}),
	}

	go func() {
		defer close(s.encodeDone)
		for block := range s.blockChan {
			start := time.Now()
			if err := s.enc.EncodeBlock(block); err != nil {
				s.mu.Lock()
				if s.encErr == nil {
					s.encErr = err
				}
				s.mu.Unlock()
			}
			s.enc.AddEncodeTime(time.Since(start))
		}
	}()

	return s
}

// NewFlacStream is NewStream over a fresh FLAC encoder.
func NewFlacStream() (*Stream, error) {
	enc, err := NewFlac()
	if err != nil {
		return nil, err
	}
	return NewStream(enc), nil
}

// Feed queues pcm for encoding. A trailing odd byte is dropped.
func (s *Stream) Feed(pcm []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStreamClosed
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		s.sampleBuf = append(s.sampleBuf, int16(binary.LittleEndian.Uint16(pcm[i:])))
	}
	var blocks [][]int16
	for len(s.sampleBuf) >= BlockSize {
		block := make([]int16, BlockSize)
		copy(block, s.sampleBuf[:BlockSize])
		s.sampleBuf = s.sampleBuf[BlockSize:]
		blocks = append(blocks, block)
	}
	// Sending under the lock keeps Finish from closing blockChan mid-feed.
	for _, block := range blocks {
		s.blockChan <- block
	}
	s.mu.Unlock()
	return nil
}

// Finish flushes the partial block, waits for the encoder and returns the
// encoded bytes. Calling Finish twice returns ErrStreamClosed.
func (s *Stream) Finish() ([]byte, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrStreamClosed
	}
	s.closed = true
	if len(s.sampleBuf) > 0 {
		partial := make([]int16, len(s.sampleBuf))
		copy(partial, s.sampleBuf)
		s.sampleBuf = nil
		s.blockChan <- partial
	}
	close(s.blockChan)
	s.mu.Unlock()

	<-s.encodeDone

	s.mu.Lock()
	encErr := s.encErr
	s.mu.Unlock()
	if encErr != nil {
		return nil, encErr
	}
	if err := s.enc.Close(); err != nil {
		return nil, err
	}
	return s.enc.Bytes(), nil
}

// Abort discards everything queued so far.
func (s *Stream) Abort() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.sampleBuf = nil
	close(s.blockChan)
	s.mu.Unlock()
	<-s.encodeDone
}

// Duration is the audio length encoded so far. Only exact after Finish.
func (s *Stream) Duration() time.Duration {
	return FramesDuration(s.enc.TotalFrames())
}

func (s *Stream) Frames() uint64 { return s.enc.TotalFrames() }

func (s *Stream) EncodeTime() time.Duration { return s.enc.EncodeTime() }
