// Package display holds everything that decides what the OLED shows:
// pre-rendered frame sequences, mono1 bitmap handling, text/menu overlay
// composition, and the driver boundary the render loop pushes buffers to.
package display

// FrameSequence is an ordered list of pre-rendered mono1 frames played
// at a fixed rate. It is stateless; callers pass the sequence start time
// on every query so the same sequence can be replayed concurrently.
type FrameSequence struct {
	frames [][]byte
	fps    float64
	loop   bool
}

// NewFrameSequence builds a sequence. fps values below 0.1 are clamped.
func NewFrameSequence(frames [][]byte, fps float64, loop bool) FrameSequence {
	if fps < 0.1 {
		fps = 0.1
	}
	return FrameSequence{frames: frames, fps: fps, loop: loop}
}

// Empty reports whether the sequence has no frames.
func (s FrameSequence) Empty() bool { return len(s.frames) == 0 }

// Loop reports whether the sequence repeats.
func (s FrameSequence) Loop() bool { return s.loop }

// Len returns the frame count.
func (s FrameSequence) Len() int { return len(s.frames) }

// FrameAt returns the frame for the elapsed time since startMS and
// whether a one-shot sequence has completed. Looping sequences never
// report done; a completed one-shot keeps returning its last frame.
// An empty sequence returns (nil, true).
func (s FrameSequence) FrameAt(nowMS, startMS int64) ([]byte, bool) {
	if len(s.frames) == 0 {
		return nil, true
	}
	elapsed := nowMS - startMS
	if elapsed < 0 {
		elapsed = 0
	}
	frameMS := 1000.0 / s.fps
	index := int(float64(elapsed) / frameMS)
	if s.loop {
		return s.frames[index%len(s.frames)], false
	}
	if index >= len(s.frames) {
		return s.frames[len(s.frames)-1], true
	}
	return s.frames[index], false
}
