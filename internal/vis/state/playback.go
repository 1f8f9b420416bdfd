package state

import (
	"math"
	"time"
)

// PlaybackState manages path playback timing. Time is measured in solver
// timesteps.
type PlaybackState struct {
	CurrentTime float64
	MaxTime     float64 // solution makespan
	Speed       float64 // timesteps per second
	Playing     bool

	lastUpdate time.Time
	now        func() time.Time
}

// NewPlaybackState returns a paused player over [0, maxTime].
func NewPlaybackState(maxTime float64) *PlaybackState {
	return &PlaybackState{
		MaxTime: maxTime,
		Speed:   2,
		now:     time.Now,
	}
}

// TogglePlay toggles playback, rewinding first when at the end.
func (p *PlaybackState) TogglePlay() {
	if p.Playing {
		p.Pause()
		return
	}
	if p.CurrentTime >= p.MaxTime {
		p.CurrentTime = 0
	}
	p.Play()
}

// Play starts playback.
func (p *PlaybackState) Play() {
	p.Playing = true
	p.lastUpdate = p.now()
}

// Pause stops playback.
func (p *PlaybackState) Pause() {
	p.Playing = false
}

// Reset rewinds to t=0 and stops.
func (p *PlaybackState) Reset() {
	p.CurrentTime = 0
	p.Playing = false
}

// Advance moves time forward by the wall time since the last call.
func (p *PlaybackState) Advance() {
	if !p.Playing {
		return
	}
	now := p.now()
	elapsed := now.Sub(p.lastUpdate).Seconds()
	p.lastUpdate = now

	p.CurrentTime += elapsed * p.Speed
	if p.CurrentTime >= p.MaxTime {
		p.CurrentTime = p.MaxTime
		p.Playing = false
	}
}

// SetTime seeks, clamped to [0, MaxTime].
func (p *PlaybackState) SetTime(t float64) {
	p.CurrentTime = math.Max(0, math.Min(t, p.MaxTime))
}

// StepForward pauses and moves to the next whole timestep.
func (p *PlaybackState) StepForward() {
	p.Pause()
	p.SetTime(math.Floor(p.CurrentTime) + 1)
}

// StepBack pauses and moves to the previous whole timestep.
func (p *PlaybackState) StepBack() {
	p.Pause()
	p.SetTime(math.Ceil(p.CurrentTime) - 1)
}

// SetSpeed sets the playback speed, clamped to [0.25, 32] steps per second.
func (p *PlaybackState) SetSpeed(speed float64) {
	p.Speed = math.Max(0.25, math.Min(speed, 32))
}

// Progress is the playhead position as a fraction of MaxTime.
func (p *PlaybackState) Progress() float64 {
	if p.MaxTime <= 0 {
		return 0
	}
	return p.CurrentTime / p.MaxTime
}
