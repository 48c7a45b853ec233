package main

import (
	"sync"
	"time"
)

// simulatedPlayback advances a playback position in real time, standing
// in for the browser video element the reporter would normally sample.
type simulatedPlayback struct {
	lock     sync.Mutex
	position float64
	duration float64
	ended    chan struct{}
	quit     chan struct{}
	once     sync.Once
}

func newSimulatedPlayback(duration float64) *simulatedPlayback {
	p := &simulatedPlayback{
		duration: duration,
		ended:    make(chan struct{}),
		quit:     make(chan struct{}),
	}
	go p.advance()
	return p
}

func (p *simulatedPlayback) advance() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.quit:
			return
		case <-ticker.C:
			p.lock.Lock()
			p.position++
			finished := p.position >= p.duration
			p.lock.Unlock()
			if finished {
				close(p.ended)
				return
			}
		}
	}
}

func (p *simulatedPlayback) Position() (float64, float64) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.position, p.duration
}

func (p *simulatedPlayback) Ended() <-chan struct{} {
	return p.ended
}

func (p *simulatedPlayback) stop() {
	p.once.Do(func() { close(p.quit) })
}
