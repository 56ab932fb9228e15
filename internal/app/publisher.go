package app

import "jobalert/internal/events"

// sharedPublisher is the daemon's publisher plus the number of cycles using
// it. A publisher replaced by a reload is closed once its last cycle ends.
type sharedPublisher struct {
	events.Publisher
	refs    int
	retired bool
}

func (d *Daemon) acquirePublisher() *sharedPublisher {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pub.refs++
	return d.pub
}

func (d *Daemon) releasePublisher(p *sharedPublisher) {
	d.mu.Lock()
	p.refs--
	done := p.retired && p.refs == 0
	d.mu.Unlock()
	if done {
		_ = p.Close()
	}
}

// swapPublisher installs next and retires the current publisher.
func (d *Daemon) swapPublisher(next events.Publisher) {
	d.mu.Lock()
	old := d.pub
	d.pub = &sharedPublisher{Publisher: next}
	done := false
	if old != nil {
		old.retired = true
		done = old.refs == 0
	}
	d.mu.Unlock()
	if done {
		_ = old.Close()
	}
}
