// Package keepalive drives PINGREQ on a timer without a signal handler,
// the REDESIGN FLAG adopted from spec §9 "Global subscriber session": "a
// systems-language re-implementation should instead expose pingreq as an
// ordinary method and require the driver to interleave it with the
// receive loop." Grounded on the teacher's client/mqtt.go startKeepAlive
// (a time.Ticker at keepAlive/2 calling sendPingreq from a goroutine),
// adapted to call the spec-shaped engine.Ping instead of Instagram's
// internal wire method, and to coordinate with a receive loop via a gate
// instead of the teacher's bare goroutine.
package keepalive

import (
	"sync"
	"time"
)

// Pinger is the subset of *engine.Engine the keep-alive driver needs.
type Pinger interface {
	Ping() error
}

// Driver fires Pinger.Ping on a ticker at keepAlive/2, gated so it never
// overlaps a Publish/Subscribe call in flight on the same session (spec
// §5: "must not overlap a subscribe/publish in flight on the same
// session").
type Driver struct {
	pinger    Pinger
	keepAlive time.Duration
	ticker    *time.Ticker
	stop      chan struct{}
	gate      sync.Mutex
	errs      chan error
}

// New builds a keep-alive driver that, once Start is called, fires every
// keepAlive/2. A keepAlive of zero disables the driver (Start becomes a
// no-op).
func New(pinger Pinger, keepAlive time.Duration) *Driver {
	return &Driver{pinger: pinger, keepAlive: keepAlive}
}

func (d *Driver) Start() {
	if d.keepAlive <= 0 {
		return
	}
	d.ticker = time.NewTicker(d.keepAlive / 2)
	d.stop = make(chan struct{})
	d.errs = make(chan error, 1)
	go d.run()
}

func (d *Driver) run() {
	for {
		select {
		case <-d.ticker.C:
			d.gate.Lock()
			err := d.pinger.Ping()
			d.gate.Unlock()
			if err != nil {
				select {
				case d.errs <- err:
				default:
				}
				return
			}
		case <-d.stop:
			return
		}
	}
}

// Lock acquires the same gate the ticker goroutine uses before sending
// PINGREQ, so a caller about to run Publish/Subscribe can block the
// ticker out for the duration of that call (spec §5).
func (d *Driver) Lock() { d.gate.Lock() }

func (d *Driver) Unlock() { d.gate.Unlock() }

// Errs reports keep-alive failures (e.g. a dead connection) asynchronously.
func (d *Driver) Errs() <-chan error { return d.errs }

// Stop halts the ticker goroutine.
func (d *Driver) Stop() {
	if d.ticker == nil {
		return
	}
	d.ticker.Stop()
	close(d.stop)
}
