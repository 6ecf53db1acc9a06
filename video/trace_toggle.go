package video

import (
	"os"
	"syscall"
	"time"

	"golang.org/x/term"
)

// TraceToggle reads single raw keypresses from stdin (no Enter, no echo)
// so the emulator CLI can flip streaming trace output on and off without
// interrupting the running core, grounded on the same term.MakeRaw /
// term.Restore pairing a teletype-style host adapter would use.
type TraceToggle struct {
	fd       int
	oldState *term.State
	keys     chan byte
	stop     chan struct{}
}

// NewTraceToggle puts stdin into raw mode and starts reading keypresses
// in the background. Call Stop to restore the terminal.
func NewTraceToggle() (*TraceToggle, error) {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}

	if err := syscall.SetNonblock(fd, true); err != nil {
		_ = term.Restore(fd, oldState)
		return nil, err
	}

	t := &TraceToggle{
		fd:       fd,
		oldState: oldState,
		keys:     make(chan byte, 1),
		stop:     make(chan struct{}),
	}

	go t.readLoop()
	return t, nil
}

func (t *TraceToggle) readLoop() {
	buf := make([]byte, 1)
	for {
		select {
		case <-t.stop:
			return
		default:
		}

		n, err := syscall.Read(t.fd, buf)
		if n > 0 {
			select {
			case t.keys <- buf[0]:
			default:
			}
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil {
			return
		}
		if n == 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// Pressed returns the queued key and whether one arrived since the last
// call. Only one key is queued; keys read while it is still unconsumed
// are dropped. It never blocks.
func (t *TraceToggle) Pressed() (byte, bool) {
	select {
	case b := <-t.keys:
		return b, true
	default:
		return 0, false
	}
}

// Stop restores the terminal to its prior state.
func (t *TraceToggle) Stop() error {
	close(t.stop)
	return term.Restore(t.fd, t.oldState)
}
