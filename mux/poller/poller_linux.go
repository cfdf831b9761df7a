//go:build linux

package poller

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// maxEvents bounds how many readiness reports a single epoll wait can
// return. Excess ready descriptors are re-reported on the next wait since
// the poller is level triggered
const maxEvents = 128

// NewPoller creates the platform poller. On Linux this is backed by epoll,
// so the number of watched descriptors is independent of their numeric
// values (no select-style descriptor ceiling)
func NewPoller() (IPoller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}

	// The eventfd wakes a blocked Wait when the poller is closed
	wakeFD, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventfd create: %w", err)
	}

	p := &epollPoller{
		epfd:   epfd,
		wakeFD: wakeFD,
	}

	if err := p.Add(wakeFD); err != nil {
		_ = unix.Close(epfd)
		_ = unix.Close(wakeFD)
		return nil, err
	}

	return p, nil
}

// epollPoller implements IPoller on top of Linux epoll
type epollPoller struct {
	epfd   int
	wakeFD int

	closed      atomic.Bool
	releaseOnce sync.Once
}

// --------------------------------------------------------------------------
// Interface Methods (docu see poller.IPoller)
// --------------------------------------------------------------------------

func (p *epollPoller) Add(fd int) error {
	ev := unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add fd %d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) Remove(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del fd %d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) Wait(events []Event) (int, error) {
	if len(events) == 0 {
		return 0, fmt.Errorf("empty event buffer")
	}
	if p.closed.Load() {
		p.release()
		return 0, ErrPollerClosed
	}

	var buf [maxEvents]unix.EpollEvent

	for {
		n, err := unix.EpollWait(p.epfd, buf[:], -1)
		if err != nil {
			if err == unix.EINTR {
				// interrupted by a signal, re-enter the wait
				continue
			}
			return 0, fmt.Errorf("epoll wait: %w", err)
		}

		out := 0
		for i := 0; i < n; i++ {
			fd := int(buf[i].Fd)
			if fd == p.wakeFD {
				p.drainWake()
				continue
			}
			if out < len(events) {
				events[out] = Event{FD: fd}
				out++
			}
		}

		if p.closed.Load() {
			p.release()
			return 0, ErrPollerClosed
		}
		if out > 0 {
			return out, nil
		}
		// spurious wakeup, wait again
	}
}

func (p *epollPoller) Close() error {
	if p.closed.Swap(true) {
		return nil
	}

	// Wake a blocked Wait so it observes the closed flag. The descriptors
	// are released by whichever side sees the flag first
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	if _, err := unix.Write(p.wakeFD, one[:]); err != nil {
		// No waiter can be woken, release directly
		p.release()
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// drainWake consumes the pending eventfd counter so the wake descriptor
// stops reporting readiness
func (p *epollPoller) drainWake() {
	var buf [8]byte
	_, _ = unix.Read(p.wakeFD, buf[:])
}

// release closes the epoll and wake descriptors exactly once
func (p *epollPoller) release() {
	p.releaseOnce.Do(func() {
		_ = unix.Close(p.epfd)
		_ = unix.Close(p.wakeFD)
	})
}
