//go:build linux

package poller

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// newSocketPair returns a connected pair of stream sockets
func newSocketPair(t *testing.T) (int, int) {
	t.Helper()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("Failed to create socket pair: %v", err)
	}
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

// TestWaitReportsReadable tests that a written descriptor is reported ready
func TestWaitReportsReadable(t *testing.T) {
	p, err := NewPoller()
	if err != nil {
		t.Fatalf("Failed to create poller: %v", err)
	}
	defer p.Close()

	local, remote := newSocketPair(t)
	if err := p.Add(local); err != nil {
		t.Fatalf("Failed to add fd: %v", err)
	}

	if _, err := unix.Write(remote, []byte("x")); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}

	events := make([]Event, 8)
	n, err := p.Wait(events)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("Expected 1 event, got %d", n)
	}
	if events[0].FD != local {
		t.Errorf("Expected fd %d, got %d", local, events[0].FD)
	}
}

// TestWaitReportsAllReadySockets tests that multiple ready descriptors are
// reported in a single wait
func TestWaitReportsAllReadySockets(t *testing.T) {
	p, err := NewPoller()
	if err != nil {
		t.Fatalf("Failed to create poller: %v", err)
	}
	defer p.Close()

	watched := map[int]bool{}
	for i := 0; i < 3; i++ {
		local, remote := newSocketPair(t)
		if err := p.Add(local); err != nil {
			t.Fatalf("Failed to add fd: %v", err)
		}
		watched[local] = true
		if _, err := unix.Write(remote, []byte{byte(i)}); err != nil {
			t.Fatalf("Failed to write: %v", err)
		}
	}

	seen := map[int]int{}
	events := make([]Event, 8)
	deadline := time.Now().Add(2 * time.Second)
	for len(seen) < 3 && time.Now().Before(deadline) {
		n, err := p.Wait(events)
		if err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
		for _, ev := range events[:n] {
			if !watched[ev.FD] {
				t.Fatalf("Unexpected fd %d reported ready", ev.FD)
			}
			seen[ev.FD]++
		}
	}

	if len(seen) != 3 {
		t.Errorf("Expected 3 distinct ready fds, got %d", len(seen))
	}
}

// TestRemoveStopsReporting tests that a removed descriptor is no longer
// reported even while readable
func TestRemoveStopsReporting(t *testing.T) {
	p, err := NewPoller()
	if err != nil {
		t.Fatalf("Failed to create poller: %v", err)
	}
	defer p.Close()

	silentLocal, silentRemote := newSocketPair(t)
	if err := p.Add(silentLocal); err != nil {
		t.Fatalf("Failed to add fd: %v", err)
	}
	if _, err := unix.Write(silentRemote, []byte("x")); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if err := p.Remove(silentLocal); err != nil {
		t.Fatalf("Failed to remove fd: %v", err)
	}

	// A second, still watched socket guarantees Wait returns
	local, remote := newSocketPair(t)
	if err := p.Add(local); err != nil {
		t.Fatalf("Failed to add fd: %v", err)
	}
	if _, err := unix.Write(remote, []byte("y")); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}

	events := make([]Event, 8)
	n, err := p.Wait(events)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	for _, ev := range events[:n] {
		if ev.FD == silentLocal {
			t.Errorf("Removed fd %d was reported ready", silentLocal)
		}
	}
}

// TestCloseWakesWait tests that Close unblocks a Wait with no ready fds
func TestCloseWakesWait(t *testing.T) {
	p, err := NewPoller()
	if err != nil {
		t.Fatalf("Failed to create poller: %v", err)
	}

	local, _ := newSocketPair(t)
	if err := p.Add(local); err != nil {
		t.Fatalf("Failed to add fd: %v", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		events := make([]Event, 8)
		_, err := p.Wait(events)
		waitErr <- err
	}()

	// Give the goroutine time to block in the wait
	time.Sleep(50 * time.Millisecond)

	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case err := <-waitErr:
		if !errors.Is(err, ErrPollerClosed) {
			t.Errorf("Expected ErrPollerClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after Close")
	}
}
