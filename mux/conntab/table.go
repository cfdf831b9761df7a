package conntab

import (
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// FreeSentinel is the descriptor value marking an unoccupied slot
const FreeSentinel = -1

// --------------------------------------------------------------------------
// Peer State Definition
// --------------------------------------------------------------------------

// State is the lifecycle state of a peer slot. A free slot transitions
// directly to StateConnected on attach; StateDisconnected marks a slot
// whose socket was closed, at which point the slot is free again
type State int8

const (
	StateConnected State = iota
	StateDisconnected
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Peer Slot
// --------------------------------------------------------------------------

// Peer is one fixed-position entry of the table, reusable across different
// physical connections over time
type Peer struct {
	fd         int
	state      State
	buffer     []byte
	id         uuid.UUID
	remoteAddr string
}

// FD returns the transport descriptor, or FreeSentinel for a free slot
func (p *Peer) FD() int { return p.fd }

// State returns the lifecycle state of the slot
func (p *Peer) State() State { return p.state }

// Buffer returns the slot's fixed-size receive buffer. Each read overwrites
// it; contents are not accumulated across reads
func (p *Peer) Buffer() []byte { return p.buffer }

// ID returns the identifier assigned to the current connection
func (p *Peer) ID() uuid.UUID { return p.id }

// RemoteAddr returns the remote address of the current connection
func (p *Peer) RemoteAddr() string { return p.remoteAddr }

// --------------------------------------------------------------------------
// Connection Table
// --------------------------------------------------------------------------

// Table is a fixed-capacity registry of peer connections. Slot identity is
// the index; slots are never moved. The table is owned by a single control
// loop and is not safe for concurrent use
type Table struct {
	peers    []Peer
	occupied int
}

// NewTable creates a table with the given slot capacity and per-slot
// receive buffer size. Every slot starts free
func NewTable(capacity, bufferSize int) (*Table, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("table capacity must be positive, got %d", capacity)
	}
	if bufferSize <= 0 {
		return nil, fmt.Errorf("buffer size must be positive, got %d", bufferSize)
	}

	t := &Table{peers: make([]Peer, capacity)}
	for i := range t.peers {
		t.peers[i].fd = FreeSentinel
		t.peers[i].buffer = make([]byte, bufferSize)
	}
	return t, nil
}

// Cap returns the fixed slot capacity
func (t *Table) Cap() int { return len(t.peers) }

// Occupied returns the number of slots holding a live connection
func (t *Table) Occupied() int { return t.occupied }

// Full reports whether no free slot remains
func (t *Table) Full() bool { return t.occupied == len(t.peers) }

// Peer returns the slot at the given index
func (t *Table) Peer(idx int) (*Peer, error) {
	if idx < 0 || idx >= len(t.peers) {
		return nil, fmt.Errorf("slot index %d out of range [0,%d)", idx, len(t.peers))
	}
	return &t.peers[idx], nil
}

// FindFreeSlot scans for the first free slot. It has no side effects; the
// slot is claimed only by a subsequent Attach
func (t *Table) FindFreeSlot() (int, bool) {
	for i := range t.peers {
		if t.peers[i].fd == FreeSentinel {
			return i, true
		}
	}
	return 0, false
}

// FindByFD returns the index of the occupied slot holding the given
// descriptor
func (t *Table) FindByFD(fd int) (int, bool) {
	if fd == FreeSentinel {
		return 0, false
	}
	for i := range t.peers {
		if t.peers[i].fd == fd {
			return i, true
		}
	}
	return 0, false
}

// Attach places a newly accepted connection into a free slot, transitioning
// it to StateConnected and assigning a fresh connection ID
func (t *Table) Attach(idx, fd int, remoteAddr string) (*Peer, error) {
	p, err := t.Peer(idx)
	if err != nil {
		return nil, err
	}
	if p.fd != FreeSentinel {
		return nil, fmt.Errorf("slot %d already holds fd %d", idx, p.fd)
	}
	if fd < 0 {
		return nil, fmt.Errorf("invalid fd %d", fd)
	}

	p.fd = fd
	p.state = StateConnected
	p.id = uuid.New()
	p.remoteAddr = remoteAddr
	t.occupied++
	return p, nil
}

// Release closes the slot's socket and frees the slot, making it
// immediately reusable by a future attach. Releasing an already free slot
// is an error; callers must only release slots they know are occupied
func (t *Table) Release(idx int) error {
	p, err := t.Peer(idx)
	if err != nil {
		return err
	}
	if p.fd == FreeSentinel {
		return fmt.Errorf("slot %d is already free", idx)
	}

	closeErr := unix.Close(p.fd)
	p.fd = FreeSentinel
	p.state = StateDisconnected
	t.occupied--

	if closeErr != nil {
		return fmt.Errorf("close fd for slot %d: %w", idx, closeErr)
	}
	return nil
}

// ForEachOccupied calls fn for every occupied slot in index order. fn may
// release the slot it is handed; slots are visited by index, not snapshot
func (t *Table) ForEachOccupied(fn func(idx int, p *Peer)) {
	for i := range t.peers {
		if t.peers[i].fd != FreeSentinel {
			fn(i, &t.peers[i])
		}
	}
}
