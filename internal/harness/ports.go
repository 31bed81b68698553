package harness

import (
	"fmt"
	"net"
	"strconv"
	"sync"
)

// maxPortProbes is how many ports past the base Acquire will try.
const maxPortProbes = 100

// PortPool hands out distinct server ports starting at a base port.
type PortPool struct {
	host  string
	base  int
	mu    sync.Mutex
	inUse map[int]bool
	// probe reports whether a port can currently be bound.
	probe func(host string, port int) bool
}

// NewPortPool creates a pool allocating ports on host from base upward.
func NewPortPool(host string, base int) *PortPool {
	return &PortPool{
		host:  host,
		base:  base,
		inUse: make(map[int]bool),
		probe: portAvailable,
	}
}

// Acquire returns the lowest port at or above the base that is neither held
// by the pool nor bound by another process.
func (p *PortPool) Acquire() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for offset := 0; offset < maxPortProbes; offset++ {
		port := p.base + offset
		if port > 65535 {
			break
		}
		if p.inUse[port] {
			continue
		}
		if !p.probe(p.host, port) {
			continue
		}
		p.inUse[port] = true
		return port, nil
	}

	return 0, fmt.Errorf("no available port in range %d-%d", p.base, p.base+maxPortProbes-1)
}

// Release returns port to the pool.
func (p *PortPool) Release(port int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inUse, port)
}

func portAvailable(host string, port int) bool {
	listener, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}
