package loadbalancer

import (
	"math"
	"sync"
)

type LeastConnections struct {
	mu          sync.Mutex
	connections map[string]int
}

func NewLeastConnections() *LeastConnections {
	return &LeastConnections{
		connections: make(map[string]int),
	}
}

// Returns the target currently carrying the fewest in-flight requests.
func (l *LeastConnections) Next(targets []string) string {
	if len(targets) == 0 {
		return ""
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	selected := targets[0]
	minConn := math.MaxInt

	for _, target := range targets {
		if conn := l.connections[target]; conn < minConn {
			minConn = conn
			selected = target
		}
	}

	return selected
}

func (l *LeastConnections) Increment(target string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connections[target]++
}

func (l *LeastConnections) Decrement(target string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.connections[target] > 0 {
		l.connections[target]--
	}
}

func (l *LeastConnections) Name() string {
	return "least_connections"
}
