package loadbalancer

import "sync"

type RoundRobin struct {
	mu   sync.Mutex
	next int
}

func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Returns targets in rotation. The cursor survives changes to the target
// list, so a recovered backend slots back into the rotation.
func (r *RoundRobin) Next(targets []string) string {
	if len(targets) == 0 {
		return ""
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	target := targets[r.next%len(targets)]
	r.next++

	return target
}

func (r *RoundRobin) Name() string {
	return "round_robin"
}
