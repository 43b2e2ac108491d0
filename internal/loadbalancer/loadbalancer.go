package loadbalancer

import "fmt"

type Strategy interface {
	// Selects the next target from available targets
	Next(targets []string) string

	// Returns the strategy name
	Name() string
}

// Creates a load balancing strategy based on name.
func NewStrategy(name string) (Strategy, error) {
	switch name {
	case "round-robin", "round_robin", "":
		return NewRoundRobin(), nil
	case "least-connections", "least_connections":
		return NewLeastConnections(), nil
	default:
		return nil, fmt.Errorf("unknown load balancing strategy: %s", name)
	}
}
