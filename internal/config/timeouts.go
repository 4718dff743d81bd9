package config

import "time"

// AgentTimeout returns the per-agent invocation timeout, defaulting to 30s
// when unset or malformed.
func (c *Config) AgentTimeout() time.Duration {
	return parseDuration(c.Routing.AgentTimeout, 30*time.Second)
}

// ConsultTimeout returns the consultation timeout, defaulting to 30s.
func (c *Config) ConsultTimeout() time.Duration {
	return parseDuration(c.Routing.ConsultTimeout, 30*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
