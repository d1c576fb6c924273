package domain

// ServiceStatus is the outcome of pinging one model collaborator.
type ServiceStatus struct {
	// Role is "embedding", "rerank" or "llm".
	Role string

	// Model is the configured model, empty when not configured.
	Model string

	// Configured is false when the provider settings are absent.
	Configured bool

	// Err is nil when the service answered.
	Err error
}

// OK reports whether the service is configured and reachable.
func (s ServiceStatus) OK() bool {
	return s.Configured && s.Err == nil
}
