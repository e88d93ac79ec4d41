package isolation

// PolicyResolver owns the deployment-wide strategy choice. It is constructed
// once at startup from the raw configuration value; there is deliberately no
// way to change the resolved strategy without a restart.
type PolicyResolver struct {
	strategy Strategy
}

// NewPolicyResolver validates the configured strategy value. An invalid or
// absent value returns a *ConfigurationError, which callers treat as fatal.
func NewPolicyResolver(raw string) (*PolicyResolver, error) {
	strategy, err := ParseStrategy(raw)
	if err != nil {
		return nil, err
	}
	return &PolicyResolver{strategy: strategy}, nil
}

// Resolve returns the active strategy for the lifetime of the process.
func (r *PolicyResolver) Resolve() Strategy {
	return r.strategy
}
