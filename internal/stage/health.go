package stage

// Health summarizes whether a stage can run against the current campaign.
type Health struct {
	Kind      Kind   `json:"stage"`
	Ready     bool   `json:"ready"`
	Completed bool   `json:"completed"`
	Detail    string `json:"detail,omitempty"`
}

// Healthy constructs a ready Health record.
func Healthy(kind Kind, completed bool) Health {
	return Health{Kind: kind, Ready: true, Completed: completed}
}

// Unhealthy constructs a blocked Health record with context detail.
func Unhealthy(kind Kind, detail string) Health {
	return Health{Kind: kind, Ready: false, Detail: detail}
}
