package config

import "fmt"

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	if err := c.Collab.validate(); err != nil {
		return fmt.Errorf("collab: %w", err)
	}

	if c.Retention.ArchivedRetentionDays < 1 {
		return fmt.Errorf("retention.archived_retention_days must be >= 1 (got %d)", c.Retention.ArchivedRetentionDays)
	}
	if c.Retention.MinVersionsPerLayout < 1 {
		return fmt.Errorf("retention.min_versions_per_layout must be >= 1 (got %d)", c.Retention.MinVersionsPerLayout)
	}

	return nil
}

func (c *CollabConfig) validate() error {
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be > 0 (got %v)", c.HeartbeatInterval)
	}

	// A couple of missed heartbeats (jitter, brief disconnect) must not cause
	// premature lock reaping.
	if c.LockTTL < 3*c.HeartbeatInterval {
		return fmt.Errorf("lock_ttl must be >= 3 x heartbeat_interval (got %v with heartbeat %v)",
			c.LockTTL, c.HeartbeatInterval)
	}

	if c.PresenceTTL < c.HeartbeatInterval {
		return fmt.Errorf("presence_ttl must be >= heartbeat_interval (got %v)", c.PresenceTTL)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be > 0 (got %v)", c.SweepInterval)
	}
	if c.MaxResolveRetries < 1 {
		return fmt.Errorf("max_resolve_retries must be >= 1 (got %d)", c.MaxResolveRetries)
	}

	return nil
}
