package config

import "testing"

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"port zero", func(c *Config) { c.DaemonPort = 0 }, true},
		{"port too large", func(c *Config) { c.DaemonPort = 70000 }, true},
		{"buffer zero", func(c *Config) { c.BufferSize = 0 }, true},
		{"debounce too small", func(c *Config) { c.DebounceMs = 50 }, true},
		{"debounce too large", func(c *Config) { c.DebounceMs = 20000 }, true},
		{"workers zero", func(c *Config) { c.Workers = 0 }, true},
		{"workers too many", func(c *Config) { c.Workers = 100 }, true},
		{"retry negative", func(c *Config) { c.RetryLimit = -1 }, true},
		{"retry too large", func(c *Config) { c.RetryLimit = 11 }, true},
		{"retry zero is fine", func(c *Config) { c.RetryLimit = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
