package cli

import "testing"

func TestConfig_FromEnvDefaults(t *testing.T) {
	var cfg Config
	if err := cfg.FromEnv(); err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	if cfg.Depth != DefaultDepth {
		t.Errorf("Depth = %d, want %d", cfg.Depth, DefaultDepth)
	}
	if cfg.ListenIP != DefaultListenIP {
		t.Errorf("ListenIP = %q, want %q", cfg.ListenIP, DefaultListenIP)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.Backlog != DefaultBacklog {
		t.Errorf("Backlog = %d, want %d", cfg.Backlog, DefaultBacklog)
	}
	if cfg.BufSize != DefaultBufSize {
		t.Errorf("BufSize = %d, want %d", cfg.BufSize, DefaultBufSize)
	}
}

func TestConfig_FromEnvOverrides(t *testing.T) {
	t.Setenv("GORING_DEPTH", "64")
	t.Setenv("GORING_LISTEN_IP", "0.0.0.0")
	t.Setenv("GORING_PORT", "9999")

	var cfg Config
	if err := cfg.FromEnv(); err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	if cfg.Depth != 64 {
		t.Errorf("Depth = %d, want 64", cfg.Depth)
	}
	if cfg.ListenIP != "0.0.0.0" {
		t.Errorf("ListenIP = %q, want 0.0.0.0", cfg.ListenIP)
	}
	if cfg.Port != 9999 {
		t.Errorf("Port = %d, want 9999", cfg.Port)
	}
}

func TestConfig_FromEnvFlagsWin(t *testing.T) {
	t.Setenv("GORING_PORT", "9999")

	cfg := Config{Port: 1234}
	if err := cfg.FromEnv(); err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	if cfg.Port != 1234 {
		t.Errorf("Port = %d, want flag value 1234", cfg.Port)
	}
}

func TestConfig_FromEnvRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric depth", "GORING_DEPTH", "many"},
		{"negative port", "GORING_PORT", "-1"},
		{"port out of range", "GORING_PORT", "70000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			var cfg Config
			if err := cfg.FromEnv(); err == nil {
				t.Fatalf("FromEnv accepted %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{Depth: DefaultDepth, Backlog: DefaultBacklog, BufSize: DefaultBufSize}, false},
		{"zero depth", Config{Backlog: 1, BufSize: 1}, true},
		{"huge depth", Config{Depth: 1 << 20, Backlog: 1, BufSize: 1}, true},
		{"zero backlog", Config{Depth: 1, BufSize: 1}, true},
		{"zero bufsize", Config{Depth: 1, Backlog: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
