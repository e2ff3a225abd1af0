package types

import (
	"errors"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: BackendSQLite, DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "file backend with empty DataDir is valid at config level",
			config:  Config{Backend: BackendFile, DataDir: ""},
			wantErr: nil,
		},
		{
			name:    "memory backend",
			config:  Config{Backend: BackendMemory},
			wantErr: nil,
		},
		{
			name:    "unknown write strategy",
			config:  Config{Backend: BackendSQLite, WriteStrategy: "eventually"},
			wantErr: ErrWriteStrategyUnknown,
		},
		{
			name:    "batch strategy without interval",
			config:  Config{Backend: BackendSQLite, WriteStrategy: WriteBatch},
			wantErr: ErrBatchIntervalInvalid,
		},
		{
			name:    "batch strategy with interval",
			config:  Config{Backend: BackendSQLite, WriteStrategy: WriteBatch, BatchInterval: time.Second},
			wantErr: nil,
		},
		{
			name:    "nats backend without url",
			config:  Config{Backend: BackendNATS},
			wantErr: ErrNATSURLEmpty,
		},
		{
			name:    "nats backend with url",
			config:  Config{Backend: BackendNATS, NATS: NATSConfig{URL: "nats://127.0.0.1:4222"}},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	if got := c.GetWriteStrategy(); got != WriteImmediate {
		t.Fatalf("GetWriteStrategy() = %q, want %q", got, WriteImmediate)
	}
	if got := c.NATS.GetBucket(); got != DefaultNATSBucket {
		t.Fatalf("NATS.GetBucket() = %q, want %q", got, DefaultNATSBucket)
	}
	c.NATS.Bucket = " breeds "
	if got := c.NATS.GetBucket(); got != "breeds" {
		t.Fatalf("NATS.GetBucket() = %q, want %q", got, "breeds")
	}
}
