package store

import (
	"path/filepath"
	"testing"
	"time"
)

func TestPoolSettingsFromEnv(t *testing.T) {
	ints := []struct {
		raw  string
		want int
	}{
		{raw: "", want: 3},
		{raw: "4", want: 4},
		{raw: "bad", want: 3},
		{raw: "0", want: 3},
	}
	for _, tt := range ints {
		t.Setenv(maxOpenConnsEnvKey, tt.raw)
		if got := intFromEnv(maxOpenConnsEnvKey, 3); got != tt.want {
			t.Fatalf("%s=%q: expected %d, got %d", maxOpenConnsEnvKey, tt.raw, tt.want, got)
		}
	}

	durations := []struct {
		raw  string
		want time.Duration
	}{
		{raw: "", want: 2 * time.Minute},
		{raw: "45s", want: 45 * time.Second},
		{raw: "30", want: 30 * time.Second},
		{raw: "-5", want: 2 * time.Minute},
		{raw: "invalid", want: 2 * time.Minute},
	}
	for _, tt := range durations {
		t.Setenv(connMaxLifetimeEnvKey, tt.raw)
		if got := durationFromEnv(connMaxLifetimeEnvKey, 2*time.Minute); got != tt.want {
			t.Fatalf("%s=%q: expected %v, got %v", connMaxLifetimeEnvKey, tt.raw, tt.want, got)
		}
	}
}

func TestOpenAppliesPoolOverride(t *testing.T) {
	t.Setenv(maxOpenConnsEnvKey, "2")

	st, err := Open(filepath.Join(t.TempDir(), "labhub.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	if got := st.db.Stats().MaxOpenConnections; got != 2 {
		t.Fatalf("expected max open conns 2, got %d", got)
	}
}
