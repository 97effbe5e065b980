package main

import (
	"testing"
	"time"
)

func TestLoadSettingsDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("SLOT_INTERVAL", "")
	t.Setenv("BUSINESS_OPEN", "")
	t.Setenv("BUSINESS_CLOSE", "")

	s, err := loadSettings()
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if s.Backend != backendMemory {
		t.Fatalf("expected memory backend, got %q", s.Backend)
	}
	if s.StoreTimeout != 3*time.Second {
		t.Fatalf("expected 3s store timeout, got %s", s.StoreTimeout)
	}
	if s.Calendar.Open.String() != "09:00" || s.Calendar.Close.String() != "17:00" || s.Calendar.Interval != 30*time.Minute {
		t.Fatalf("unexpected calendar %+v", s.Calendar)
	}
}

func TestLoadSettingsCalendarOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("BUSINESS_OPEN", "10:00")
	t.Setenv("BUSINESS_CLOSE", "18:30")
	t.Setenv("SLOT_INTERVAL", "45m")

	s, err := loadSettings()
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if s.Calendar.Open.String() != "10:00" || s.Calendar.Close.String() != "18:30" || s.Calendar.Interval != 45*time.Minute {
		t.Fatalf("unexpected calendar %+v", s.Calendar)
	}
}

func TestLoadSettingsRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"STORE_BACKEND": "sqlite"}},
		{"postgres without url", map[string]string{"STORE_BACKEND": "postgres", "DATABASE_URL": ""}},
		{"mongo without uri", map[string]string{"STORE_BACKEND": "mongo", "MONGO_URI": ""}},
		{"bad open", map[string]string{"STORE_BACKEND": "memory", "BUSINESS_OPEN": "9am"}},
		{"close before open", map[string]string{"STORE_BACKEND": "memory", "BUSINESS_OPEN": "17:00", "BUSINESS_CLOSE": "09:00"}},
		{"bad port", map[string]string{"STORE_BACKEND": "memory", "PORT": "http"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := loadSettings(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
