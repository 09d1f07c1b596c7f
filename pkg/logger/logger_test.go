package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_JSONWithServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Service: "reception"})

	log.Component("lifecycle").Info("Reservation transitioned", "id", "r-1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry[SERVICE] != "reception" {
		t.Errorf("expected service attr, got %v", entry[SERVICE])
	}
	if entry[COMPONENT] != "lifecycle" {
		t.Errorf("expected component attr, got %v", entry[COMPONENT])
	}
	if entry["id"] != "r-1" {
		t.Errorf("expected id attr, got %v", entry["id"])
	}
}

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{DEBUG, true, true, true},
		{INFO, false, true, true},
		{WARN, false, false, true},
		{ERROR, false, false, false},
		{"verbose", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Level: tt.level, Format: TEXT, Output: &buf})

			log.Debug("debug-line")
			log.Info("info-line")
			log.Warn("warn-line")

			out := buf.String()
			if got := strings.Contains(out, "debug-line"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v", got, tt.wantDebug)
			}
			if got := strings.Contains(out, "info-line"); got != tt.wantInfo {
				t.Errorf("info logged = %v, want %v", got, tt.wantInfo)
			}
			if got := strings.Contains(out, "warn-line"); got != tt.wantWarn {
				t.Errorf("warn logged = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestDiscard(t *testing.T) {
	log := Discard()
	log.Error("dropped")
	log.Component("x").Info("dropped too")
}
