package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New()
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected logger to be enabled")
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Str("user_id", "demo-user-123").Msg("New chat session created")

	output := buf.String()
	if !strings.Contains(output, "New chat session created") {
		t.Errorf("Expected output to contain message, got: %s", output)
	}
	if !strings.Contains(output, `"user_id":"demo-user-123"`) {
		t.Errorf("Expected JSON user_id field, got: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{name: "empty defaults to info", in: "", want: zerolog.InfoLevel},
		{name: "debug", in: "debug", want: zerolog.DebugLevel},
		{name: "upper case", in: " WARN ", want: zerolog.WarnLevel},
		{name: "unknown", in: "chatty", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewFromConfig(t *testing.T) {
	log, err := NewFromConfig("error", FormatJSON)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if log.GetLevel() != zerolog.ErrorLevel {
		t.Errorf("level = %v, want error", log.GetLevel())
	}

	if _, err := NewFromConfig("info", "xml"); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	retrievedLog := FromContext(ctx)
	retrievedLog.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithFields(NewWithWriter(buf), map[string]interface{}{
		"user_id":    "123",
		"request_id": "abc",
	})
	log.Info().Msg("test message")

	output := buf.String()
	for _, want := range []string{`"user_id":"123"`, `"request_id":"abc"`} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %s, got: %s", want, output)
		}
	}
}

func TestNewFromConfigWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := NewFromConfigWriter(buf, "warn", FormatJSON)
	if err != nil {
		t.Fatalf("NewFromConfigWriter: %v", err)
	}

	log.Info().Msg("dropped")
	log.Warn().Msg("kept")

	output := buf.String()
	if strings.Contains(output, "dropped") {
		t.Errorf("Expected info message to be filtered, got: %s", output)
	}
	if !strings.Contains(output, `"message":"kept"`) {
		t.Errorf("Expected warn message in JSON output, got: %s", output)
	}
}
