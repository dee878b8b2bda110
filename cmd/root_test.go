package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calbot/internal/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		debug     bool
		wantJSON  bool
		wantDebug bool
		wantErr   bool
	}{
		{name: "default is text", format: "", wantJSON: false},
		{name: "text", format: "text", wantJSON: false},
		{name: "json", format: "JSON", wantJSON: true},
		{name: "debug enables debug level", format: "json", debug: true, wantJSON: true, wantDebug: true},
		{name: "unknown format", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := newLogger(&buf, tt.format, tt.debug)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			logger.Debug("debug line")
			logger.Info("info line", "key", "value")

			out := buf.String()
			assert.Contains(t, out, "info line")
			assert.Equal(t, tt.wantDebug, strings.Contains(out, "debug line"))

			lines := strings.Split(strings.TrimSpace(out), "\n")
			var record map[string]any
			isJSON := json.Unmarshal([]byte(lines[len(lines)-1]), &record) == nil
			assert.Equal(t, tt.wantJSON, isJSON)
		})
	}
}

func TestRunAuthRejectsBadInput(t *testing.T) {
	cfg := &config.Config{Google: config.GoogleConfig{ClientID: "id", ClientSecret: "secret"}}

	tests := []struct {
		name    string
		account string
		input   string
		wantErr string
	}{
		{name: "invalid account name", account: "work/home", input: "code\n", wantErr: "invalid character"},
		{name: "empty code", account: "work", input: "\n", wantErr: "no authorization code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := runAuth(t.Context(), strings.NewReader(tt.input), &out, cfg, tt.account)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunAuthPrintsConsentURL(t *testing.T) {
	cfg := &config.Config{Google: config.GoogleConfig{ClientID: "client-123", ClientSecret: "secret"}}

	var out bytes.Buffer
	err := runAuth(t.Context(), strings.NewReader(""), &out, cfg, "work")
	require.Error(t, err)

	assert.Contains(t, out.String(), "https://accounts.google.com/")
	assert.Contains(t, out.String(), "client_id=client-123")
	assert.Contains(t, out.String(), "access_type=offline")
}

func TestRunAuthRequiresGoogleClient(t *testing.T) {
	err := runAuth(t.Context(), strings.NewReader("code\n"), &bytes.Buffer{}, &config.Config{}, "work")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "google.client_id")
}
