// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got %q", cfg.Level)
	}
	if cfg.Format != FormatJSON {
		t.Errorf("expected default format 'json', got %q", cfg.Format)
	}
	if cfg.Output != os.Stderr {
		t.Errorf("expected default output to be os.Stderr")
	}
	if cfg.AddSource {
		t.Errorf("expected default AddSource to be false")
	}
}

func TestFromEnv(t *testing.T) {
	tests := []struct {
		name       string
		envVars    map[string]string
		wantLevel  string
		wantFormat Format
		wantSource bool
	}{
		{
			name:       "defaults when no env vars",
			envVars:    map[string]string{},
			wantLevel:  "info",
			wantFormat: FormatJSON,
		},
		{
			name:       "LOG_LEVEL=debug",
			envVars:    map[string]string{"LOG_LEVEL": "debug"},
			wantLevel:  "debug",
			wantFormat: FormatJSON,
		},
		{
			name:       "CREWFORGE_LOG_LEVEL takes precedence over LOG_LEVEL",
			envVars:    map[string]string{"CREWFORGE_LOG_LEVEL": "warn", "LOG_LEVEL": "debug"},
			wantLevel:  "warn",
			wantFormat: FormatJSON,
		},
		{
			name:       "CREWFORGE_DEBUG wins",
			envVars:    map[string]string{"CREWFORGE_DEBUG": "1", "CREWFORGE_LOG_LEVEL": "error"},
			wantLevel:  "debug",
			wantFormat: FormatJSON,
			wantSource: true,
		},
		{
			name:       "LOG_FORMAT=text",
			envVars:    map[string]string{"LOG_FORMAT": "TEXT"},
			wantLevel:  "info",
			wantFormat: FormatText,
		},
		{
			name:       "LOG_SOURCE=1",
			envVars:    map[string]string{"LOG_SOURCE": "1"},
			wantLevel:  "info",
			wantFormat: FormatJSON,
			wantSource: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"CREWFORGE_DEBUG", "CREWFORGE_LOG_LEVEL", "LOG_LEVEL", "LOG_FORMAT", "LOG_SOURCE"} {
				t.Setenv(key, "")
				os.Unsetenv(key)
			}
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg := FromEnv()
			if cfg.Level != tt.wantLevel {
				t.Errorf("level = %q, want %q", cfg.Level, tt.wantLevel)
			}
			if cfg.Format != tt.wantFormat {
				t.Errorf("format = %q, want %q", cfg.Format, tt.wantFormat)
			}
			if cfg.AddSource != tt.wantSource {
				t.Errorf("addSource = %v, want %v", cfg.AddSource, tt.wantSource)
			}
		})
	}
}

func TestNewJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatJSON, Output: &buf})

	logger.Info("validated document", DocumentKey, "crews.yaml", CrewKey, "research")

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if record["msg"] != "validated document" {
		t.Errorf("msg = %v", record["msg"])
	}
	if record[DocumentKey] != "crews.yaml" {
		t.Errorf("%s = %v", DocumentKey, record[DocumentKey])
	}
	if record[CrewKey] != "research" {
		t.Errorf("%s = %v", CrewKey, record[CrewKey])
	}
}

func TestNewTextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatText, Output: &buf})

	logger.Info("classified", ShapeKey, "flow")

	out := buf.String()
	if !strings.Contains(out, "classified") || !strings.Contains(out, "shape=flow") {
		t.Errorf("unexpected text output: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "warn", Format: FormatJSON, Output: &buf})

	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("below-level records should be filtered: %s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn record should pass: %s", out)
	}
}

func TestWithReportID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatJSON, Output: &buf})

	WithReportID(logger, "r-123").Info("done")

	if !strings.Contains(buf.String(), "r-123") {
		t.Errorf("report id missing from output: %s", buf.String())
	}
}
