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

// Package bundle implements the crewforge bundle command.
package bundle

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/crewforge/crewforge/internal/bundle"
	"github.com/crewforge/crewforge/internal/cache"
	"github.com/crewforge/crewforge/internal/commands/shared"
	"github.com/crewforge/crewforge/internal/log"
	"github.com/spf13/cobra"
)

// defaultPatterns match the template files a directory conventionally holds.
var defaultPatterns = []string{"**/*.yaml", "**/*.yml"}

// NewCommand creates the bundle command
func NewCommand() *cobra.Command {
	var (
		patterns []string
		output   string
		cacheTTL time.Duration
	)

	cmd := &cobra.Command{
		Use:   "bundle <dir>...",
		Short: "Merge template documents into one escaped blob",
		Long: `Bundle merges every template file under the given directories into a
single blob safe to embed inside a quoted string in another document.

Files are processed in lexicographic name order, comment lines are
stripped, and the concatenated text has quotes and newlines escaped. A
file that is not well-formed YAML fails the whole bundle, naming the file.

Repeated directories within one invocation are served from an in-process
cache when --cache-ttl is set; aggregation is deterministic, so cached
results are exact.`,
		Example: `  # Example 1: Bundle a template directory
  crewforge bundle ./templates

  # Example 2: Restrict to crew templates and write to a file
  crewforge bundle ./templates --pattern 'crews/*.yaml' -o bundle.txt

  # Example 3: JSON output with the resolved file list
  crewforge bundle ./templates --json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBundle(cmd, args, patterns, output, cacheTTL)
		},
	}

	cmd.Flags().StringArrayVar(&patterns, "pattern", nil, "Glob pattern relative to each directory (repeatable, default **/*.yaml and **/*.yml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the blob to a file instead of stdout")
	cmd.Flags().DurationVar(&cacheTTL, "cache-ttl", 0, "Cache aggregated directories for this long within the process")

	return cmd
}

// result is the JSON payload for a successful bundle.
type result struct {
	shared.JSONResponse
	Files []string `json:"files"`
	Bytes int      `json:"bytes"`
	Blob  string   `json:"blob,omitempty"`
}

func runBundle(cmd *cobra.Command, dirs, patterns []string, output string, cacheTTL time.Duration) error {
	useJSON := shared.GetJSON()
	logger := log.New(log.FromEnv())

	if len(patterns) == 0 {
		patterns = defaultPatterns
	}

	blobs := cache.New[string](cacheTTL)
	var combined strings.Builder
	var files []string

	for _, dir := range dirs {
		key := dir + "\x00" + strings.Join(patterns, "\x00")

		names, err := bundle.Files(os.DirFS(dir), patterns)
		if err != nil {
			return fail(cmd, useJSON, dir, err)
		}
		for _, name := range names {
			files = append(files, dir+"/"+name)
		}

		if cacheTTL > 0 {
			if blob, ok := blobs.Get(key); ok {
				logger.Debug("bundle cache hit", "dir", dir)
				combined.WriteString(blob)
				continue
			}
		}

		blob, err := bundle.Aggregate(os.DirFS(dir), patterns)
		if err != nil {
			return fail(cmd, useJSON, dir, err)
		}
		if cacheTTL > 0 {
			blobs.Set(key, blob)
		}
		combined.WriteString(blob)
	}

	blob := combined.String()
	logger.Info("bundled templates", "files", len(files), "bytes", len(blob))

	if output != "" {
		if err := os.WriteFile(output, []byte(blob), 0o644); err != nil {
			return fail(cmd, useJSON, output, err)
		}
	}

	if useJSON {
		resp := result{
			JSONResponse: shared.JSONResponse{Version: "1.0", Command: "bundle", Success: true},
			Files:        files,
			Bytes:        len(blob),
		}
		if output == "" {
			resp.Blob = blob
		}
		return shared.EmitJSON(resp)
	}

	if output != "" {
		cmd.Println(shared.RenderOK(fmt.Sprintf("bundled %d files into %s (%d bytes)", len(files), output, len(blob))))
		return nil
	}
	cmd.Println(blob)
	return nil
}

func fail(cmd *cobra.Command, useJSON bool, subject string, err error) error {
	exitErr := shared.NewInvalidDocumentError(fmt.Sprintf("bundling %s", subject), err)
	if useJSON {
		_ = shared.EmitJSONError("bundle", []shared.JSONError{{
			Code:    "bundle",
			Message: exitErr.Error(),
		}})
		return exitErr
	}
	cmd.PrintErrln(shared.RenderError(exitErr.Error()))
	return exitErr
}
