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

// Package bundle merges a set of YAML template documents into one escaped
// blob that can be embedded inside a single quoted string in another
// document. It sits off the validation hot path; the validation core never
// depends on it.
package bundle

import (
	"io/fs"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/crewforge/crewforge/pkg/errors"
	"gopkg.in/yaml.v3"
)

// commentMarker prefixes lines stripped from every template.
const commentMarker = "#"

var (
	escaper   = strings.NewReplacer(`"`, `\"`, "\n", `\n`)
	unescaper = strings.NewReplacer(`\"`, `"`, `\n`, "\n")
)

// Aggregate discovers template files matching the doublestar patterns in
// fsys, and merges them into one escaped blob. Files are processed in
// lexicographic name order, so output is deterministic for a fixed file
// set. Each file must parse as well-formed YAML; a file that does not fails
// the whole aggregation with its name and the parse error. Lines whose
// trimmed content begins with the comment marker are stripped; all other
// lines are preserved verbatim. The concatenation keeps one line break
// between files, and the result has embedded quotes and newlines escaped
// (see Escape).
func Aggregate(fsys fs.FS, patterns []string) (string, error) {
	files, err := discover(fsys, patterns)
	if err != nil {
		return "", err
	}

	var combined strings.Builder
	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return "", errors.Wrapf(err, "reading template %s", name)
		}

		var probe interface{}
		if err := yaml.Unmarshal(data, &probe); err != nil {
			return "", &errors.SyntaxError{Path: name, Cause: err}
		}

		combined.WriteString(stripComments(string(data)))
	}

	return Escape(combined.String()), nil
}

// Files returns the sorted file names the patterns resolve to, without
// reading them. The ordering rule is the caller-visible contract:
// lexicographic by name, duplicates removed.
func Files(fsys fs.FS, patterns []string) ([]string, error) {
	return discover(fsys, patterns)
}

func discover(fsys fs.FS, patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving pattern %s", pattern)
		}
		for _, name := range matches {
			info, err := fs.Stat(fsys, name)
			if err != nil {
				return nil, errors.Wrapf(err, "inspecting %s", name)
			}
			if info.IsDir() || seen[name] {
				continue
			}
			seen[name] = true
			files = append(files, name)
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no template files matched")
	}
	sort.Strings(files)
	return files, nil
}

// stripComments removes comment lines and normalizes the block to end with
// exactly one newline, which is what separates it from the next file.
func stripComments(content string) string {
	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), commentMarker) {
			continue
		}
		kept = append(kept, line)
	}
	block := strings.Join(kept, "\n")
	return strings.TrimRight(block, "\n") + "\n"
}

// Escape makes text safe to embed inside a single quoted string in another
// document: embedded double quotes become \" and literal newlines become
// the two-character sequence \n.
func Escape(text string) string {
	return escaper.Replace(text)
}

// Unescape reverses Escape. Unescape(Escape(text)) == text for any text
// produced by Aggregate.
func Unescape(text string) string {
	return unescaper.Replace(text)
}
