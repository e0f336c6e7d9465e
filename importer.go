// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package gfs

import (
	"fmt"
	"path/filepath"

	"github.com/woozymasta/pathrules"
)

// FileImporter converts a source asset on disk into one or more packaged files written
// through the owning Filesystem. Import is invoked for a source file not yet tracked by
// any FileRecord; Reimport is invoked for a source file that already produced one,
// typically in response to a hot-reload notification.
type FileImporter interface {
	Import(fsys *Filesystem, sourcePath string, outputMount MountID, outputDir string) (bool, error)
	Reimport(fsys *Filesystem, rec FileRecord) (bool, error)
}

// importerTable dispatches by file extension, with an optional glob-rule layer consulted
// first. The glob layer is a supplemental enrichment (see importOverrideMatcher) built on
// the teacher's own path-rule dependency, repurposed from compression-candidate selection
// to import routing; it never changes the extension-table contract, it only adds a second,
// optional resolution step ahead of it.
type importerTable struct {
	byExt     map[string]FileImporter
	overrides *importOverrideMatcher
}

func newImporterTable() *importerTable {
	return &importerTable{byExt: make(map[string]FileImporter)}
}

// setImporter binds importer to every extension in exts (each matched case-sensitively,
// dot-prefixed, e.g. ".png"), overwriting any prior binding.
func (t *importerTable) setImporter(exts []string, importer FileImporter) {
	for _, ext := range exts {
		t.byExt[ext] = importer
	}
}

// getImporter returns the importer bound to ext, if any.
func (t *importerTable) getImporter(ext string) (FileImporter, bool) {
	imp, ok := t.byExt[ext]

	return imp, ok
}

// getImporterForPath resolves an importer for sourcePath: override rules are consulted
// first (if any are registered), falling back to the plain extension table. Extension
// lookup is case-sensitive, matching the dot-prefixed extension string exactly.
func (t *importerTable) getImporterForPath(sourcePath string) (FileImporter, bool) {
	if t.overrides != nil {
		if imp, ok := t.overrides.match(sourcePath); ok {
			return imp, true
		}
	}

	return t.getImporter(filepath.Ext(sourcePath))
}

// importOverrideRule binds a glob pattern to an importer, evaluated in registration order
// by the compiled matcher.
type importOverrideRule struct {
	pattern  string
	action   pathrules.Action
	importer FileImporter
}

// importOverrideMatcher compiles each rule as its own single-pattern pathrules.Matcher,
// evaluated in order, so the importer bound to the *last* matching rule wins — mirroring
// how pathrules itself resolves overlapping globs within one combined rule set.
type importOverrideMatcher struct {
	compiled  []*pathrules.Matcher
	importers []FileImporter
}

// setImporterOverride compiles rules against importers (by position: rules[i] routes to
// importers[i]) and installs them ahead of the extension table.
func (t *importerTable) setImporterOverride(rules []importOverrideRule) error {
	if len(rules) == 0 {
		t.overrides = nil

		return nil
	}

	opts := pathrules.MatcherOptions{CaseInsensitive: true, DefaultAction: pathrules.ActionExclude}

	compiled := make([]*pathrules.Matcher, len(rules))
	importers := make([]FileImporter, len(rules))
	for i, rule := range rules {
		m, err := pathrules.NewMatcher([]pathrules.Rule{{Action: rule.action, Pattern: rule.pattern}}, opts)
		if err != nil {
			return fmt.Errorf("%w: compile importer override rule %q: %w", ErrInvalidArgument, rule.pattern, err)
		}

		compiled[i] = m
		importers[i] = rule.importer
	}

	t.overrides = &importOverrideMatcher{compiled: compiled, importers: importers}

	return nil
}

// match reports the importer bound to the last override rule that includes path, if any.
func (m *importOverrideMatcher) match(path string) (FileImporter, bool) {
	if m == nil {
		return nil, false
	}

	normalized := NormalizeRelPath(path)
	if normalized == "" {
		return nil, false
	}

	var winner FileImporter
	matched := false

	for i, matcher := range m.compiled {
		if matcher.Included(normalized, false) {
			winner = m.importers[i]
			matched = true
		}
	}

	return winner, matched
}
