// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cli defines the structures to store the CLI flags used by the scanner binary.
package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
	"github.com/google/packcheck"
	"github.com/google/packcheck/check"
	cl "github.com/google/packcheck/check/list"
	"github.com/google/packcheck/checklist"
	packfs "github.com/google/packcheck/fs"
	"github.com/google/packcheck/log"
	"github.com/google/packcheck/report"
	"github.com/google/packcheck/reportstore"
	"github.com/google/packcheck/runmode"
	"github.com/google/packcheck/violation"
)

// Output formats supported by -o.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Array is a type to be passed to flag.Var that supports arrays passed as repeated flags,
// e.g. ./packcheck -o json=report.json -o text=report.txt
type Array []string

func (i *Array) String() string {
	return strings.Join(*i, ",")
}

// Set gets called whenever a new instance of a flag is read during CLI arg parsing.
// For example, in the case of -o foo -o bar the library will call arr.Set("foo") then arr.Set("bar").
func (i *Array) Set(value string) error {
	*i = append(*i, strings.TrimSpace(value))
	return nil
}

// Get returns the underlying []string value stored by this flag struct.
func (i *Array) Get() any {
	return i
}

// StringListFlag is a type to be passed to flag.Var that supports list flags passed as repeated
// flags, e.g. ./packcheck --checks a --checks b,c the library will call arr.Set("a") then arr.Set("b,c").
type StringListFlag struct {
	set          bool
	value        []string
	defaultValue []string
}

// NewStringListFlag creates a new StringListFlag with the given default value.
func NewStringListFlag(defaultValue []string) StringListFlag {
	return StringListFlag{defaultValue: defaultValue}
}

// Set gets called whenever a new instance of a flag is read during CLI arg parsing.
func (s *StringListFlag) Set(x string) error {
	s.value = append(s.value, strings.Split(x, ",")...)
	s.set = true
	return nil
}

// Get returns the underlying []string value stored by this flag struct.
func (s *StringListFlag) Get() any {
	return s.GetSlice()
}

// GetSlice returns the underlying []string value stored by this flag struct.
func (s *StringListFlag) GetSlice() []string {
	if s.set {
		return s.value
	}
	return s.defaultValue
}

func (s *StringListFlag) String() string {
	if len(s.value) == 0 {
		return ""
	}
	return fmt.Sprint(s.value)
}

// Reset resets the flag to its default value.
func (s *StringListFlag) Reset() {
	s.set = false
	s.value = nil
}

// Flags contains a field for all the cli flags that can be set.
type Flags struct {
	// Root is the directory package files are resolved against.
	Root string
	// Packages are package files or glob patterns relative to Root.
	Packages   []string
	PreInstall []string
	RunModes   []string
	// Checks are built-in check names or the aliases "default" and "all".
	// Empty means "default" unless Checklists are set.
	Checks []string
	// Checklists are stacked in order, see checklist.Merge.
	Checklists []string
	// Output items are "format=path" or a plain path for JSON.
	Output          Array
	HistoryDB       string
	FailOn          string
	PrefetchWorkers int
	Verbose         bool
	LogFile         string
	LogMaxSizeMB    int
	LogMaxBackups   int
	LogMaxAgeDays   int
	PrintVersion    bool
}

var supportedOutputFormats = []string{FormatJSON, FormatText}

// ValidateFlags validates the passed command line flags.
func ValidateFlags(flags *Flags) error {
	if flags.PrintVersion {
		// No other flags need to be present.
		return nil
	}
	if len(flags.Packages) == 0 {
		return errors.New("no package files specified")
	}
	for _, p := range flags.Packages {
		if !hasGlobMeta(p) {
			continue
		}
		if err := validateGlob(p); err != nil {
			return fmt.Errorf("--packages %q: %w", p, err)
		}
	}
	if err := validateMultiStringArg(flags.PreInstall); err != nil {
		return fmt.Errorf("--pre-install: %w", err)
	}
	if err := validateMultiStringArg(flags.RunModes); err != nil {
		return fmt.Errorf("--run-modes: %w", err)
	}
	if err := validateMultiStringArg(flags.Checks); err != nil {
		return fmt.Errorf("--checks: %w", err)
	}
	if len(flags.Checklists) > 0 {
		if len(flags.Checks) > 0 {
			return errors.New("--checks and --checklist can't be used together")
		}
		if err := validateMultiStringArg(flags.Checklists); err != nil {
			return fmt.Errorf("--checklist: %w", err)
		}
		for _, path := range multiStringToList(flags.Checklists) {
			if _, err := checklist.FormatFromPath(path); err != nil {
				return fmt.Errorf("--checklist: %w", err)
			}
		}
	}
	if err := validateOutput(flags.Output); err != nil {
		return fmt.Errorf("-o: %w", err)
	}
	if flags.FailOn != "" {
		if _, err := violation.ParseSeverity(flags.FailOn); err != nil {
			return fmt.Errorf("--fail-on: %w", err)
		}
	}
	if flags.PrefetchWorkers < 0 {
		return fmt.Errorf("--prefetch-workers must not be negative, got %d", flags.PrefetchWorkers)
	}
	if flags.LogMaxSizeMB < 0 || flags.LogMaxBackups < 0 || flags.LogMaxAgeDays < 0 {
		return errors.New("log rotation limits must not be negative")
	}
	return nil
}

func validateOutput(output []string) error {
	for _, item := range output {
		format, path := splitOutput(item)
		if path == "" {
			return fmt.Errorf("invalid output format %q, should follow a format=path format", item)
		}
		if !slices.Contains(supportedOutputFormats, format) {
			return fmt.Errorf("output format %q not recognized, supported formats are %v", format, supportedOutputFormats)
		}
	}
	return nil
}

func splitOutput(item string) (format, path string) {
	if format, path, ok := strings.Cut(item, "="); ok {
		return format, path
	}
	return FormatJSON, item
}

func validateMultiStringArg(arg []string) error {
	if len(arg) == 0 {
		return nil
	}
	for _, item := range arg {
		if len(item) == 0 {
			continue
		}
		for _, item := range strings.Split(item, ",") {
			if len(item) == 0 {
				return errors.New("list item cannot be left empty")
			}
		}
	}
	return nil
}

func validateGlob(arg string) error {
	_, err := glob.Compile(arg, '/')
	return err
}

func hasGlobMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

// GetScanConfig constructs a packcheck scan config from the provided CLI flags.
// The caller owns the returned History store, if any.
func (f *Flags) GetScanConfig() (*packcheck.ScanConfig, error) {
	root := packfs.RealRoot(f.root())
	packages, err := expandPackages(root, f.Packages)
	if err != nil {
		return nil, err
	}
	reg, err := f.checks()
	if err != nil {
		return nil, err
	}
	cfg := &packcheck.ScanConfig{
		Registry:        reg,
		Packages:        packages,
		PreInstall:      multiStringToList(f.PreInstall),
		RunModes:        runmode.New(multiStringToList(f.RunModes)...),
		PackageRoot:     root,
		PrefetchWorkers: f.PrefetchWorkers,
	}
	if f.HistoryDB != "" {
		store, err := reportstore.Open(f.HistoryDB)
		if err != nil {
			return nil, err
		}
		cfg.History = store
	}
	return cfg, nil
}

func (f *Flags) root() string {
	if f.Root == "" {
		return "."
	}
	return f.Root
}

// FailOnSeverity returns the minimum severity that fails the scan.
func (f *Flags) FailOnSeverity() violation.Severity {
	if s, err := violation.ParseSeverity(f.FailOn); err == nil {
		return s
	}
	return violation.SeverityMajor
}

func (f *Flags) checks() (*check.Registry, error) {
	reg := check.NewRegistry()
	if len(f.Checklists) > 0 {
		var lists []*checklist.Checklist
		for _, path := range multiStringToList(f.Checklists) {
			l, err := checklist.Load(path)
			if err != nil {
				return nil, err
			}
			lists = append(lists, l)
		}
		list := checklist.Merge(lists...)
		if err := list.Register(reg); err != nil {
			return nil, err
		}
		log.Infof("Loaded checklist %q with %d check(s)", list.Name, reg.Len())
		return reg, nil
	}
	names := multiStringToList(f.Checks)
	if len(names) == 0 {
		names = []string{"default"}
	}
	checks, err := cl.FromNames(names)
	if err != nil {
		return nil, err
	}
	for _, c := range checks {
		if err := reg.Register(c, check.Config{}); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func multiStringToList(arg []string) []string {
	var result []string
	for _, item := range arg {
		for _, s := range strings.Split(item, ",") {
			if s != "" {
				result = append(result, s)
			}
		}
	}
	return result
}

// expandPackages resolves glob patterns against root. Plain references are
// kept as they are so missing files surface as open faults of the scan.
func expandPackages(root *packfs.Root, patterns []string) ([]string, error) {
	var result []string
	for _, p := range multiStringToList(patterns) {
		if !hasGlobMeta(p) {
			result = append(result, p)
			continue
		}
		g, err := glob.Compile(filepath.ToSlash(p), '/')
		if err != nil {
			return nil, err
		}
		var matches []string
		err = fs.WalkDir(root.FS, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && g.Match(path) {
				matches = append(matches, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", p, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("pattern %q matches no package file", p)
		}
		slices.Sort(matches)
		result = append(result, matches...)
	}
	return result, nil
}

// WriteScanResults writes the scan report in the requested formats. Without
// any -o flag a text summary is written to stdout.
func (f *Flags) WriteScanResults(result *packcheck.ScanResult) error {
	if result.Report == nil {
		return errors.New("scan produced no report")
	}
	if len(f.Output) == 0 {
		return WriteText(os.Stdout, result.Report)
	}
	for _, item := range f.Output {
		format, path := splitOutput(item)
		log.Infof("Writing scan results to %s", path)
		if err := writeFile(path, format, result.Report); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path, format string, rep *report.ScanReport) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	switch format {
	case FormatJSON:
		return report.Write(out, rep)
	case FormatText:
		return WriteText(out, rep)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// WriteText writes a human readable summary of rep, grouped by package with
// the most severe package first.
func WriteText(w io.Writer, rep *report.ScanReport) error {
	if _, err := fmt.Fprintf(w, "scan %s: %s\n", rep.ScanID, rep.Outcome); err != nil {
		return err
	}
	if rep.Reason != "" {
		if _, err := fmt.Fprintf(w, "reason: %s\n", rep.Reason); err != nil {
			return err
		}
	}
	for _, pv := range rep.ByPackage() {
		name := "(global)"
		if !pv.Package.IsZero() {
			name = pv.Package.String()
		}
		if _, err := fmt.Fprintf(w, "%s [%s]\n", name, pv.MaxSeverity); err != nil {
			return err
		}
		for _, v := range pv.Violations {
			if _, err := fmt.Fprintf(w, "  %s %s: %s\n", v.Severity, v.Check, v.Description); err != nil {
				return err
			}
		}
	}
	for _, warning := range rep.Warnings {
		if _, err := fmt.Fprintf(w, "warning: %s\n", warning); err != nil {
			return err
		}
	}
	return nil
}
