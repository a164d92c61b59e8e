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

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/packcheck/archive"
	"github.com/google/packcheck/installable"
	"github.com/google/packcheck/log"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/session"
	"github.com/google/packcheck/stats"
	"github.com/google/packcheck/violation"
)

// scanPackage processes one opened package and everything nested in it, then
// closes a. Only fatal faults are returned; the pass can't continue after one.
func (p *pass) scanPackage(ctx context.Context, a archive.Archive, ref string, kind stats.PackageKind,
	parent packageid.PackageID, inst *installable.Installable) (fatal error) {
	start := time.Now()
	id := a.ID()
	ps := &stats.PackageStats{ID: id.String(), Kind: kind}
	defer func() {
		closeArchive(a)
		ps.Runtime = time.Since(start)
		ps.Error = fatal
		p.cfg.Stats.AfterPackageScanned(ps)
	}()

	if slices.Contains(p.lineage.Lineage(), id) {
		log.Errorf("package %s is nested in itself, skipping", id)
		p.engineViolation(violation.SeveritySevere, fmt.Sprintf("package %s is nested in itself", id), id)
		return nil
	}
	p.lineage.Open(id)
	ps.Depth = p.lineage.Depth()
	log.Infof("scanning %s (%s, depth %d)", id, ref, ps.Depth)
	root, _ := p.lineage.Root()
	p.sim.Open(id, root)

	switch kind {
	case stats.PackageKindSubpackage:
		p.disp.IdentifySubpackage(ctx, id, parent)
	case stats.PackageKindEmbedded:
		// Both identify events describe the same lineage entry.
		p.disp.IdentifyEmbeddedPackage(ctx, id, parent, inst)
		p.disp.IdentifyPackage(ctx, id, ref)
	default:
		p.disp.IdentifyPackage(ctx, id, ref)
	}

	p.readManifest(ctx, a, id)

	subs := p.openSubpackages(ctx, a, id)
	defer func() {
		// Sub-packages are consumed front to back; only an abort leaves some.
		for _, s := range subs {
			closeArchive(s)
		}
	}()
	subIDs := make([]packageid.PackageID, 0, len(subs))
	for _, s := range subs {
		subIDs = append(subIDs, s.ID())
	}
	p.disp.BeforeExtract(ctx, id, p.ro, a.Properties(), a.MetaInf(), subIDs)

	l := &listener{p: p, id: id}
	if err := p.cfg.Extractor.Extract(ctx, a, p.sess, l); err != nil {
		if errors.Is(err, session.ErrSession) {
			return fmt.Errorf("extracting %s: %w", id, err)
		}
		log.Errorf("extracting %s: %v", id, err)
		p.engineViolation(violation.SeveritySevere, fmt.Sprintf("failed to extract %s: %v", id, err), id)
	}
	ps.Paths = l.paths
	p.disp.AfterExtract(ctx, id, p.ro)

	if err := p.sim.Drain(ctx, p.install); err != nil {
		return err
	}
	if err := p.sim.Close(); err != nil {
		return err
	}

	for len(subs) > 0 {
		s := subs[0]
		subs = subs[1:]
		if err := p.scanPackage(ctx, s, s.Ref(), stats.PackageKindSubpackage, id, nil); err != nil {
			return err
		}
	}

	if kind == stats.PackageKindScanTarget {
		p.disp.AfterScanPackage(ctx, id, p.ro)
	}
	if _, err := p.lineage.Close(); err != nil {
		return err
	}
	return nil
}

func (p *pass) readManifest(ctx context.Context, a archive.Archive, id packageid.PackageID) {
	m, err := a.Manifest()
	switch {
	case errors.Is(err, archive.ErrNoManifest):
	case err != nil:
		log.Warnf("reading manifest of %s: %v", id, err)
		if err := p.agg.Warn("%s: unreadable manifest: %v", id, err); err != nil {
			log.Errorf("recording warning: %v", err)
		}
	default:
		p.disp.ReadManifest(ctx, id, m)
	}
}

// openSubpackages opens the package files nested in a. Files that can't be
// opened are reported against a's package and skipped.
func (p *pass) openSubpackages(ctx context.Context, a archive.Archive, id packageid.PackageID) []archive.Archive {
	var subs []archive.Archive
	for _, sp := range a.Subpackages() {
		s, err := p.cfg.Archives.OpenBytes(ctx, sp.Path, sp.Data)
		if err != nil {
			log.Errorf("%v", err)
			p.engineViolation(violation.SeveritySevere, fmt.Sprintf("sub-package %s: %v", sp.Path, err), id)
			continue
		}
		subs = append(subs, s)
	}
	return subs
}

// install processes one drained installable. Only fatal faults are returned.
func (p *pass) install(ctx context.Context, inst *installable.Installable) error {
	p.disp.BeforeSlingInstall(ctx, inst.ScanPackage, inst, p.ro)
	is := &stats.InstallableStats{Path: inst.Path, Kind: inst.Kind.String(), Result: stats.InstallableResultApplied}
	defer p.cfg.Stats.AfterInstallableDrained(is)

	switch inst.Kind {
	case installable.KindEmbeddedPackage:
		a, err := p.cfg.Archives.OpenBytes(ctx, inst.Path, inst.Data)
		if err != nil {
			is.Result = stats.InstallableResultOpenFailed
			log.Errorf("%v", err)
			p.engineViolation(violation.SeveritySevere, fmt.Sprintf("embedded package %s: %v", inst.Path, err), inst.Parent)
			return nil
		}
		return p.scanPackage(ctx, a, inst.Path, stats.PackageKindEmbedded, inst.Parent, inst)
	case installable.KindRepoInitScripts:
		err := p.cfg.Extractor.ApplyRepoInit(ctx, inst.Scripts, p.sess)
		switch {
		case errors.Is(err, session.ErrSession):
			return fmt.Errorf("applying repo-init scripts from %s: %w", inst.Path, err)
		case err != nil:
			is.Result = stats.InstallableResultScriptFailed
			log.Errorf("applying repo-init scripts from %s: %v", inst.Path, err)
			p.engineViolation(violation.SeveritySevere,
				fmt.Sprintf("failed to apply repo-init scripts from %s: %v", inst.Path, err), inst.ScanPackage)
			return nil
		}
		p.disp.AppliedRepoInitScripts(ctx, inst.ScanPackage, inst.Scripts, inst, p.ro)
	}
	return nil
}

// listener forwards extraction events of one package to the checks.
type listener struct {
	p     *pass
	id    packageid.PackageID
	paths int
}

func (l *listener) ImportedPath(ctx context.Context, path string, node *session.Node, action session.PathAction) {
	l.paths++
	l.p.disp.ImportedPath(ctx, l.id, path, node, action)
}

func (l *listener) DeletedPath(ctx context.Context, path string) {
	l.paths++
	l.p.disp.DeletedPath(ctx, l.id, path, l.p.ro)
}

func closeArchive(a archive.Archive) {
	if err := a.Close(); err != nil {
		log.Warnf("closing package %s: %v", a.ID(), err)
	}
}
