// Package validate implements the audit pass: for every InternalPath known
// from either the destination or the configured source archives, it checks
// that the destination holds the expected file. A user may have synced and
// since deleted a source archive, so a missing zip entry for a path already
// on disk is not itself a problem — only a zip entry with no corresponding
// destination file is flagged.
package validate

import (
	"context"
	"fmt"
	"hash/crc32"
	"os"

	"zipsplat/pkg/archive"
	"zipsplat/pkg/collector"
	"zipsplat/pkg/destscan"
	"zipsplat/pkg/imagehash"
	"zipsplat/pkg/internalpath"
	"zipsplat/pkg/partition"
)

// Severity classifies a Finding.
type Severity int

const (
	// Warning flags a condition worth a human's attention that does not by
	// itself indicate corruption. Run itself emits only Problem findings.
	Warning Severity = iota
	// Problem flags a condition indicating the destination disagrees with
	// its sources.
	Problem
)

func (s Severity) String() string {
	if s == Problem {
		return "problem"
	}
	return "warning"
}

// Finding describes one irregularity surfaced for an InternalPath.
type Finding struct {
	Internal internalpath.Path
	Severity Severity
	Message  string
}

// Report collects every Finding from one validation run.
type Report struct {
	PathsChecked int
	Findings     []Finding
}

// HasProblems reports whether any finding is a Problem, as opposed to an
// informational Warning.
func (r Report) HasProblems() bool {
	for _, f := range r.Findings {
		if f.Severity == Problem {
			return true
		}
	}
	return false
}

// Options configures a validation run.
type Options struct {
	Destination string
	Sources     []string

	// Deep re-verifies each destination file's bytes against its source
	// zip entries: CRC32 equality, or (for images) perceptual similarity
	// within SimilarityThreshold. Without Deep, validation only checks that
	// an expected destination file exists.
	Deep                bool
	SimilarityThreshold int
}

// Run audits the destination against the configured sources.
func Run(ctx context.Context, opts Options) (Report, error) {
	interner := internalpath.NewInterner()
	arena := archive.NewArena()

	existing, err := destscan.Scan(opts.Destination, interner)
	if err != nil {
		return Report{}, fmt.Errorf("validate: scan destination: %w", err)
	}
	existingByPath := destscan.ByInternalPath(existing)

	col := collector.New(collector.Options{})
	archives, err := col.FindArchives(opts.Sources)
	if err != nil {
		return Report{}, fmt.Errorf("validate: find source archives: %w", err)
	}

	entries, _, err := collector.CollectEntries(ctx, arena, interner, archives, 0)
	if err != nil {
		return Report{}, fmt.Errorf("validate: collect entries: %w", err)
	}
	entriesByPath := partition.GroupByInternalPath(entries)

	known := make(map[internalpath.Path]struct{}, len(existingByPath)+len(entriesByPath))
	for p := range existingByPath {
		known[p] = struct{}{}
	}
	for p := range entriesByPath {
		known[p] = struct{}{}
	}

	report := Report{PathsChecked: len(known)}

	for p := range known {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		files := existingByPath[p]
		zipEntries := entriesByPath[p]

		if len(files) == 0 && len(zipEntries) > 0 {
			report.Findings = append(report.Findings, Finding{
				Internal: p,
				Severity: Problem,
				Message:  "expected in destination but no file is present",
			})
			continue
		}

		if len(zipEntries) == 0 {
			// Present on disk with no surviving source archive. Not a
			// problem — the archive may simply have been deleted since.
			continue
		}

		if !opts.Deep {
			continue
		}

		for _, f := range files {
			if findings := auditDeep(arena, f, zipEntries, opts.SimilarityThreshold); len(findings) > 0 {
				report.Findings = append(report.Findings, findings...)
			}
		}
	}

	return report, nil
}

// auditDeep verifies that an on-disk file's bytes agree with at least one of
// its candidate source entries, by CRC32 equality or, failing that,
// perceptual similarity for images.
func auditDeep(arena *archive.Arena, file destscan.ExistingFile, candidates []archive.Entry, threshold int) []Finding {
	onDisk, err := os.ReadFile(file.OnDiskPath)
	if err != nil {
		return []Finding{{
			Internal: file.Internal,
			Severity: Problem,
			Message:  fmt.Sprintf("could not read destination file: %v", err),
		}}
	}

	onDiskCRC := crc32.ChecksumIEEE(onDisk)
	for _, c := range candidates {
		if c.CRC32 == onDiskCRC {
			return nil
		}
	}

	onDiskHash, hashErr := imagehash.Compute(onDisk)
	if hashErr == nil {
		for _, c := range candidates {
			data, err := c.Bytes(arena)
			if err != nil {
				continue
			}
			candidateHash, err := imagehash.Compute(data)
			if err != nil {
				continue
			}
			if ok, err := imagehash.WithinThreshold(onDiskHash, candidateHash, threshold); err == nil && ok {
				return nil
			}
		}
	}

	return []Finding{{
		Internal: file.Internal,
		Severity: Problem,
		Message:  "destination content disagrees with every source archive entry for this path",
	}}
}
