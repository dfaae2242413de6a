// Package sarif renders findings as a SARIF 2.1.0 report.
package sarif

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/coreyt/sine/internal/baseline"
	"github.com/coreyt/sine/internal/findings"
	"github.com/coreyt/sine/internal/git"
)

const (
	ToolName       = "Sine"
	InformationURI = "https://github.com/coreyt/sine"
)

// Meta carries the run-level details attached to a report.
type Meta struct {
	RunID       string
	ToolVersion string
	// Repository is optional. When set, artifact URIs under its root are made
	// relative and the checkout is recorded as version control provenance.
	Repository *git.RepositoryMetadata
}

// Build converts findings into a single-run SARIF report. Rules are registered
// once per guideline in the order they first appear.
func Build(fs []findings.Finding, meta Meta) (*sarif.Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create sarif report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(ToolName, InformationURI)
	if meta.ToolVersion != "" {
		version := meta.ToolVersion
		run.Tool.Driver.Version = &version
	}
	if meta.RunID != "" {
		run.Properties = sarif.Properties{"run_id": meta.RunID}
	}
	if vcs := provenance(meta.Repository); vcs != nil {
		run.VersionControlProvenance = append(run.VersionControlProvenance, vcs)
	}

	seen := map[string]bool{}
	for _, f := range fs {
		if !seen[f.GuidelineID] {
			seen[f.GuidelineID] = true
			run.AddRule(f.GuidelineID).
				WithDescription(f.Title).
				WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: Level(f.Severity)}).
				WithProperties(sarif.Properties{
					"category": f.Category,
					"tier":     f.Tier,
				})
		}

		region := sarif.NewRegion().WithStartLine(f.Line)
		if f.Snippet != "" {
			snippet := f.Snippet
			region.Snippet = &sarif.ArtifactContent{Text: &snippet}
		}
		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(artifactURI(f.File, meta.Repository))).
				WithRegion(region),
		)

		result := sarif.NewRuleResult(f.GuidelineID).
			WithMessage(sarif.NewTextMessage(f.Message)).
			WithLevel(Level(f.Severity)).
			WithLocations([]*sarif.Location{location})
		result.Properties = sarif.Properties{
			"engine":   f.Engine,
			"baseline": baseline.Fingerprint(f),
		}
		run.AddResult(result)
	}

	report.AddRun(run)
	return report, nil
}

// Write builds the report and writes it indented to w.
func Write(w io.Writer, fs []findings.Finding, meta Meta) error {
	report, err := Build(fs, meta)
	if err != nil {
		return err
	}
	if err := report.PrettyWrite(w); err != nil {
		return fmt.Errorf("failed to write sarif report: %w", err)
	}
	return nil
}

// Level maps a rule severity onto a SARIF result level.
func Level(severity string) string {
	switch strings.ToLower(severity) {
	case "error":
		return "error"
	case "info":
		return "note"
	default:
		return "warning"
	}
}

func provenance(md *git.RepositoryMetadata) *sarif.VersionControlDetails {
	if md == nil || md.RepositoryURL == nil {
		return nil
	}
	uri := *md.RepositoryURL
	vcs := &sarif.VersionControlDetails{RepositoryURI: &uri}
	if md.CommitHash != nil {
		commit := *md.CommitHash
		vcs.RevisionID = &commit
	}
	if md.BranchName != nil {
		branch := *md.BranchName
		vcs.Branch = &branch
	}
	return vcs
}

// artifactURI returns file relative to the repository root when it lies inside it.
func artifactURI(file string, md *git.RepositoryMetadata) string {
	if md == nil || md.RootFolder == "" || !filepath.IsAbs(file) {
		return filepath.ToSlash(file)
	}
	rel, err := filepath.Rel(md.RootFolder, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(file)
	}
	return filepath.ToSlash(rel)
}
