// Package parser reads JSON and spreadsheet input files and normalizes
// them into one canonical ParsedInput: three ordered lists of resource
// descriptors (variables, triggers, tags).
//
// Two JSON layouts are accepted: the flat {variables, triggers, tags}
// document, and a Tag Manager container export (detected by its
// containerVersion key), which is converted to the flat form with trigger
// id references translated back into trigger names. JSON inputs may be
// compressed (.json.gz, .json.bz2, .json.xz).
package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/deploymenttheory/go-gtm-composer/internal/gtmerr"
)

// Parse reads the file at path and normalizes it into a ParsedInput.
// The format is detected by extension: .json (optionally compressed) or
// .xlsx/.xls. All failures wrap gtmerr.ErrParse, gtmerr.ErrFileNotFound or
// gtmerr.ErrUnsupportedFormat and name the offending file.
func Parse(path string) (*ParsedInput, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", gtmerr.ErrFileNotFound, path)
	}

	inner, compression := splitExtensions(path)
	switch inner {
	case ".json":
		r, err := openInput(path, compression)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return parseJSON(r, path)
	case ".xlsx", ".xls":
		if compression != "" {
			return nil, fmt.Errorf("%w: %s: compressed spreadsheets are not supported", gtmerr.ErrUnsupportedFormat, path)
		}
		return parseSpreadsheet(path)
	default:
		return nil, fmt.Errorf("%w: %s: use .json, .xlsx or .xls", gtmerr.ErrUnsupportedFormat, path)
	}
}

// splitExtensions returns the logical extension and the compression
// extension, if any: "export.json.gz" -> (".json", ".gz").
func splitExtensions(path string) (inner, compression string) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gz", ".bz2", ".xz":
		base := strings.TrimSuffix(path, filepath.Ext(path))
		return strings.ToLower(filepath.Ext(base)), ext
	default:
		return ext, ""
	}
}

// jsonDescriptor mirrors Descriptor with the legacy trigger-reference keys
// of the original flat format, where firingTriggerId carried names.
type jsonDescriptor struct {
	Name                 string      `json:"name"`
	Type                 string      `json:"type"`
	Parameter            []Parameter `json:"parameter"`
	Filter               []Condition `json:"filter"`
	CustomEventFilter    []Condition `json:"customEventFilter"`
	AutoEventFilter      []Condition `json:"autoEventFilter"`
	FiringTriggerNames   []string    `json:"firingTriggerNames"`
	BlockingTriggerNames []string    `json:"blockingTriggerNames"`
	FiringTriggerID      []string    `json:"firingTriggerId"`
	BlockingTriggerID    []string    `json:"blockingTriggerId"`
}

type jsonDocument struct {
	ContainerVersion *exportContainerVersion `json:"containerVersion"`
	Variables        []jsonDescriptor        `json:"variables"`
	Triggers         []jsonDescriptor        `json:"triggers"`
	Tags             []jsonDescriptor        `json:"tags"`
}

func parseJSON(r io.Reader, path string) (*ParsedInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", gtmerr.ErrParse, path, err)
	}

	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: malformed JSON: %v", gtmerr.ErrParse, path, err)
	}

	// Container export format takes precedence when present
	if doc.ContainerVersion != nil {
		return convertExport(doc.ContainerVersion), nil
	}

	return &ParsedInput{
		Variables: convertDescriptors(doc.Variables),
		Triggers:  convertDescriptors(doc.Triggers),
		Tags:      convertDescriptors(doc.Tags),
	}, nil
}

func convertDescriptors(in []jsonDescriptor) []Descriptor {
	out := make([]Descriptor, 0, len(in))
	for _, d := range in {
		firing := d.FiringTriggerNames
		if len(firing) == 0 {
			firing = d.FiringTriggerID
		}
		blocking := d.BlockingTriggerNames
		if len(blocking) == 0 {
			blocking = d.BlockingTriggerID
		}
		out = append(out, Descriptor{
			Name:                 d.Name,
			Type:                 d.Type,
			Parameters:           d.Parameter,
			Filters:              d.Filter,
			CustomEventFilters:   d.CustomEventFilter,
			AutoEventFilters:     d.AutoEventFilter,
			FiringTriggerNames:   firing,
			BlockingTriggerNames: blocking,
		})
	}
	return out
}
