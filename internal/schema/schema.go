// Package schema validates a ParsedInput before any remote call is made:
// structural rules (required fields, enumerated types) and referential
// integrity (every trigger name referenced by a tag must exist among the
// parsed triggers). Validation is pure; all errors are reported together.
package schema

import (
	"fmt"
	"strings"

	"github.com/deploymenttheory/go-gtm-composer/internal/parser"
)

// ValidationError describes one structural or referential problem.
type ValidationError struct {
	Kind    string // "variable", "trigger" or "tag"
	Name    string // resource name, may be empty when the name itself is missing
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	name := e.Name
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("%s %q: %s: %s", e.Kind, name, e.Field, e.Message)
}

// Errors aggregates validation errors into a single error value for
// callers that propagate the whole list.
type Errors []ValidationError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	lines := make([]string, 0, len(e))
	for _, err := range e {
		lines = append(lines, err.Error())
	}
	return fmt.Sprintf("%d validation error(s):\n  - %s", len(e), strings.Join(lines, "\n  - "))
}

// Trigger types accepted by the create API, web and server-side.
var triggerTypes = map[string]bool{
	"PAGEVIEW":           true,
	"DOM_READY":          true,
	"WINDOW_LOADED":      true,
	"CLICK":              true,
	"LINK_CLICK":         true,
	"FORM_SUBMISSION":    true,
	"CUSTOM_EVENT":       true,
	"TIMER":              true,
	"SCROLL_DEPTH":       true,
	"ELEMENT_VISIBILITY": true,
	"HISTORY_CHANGE":     true,
	"JS_ERROR":           true,
	"YOU_TUBE_VIDEO":     true,
	"ALWAYS":             true,
	"INIT":               true,
	"CONSENT_INIT":       true,
	"SERVER_PAGEVIEW":    true,
	"TRIGGER_GROUP":      true,
}

// Built-in tag template ids. Vendor templates installed from the gallery
// carry a cvt_ prefix and are accepted as a class.
var tagTypes = map[string]bool{
	"html":    true,
	"img":     true,
	"ua":      true,
	"gaawe":   true,
	"googtag": true,
	"awct":    true,
	"sp":      true,
	"flc":     true,
	"fls":     true,
	"bzi":     true,
}

// Built-in variable template ids ("v" is a user-defined variable).
var variableTypes = map[string]bool{
	"v":    true,
	"c":    true,
	"k":    true,
	"u":    true,
	"d":    true,
	"f":    true,
	"e":    true,
	"j":    true,
	"jsm":  true,
	"r":    true,
	"smm":  true,
	"remm": true,
	"aev":  true,
	"gas":  true,
	"cid":  true,
	"dbg":  true,
	"ctv":  true,
	"vis":  true,
}

// Validate checks the parsed input and returns every problem found. An
// empty result means the input is safe to replay against the API.
// Deterministic: the same input always yields the same errors in the same
// order.
func Validate(in *parser.ParsedInput) []ValidationError {
	var errs []ValidationError

	errs = append(errs, validateList("variable", in.Variables, variableTypes)...)
	errs = append(errs, validateList("trigger", in.Triggers, triggerTypes)...)
	errs = append(errs, validateList("tag", in.Tags, tagTypes)...)
	errs = append(errs, validateTriggerReferences(in)...)

	return errs
}

func validateList(kind string, list []parser.Descriptor, types map[string]bool) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(list))

	for _, d := range list {
		if d.Name == "" {
			errs = append(errs, ValidationError{
				Kind: kind, Field: "name",
				Message: "name is required",
			})
			continue
		}

		// A duplicate trigger name would silently rebind every tag that
		// references it through the name->id map, so duplicates within a
		// list are refused for all kinds.
		if seen[d.Name] {
			errs = append(errs, ValidationError{
				Kind: kind, Name: d.Name, Field: "name",
				Message: fmt.Sprintf("duplicate %s name", kind),
			})
		}
		seen[d.Name] = true

		switch {
		case d.Type == "":
			errs = append(errs, ValidationError{
				Kind: kind, Name: d.Name, Field: "type",
				Message: "type is required",
			})
		case !validType(d.Type, types):
			errs = append(errs, ValidationError{
				Kind: kind, Name: d.Name, Field: "type",
				Message: fmt.Sprintf("unknown %s type %q", kind, d.Type),
			})
		}

		for i, p := range d.Parameters {
			if p.Key == "" {
				errs = append(errs, ValidationError{
					Kind: kind, Name: d.Name,
					Field:   fmt.Sprintf("parameter[%d]", i),
					Message: "parameter key is required",
				})
			}
		}
	}
	return errs
}

func validType(t string, types map[string]bool) bool {
	return types[t] || strings.HasPrefix(t, "cvt_")
}

// validateTriggerReferences checks that every trigger name referenced by a
// tag exists among the parsed triggers: one error per offending name per
// tag. This is the check that keeps unresolved references from surfacing
// as partial failures deep inside remote calls.
func validateTriggerReferences(in *parser.ParsedInput) []ValidationError {
	triggerNames := make(map[string]bool, len(in.Triggers))
	for _, t := range in.Triggers {
		triggerNames[t.Name] = true
	}

	var errs []ValidationError
	for _, tag := range in.Tags {
		for _, ref := range tag.FiringTriggerNames {
			if !triggerNames[ref] {
				errs = append(errs, ValidationError{
					Kind: "tag", Name: tag.Name, Field: "firingTriggerNames",
					Message: fmt.Sprintf("references non-existent trigger %q", ref),
				})
			}
		}
		for _, ref := range tag.BlockingTriggerNames {
			if !triggerNames[ref] {
				errs = append(errs, ValidationError{
					Kind: "tag", Name: tag.Name, Field: "blockingTriggerNames",
					Message: fmt.Sprintf("references non-existent trigger %q", ref),
				})
			}
		}
	}
	return errs
}
