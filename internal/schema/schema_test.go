package schema

import (
	"strings"
	"testing"

	"github.com/deploymenttheory/go-gtm-composer/internal/parser"
)

func validInput() *parser.ParsedInput {
	return &parser.ParsedInput{
		Variables: []parser.Descriptor{
			{Name: "GA ID", Type: "c", Parameters: []parser.Parameter{
				{Key: "value", Type: "template", Value: "G-ABC123"},
			}},
		},
		Triggers: []parser.Descriptor{
			{Name: "All Pages", Type: "PAGEVIEW"},
			{Name: "Purchase", Type: "CUSTOM_EVENT"},
		},
		Tags: []parser.Descriptor{
			{Name: "GA4 Config", Type: "googtag", FiringTriggerNames: []string{"All Pages"}},
		},
	}
}

func TestValidateAcceptsWellFormedInput(t *testing.T) {
	if errs := Validate(validInput()); len(errs) != 0 {
		t.Fatalf("Expected no validation errors, got %d: %v", len(errs), errs)
	}
}

func TestValidateMissingName(t *testing.T) {
	in := validInput()
	in.Variables = append(in.Variables, parser.Descriptor{Type: "c"})

	errs := Validate(in)
	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %d: %v", len(errs), errs)
	}
	if errs[0].Field != "name" || errs[0].Kind != "variable" {
		t.Errorf("Unexpected error: %+v", errs[0])
	}
	if !strings.Contains(errs[0].Error(), "(unnamed)") {
		t.Errorf("Expected (unnamed) placeholder in %q", errs[0].Error())
	}
}

func TestValidateMissingAndUnknownTypes(t *testing.T) {
	in := validInput()
	in.Triggers = append(in.Triggers,
		parser.Descriptor{Name: "No Type"},
		parser.Descriptor{Name: "Bad Type", Type: "NOT_A_TRIGGER"},
	)
	in.Tags = append(in.Tags, parser.Descriptor{Name: "Bad Tag", Type: "blink"})

	errs := Validate(in)
	if len(errs) != 3 {
		t.Fatalf("Expected 3 errors, got %d: %v", len(errs), errs)
	}
	for _, err := range errs {
		if err.Field != "type" {
			t.Errorf("Expected a type error, got %+v", err)
		}
	}
}

func TestValidateAcceptsCustomTemplateTypes(t *testing.T) {
	in := validInput()
	in.Tags = append(in.Tags, parser.Descriptor{Name: "Vendor Tag", Type: "cvt_12345_67"})

	if errs := Validate(in); len(errs) != 0 {
		t.Fatalf("Expected cvt_ types to be accepted, got %v", errs)
	}
}

func TestValidateDuplicateNames(t *testing.T) {
	in := validInput()
	in.Triggers = append(in.Triggers, parser.Descriptor{Name: "All Pages", Type: "DOM_READY"})

	errs := Validate(in)
	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %d: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0].Message, "duplicate trigger name") {
		t.Errorf("Unexpected message: %q", errs[0].Message)
	}
}

func TestValidateEmptyParameterKey(t *testing.T) {
	in := validInput()
	in.Variables[0].Parameters = append(in.Variables[0].Parameters, parser.Parameter{Type: "template", Value: "x"})

	errs := Validate(in)
	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %d: %v", len(errs), errs)
	}
	if errs[0].Field != "parameter[1]" {
		t.Errorf("Expected parameter[1], got %q", errs[0].Field)
	}
}

func TestValidateTriggerReferences(t *testing.T) {
	in := validInput()
	in.Tags = append(in.Tags, parser.Descriptor{
		Name:                 "Broken",
		Type:                 "html",
		FiringTriggerNames:   []string{"All Pages", "Ghost"},
		BlockingTriggerNames: []string{"Phantom"},
	})

	errs := Validate(in)
	if len(errs) != 2 {
		t.Fatalf("Expected 2 errors, got %d: %v", len(errs), errs)
	}
	if errs[0].Field != "firingTriggerNames" || !strings.Contains(errs[0].Message, `"Ghost"`) {
		t.Errorf("Unexpected first error: %+v", errs[0])
	}
	if errs[1].Field != "blockingTriggerNames" || !strings.Contains(errs[1].Message, `"Phantom"`) {
		t.Errorf("Unexpected second error: %+v", errs[1])
	}
}

func TestValidateIsDeterministic(t *testing.T) {
	in := validInput()
	in.Tags[0].FiringTriggerNames = []string{"Nope", "AlsoNope"}
	in.Variables = append(in.Variables, parser.Descriptor{Name: "Untyped"})

	first := Validate(in)
	for i := 0; i < 5; i++ {
		again := Validate(in)
		if len(again) != len(first) {
			t.Fatalf("Error count changed between runs: %d vs %d", len(first), len(again))
		}
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("Error order changed at %d: %+v vs %+v", j, first[j], again[j])
			}
		}
	}
}

func TestErrorsAggregate(t *testing.T) {
	errs := Errors(Validate(&parser.ParsedInput{
		Tags: []parser.Descriptor{{Name: "Orphan", Type: "html", FiringTriggerNames: []string{"Missing"}}},
	}))
	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %d", len(errs))
	}
	msg := errs.Error()
	if !strings.Contains(msg, "1 validation error(s)") || !strings.Contains(msg, "Missing") {
		t.Errorf("Unexpected aggregate message: %q", msg)
	}
}
