package parser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/deploymenttheory/go-gtm-composer/internal/gtmerr"
)

// Sheet names the spreadsheet reader requires.
const (
	sheetVariables = "Variables"
	sheetTriggers  = "Triggers"
	sheetTags      = "Tags"
)

// parseSpreadsheet reads the three required sheets into a ParsedInput.
// One parameter per row is supported; rows sharing a resource name are
// merged into a single descriptor with a combined parameter sequence.
func parseSpreadsheet(path string) (*ParsedInput, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: unreadable spreadsheet: %v", gtmerr.ErrParse, path, err)
	}
	defer f.Close()

	sheets := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		sheets[name] = true
	}
	for _, required := range []string{sheetVariables, sheetTriggers, sheetTags} {
		if !sheets[required] {
			return nil, fmt.Errorf("%w: %s: missing required sheet %q", gtmerr.ErrParse, path, required)
		}
	}

	out := &ParsedInput{}
	if out.Variables, err = parseSheet(f, path, sheetVariables, variableFromRow); err != nil {
		return nil, err
	}
	if out.Triggers, err = parseSheet(f, path, sheetTriggers, triggerFromRow); err != nil {
		return nil, err
	}
	if out.Tags, err = parseSheet(f, path, sheetTags, tagFromRow); err != nil {
		return nil, err
	}
	return out, nil
}

// sheetRow is one data row keyed by its lowercased column header.
type sheetRow struct {
	file   string
	sheet  string
	number int // 1-based spreadsheet row number
	cells  map[string]string
}

func (r sheetRow) get(column string) string {
	return strings.TrimSpace(r.cells[column])
}

func (r sheetRow) errorf(format string, args ...interface{}) error {
	prefix := fmt.Sprintf("%s: sheet %s row %d: ", r.file, r.sheet, r.number)
	return fmt.Errorf("%w: %s", gtmerr.ErrParse, prefix+fmt.Sprintf(format, args...))
}

// parseSheet walks a sheet's data rows, converts each through fromRow and
// merges rows that share a resource name. Fully blank rows are skipped;
// a populated row without a name fails the parse.
func parseSheet(f *excelize.File, path, sheet string, fromRow func(sheetRow) (Descriptor, error)) ([]Descriptor, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: reading sheet %s: %v", gtmerr.ErrParse, path, sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var (
		descriptors []Descriptor
		byName      = make(map[string]int)
	)
	for i, cells := range rows[1:] {
		row := sheetRow{file: path, sheet: sheet, number: i + 2, cells: make(map[string]string)}
		empty := true
		for j, cell := range cells {
			if j >= len(headers) || headers[j] == "" {
				continue
			}
			row.cells[headers[j]] = cell
			if strings.TrimSpace(cell) != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		if row.get("name") == "" {
			return nil, row.errorf("missing resource name")
		}

		d, err := fromRow(row)
		if err != nil {
			return nil, err
		}

		if idx, seen := byName[d.Name]; seen {
			mergeDescriptor(&descriptors[idx], d)
			continue
		}
		byName[d.Name] = len(descriptors)
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

// mergeDescriptor folds a continuation row into the descriptor created by
// the first row carrying the same name. The first row wins on type.
func mergeDescriptor(dst *Descriptor, src Descriptor) {
	dst.Parameters = append(dst.Parameters, src.Parameters...)
	dst.Filters = append(dst.Filters, src.Filters...)
	dst.CustomEventFilters = append(dst.CustomEventFilters, src.CustomEventFilters...)
	dst.AutoEventFilters = append(dst.AutoEventFilters, src.AutoEventFilters...)
	dst.FiringTriggerNames = append(dst.FiringTriggerNames, src.FiringTriggerNames...)
	dst.BlockingTriggerNames = append(dst.BlockingTriggerNames, src.BlockingTriggerNames...)
}

// variableFromRow reads columns name, type, value, parameter_key,
// parameter_value. A plain value column becomes the "value" parameter.
func variableFromRow(row sheetRow) (Descriptor, error) {
	d := Descriptor{
		Name: row.get("name"),
		Type: defaultString(row.get("type"), "v"),
	}

	if value := row.get("value"); value != "" {
		d.Parameters = append(d.Parameters, Parameter{Key: "value", Type: "template", Value: value})
	}

	params, err := parameterColumns(row)
	if err != nil {
		return Descriptor{}, err
	}
	d.Parameters = append(d.Parameters, params...)
	return d, nil
}

// triggerFromRow reads columns name, type, event_name, filter_type,
// filter_parameter. event_name only applies to CUSTOM_EVENT triggers.
func triggerFromRow(row sheetRow) (Descriptor, error) {
	d := Descriptor{
		Name: row.get("name"),
		Type: defaultString(row.get("type"), "PAGEVIEW"),
	}

	if event := row.get("event_name"); event != "" && d.Type == "CUSTOM_EVENT" {
		d.CustomEventFilters = []Condition{{
			Type: "equals",
			Parameter: []Parameter{
				{Key: "arg0", Type: "template", Value: "{{_event}}"},
				{Key: "arg1", Type: "template", Value: event},
			},
		}}
	}

	if filterType := row.get("filter_type"); filterType != "" {
		filter := Condition{Type: filterType}
		if raw := row.get("filter_parameter"); raw != "" {
			// Format: key1:value1|key2:value2
			for _, pair := range strings.Split(raw, "|") {
				key, value, found := strings.Cut(pair, ":")
				if !found {
					return Descriptor{}, row.errorf("filter_parameter entry %q is not key:value", pair)
				}
				filter.Parameter = append(filter.Parameter, Parameter{
					Key:   strings.TrimSpace(key),
					Type:  "template",
					Value: strings.TrimSpace(value),
				})
			}
		}
		d.Filters = []Condition{filter}
	}

	return d, nil
}

// tagFromRow reads columns name, type, html, parameter_key,
// parameter_value, firing_triggers, blocking_triggers.
func tagFromRow(row sheetRow) (Descriptor, error) {
	d := Descriptor{
		Name: row.get("name"),
		Type: defaultString(row.get("type"), "html"),
	}

	if html := row.get("html"); html != "" && d.Type == "html" {
		d.Parameters = append(d.Parameters, Parameter{Key: "html", Type: "template", Value: html})
	}

	params, err := parameterColumns(row)
	if err != nil {
		return Descriptor{}, err
	}
	d.Parameters = append(d.Parameters, params...)

	d.FiringTriggerNames = splitNames(row.get("firing_triggers"))
	d.BlockingTriggerNames = splitNames(row.get("blocking_triggers"))
	return d, nil
}

// parameterColumns zips the |-separated parameter_key and parameter_value
// columns. A key without a matching value coerces to the empty string; a
// value without a key fails the parse.
func parameterColumns(row sheetRow) ([]Parameter, error) {
	rawKeys := row.get("parameter_key")
	rawValues := row.get("parameter_value")
	if rawKeys == "" {
		if rawValues != "" {
			return nil, row.errorf("parameter_value given without parameter_key")
		}
		return nil, nil
	}

	keys := strings.Split(rawKeys, "|")
	values := strings.Split(rawValues, "|")
	if rawValues == "" {
		values = nil
	}
	if len(values) > len(keys) {
		return nil, row.errorf("more parameter values (%d) than keys (%d)", len(values), len(keys))
	}

	params := make([]Parameter, 0, len(keys))
	for i, key := range keys {
		value := ""
		if i < len(values) {
			value = strings.TrimSpace(values[i])
		}
		params = append(params, Parameter{Key: strings.TrimSpace(key), Type: "template", Value: value})
	}
	return params, nil
}

func splitNames(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, "|")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
