package parser

// Parameter is one key/type/value entry on a variable or tag. Order is
// preserved from the input file.
type Parameter struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Condition is a trigger filter clause (filter, customEventFilter or
// autoEventFilter in Tag Manager terms).
type Condition struct {
	Type      string      `json:"type"`
	Parameter []Parameter `json:"parameter,omitempty"`
}

// Descriptor is the canonical in-memory form of one variable, trigger or
// tag as parsed from the input file. Trigger references on tags are names,
// never server ids; the pipeline resolves them after trigger creation.
type Descriptor struct {
	Name                 string      `json:"name"`
	Type                 string      `json:"type"`
	Parameters           []Parameter `json:"parameter,omitempty"`
	Filters              []Condition `json:"filter,omitempty"`
	CustomEventFilters   []Condition `json:"customEventFilter,omitempty"`
	AutoEventFilters     []Condition `json:"autoEventFilter,omitempty"`
	FiringTriggerNames   []string    `json:"firingTriggerNames,omitempty"`
	BlockingTriggerNames []string    `json:"blockingTriggerNames,omitempty"`
}

// ParsedInput is the canonical representation of one input file: three
// ordered resource lists. Built once by Parse and treated as immutable by
// the validator and the pipeline.
type ParsedInput struct {
	Variables []Descriptor
	Triggers  []Descriptor
	Tags      []Descriptor
}

// Counts returns the number of descriptors per resource kind.
func (p *ParsedInput) Counts() (variables, triggers, tags int) {
	return len(p.Variables), len(p.Triggers), len(p.Tags)
}

// FilterByType returns a copy of the input containing only descriptors of
// the given template type. Used by the --template-type flag.
func (p *ParsedInput) FilterByType(templateType string) *ParsedInput {
	filter := func(in []Descriptor) []Descriptor {
		var out []Descriptor
		for _, d := range in {
			if d.Type == templateType {
				out = append(out, d)
			}
		}
		return out
	}
	return &ParsedInput{
		Variables: filter(p.Variables),
		Triggers:  filter(p.Triggers),
		Tags:      filter(p.Tags),
	}
}
