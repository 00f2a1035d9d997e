package parser

// exportContainerVersion is the slice of a Tag Manager container export
// this parser cares about. Exports reference triggers by server id, so the
// conversion translates those ids back into trigger names before the
// pipeline re-creates everything in a fresh workspace.
type exportContainerVersion struct {
	Variable []exportResource `json:"variable"`
	Trigger  []exportResource `json:"trigger"`
	Tag      []exportResource `json:"tag"`
}

type exportResource struct {
	Name              string      `json:"name"`
	Type              string      `json:"type"`
	TriggerID         string      `json:"triggerId"`
	Parameter         []Parameter `json:"parameter"`
	Filter            []Condition `json:"filter"`
	CustomEventFilter []Condition `json:"customEventFilter"`
	AutoEventFilter   []Condition `json:"autoEventFilter"`
	FiringTriggerID   []string    `json:"firingTriggerId"`
	BlockingTriggerID []string    `json:"blockingTriggerId"`
}

func convertExport(cv *exportContainerVersion) *ParsedInput {
	triggerNames := make(map[string]string, len(cv.Trigger))
	for _, t := range cv.Trigger {
		if t.TriggerID != "" {
			triggerNames[t.TriggerID] = t.Name
		}
	}

	out := &ParsedInput{}

	for _, v := range cv.Variable {
		out.Variables = append(out.Variables, Descriptor{
			Name:       v.Name,
			Type:       v.Type,
			Parameters: exportParameters(v.Parameter),
		})
	}

	for _, t := range cv.Trigger {
		out.Triggers = append(out.Triggers, Descriptor{
			Name:               t.Name,
			Type:               t.Type,
			Filters:            t.Filter,
			CustomEventFilters: t.CustomEventFilter,
			AutoEventFilters:   t.AutoEventFilter,
		})
	}

	for _, tag := range cv.Tag {
		out.Tags = append(out.Tags, Descriptor{
			Name:                 tag.Name,
			Type:                 tag.Type,
			Parameters:           exportParameters(tag.Parameter),
			FiringTriggerNames:   mapTriggerIDsToNames(tag.FiringTriggerID, triggerNames),
			BlockingTriggerNames: mapTriggerIDsToNames(tag.BlockingTriggerID, triggerNames),
		})
	}

	return out
}

// exportParameters normalizes exported parameters to template type, the
// only parameter type the create API accepts for replayed values.
func exportParameters(in []Parameter) []Parameter {
	if len(in) == 0 {
		return nil
	}
	out := make([]Parameter, 0, len(in))
	for _, p := range in {
		out = append(out, Parameter{Key: p.Key, Type: "template", Value: p.Value})
	}
	return out
}

// mapTriggerIDsToNames resolves exported trigger ids to names. An id with
// no matching trigger in the export is kept verbatim and left for the
// validator to report.
func mapTriggerIDsToNames(ids []string, names map[string]string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := names[id]; ok {
			out = append(out, name)
		} else {
			out = append(out, id)
		}
	}
	return out
}
