package gtm

import (
	"github.com/deploymenttheory/go-gtm-composer/internal/parser"
)

// Workspace is a draft change container in Tag Manager. Resources created
// by this client attach to one workspace and take effect only when a human
// reviews and submits it in the GTM UI.
type Workspace struct {
	Path        string `json:"path,omitempty"`
	AccountID   string `json:"accountId,omitempty"`
	ContainerID string `json:"containerId,omitempty"`
	WorkspaceID string `json:"workspaceId,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Variable is the create payload and response for workspace variables.
type Variable struct {
	Path       string             `json:"path,omitempty"`
	VariableID string             `json:"variableId,omitempty"`
	Name       string             `json:"name"`
	Type       string             `json:"type"`
	Parameter  []parser.Parameter `json:"parameter,omitempty"`
}

// Trigger is the create payload and response for workspace triggers.
type Trigger struct {
	Path              string             `json:"path,omitempty"`
	TriggerID         string             `json:"triggerId,omitempty"`
	Name              string             `json:"name"`
	Type              string             `json:"type"`
	Filter            []parser.Condition `json:"filter,omitempty"`
	CustomEventFilter []parser.Condition `json:"customEventFilter,omitempty"`
	AutoEventFilter   []parser.Condition `json:"autoEventFilter,omitempty"`
}

// Tag is the create payload and response for workspace tags. Trigger
// references here are server-assigned ids, already resolved from names by
// the pipeline.
type Tag struct {
	Path              string             `json:"path,omitempty"`
	TagID             string             `json:"tagId,omitempty"`
	Name              string             `json:"name"`
	Type              string             `json:"type"`
	Parameter         []parser.Parameter `json:"parameter,omitempty"`
	FiringTriggerID   []string           `json:"firingTriggerId,omitempty"`
	BlockingTriggerID []string           `json:"blockingTriggerId,omitempty"`
}

// account and container appear in list responses during container
// resolution.
type account struct {
	AccountID string `json:"accountId"`
	Name      string `json:"name"`
}

type container struct {
	ContainerID string `json:"containerId"`
	PublicID    string `json:"publicId"`
	Name        string `json:"name"`
}

// List response envelopes. The API wraps each collection in a singular
// field named after the resource kind.
type (
	workspaceList struct {
		Workspace []Workspace `json:"workspace"`
	}
	accountList struct {
		Account []account `json:"account"`
	}
	containerList struct {
		Container []container `json:"container"`
	}
	variableList struct {
		Variable []Variable `json:"variable"`
	}
	triggerList struct {
		Trigger []Trigger `json:"trigger"`
	}
	tagList struct {
		Tag []Tag `json:"tag"`
	}
)
