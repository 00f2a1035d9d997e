package gtm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/deploymenttheory/go-gtm-composer/internal/gtmerr"
	"github.com/deploymenttheory/go-gtm-composer/internal/logger"
	"github.com/deploymenttheory/go-gtm-composer/internal/parser"
)

// CreateWorkspace creates a new workspace in the configured container and
// pins the client to it for subsequent resource creation.
func (c *Client) CreateWorkspace(ctx context.Context, name, description string) (*Workspace, error) {
	var ws Workspace
	body := Workspace{Name: name, Description: description}
	if err := c.do(ctx, http.MethodPost, c.parent()+"/workspaces", body, &ws); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", gtmerr.ErrWorkspaceCreate, name, err)
	}

	c.workspacePath = ws.Path
	c.workspaceID = ws.WorkspaceID
	logger.LogInfo("Workspace created", map[string]interface{}{
		"name": ws.Name,
		"id":   ws.WorkspaceID,
	})
	return &ws, nil
}

// ListWorkspaces lists all workspaces in the configured container.
func (c *Client) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	var list workspaceList
	if err := c.do(ctx, http.MethodGet, c.parent()+"/workspaces", nil, &list); err != nil {
		return nil, err
	}
	return list.Workspace, nil
}

// GetOrCreateWorkspace pins the client to the workspace with the given
// name, creating it when absent. Used to replay into one fixed workspace
// instead of minting a new one per run.
func (c *Client) GetOrCreateWorkspace(ctx context.Context, name, description string) (*Workspace, error) {
	workspaces, err := c.ListWorkspaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing workspaces: %v", gtmerr.ErrWorkspaceCreate, err)
	}
	for i := range workspaces {
		if workspaces[i].Name == name {
			ws := workspaces[i]
			c.workspacePath = ws.Path
			c.workspaceID = ws.WorkspaceID
			logger.LogInfo("Using existing workspace", map[string]interface{}{
				"name": ws.Name,
				"id":   ws.WorkspaceID,
			})
			return &ws, nil
		}
	}
	return c.CreateWorkspace(ctx, name, description)
}

// ClearWorkspace deletes every tag, trigger and variable in the pinned
// workspace so a reused workspace starts clean. Tags go first since they
// depend on the other two kinds. Individual delete failures are logged
// and skipped; a reused workspace with leftovers is recoverable in the UI.
func (c *Client) ClearWorkspace(ctx context.Context) error {
	if c.workspacePath == "" {
		return fmt.Errorf("%w: no workspace selected", gtmerr.ErrWorkspaceCreate)
	}

	var tags tagList
	if err := c.do(ctx, http.MethodGet, c.workspacePath+"/tags", nil, &tags); err != nil {
		return err
	}
	for _, t := range tags.Tag {
		c.deleteResource(ctx, "tag", t.Name, t.Path)
	}

	var triggers triggerList
	if err := c.do(ctx, http.MethodGet, c.workspacePath+"/triggers", nil, &triggers); err != nil {
		return err
	}
	for _, t := range triggers.Trigger {
		c.deleteResource(ctx, "trigger", t.Name, t.Path)
	}

	var variables variableList
	if err := c.do(ctx, http.MethodGet, c.workspacePath+"/variables", nil, &variables); err != nil {
		return err
	}
	for _, v := range variables.Variable {
		c.deleteResource(ctx, "variable", v.Name, v.Path)
	}
	return nil
}

func (c *Client) deleteResource(ctx context.Context, kind, name, path string) {
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		logger.LogWarn("Failed to delete "+kind, map[string]interface{}{
			"name":  name,
			"error": err.Error(),
		})
		return
	}
	logger.LogDebug("Deleted "+kind, map[string]interface{}{"name": name})
}

// CreateVariable creates a workspace variable and returns its server id.
func (c *Client) CreateVariable(ctx context.Context, d parser.Descriptor) (string, error) {
	if c.workspacePath == "" {
		return "", fmt.Errorf("%w: no workspace selected", gtmerr.ErrResourceCreate)
	}

	body := Variable{Name: d.Name, Type: d.Type, Parameter: d.Parameters}
	var created Variable
	if err := c.do(ctx, http.MethodPost, c.workspacePath+"/variables", body, &created); err != nil {
		return "", fmt.Errorf("%w: variable %q: %v", gtmerr.ErrResourceCreate, d.Name, err)
	}
	logger.LogDebug("Variable created", map[string]interface{}{
		"name": created.Name,
		"id":   created.VariableID,
	})
	return created.VariableID, nil
}

// CreateTrigger creates a workspace trigger and returns its server id.
func (c *Client) CreateTrigger(ctx context.Context, d parser.Descriptor) (string, error) {
	if c.workspacePath == "" {
		return "", fmt.Errorf("%w: no workspace selected", gtmerr.ErrResourceCreate)
	}

	body := Trigger{
		Name:              d.Name,
		Type:              d.Type,
		Filter:            d.Filters,
		CustomEventFilter: d.CustomEventFilters,
		AutoEventFilter:   d.AutoEventFilters,
	}
	var created Trigger
	if err := c.do(ctx, http.MethodPost, c.workspacePath+"/triggers", body, &created); err != nil {
		return "", fmt.Errorf("%w: trigger %q: %v", gtmerr.ErrResourceCreate, d.Name, err)
	}
	logger.LogDebug("Trigger created", map[string]interface{}{
		"name": created.Name,
		"id":   created.TriggerID,
	})
	return created.TriggerID, nil
}

// CreateTag creates a workspace tag. The firing and blocking ids must
// already be resolved trigger ids; the client does not consult names.
func (c *Client) CreateTag(ctx context.Context, d parser.Descriptor, firingIDs, blockingIDs []string) (string, error) {
	if c.workspacePath == "" {
		return "", fmt.Errorf("%w: no workspace selected", gtmerr.ErrResourceCreate)
	}

	body := Tag{
		Name:              d.Name,
		Type:              d.Type,
		Parameter:         d.Parameters,
		FiringTriggerID:   firingIDs,
		BlockingTriggerID: blockingIDs,
	}
	var created Tag
	if err := c.do(ctx, http.MethodPost, c.workspacePath+"/tags", body, &created); err != nil {
		return "", fmt.Errorf("%w: tag %q: %v", gtmerr.ErrResourceCreate, d.Name, err)
	}
	logger.LogDebug("Tag created", map[string]interface{}{
		"name": created.Name,
		"id":   created.TagID,
	})
	return created.TagID, nil
}

// WorkspaceURL returns the GTM web UI URL for the pinned workspace, or an
// empty string when no workspace has been created yet.
func (c *Client) WorkspaceURL() string {
	if c.workspaceID == "" {
		return ""
	}
	return fmt.Sprintf("https://tagmanager.google.com/#/container/accounts/%s/containers/%s/workspaces/%s",
		c.cfg.AccountID, c.cfg.ContainerID, c.workspaceID)
}

// ResolveContainer walks every account and container the credentials can
// see and returns the (accountID, containerID) pair matching identifier,
// which may be the numeric container id or the GTM-XXXXXXX public id.
func (c *Client) ResolveContainer(ctx context.Context, identifier string) (string, string, error) {
	var accounts accountList
	if err := c.do(ctx, http.MethodGet, "accounts", nil, &accounts); err != nil {
		return "", "", err
	}

	for _, acct := range accounts.Account {
		if acct.AccountID == "" {
			continue
		}
		var containers containerList
		if err := c.do(ctx, http.MethodGet, "accounts/"+acct.AccountID+"/containers", nil, &containers); err != nil {
			return "", "", err
		}
		for _, cont := range containers.Container {
			if identifier == cont.ContainerID || identifier == cont.PublicID {
				logger.LogInfo("Resolved container", map[string]interface{}{
					"identifier": identifier,
					"account":    acct.AccountID,
					"container":  cont.ContainerID,
				})
				c.cfg.AccountID = acct.AccountID
				c.cfg.ContainerID = cont.ContainerID
				return acct.AccountID, cont.ContainerID, nil
			}
		}
	}

	return "", "", fmt.Errorf("%w: no container matches %q; check service account access",
		gtmerr.ErrContainerNotFound, identifier)
}
