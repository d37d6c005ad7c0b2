package RSClientGo

import (
	"fmt"
	"strings"
)

// RSCache holds lookup data for one platform client, refreshed on demand
type RSCache struct {
	ClientRefresh   bool
	Clients         []PlatformClient
	GroupRefresh    bool
	Groups          []Group
	TagRefresh      bool
	Tags            []Tag
	TemplateRefresh bool
	Templates       map[string]ExportTemplate
}

func (c *RSCache) ClientSummary() string {
	return fmt.Sprintf("%d clients", len(c.Clients))
}
func (c *RSCache) GroupSummary() string {
	return fmt.Sprintf("%d groups", len(c.Groups))
}
func (c *RSCache) TagSummary() string {
	return fmt.Sprintf("%d tags", len(c.Tags))
}
func (c *RSCache) TemplateSummary() string {
	return fmt.Sprintf("%d export templates", len(c.Templates))
}

func (c *RSCache) RefreshClients(client *RSClient) error {
	client.logger.Info("Refreshing platform clients in cache")
	var err error
	if !c.ClientRefresh {
		c.ClientRefresh = true
		c.Clients, err = client.GetAllClients()
		c.ClientRefresh = false
	}
	return err
}

func (c *RSCache) RefreshGroups(client *RSClient) error {
	client.logger.Info("Refreshing groups in cache")
	var err error
	if !c.GroupRefresh {
		c.GroupRefresh = true
		c.Groups, err = client.GetAllGroupsFiltered(nil)
		c.GroupRefresh = false
	}
	return err
}

func (c *RSCache) RefreshTags(client *RSClient) error {
	client.logger.Info("Refreshing tags in cache")
	var err error
	if !c.TagRefresh {
		c.TagRefresh = true
		c.Tags, err = client.GetAllTagsFiltered(nil)
		c.TagRefresh = false
	}
	return err
}

// fetches the default export template of each subject
// templates that fail to load are skipped and the last error is returned
func (c *RSCache) RefreshTemplates(client *RSClient, subjects ...Subject) error {
	client.logger.Info("Refreshing export templates in cache")
	var err error
	if !c.TemplateRefresh {
		c.TemplateRefresh = true
		if c.Templates == nil {
			c.Templates = make(map[string]ExportTemplate)
		}
		for _, s := range subjects {
			template, terr := client.GetExportTemplate(s)
			if terr != nil {
				client.logger.Tracef("Failed to retrieve the export template for %v: %s", s, terr)
				err = terr
				continue
			}
			c.Templates[s.Name] = template
		}
		c.TemplateRefresh = false
	}
	return err
}

func (c *RSCache) Refresh(client *RSClient) []error {
	var errs []error

	if err := c.RefreshClients(client); err != nil {
		errs = append(errs, err)
	}

	if err := c.RefreshGroups(client); err != nil {
		errs = append(errs, err)
	}

	if err := c.RefreshTags(client); err != nil {
		errs = append(errs, err)
	}

	if err := c.RefreshTemplates(client, SubjectHost, SubjectHostFinding, SubjectApplication, SubjectApplicationFinding); err != nil {
		errs = append(errs, err)
	}

	return errs
}

func (c *RSCache) GetClient(clientID uint64) (*PlatformClient, error) {
	for id, cli := range c.Clients {
		if cli.ID == clientID {
			return &c.Clients[id], nil
		}
	}
	return nil, fmt.Errorf("no such client %d", clientID)
}
func (c *RSCache) GetClientByName(name string) (*PlatformClient, error) {
	for id, cli := range c.Clients {
		if strings.EqualFold(cli.Name, name) {
			return &c.Clients[id], nil
		}
	}
	return nil, fmt.Errorf("no such client %v", name)
}

func (c *RSCache) GetGroup(groupID uint64) (*Group, error) {
	for id, g := range c.Groups {
		if g.ID == groupID {
			return &c.Groups[id], nil
		}
	}
	return nil, fmt.Errorf("no such group %d", groupID)
}
func (c *RSCache) GetGroupByName(name string) (*Group, error) {
	for id, g := range c.Groups {
		if strings.EqualFold(g.Name, name) {
			return &c.Groups[id], nil
		}
	}
	return nil, fmt.Errorf("no such group %v", name)
}

func (c *RSCache) GetTag(tagID uint64) (*Tag, error) {
	for id, t := range c.Tags {
		if t.ID == tagID {
			return &c.Tags[id], nil
		}
	}
	return nil, fmt.Errorf("no such tag %d", tagID)
}
func (c *RSCache) GetTagByName(name string) (*Tag, error) {
	for id, t := range c.Tags {
		if strings.EqualFold(t.Name, name) {
			return &c.Tags[id], nil
		}
	}
	return nil, fmt.Errorf("no such tag %v", name)
}

func (c *RSCache) GetTemplate(subject Subject) (ExportTemplate, error) {
	if t, ok := c.Templates[subject.Name]; ok {
		return t, nil
	}
	return ExportTemplate{}, fmt.Errorf("no cached export template for %v", subject)
}

// filter matching every listed group, for use in searches and exports
func (c *RSCache) GroupFilter(names ...string) (Filter, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		g, err := c.GetGroupByName(name)
		if err != nil {
			return Filter{}, err
		}
		ids = append(ids, fmt.Sprintf("%d", g.ID))
	}
	return NewInFilter("group_ids", ids...), nil
}
