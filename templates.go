package RSClientGo

import (
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/exp/slices"
)

// Export column templates

// the subject's default column template
func (c RSClient) GetExportTemplate(subject Subject) (ExportTemplate, error) {
	return c.getExportTemplate(c.clientID, subject)
}

func (c RSClient) getExportTemplate(clientID uint64, subject Subject) (ExportTemplate, error) {
	c.logger.Debugf("Get default export template for %v", subject)
	var template ExportTemplate

	data, err := c.sendClientRequest(clientID, http.MethodGet, fmt.Sprintf("/%v/export/template", subject.Name), nil, nil)
	if err != nil {
		return template, fmt.Errorf("failed to fetch export template for %v: %w", subject, err)
	}

	err = json.Unmarshal(data, &template)
	if err != nil {
		return template, &MalformedResponseError{What: "export template", Err: err}
	}
	return template, nil
}

// a saved column template
func (c RSClient) GetExportTemplateByID(templateID uint64) (ExportTemplate, error) {
	return c.getExportTemplateByID(c.clientID, templateID)
}

func (c RSClient) getExportTemplateByID(clientID, templateID uint64) (ExportTemplate, error) {
	c.logger.Debugf("Get export template %d", templateID)
	var template ExportTemplate

	data, err := c.sendClientRequest(clientID, http.MethodGet, fmt.Sprintf("/export/template/%d", templateID), nil, nil)
	if err != nil {
		return template, fmt.Errorf("failed to fetch export template %d: %w", templateID, err)
	}

	err = json.Unmarshal(data, &template)
	if err != nil {
		return template, &MalformedResponseError{What: fmt.Sprintf("export template %d", templateID), Err: err}
	}
	if template.ID == 0 {
		template.ID = templateID
	}
	return template, nil
}

// Override wins, then TemplateID, then the subject default
func (c RSClient) resolveExportFields(clientID uint64, subject Subject, choice ExportTemplateChoice) ([]ExportFieldGroup, error) {
	if len(choice.Override) > 0 {
		return choice.Override, nil
	}

	var template ExportTemplate
	var err error
	if choice.TemplateID != 0 {
		template, err = c.getExportTemplateByID(clientID, choice.TemplateID)
	} else {
		template, err = c.getExportTemplate(clientID, subject)
	}
	if err != nil {
		return nil, err
	}
	return template.ExportableFields, nil
}

// returns the identifiers of all selected columns, in template order
func (t ExportTemplate) SelectedFields() []string {
	fields := []string{}
	for _, g := range t.ExportableFields {
		for _, f := range g.Fields {
			if f.Selected {
				fields = append(fields, f.IdentifierField)
			}
		}
	}
	return fields
}

// returns a copy of the template where only the listed identifiers are selected
func (t ExportTemplate) SelectOnly(identifiers ...string) ExportTemplate {
	out := t
	out.ExportableFields = make([]ExportFieldGroup, len(t.ExportableFields))
	for gid, g := range t.ExportableFields {
		fields := make([]ExportField, len(g.Fields))
		for fid, f := range g.Fields {
			f.Selected = slices.Contains(identifiers, f.IdentifierField)
			fields[fid] = f
		}
		out.ExportableFields[gid] = ExportFieldGroup{Heading: g.Heading, Fields: fields}
	}
	return out
}

// returns a copy of the template with every column selected
func (t ExportTemplate) SelectAll() ExportTemplate {
	out := t
	out.ExportableFields = make([]ExportFieldGroup, len(t.ExportableFields))
	for gid, g := range t.ExportableFields {
		fields := slices.Clone(g.Fields)
		for fid := range fields {
			fields[fid].Selected = true
		}
		out.ExportableFields[gid] = ExportFieldGroup{Heading: g.Heading, Fields: fields}
	}
	return out
}

func (t ExportTemplate) String() string {
	if t.ID != 0 {
		return fmt.Sprintf("[%d] %v: %d columns selected", t.ID, t.Name, len(t.SelectedFields()))
	}
	return fmt.Sprintf("default template: %d columns selected", len(t.SelectedFields()))
}
