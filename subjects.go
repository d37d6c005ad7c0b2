package RSClientGo

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// Platform resource types that share the search/export API surface
var (
	SubjectApplication              = Subject{Name: "application", Embedded: "applications"}
	SubjectApplicationFinding       = Subject{Name: "applicationFinding", Embedded: "applicationFindings"}
	SubjectApplicationURL           = Subject{Name: "applicationUrl", Embedded: "applicationUrls"}
	SubjectAssessment               = Subject{Name: "assessment", Embedded: "assessments"}
	SubjectGroup                    = Subject{Name: "group", Embedded: "groups"}
	SubjectHost                     = Subject{Name: "host", Embedded: "hosts"}
	SubjectHostFinding              = Subject{Name: "hostFinding", Embedded: "hostFindings"}
	SubjectNetwork                  = Subject{Name: "network", Embedded: "networks"}
	SubjectTag                      = Subject{Name: "tag", Embedded: "tags"}
	SubjectUniqueApplicationFinding = Subject{Name: "uniqueApplicationFinding", Embedded: "uniqueApplicationFindings"}
	SubjectUniqueHostFinding        = Subject{Name: "uniqueHostFinding", Embedded: "uniqueHostFindings"}
	SubjectUser                     = Subject{Name: "user", Embedded: "users"}
	SubjectVulnerability            = Subject{Name: "vulnerability", Embedded: "vulnerabilities"}
	SubjectWeakness                 = Subject{Name: "weakness", Embedded: "weaknesses"}
)

var knownSubjects = []Subject{
	SubjectApplication, SubjectApplicationFinding, SubjectApplicationURL, SubjectAssessment,
	SubjectGroup, SubjectHost, SubjectHostFinding, SubjectNetwork, SubjectTag,
	SubjectUniqueApplicationFinding, SubjectUniqueHostFinding, SubjectUser,
	SubjectVulnerability, SubjectWeakness,
}

// case-insensitive lookup by path segment, eg: hostfinding or hostFinding
func SubjectByName(name string) (Subject, error) {
	for _, s := range knownSubjects {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return Subject{}, fmt.Errorf("unknown subject '%v'", name)
}

func KnownSubjects() []Subject {
	return slices.Clone(knownSubjects)
}

func (s Subject) String() string {
	return s.Name
}

// Typed handle for one subject, composing search and export for that resource type
type SubjectClient struct {
	client  RSClient
	subject Subject
}

func (c RSClient) Subject(subject Subject) SubjectClient {
	return SubjectClient{client: c, subject: subject}
}

func (c RSClient) Hosts() SubjectClient {
	return c.Subject(SubjectHost)
}

func (c RSClient) HostFindings() SubjectClient {
	return c.Subject(SubjectHostFinding)
}

func (c RSClient) Applications() SubjectClient {
	return c.Subject(SubjectApplication)
}

func (c RSClient) ApplicationFindings() SubjectClient {
	return c.Subject(SubjectApplicationFinding)
}

func (s SubjectClient) String() string {
	return fmt.Sprintf("%v for %v", s.subject, s.client)
}

func (s SubjectClient) NewSearchRequest(filters []Filter) SearchRequest {
	return s.client.NewSearchRequest(s.subject, filters)
}

func (s SubjectClient) Count(filters []Filter) (uint64, error) {
	return s.client.GetCountFiltered(s.subject, filters)
}

func (s SubjectClient) Search(request SearchRequest) ([]json.RawMessage, error) {
	return s.client.SearchAll(s.subject, request)
}

func (s SubjectClient) SearchFiltered(filters []Filter) ([]json.RawMessage, error) {
	return s.client.SearchAllFiltered(s.subject, filters)
}

func (s SubjectClient) ExportTemplate() (ExportTemplate, error) {
	return s.client.GetExportTemplate(s.subject)
}

func (s SubjectClient) Export(filters []Filter, options ExportOptions) (string, error) {
	return s.client.RunExport(s.subject, filters, options)
}

// Typed convenience functions for the most common subjects

func (c RSClient) GetAllHostsFiltered(filters []Filter) ([]Host, error) {
	c.logger.Debugf("Get all hosts matching %d filters", len(filters))
	records, err := c.SearchAllFiltered(SubjectHost, filters)
	if err != nil {
		return nil, err
	}
	return DecodeRecords[Host](records)
}

func (c RSClient) GetAllHostFindingsFiltered(filters []Filter) ([]HostFinding, error) {
	c.logger.Debugf("Get all host findings matching %d filters", len(filters))
	records, err := c.SearchAllFiltered(SubjectHostFinding, filters)
	if err != nil {
		return nil, err
	}
	return DecodeRecords[HostFinding](records)
}

func (c RSClient) GetAllApplicationFindingsFiltered(filters []Filter) ([]ApplicationFinding, error) {
	c.logger.Debugf("Get all application findings matching %d filters", len(filters))
	records, err := c.SearchAllFiltered(SubjectApplicationFinding, filters)
	if err != nil {
		return nil, err
	}
	return DecodeRecords[ApplicationFinding](records)
}

func (c RSClient) GetAllGroupsFiltered(filters []Filter) ([]Group, error) {
	c.logger.Debugf("Get all groups matching %d filters", len(filters))
	records, err := c.SearchAllFiltered(SubjectGroup, filters)
	if err != nil {
		return nil, err
	}
	return DecodeRecords[Group](records)
}

func (c RSClient) GetAllTagsFiltered(filters []Filter) ([]Tag, error) {
	c.logger.Debugf("Get all tags matching %d filters", len(filters))
	records, err := c.SearchAllFiltered(SubjectTag, filters)
	if err != nil {
		return nil, err
	}
	return DecodeRecords[Tag](records)
}

func (h Host) String() string {
	return fmt.Sprintf("[%d] %v (%v)", h.ID, h.HostName, h.IPAddress)
}

func (f HostFinding) String() string {
	return fmt.Sprintf("[%d] %v: %v", f.ID, f.Severity, f.Title)
}

func (f ApplicationFinding) String() string {
	return fmt.Sprintf("[%d] %v: %v", f.ID, f.Severity, f.Title)
}

func (g Group) String() string {
	return fmt.Sprintf("[%d] %v", g.ID, g.Name)
}

func (t Tag) String() string {
	if t.TagType != "" {
		return fmt.Sprintf("[%d] %v (%v)", t.ID, t.Name, t.TagType)
	}
	return fmt.Sprintf("[%d] %v", t.ID, t.Name)
}
