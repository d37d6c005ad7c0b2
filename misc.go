package RSClientGo

// miscellaneous functions (ClientVars & Pagination)

func (c RSClient) GetClientVars() ClientVars {
	return c.consts
}

func (c *RSClient) SetClientVars(clientvars ClientVars) {
	c.consts = clientvars
}

func (c *RSClient) InitializeClientVars() {
	c.consts = ClientVars{
		ExportPollingMaxSeconds:   3600, // 1 hour, large exports can take a while
		ExportPollingDelaySeconds: 5,
		ExportKeepArchive:         false,
	}
}

func (c RSClient) GetPaginationSettings() PaginationSettings {
	return c.pagination
}

func (c *RSClient) SetPaginationSettings(pagination PaginationSettings) {
	c.pagination = pagination
}

func (c *RSClient) InitializePaginationSettings() {
	c.SetPaginationSettings(c.GetPaginationDefaults())
}

func (c *RSClient) GetPaginationDefaults() PaginationSettings {
	return PaginationSettings{
		Applications:       100,
		ApplicationFinding: 500,
		Clients:            50,
		Groups:             100,
		Hosts:              500,
		HostFindings:       1000,
		Tags:               100,
		Default:            100,
	}
}

// page size used for a subject when the caller passes 0
func (p PaginationSettings) ForSubject(subject Subject) uint64 {
	var size uint64
	switch subject {
	case SubjectApplication:
		size = p.Applications
	case SubjectApplicationFinding, SubjectUniqueApplicationFinding:
		size = p.ApplicationFinding
	case SubjectGroup:
		size = p.Groups
	case SubjectHost:
		size = p.Hosts
	case SubjectHostFinding, SubjectUniqueHostFinding:
		size = p.HostFindings
	case SubjectTag:
		size = p.Tags
	}
	if size == 0 {
		size = p.Default
	}
	if size == 0 {
		size = 100
	}
	return size
}

func (f *ClientsFilter) Bump() {
	f.Page++
}

func (r *SearchRequest) Bump() {
	r.Page++
}
