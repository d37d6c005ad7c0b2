package RSClientGo

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/go-querystring/query"
)

// Platform client accounts accessible with the current credentials
// GET /client?page=&size=&sort= responds with the same page envelope as /search

// returns one page of clients (filter.Page, filter.Size) and the page envelope
func (c RSClient) GetClientsFiltered(filter ClientsFilter) (PageInfo, []PlatformClient, error) {
	params, _ := query.Values(filter)

	var clientResponse struct {
		Page     *PageInfo `json:"page"`
		Embedded struct {
			Clients []PlatformClient `json:"clients"`
		} `json:"_embedded"`
	}

	data, err := c.sendRequest(http.MethodGet, fmt.Sprintf("/client?%v", params.Encode()), nil, nil)
	if err != nil {
		err = fmt.Errorf("failed to fetch clients matching filter %v: %w", params.Encode(), err)
		c.logger.Tracef("Error: %s", err)
		return PageInfo{}, nil, err
	}

	if err = json.Unmarshal(data, &clientResponse); err != nil {
		return PageInfo{}, nil, &MalformedResponseError{What: "client list", Err: err}
	}
	if clientResponse.Page == nil {
		return PageInfo{}, nil, &MalformedResponseError{What: "client list has no page envelope"}
	}
	return *clientResponse.Page, clientResponse.Embedded.Clients, nil
}

func (c RSClient) GetAllClientsFiltered(filter ClientsFilter) (uint64, []PlatformClient, error) {
	var clients []PlatformClient

	info, cs, err := c.GetClientsFiltered(filter)
	clients = cs

	for err == nil && filter.Page+1 < info.TotalPages && filter.Size > 0 {
		filter.Bump()
		_, cs, err = c.GetClientsFiltered(filter)
		clients = append(clients, cs...)
	}

	if err != nil {
		return info.TotalElements, nil, err
	}
	return info.TotalElements, clients, nil
}

// Get all of the clients
// behind the scenes this will use the configured pagination (Get/SetPaginationSettings)
func (c RSClient) GetAllClients() ([]PlatformClient, error) {
	c.logger.Debug("Get all platform clients")
	_, clients, err := c.GetAllClientsFiltered(ClientsFilter{
		Size: c.pagination.Clients,
		Sort: []string{"id,asc"},
	})
	return clients, err
}

func (c RSClient) GetClientByID(clientID uint64) (PlatformClient, error) {
	c.logger.Debugf("Getting client with ID %d", clientID)
	var client PlatformClient

	data, err := c.sendRequest(http.MethodGet, fmt.Sprintf("/client/%d", clientID), nil, nil)
	if err != nil {
		return client, fmt.Errorf("failed to fetch client %d: %w", clientID, err)
	}

	err = json.Unmarshal(data, &client)
	return client, err
}

// case-sensitive exact match for a client name
func (c RSClient) GetClientByName(name string) (PlatformClient, error) {
	clients, err := c.GetAllClients()
	if err != nil {
		return PlatformClient{}, err
	}

	for _, client := range clients {
		if client.Name == name {
			return client, nil
		}
	}
	return PlatformClient{}, fmt.Errorf("no client matching %v found", name)
}

// Sets the default client ID if none is set yet
// with one accessible client it is used, with several the selector picks one
func (c *RSClient) ResolveDefaultClientID(selector Selector) (uint64, error) {
	if c.clientID != 0 {
		return c.clientID, nil
	}

	clients, err := c.GetAllClients()
	if err != nil {
		return 0, err
	}

	switch len(clients) {
	case 0:
		return 0, fmt.Errorf("no clients are accessible with the provided credentials")
	case 1:
		c.clientID = clients[0].ID
	default:
		if selector == nil {
			return 0, fmt.Errorf("%d clients are accessible and no selector was provided to choose one", len(clients))
		}
		options := make([]string, len(clients))
		for id, client := range clients {
			options[id] = client.String()
		}
		choice, err := selector.Choose(options)
		if err != nil {
			return 0, fmt.Errorf("failed to choose a client: %w", err)
		}
		if choice < 0 || choice >= len(clients) {
			return 0, fmt.Errorf("client choice %d out of range 0-%d", choice, len(clients)-1)
		}
		c.clientID = clients[choice].ID
	}

	c.logger.Infof("Using client %d as default", c.clientID)
	return c.clientID, nil
}

func (p PlatformClient) String() string {
	return fmt.Sprintf("[%d] %v", p.ID, p.Name)
}
