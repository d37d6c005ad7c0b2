package RSClientGo

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
)

type RSClient struct {
	httpClient *http.Client
	baseUrl    string
	apiKey     string
	bearer     bool
	logger     *logrus.Logger
	consts     ClientVars
	pagination PaginationSettings
	ctx        context.Context

	clientID    uint64 // default platform client, overridable per call with ForClient
	rsUserAgent string
	maxAttempts int
	retryDelay  time.Duration
}

type RSTokenClaims struct {
	jwt.RegisteredClaims
	Username string `json:"user_name"`
	ClientID uint64 `json:"client_id"`

	// the following are generated during parsing
	ExpiryTime time.Time `json:"-"`
}

type ClientVars struct {
	ExportPollingMaxSeconds   int // 0 = wait until the job reaches a terminal state
	ExportPollingDelaySeconds int
	ExportKeepArchive         bool
}

// Related to pagination and filtering
// page sizes used by the subject helpers when the caller does not pass one
type PaginationSettings struct {
	Applications       uint64
	ApplicationFinding uint64
	Clients            uint64
	Groups             uint64
	Hosts              uint64
	HostFindings       uint64
	Tags               uint64
	Default            uint64
}

// Filters
type FilterOperator string

type Filter struct {
	Field           string         `json:"field"`
	Operator        FilterOperator `json:"operator"`
	Value           string         `json:"value"`
	Exclusive       bool           `json:"exclusive"`
	OrWithPrevious  bool           `json:"orWithPrevious"`
	ImplicitFilters []Filter       `json:"implicitFilters"`
}

type FilterField struct {
	UID         string `json:"uid"`
	DisplayName string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
}

type FilterRequest struct {
	Filters []Filter `json:"filters"`
}

// Search
type Projection string
type SortDirection string

type SortField struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

type SearchRequest struct {
	Filters    []Filter    `json:"filters"`
	Projection Projection  `json:"projection"`
	Sort       []SortField `json:"sort"`
	Page       uint64      `json:"page"`
	Size       uint64      `json:"size"`
}

type PageInfo struct {
	Size          uint64 `json:"size"`
	TotalElements uint64 `json:"totalElements"`
	TotalPages    uint64 `json:"totalPages"`
	Number        uint64 `json:"number"`
}

// raw response of one page of a /search call
type SearchPage struct {
	Page     *PageInfo                  `json:"page"`
	Embedded map[string]json.RawMessage `json:"_embedded"`
}

type Subject struct {
	Name     string // path segment, eg: hostFinding
	Embedded string // key under _embedded, eg: hostFindings
}

// Exports
type ExportStatus string
type ExportFileType string

type ExportJob struct {
	ID     uint64       `json:"id"`
	Status ExportStatus `json:"status"`
	FileID *uint64      `json:"fileId,omitempty"`
}

type ExportRequest struct {
	FilterRequest    FilterRequest     `json:"filterRequest"`
	FileType         ExportFileType    `json:"fileType"`
	FileName         string            `json:"fileName"`
	Comment          string            `json:"comment"`
	RowCount         uint64            `json:"rowCount,omitempty"`
	ExportableFields []ExportFieldGroup `json:"exportableFields"`
}

type ExportField struct {
	IdentifierField string `json:"identifierField"`
	DisplayText     string `json:"displayText"`
	Sortable        bool   `json:"sortable"`
	FieldOrder      int    `json:"fieldOrder"`
	Selected        bool   `json:"selected"`
}

type ExportFieldGroup struct {
	Heading string        `json:"heading"`
	Fields  []ExportField `json:"fields"`
}

type ExportTemplate struct {
	ID               uint64             `json:"id,omitempty"`
	Name             string             `json:"name,omitempty"`
	ExportableFields []ExportFieldGroup `json:"exportableFields"`
}

// how RunExport picks columns: Override wins, then TemplateID, then the subject default
type ExportTemplateChoice struct {
	TemplateID uint64
	Override   []ExportFieldGroup
}

type ExportOptions struct {
	FileName    string
	FileType    ExportFileType
	RowCountCap uint64
	Comment     string
	Template    ExportTemplateChoice
}

// Platform client accounts
type PlatformClient struct {
	ID                  uint64 `json:"id"`
	Name                string `json:"name"`
	ClientType          string `json:"clientType,omitempty"`
	ExternalID          string `json:"externalId,omitempty"`
	DefaultAssessmentID uint64 `json:"defaultAssessmentId,omitempty"`
}

type ClientsFilter struct {
	Page uint64   `url:"page"` // page is set automatically for pagination
	Size uint64   `url:"size"` // size is set automatically for pagination, should generally not be 0
	Sort []string `url:"sort,omitempty"`
}

// Common record fields only, decode into your own types with DecodeRecords for the rest
type Host struct {
	ID          uint64   `json:"id"`
	ClientID    uint64   `json:"clientId"`
	HostName    string   `json:"hostName"`
	IPAddress   string   `json:"ipAddress"`
	Criticality int      `json:"criticality"`
	GroupIDs    []uint64 `json:"groupIds,omitempty"`
}

type Group struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Tag struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	TagType     string `json:"tagType,omitempty"`
	Description string `json:"description,omitempty"`
}

type HostFinding struct {
	ID       uint64 `json:"id"`
	HostID   uint64 `json:"hostId"`
	Title    string `json:"title"`
	Severity string `json:"severity"`
	Status   string `json:"status"`
}

type ApplicationFinding struct {
	ID            uint64 `json:"id"`
	ApplicationID uint64 `json:"applicationId"`
	Title         string `json:"title"`
	Severity      string `json:"severity"`
	Status        string `json:"status"`
}
