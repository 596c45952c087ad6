package model

// 字段名常量：检测协议表头字段
const (
	FieldOrderNumber    = "orderNumber"    // Auftragsnummer
	FieldFacility       = "facility"       // Anlage
	FieldLocation       = "location"       // Ort
	FieldCompany        = "company"        // Firma
	FieldClient         = "client"         // Auftraggeber
	FieldProtocolNumber = "protocolNumber" // Protokoll-Nr.
	FieldDate           = "date"           // Datum
)

// RequiredFields 必填字段（解析后必须非空，否则整体失败）
var RequiredFields = []string{FieldOrderNumber, FieldFacility}

// HeaderMetadata 检测协议表头元数据
type HeaderMetadata struct {
	OrderNumber    string `json:"orderNumber"`
	Facility       string `json:"facility"`
	Location       string `json:"location,omitempty"`
	Company        string `json:"company,omitempty"`
	Client         string `json:"client,omitempty"`
	ProtocolNumber string `json:"protocolNumber,omitempty"`
	Date           string `json:"date,omitempty"`
}

// Get 按字段名读取
func (h *HeaderMetadata) Get(field string) string {
	switch field {
	case FieldOrderNumber:
		return h.OrderNumber
	case FieldFacility:
		return h.Facility
	case FieldLocation:
		return h.Location
	case FieldCompany:
		return h.Company
	case FieldClient:
		return h.Client
	case FieldProtocolNumber:
		return h.ProtocolNumber
	case FieldDate:
		return h.Date
	}
	return ""
}

// Set 按字段名写入；未知字段忽略
func (h *HeaderMetadata) Set(field, value string) {
	switch field {
	case FieldOrderNumber:
		h.OrderNumber = value
	case FieldFacility:
		h.Facility = value
	case FieldLocation:
		h.Location = value
	case FieldCompany:
		h.Company = value
	case FieldClient:
		h.Client = value
	case FieldProtocolNumber:
		h.ProtocolNumber = value
	case FieldDate:
		h.Date = value
	}
}
