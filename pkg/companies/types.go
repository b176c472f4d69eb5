package companies

import "encoding/json"

// listEnvelope is the wire format shared by all paginated Companies House
// list endpoints. total_results is a pointer because some endpoints omit it.
type listEnvelope struct {
	Items        []json.RawMessage `json:"items"`
	ItemsPerPage int               `json:"items_per_page"`
	StartIndex   int               `json:"start_index"`
	TotalResults *int              `json:"total_results"`
	Kind         string            `json:"kind"`
}

// Address is a registered office or correspondence address.
type Address struct {
	Premises     string `json:"premises,omitempty"`
	AddressLine1 string `json:"address_line_1,omitempty"`
	AddressLine2 string `json:"address_line_2,omitempty"`
	Locality     string `json:"locality,omitempty"`
	Region       string `json:"region,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	Country      string `json:"country,omitempty"`
}

// CompanyProfile is the full company record from /company/{companyNumber}.
type CompanyProfile struct {
	CompanyName             string   `json:"company_name"`
	CompanyNumber           string   `json:"company_number"`
	CompanyStatus           string   `json:"company_status,omitempty"`
	Type                    string   `json:"type,omitempty"`
	Jurisdiction            string   `json:"jurisdiction,omitempty"`
	DateOfCreation          string   `json:"date_of_creation,omitempty"`
	DateOfCessation         string   `json:"date_of_cessation,omitempty"`
	SICCodes                []string `json:"sic_codes,omitempty"`
	RegisteredOfficeAddress *Address `json:"registered_office_address,omitempty"`
	HasCharges              bool     `json:"has_charges,omitempty"`
	HasInsolvencyHistory    bool     `json:"has_insolvency_history,omitempty"`
	Etag                    string   `json:"etag,omitempty"`
}

// CompanySearchItem is one result from /search/companies.
type CompanySearchItem struct {
	Title          string   `json:"title"`
	CompanyNumber  string   `json:"company_number"`
	CompanyStatus  string   `json:"company_status,omitempty"`
	CompanyType    string   `json:"company_type,omitempty"`
	Kind           string   `json:"kind,omitempty"`
	AddressSnippet string   `json:"address_snippet,omitempty"`
	DateOfCreation string   `json:"date_of_creation,omitempty"`
	Description    string   `json:"description,omitempty"`
	Address        *Address `json:"address,omitempty"`
}

// DateOfBirth is the partial date of birth exposed for officers.
type DateOfBirth struct {
	Month int `json:"month,omitempty"`
	Year  int `json:"year,omitempty"`
}

// OfficerSummary is one entry from /company/{companyNumber}/officers.
type OfficerSummary struct {
	Name               string       `json:"name"`
	OfficerRole        string       `json:"officer_role,omitempty"`
	AppointedOn        string       `json:"appointed_on,omitempty"`
	ResignedOn         string       `json:"resigned_on,omitempty"`
	Nationality        string       `json:"nationality,omitempty"`
	Occupation         string       `json:"occupation,omitempty"`
	CountryOfResidence string       `json:"country_of_residence,omitempty"`
	DateOfBirth        *DateOfBirth `json:"date_of_birth,omitempty"`
	Address            *Address     `json:"address,omitempty"`
}

// Filing is one transaction from /company/{companyNumber}/filing-history.
type Filing struct {
	TransactionID string            `json:"transaction_id"`
	Category      string            `json:"category,omitempty"`
	Subcategory   string            `json:"subcategory,omitempty"`
	Type          string            `json:"type,omitempty"`
	Date          string            `json:"date,omitempty"`
	ActionDate    string            `json:"action_date,omitempty"`
	Description   string            `json:"description,omitempty"`
	Pages         int               `json:"pages,omitempty"`
	Barcode       string            `json:"barcode,omitempty"`
	Links         map[string]string `json:"links,omitempty"`
}

// PSC is one entry from /company/{companyNumber}/persons-with-significant-control.
type PSC struct {
	Name               string            `json:"name"`
	Kind               string            `json:"kind,omitempty"`
	NaturesOfControl   []string          `json:"natures_of_control,omitempty"`
	NotifiedOn         string            `json:"notified_on,omitempty"`
	CeasedOn           string            `json:"ceased_on,omitempty"`
	Nationality        string            `json:"nationality,omitempty"`
	CountryOfResidence string            `json:"country_of_residence,omitempty"`
	DateOfBirth        *DateOfBirth      `json:"date_of_birth,omitempty"`
	Address            *Address          `json:"address,omitempty"`
	Links              map[string]string `json:"links,omitempty"`
	Etag               string            `json:"etag,omitempty"`
}
