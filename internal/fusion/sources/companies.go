package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"trustcheck/internal/fusion/models"
	"trustcheck/pkg/domain"
)

// CompaniesRegistry fetches core identity facts from the corporations
// registry open-data API.
type CompaniesRegistry struct {
	client  *http.Client
	baseURL string
}

// NewCompaniesRegistry builds the adapter. A nil client falls back to the
// default client; the caller is expected to set per-source timeouts on ctx.
func NewCompaniesRegistry(client *http.Client, baseURL string) *CompaniesRegistry {
	if client == nil {
		client = http.DefaultClient
	}
	return &CompaniesRegistry{client: client, baseURL: baseURL}
}

func (a *CompaniesRegistry) Source() domain.Source {
	return domain.SourceCompaniesRegistry
}

// companiesResponse mirrors the datastore_search envelope. Only the fields
// we normalize are declared; everything else stays loosely typed and never
// crosses this boundary.
type companiesResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Records []companyRecord `json:"records"`
	} `json:"result"`
}

type companyRecord struct {
	CompanyNumber    string `json:"מספר_חברה"`
	Name             string `json:"שם_חברה"`
	NameEnglish      string `json:"שם_באנגלית"`
	CompanyType      string `json:"סוג_תאגיד"`
	Status           string `json:"סטטוס_חברה"`
	ViolatingCompany string `json:"מפרה"`
	RegistrationDate string `json:"תאריך_התאגדות"`
	City             string `json:"שם_עיר"`
	Street           string `json:"שם_רחוב"`
	HouseNumber      string `json:"מספר_בית"`
}

func (a *CompaniesRegistry) Fetch(ctx context.Context, id domain.BusinessID) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("resource_id", "f004176c-b85f-4542-8901-7b3176f9a054")
	q.Set("filters", fmt.Sprintf(`{"מספר_חברה":"%s"}`, id))
	q.Set("limit", "1")

	body, err := httpGetJSON(ctx, a.client, a.Source(), a.baseURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp companiesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, NewSourceError(ErrorClient, a.Source().String(), "malformed response", err)
	}
	if !resp.Success {
		return nil, NewSourceError(ErrorTransient, a.Source().String(), "registry reported failure", nil)
	}
	if len(resp.Result.Records) == 0 {
		return nil, NewSourceError(ErrorNotFound, a.Source().String(), "no record for identifier", nil)
	}

	identity := normalizeCompany(resp.Result.Records[0])
	return json.Marshal(identity)
}

// normalizeCompany maps the registry's raw record into the fixed identity
// shape. Raw status strings come from the registry in Hebrew.
func normalizeCompany(rec companyRecord) models.Identity {
	identity := models.Identity{
		LegalName:        rec.Name,
		LegalNameEnglish: rec.NameEnglish,
		EntityType:       rec.CompanyType,
		Status:           normalizeStatus(rec.Status),
		City:             rec.City,
		Violating:        rec.ViolatingCompany == "מפרה",
	}
	if rec.Street != "" {
		identity.Address = rec.Street + " " + rec.HouseNumber
	}
	if ts, err := time.Parse("02/01/2006", rec.RegistrationDate); err == nil {
		identity.RegistrationDate = &ts
	}
	return identity
}

func normalizeStatus(raw string) models.EntityStatus {
	switch raw {
	case "פעילה":
		return models.StatusActive
	case "מחוסלת", "מחוקה":
		return models.StatusDissolved
	case "בפירוק", "פירוק מרצון":
		return models.StatusLiquidating
	case "לא פעילה":
		return models.StatusInactive
	}
	return models.StatusInactive
}
