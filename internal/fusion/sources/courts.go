package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"trustcheck/internal/fusion/models"
	"trustcheck/pkg/domain"
)

// CourtSearch fetches legal exposure from the judiciary case search. The
// upstream is scrape-backed; the extraction gateway returns the parsed case
// list as JSON, so DOM details never reach this adapter.
type CourtSearch struct {
	client  *http.Client
	baseURL string
}

func NewCourtSearch(client *http.Client, baseURL string) *CourtSearch {
	if client == nil {
		client = http.DefaultClient
	}
	return &CourtSearch{client: client, baseURL: baseURL}
}

func (a *CourtSearch) Source() domain.Source {
	return domain.SourceCourtSearch
}

type courtCase struct {
	CaseNumber string  `json:"case_number"`
	Status     string  `json:"status"`
	AmountNIS  float64 `json:"amount_nis"`
}

type courtSearchResponse struct {
	Cases []courtCase `json:"cases"`
}

func (a *CourtSearch) Fetch(ctx context.Context, id domain.BusinessID) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("party_id", id.String())

	body, err := httpGetJSON(ctx, a.client, a.Source(), a.baseURL+"/search?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp courtSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, NewSourceError(ErrorClient, a.Source().String(), "malformed response", err)
	}

	// No cases is a real answer here, not a missing record: the search
	// covers the whole identifier space.
	exposure := normalizeCases(resp.Cases)
	return json.Marshal(exposure)
}

func normalizeCases(cases []courtCase) models.LegalExposure {
	var exposure models.LegalExposure
	for _, c := range cases {
		exposure.TotalCases++
		exposure.TotalAmountNIS += c.AmountNIS
		if c.Status == "open" || c.Status == "pending" {
			exposure.ActiveCases++
			exposure.ActiveAmountNIS += c.AmountNIS
		}
	}
	return exposure
}
