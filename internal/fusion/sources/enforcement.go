package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"trustcheck/internal/fusion/models"
	"trustcheck/pkg/domain"
)

// EnforcementAuthority fetches execution proceedings from the enforcement
// and collection authority.
type EnforcementAuthority struct {
	client  *http.Client
	baseURL string
}

func NewEnforcementAuthority(client *http.Client, baseURL string) *EnforcementAuthority {
	if client == nil {
		client = http.DefaultClient
	}
	return &EnforcementAuthority{client: client, baseURL: baseURL}
}

func (a *EnforcementAuthority) Source() domain.Source {
	return domain.SourceEnforcementAuthority
}

type proceeding struct {
	FileNumber string  `json:"file_number"`
	Open       bool    `json:"open"`
	DebtNIS    float64 `json:"debt_nis"`
}

type enforcementResponse struct {
	Proceedings []proceeding `json:"proceedings"`
}

func (a *EnforcementAuthority) Fetch(ctx context.Context, id domain.BusinessID) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("debtor_id", id.String())

	body, err := httpGetJSON(ctx, a.client, a.Source(), a.baseURL+"/proceedings?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp enforcementResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, NewSourceError(ErrorClient, a.Source().String(), "malformed response", err)
	}

	exposure := normalizeProceedings(resp.Proceedings)
	return json.Marshal(exposure)
}

func normalizeProceedings(proceedings []proceeding) models.EnforcementExposure {
	var exposure models.EnforcementExposure
	for _, p := range proceedings {
		exposure.TotalProceedings++
		if p.Open {
			exposure.ActiveProceedings++
			exposure.TotalDebtNIS += p.DebtNIS
		}
	}
	return exposure
}
