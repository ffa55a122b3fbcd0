package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"trustcheck/internal/fusion/models"
	"trustcheck/pkg/domain"
)

// VATDealerRegistry fetches the dealer's VAT sub-type and withholding tax
// certificate standing from the tax authority.
type VATDealerRegistry struct {
	client  *http.Client
	baseURL string
}

func NewVATDealerRegistry(client *http.Client, baseURL string) *VATDealerRegistry {
	if client == nil {
		client = http.DefaultClient
	}
	return &VATDealerRegistry{client: client, baseURL: baseURL}
}

func (a *VATDealerRegistry) Source() domain.Source {
	return domain.SourceVATDealerRegistry
}

type dealerRecord struct {
	DealerID   string `json:"dealer_id"`
	DealerType string `json:"dealer_type"` // "morshe" (registered) or "patur" (exempt)
	// Certificate standing for withholding tax at source.
	WithholdingCertValid  bool `json:"withholding_cert_valid"`
	WithholdingCertIssues int  `json:"withholding_cert_issues"`
}

func (a *VATDealerRegistry) Fetch(ctx context.Context, id domain.BusinessID) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("id", id.String())

	body, err := httpGetJSON(ctx, a.client, a.Source(), a.baseURL+"/lookup?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var rec dealerRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, NewSourceError(ErrorClient, a.Source().String(), "malformed response", err)
	}
	if rec.DealerID == "" {
		return nil, NewSourceError(ErrorNotFound, a.Source().String(), "no dealer record", nil)
	}

	vat := normalizeDealer(rec)
	return json.Marshal(vat)
}

func normalizeDealer(rec dealerRecord) models.VATRecord {
	vat := models.VATRecord{
		DealerType:            rec.DealerType,
		VATRegistered:         rec.DealerType == "morshe",
		WithholdingCertIssues: rec.WithholdingCertIssues,
	}
	if !rec.WithholdingCertValid && vat.WithholdingCertIssues == 0 {
		vat.WithholdingCertIssues = 1
	}
	return vat
}
