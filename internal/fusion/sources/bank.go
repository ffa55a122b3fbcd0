package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"trustcheck/internal/fusion/models"
	"trustcheck/pkg/domain"
)

// BankRestrictions checks the central bank's restricted-accounts snapshot.
// The snapshot is republished periodically; absence from it is a real
// negative answer, not a missing record.
type BankRestrictions struct {
	client  *http.Client
	baseURL string
}

func NewBankRestrictions(client *http.Client, baseURL string) *BankRestrictions {
	if client == nil {
		client = http.DefaultClient
	}
	return &BankRestrictions{client: client, baseURL: baseURL}
}

func (a *BankRestrictions) Source() domain.Source {
	return domain.SourceBankRestrictions
}

type restrictionEntry struct {
	AccountHolderID string `json:"account_holder_id"`
	RestrictedSince string `json:"restricted_since"`
}

type restrictionsResponse struct {
	Entries []restrictionEntry `json:"entries"`
}

func (a *BankRestrictions) Fetch(ctx context.Context, id domain.BusinessID) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("holder_id", id.String())

	body, err := httpGetJSON(ctx, a.client, a.Source(), a.baseURL+"/lookup?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp restrictionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, NewSourceError(ErrorClient, a.Source().String(), "malformed response", err)
	}

	restriction := normalizeRestrictions(resp.Entries)
	return json.Marshal(restriction)
}

func normalizeRestrictions(entries []restrictionEntry) models.BankRestriction {
	if len(entries) == 0 {
		return models.BankRestriction{Restricted: false}
	}
	restriction := models.BankRestriction{Restricted: true}
	if ts, err := time.Parse("2006-01-02", entries[0].RestrictedSince); err == nil {
		restriction.Since = &ts
	}
	return restriction
}
