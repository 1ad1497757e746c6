// Package odr calls the PharmaNet (ODR) proxy for protective words and
// dispensed medication history.
package odr

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/healthgateway/gateway/internal/partner/rest"
	"github.com/healthgateway/gateway/internal/platform/result"
)

type Pharmacy struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	City        string `json:"city"`
}

type Prescriber struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DispensedMedication is one PharmaNet dispense record.
type DispensedMedication struct {
	DinPin        string     `json:"din_pin"`
	BrandName     string     `json:"brand_name"`
	GenericName   string     `json:"generic_name"`
	Quantity      float64    `json:"quantity"`
	DispensedDate time.Time  `json:"dispensed_date"`
	Directions    string     `json:"directions"`
	Pharmacy      Pharmacy   `json:"pharmacy"`
	Prescriber    Prescriber `json:"prescriber"`
}

type protectiveWordResponse struct {
	ProtectiveWord string `json:"protective_word"`
}

type historyRequest struct {
	PHN            string `json:"phn"`
	ProtectiveWord string `json:"protective_word,omitempty"`
	MaxRecords     int    `json:"max_records"`
}

type historyResponse struct {
	TotalRecords int                   `json:"total_records"`
	Records      []DispensedMedication `json:"records"`
}

const maxHistoryRecords = 1000

type Client struct {
	http *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{http: rest.NewClient(baseURL, timeout)}
}

// GetProtectiveWord returns "" when the patient has none.
func (c *Client) GetProtectiveWord(ctx context.Context, phn string) (string, error) {
	var out protectiveWordResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("phn", phn).
		SetResult(&out).
		Get("/odr/patients/{phn}/protective-word")
	if err := rest.Check(resp, err, result.ServiceODR); err != nil {
		if result.KindOf(err) == result.KindNotFound {
			return "", nil
		}
		return "", err
	}
	return out.ProtectiveWord, nil
}

func (c *Client) GetMedicationHistory(ctx context.Context, phn, protectiveWord string) ([]DispensedMedication, error) {
	var out historyResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(historyRequest{PHN: phn, ProtectiveWord: protectiveWord, MaxRecords: maxHistoryRecords}).
		SetResult(&out).
		Post("/odr/medication-history")
	if err := rest.Check(resp, err, result.ServiceODR); err != nil {
		return nil, err
	}
	return out.Records, nil
}
