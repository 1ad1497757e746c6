package medication

import (
	"time"

	"github.com/healthgateway/gateway/internal/partner/odr"
)

const (
	maxProtectiveWordLength = 8
	minProtectiveWordLength = 6
	protectiveWordHeader    = "protectiveWord"
)

type Pharmacy struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number,omitempty"`
	City        string `json:"city,omitempty"`
}

// MedicationStatement is one dispensed medication as shown to the patient.
type MedicationStatement struct {
	DinPin        string    `json:"din_pin"`
	BrandName     string    `json:"brand_name"`
	GenericName   string    `json:"generic_name"`
	Quantity      float64   `json:"quantity"`
	DispensedDate time.Time `json:"dispensed_date"`
	Directions    string    `json:"directions,omitempty"`
	Pharmacy      Pharmacy  `json:"pharmacy"`
	Prescriber    string    `json:"prescriber,omitempty"`
}

func fromDispensed(d odr.DispensedMedication) MedicationStatement {
	prescriber := d.Prescriber.FirstName
	if d.Prescriber.LastName != "" {
		if prescriber != "" {
			prescriber += " "
		}
		prescriber += d.Prescriber.LastName
	}
	return MedicationStatement{
		DinPin:        d.DinPin,
		BrandName:     d.BrandName,
		GenericName:   d.GenericName,
		Quantity:      d.Quantity,
		DispensedDate: d.DispensedDate,
		Directions:    d.Directions,
		Pharmacy: Pharmacy{
			Name:        d.Pharmacy.Name,
			PhoneNumber: d.Pharmacy.PhoneNumber,
			City:        d.Pharmacy.City,
		},
		Prescriber: prescriber,
	}
}

// MedicationRequest is a Special Authority request.
type MedicationRequest struct {
	ReferenceNumber string     `json:"reference_number"`
	DrugName        string     `json:"drug_name"`
	RequestStatus   string     `json:"request_status"`
	PrescriberName  string     `json:"prescriber_name,omitempty"`
	RequestedDate   time.Time  `json:"requested_date"`
	EffectiveDate   *time.Time `json:"effective_date,omitempty"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
}
