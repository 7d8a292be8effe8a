package models

import "time"

// Represents the data structure coming from the operator pitch form
type PitchRequest struct {
	MerchantName     string  `json:"merchantName" validate:"required,max=160"`
	Industry         string  `json:"industry" validate:"required,max=120"`
	MonthlyVolume    float64 `json:"monthlyVolume" validate:"gt=0,lte=10000000"`
	CurrentProcessor string  `json:"currentProcessor,omitempty" validate:"max=120"`
	CurrentRate      float64 `json:"currentRate" validate:"gt=0,lte=10"`
}

// PitchRecord is a generated quote. It is never modified after creation.
type PitchRecord struct {
	ID                string    `json:"id"`
	MerchantName      string    `json:"merchantName"`
	Industry          string    `json:"industry"`
	MonthlyVolume     float64   `json:"monthlyVolume"`
	CurrentProcessor  string    `json:"currentProcessor,omitempty"`
	CurrentRate       float64   `json:"currentRate"`
	WalrusRatePercent float64   `json:"walrusRatePercent"`
	WalrusRateFixed   float64   `json:"walrusRateFixed"`
	MonthlySavings    float64   `json:"monthlySavings"`
	AnnualSavings     float64   `json:"annualSavings"`
	CreatedAt         time.Time `json:"createdAt"`
}

// RecordID returns the pitch identifier
func (p PitchRecord) RecordID() string {
	return p.ID
}

// PitchLink is the shareable location of a newly created pitch
type PitchLink struct {
	ID       string `json:"-"`
	URL      string `json:"url"`
	ShortURL string `json:"shortUrl,omitempty"`
}

// Quote is a computed rate and savings estimate that has not been stored
type Quote struct {
	Industry          string  `json:"industry"`
	MonthlyVolume     float64 `json:"monthlyVolume"`
	CurrentRate       float64 `json:"currentRate"`
	WalrusRatePercent float64 `json:"walrusRatePercent"`
	WalrusRateFixed   float64 `json:"walrusRateFixed"`
	MonthlySavings    float64 `json:"monthlySavings"`
	AnnualSavings     float64 `json:"annualSavings"`
}

// QuoteRequest asks for a rate estimate without creating a pitch
type QuoteRequest struct {
	Industry      string  `json:"industry" validate:"required,max=120"`
	MonthlyVolume float64 `json:"monthlyVolume" validate:"gt=0,lte=10000000"`
	CurrentRate   float64 `json:"currentRate" validate:"gt=0,lte=10"`
}
