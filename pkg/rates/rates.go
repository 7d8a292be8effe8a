package rates

import (
	"math"
	"strings"
)

// Rate is a processing rate: a percentage of volume plus a fixed fee per transaction
type Rate struct {
	Percent float64 `json:"percent"`
	Fixed   float64 `json:"fixed"`
}

// MinPercent is the lowest percentage a quote can reach, whatever the discount
const MinPercent = 1.5

// DefaultBase applies to any industry missing from the base rate table
var DefaultBase = Rate{Percent: 2.3, Fixed: 0.10}

type industryRate struct {
	name string
	rate Rate
}

// Display names are kept in the order the intake form lists them.
// "Laundromat / Coin-Op" has its own entry because the intake form and the
// pitch form historically used different labels for the same business.
var industryTable = []industryRate{
	{"Restaurant", Rate{Percent: 1.95, Fixed: 0.10}},
	{"Retail", Rate{Percent: 1.95, Fixed: 0.10}},
	{"Laundromat", Rate{Percent: 2.2, Fixed: 0.10}},
	{"Laundromat / Coin-Op", Rate{Percent: 2.2, Fixed: 0.10}},
	{"Medical/Dental", Rate{Percent: 2.1, Fixed: 0.10}},
	{"E-commerce", Rate{Percent: 2.4, Fixed: 0.15}},
	{"Professional Services", Rate{Percent: 2.3, Fixed: 0.10}},
}

var baseRates = func() map[string]Rate {
	ret := make(map[string]Rate, len(industryTable))
	for _, entry := range industryTable {
		ret[normalizeIndustry(entry.name)] = entry.rate
	}
	return ret
}()

type volumeTier struct {
	minVolume float64
	discount  float64
}

// Ordered from highest threshold to lowest; only the first match applies
var volumeTiers = []volumeTier{
	{minVolume: 250_000, discount: 0.15},
	{minVolume: 100_000, discount: 0.10},
	{minVolume: 50_000, discount: 0.05},
}

// normalizeIndustry turns an industry label into its lookup key.
// Case and surrounding whitespace are ignored, runs of whitespace collapse to
// one space, and whitespace around "/" is dropped, so "Medical / Dental" and
// "medical/dental" share a key. Anything else must match exactly.
func normalizeIndustry(industry string) string {
	fields := strings.Fields(strings.ToLower(industry))
	key := strings.Join(fields, " ")
	key = strings.ReplaceAll(key, " /", "/")
	key = strings.ReplaceAll(key, "/ ", "/")
	return key
}

// Base returns the base rate for an industry and whether the industry was
// found in the table
func Base(industry string) (Rate, bool) {
	rate, ok := baseRates[normalizeIndustry(industry)]
	if !ok {
		return DefaultBase, false
	}
	return rate, true
}

// VolumeDiscount returns the percentage point discount for a monthly volume
func VolumeDiscount(monthlyVolume float64) float64 {
	for _, tier := range volumeTiers {
		if monthlyVolume >= tier.minVolume {
			return tier.discount
		}
	}
	return 0
}

// Compute returns the quoted rate for an industry at a monthly volume.
// It never fails: unknown industries use DefaultBase and a negative or NaN
// volume is treated as zero.
func Compute(industry string, monthlyVolume float64) Rate {
	if math.IsNaN(monthlyVolume) || monthlyVolume < 0 {
		monthlyVolume = 0
	}
	base, _ := Base(industry)
	percent := math.Max(MinPercent, base.Percent-VolumeDiscount(monthlyVolume))
	return Rate{
		Percent: roundHundredths(percent),
		Fixed:   base.Fixed,
	}
}

// Savings returns the monthly and annual savings of moving volume from
// currentRate to percent. The fixed per-transaction fee is not part of the
// estimate. Monthly savings are never negative and annual savings are the
// monthly figure times twelve, rounded to a whole currency unit.
func Savings(monthlyVolume, currentRate, percent float64) (monthly float64, annual float64) {
	monthly = math.Max(0, monthlyVolume*(currentRate-percent)/100)
	annual = math.Round(monthly * 12)
	return monthly, annual
}

// Industries returns the display names of every industry with a base rate
func Industries() []string {
	ret := make([]string, 0, len(industryTable))
	for _, entry := range industryTable {
		ret = append(ret, entry.name)
	}
	return ret
}

func roundHundredths(v float64) float64 {
	return math.Round(v*100) / 100
}
