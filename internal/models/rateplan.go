package models

// RatePlanQuery is a candidate stay as received from the caller.
type RatePlanQuery struct {
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	PropertyID string `json:"propertyId"`
}

// DateRate is the nightly rate for one calendar date.
type DateRate struct {
	Date CalendarDate `json:"date"`
	Rate float64      `json:"rate"`
}

// RatePlanResult is the priced stay returned by the backend. Only the price
// presence and the blocking flags are interpreted here.
type RatePlanResult struct {
	TotalRate            *float64       `json:"totalRate,omitempty"`
	TotalPrice           *float64       `json:"totalPrice,omitempty"`
	StayingDurationNight int            `json:"stayingDurationNight"`
	DiscountedRate       float64        `json:"discountedRate"`
	ServiceFee           float64        `json:"serviceFee"`
	VAT                  float64        `json:"vat"`
	DiscountDetails      map[string]any `json:"discountDetails,omitempty"`
	Rates                []DateRate     `json:"rates"`
	IsBlocked            bool           `json:"isBlocked,omitempty"`
	IsMinStay            bool           `json:"isMinStay,omitempty"`
	MinStay              int            `json:"minStay,omitempty"`
}

// Price returns totalRate, falling back to totalPrice.
func (r *RatePlanResult) Price() (float64, bool) {
	if r == nil {
		return 0, false
	}
	if r.TotalRate != nil {
		return *r.TotalRate, true
	}
	if r.TotalPrice != nil {
		return *r.TotalPrice, true
	}
	return 0, false
}
