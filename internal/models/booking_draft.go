package models

// PaymentMethod selects what the guest is invited to do after creation.
type PaymentMethod string

const (
	PayNow   PaymentMethod = "pay_now"
	PayLater PaymentMethod = "pay_later"
)

type GuestDetails struct {
	FirstName    string `json:"firstName" validate:"required"`
	LastName     string `json:"lastName" validate:"required"`
	MobileNumber string `json:"mobileNumber" validate:"required,phone"`
	CountryCode  string `json:"countryCode" validate:"omitempty,startswith=+"`
	Adults       int    `json:"adults" validate:"omitempty,min=1,max=5"`
	Children     int    `json:"children" validate:"min=0"`
}

type StayDetails struct {
	CheckIn  string `json:"checkIn"`
	CheckOut string `json:"checkOut"`
}

// PropertyRef identifies the property being booked.
type PropertyRef struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	UnitNo string `json:"unitNo,omitempty"`
}

// Quote is the outcome of an earlier availability check for this draft.
type Quote struct {
	Query  RatePlanQuery   `json:"query"`
	Result *RatePlanResult `json:"result"`
}

// BookingDraft is an in-progress booking submitted from the console.
type BookingDraft struct {
	Property      PropertyRef   `json:"property"`
	Guest         GuestDetails  `json:"guestDetails"`
	Stay          StayDetails   `json:"stayDetails"`
	Quote         *Quote        `json:"pricing"`
	Note          string        `json:"note" validate:"max=100"`
	PaymentMethod PaymentMethod `json:"paymentMethod" validate:"omitempty,oneof=pay_now pay_later"`
}

// BookingConfirmation is returned after the backend accepted a booking.
type BookingConfirmation struct {
	BookingID string         `json:"bookingId"`
	Nights    int            `json:"nights"`
	CheckIn   string         `json:"checkIn"`
	CheckOut  string         `json:"checkOut"`
	Raw       map[string]any `json:"booking,omitempty"`
}

// NoteInput is the body of an add-note request.
type NoteInput struct {
	Note string `json:"note" validate:"required,max=100"`
}

// BlockDatesInput closes a unit's calendar for a date range.
type BlockDatesInput struct {
	RatePlanID string   `json:"ratePlanId" validate:"required"`
	FromDate   string   `json:"fromDate" validate:"required"`
	ToDate     string   `json:"toDate" validate:"required"`
	Rate       *float64 `json:"rate,omitempty" validate:"omitempty,gte=0"`
	Note       string   `json:"note" validate:"max=100"`
}

// PremiumSubscription upgrades properties to the premium plan.
type PremiumSubscription struct {
	Properties       []string       `json:"properties" validate:"required,min=1,dive,required"`
	SubscriptionType string         `json:"subscriptionType" validate:"required,oneof=Yearly Monthly"`
	DiscountCode     *string        `json:"discountCode"`
	StayHubDiscount  map[string]any `json:"stayHubDiscount"`
}
