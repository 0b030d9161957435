package models

const (
	DefaultPage        = 1
	DefaultPageSize    = 10
	DefaultCountryCode = "+966"

	MaxNoteLength = 100
	MinAdults     = 1
	MaxAdults     = 5

	PlaceholderTitle     = "Property Title"
	PlaceholderUnit      = "Unit #"
	PlaceholderGuestName = "N/A"
)

// User-facing sentences. Every failure surfaced to the dashboard is one of
// these or a message taken from the backend.
const (
	MsgNoToken           = "No token. Please log in again."
	MsgSessionExpired    = "Your session has expired. Please log in again."
	MsgGenericFailure    = "Something went wrong. Please try again."
	MsgUnexpected        = "Unexpected response"
	MsgDatesUnavailable  = "Selected dates are not available. This property is already booked for the chosen dates. Please select different dates."
	MsgDatesBlocked      = "Selected dates are not available. Please choose different dates."
	MsgIncompleteRate    = "Rate information is incomplete for the selected dates. Please try again or choose different dates."
	MsgSelectDatesFirst  = "Please select dates first to get pricing"
	MsgNetworkError      = "Network error. Please check your connection and try again."
	MsgTimeout           = "The request timed out. Please try again."
	MsgServiceDegraded   = "The booking service is temporarily unavailable. Please try again shortly."
	MsgConfirmCancel     = "Please confirm the cancellation before continuing."
	MsgRatePlanFetched   = "Rate plan fetched successfully"
	MsgBookingCreated    = "Booking created successfully"
	MsgBookingPaidNotice = "Booking created, the guest has been invited to make payment within 30 mins..."
	MsgBookingIDNotice   = "Booking created, the guest has been invited to verify identity..."
	MsgNoteAdded         = "Note added successfully!"
)
