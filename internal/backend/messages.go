package backend

import "net/http"

var (
	RatePlanMessages = StatusMessages{
		ByStatus: map[int]string{
			http.StatusBadRequest:          "Invalid date selection. Please choose different dates.",
			http.StatusUnauthorized:        "Please login to check room availability.",
			http.StatusNotFound:            "Property not found.",
			http.StatusConflict:            "Selected dates are already booked. Please choose different dates.",
			http.StatusUnprocessableEntity: "Invalid date selection. Please choose different dates.",
			http.StatusInternalServerError: "Unable to fetch rates. Please try again.",
		},
		Fallback: "Unable to fetch rates for selected dates.",
	}

	BookingMessages = StatusMessages{
		ByStatus: map[int]string{
			http.StatusBadRequest:          "Invalid booking data. Please check your information and try again.",
			http.StatusUnauthorized:        "Please login to create a booking.",
			http.StatusNotFound:            "Property not found.",
			http.StatusConflict:            "Property is not available for the selected dates.",
			http.StatusUnprocessableEntity: "Invalid booking information. Please check your details.",
			http.StatusInternalServerError: "Unable to create booking. Please try again.",
		},
		Fallback: "An error occurred while creating the booking.",
	}

	ReservationMessages = StatusMessages{
		ByStatus: map[int]string{
			http.StatusUnauthorized: "Please login to view your reservations.",
		},
		Fallback: "Unable to fetch reservations. Please try again.",
	}

	NoteMessages = StatusMessages{
		ByStatus: map[int]string{
			http.StatusNotFound: "Reservation not found.",
		},
		Fallback: "Failed to add note. Please try again.",
	}

	PropertyMessages = StatusMessages{
		ByStatus: map[int]string{
			http.StatusNotFound: "Property not found.",
		},
		Fallback: "Unable to load property information. Please try again.",
	}

	BillingMessages = StatusMessages{
		Fallback: "Unable to load billing information. Please try again.",
	}
)
