package models

import "time"

// Note is a free-text remark attached to a reservation.
type Note struct {
	Text      string     `json:"text"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Reservation is a booking normalized from one raw backend record.
type Reservation struct {
	ID                 string     `json:"id"`
	BookingID          *string    `json:"bookingId"`
	PropertyID         string     `json:"propertyId,omitempty"`
	Title              string     `json:"title"`
	UnitNo             string     `json:"unitNo"`
	GuestName          string     `json:"guestName"`
	Phone              string     `json:"phone,omitempty"`
	Email              string     `json:"email,omitempty"`
	CheckIn            *time.Time `json:"checkIn"`
	CheckOut           *time.Time `json:"checkOut"`
	IsStayhubBooking   bool       `json:"isStayhubBooking"`
	Channel            *string    `json:"channel"`
	IsCancelled        bool       `json:"isCancelled"`
	IsCheckinCompleted bool       `json:"isCheckinCompleted"`
	IsPaymentCompleted bool       `json:"isPaymentCompleted"`
	Notes              []Note     `json:"notes"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// Pagination describes one page of the bookings list.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPage   int `json:"totalPage"`
	PageSize    int `json:"pageSize"`
	TotalData   int `json:"totalData"`
}

// DefaultPagination is the state before the first successful fetch.
func DefaultPagination() Pagination {
	return Pagination{CurrentPage: DefaultPage, TotalPage: 1, PageSize: DefaultPageSize}
}

// ReservationPage is the aggregated result of listing reservations.
type ReservationPage struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message,omitempty"`
	Data       []Reservation     `json:"data"`
	Pagination Pagination        `json:"pagination"`
	NewBooking *NewBookingMarker `json:"newBooking,omitempty"`
}

// FailedPage keeps the requested page shape with zeroed totals.
func FailedPage(message string, page, pageSize int) ReservationPage {
	if message == "" {
		message = MsgGenericFailure
	}
	return ReservationPage{
		Message:    message,
		Data:       []Reservation{},
		Pagination: Pagination{CurrentPage: page, PageSize: pageSize},
	}
}

// NewBookingMarker tells the owner's next reservation listing that a booking
// was just created and may not be visible yet.
type NewBookingMarker struct {
	BookingID     string    `json:"bookingId"`
	PropertyID    string    `json:"propertyId,omitempty"`
	CheckIn       string    `json:"checkIn"`
	CheckOut      string    `json:"checkOut"`
	GuestName     string    `json:"guestName"`
	PropertyTitle string    `json:"propertyTitle,omitempty"`
	UnitNo        string    `json:"unitNo,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
