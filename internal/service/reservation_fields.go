package service

import (
	r "pmconsole/internal/reconcile"
)

// Extraction rules for raw booking records, most specific first. New upstream
// shapes are added here.
var (
	guestNameRules = []r.Rule{
		r.Joined(" ", "fname", "lname"),
		r.Joined(" ", "firstName", "lastName"),
		r.Joined(" ", "first_name", "last_name"),
		r.Joined(" ", "guestDetails.firstName", "guestDetails.lastName"),
		r.Path("guestDetails.name"),
		r.Path("customerName"),
		r.Path("primaryGuest.fullName"),
		r.Path("guest.name"),
	}

	titleRules = []r.Rule{
		r.Path("propertyId.propertyDetails.stayDetails.title"),
		r.Path("property.propertyDetails.stayDetails.title"),
		r.Path("propertyDetails.stayDetails.title"),
		r.Path("property.title"),
		r.Path("propertyDetails.title"),
		r.Path("unitTitle"),
	}

	unitRules = []r.Rule{
		r.Path("propertyId.unitNo"),
		r.Path("property.unitNo"),
		r.Path("propertyDetails.unitNo"),
		r.Path("unitNo"),
	}

	propertyIDRules = []r.Rule{
		r.RuleFunc(func(rec map[string]any) (any, bool) {
			s, ok := rec["propertyId"].(string)
			return s, ok && s != ""
		}),
		r.Path("propertyId._id"),
		r.Path("property._id"),
	}

	checkInRules = []r.Rule{
		r.Path("startDate"),
		r.Path("checkIn"),
		r.Path("check_in"),
		r.Path("stayDetails.checkIn"),
		r.Path("propertyDetails.houseManual.checkin"),
		r.Path("property.propertyDetails.houseManual.checkin"),
		r.Path("bookingFrom"),
		r.Path("fromDate"),
	}

	checkOutRules = []r.Rule{
		r.Path("endDate"),
		r.Path("checkOut"),
		r.Path("check_out"),
		r.Path("stayDetails.checkOut"),
		r.Path("propertyDetails.houseManual.checkout"),
		r.Path("property.propertyDetails.houseManual.checkout"),
		r.Path("bookingTo"),
		r.Path("toDate"),
	}

	createdAtRules = []r.Rule{
		r.Path("createdAt"),
		r.Path("created_at"),
		r.Path("bookingDate"),
	}

	phoneRules = []r.Rule{
		r.Joined(" ", "countryCode", "phone"),
		r.Path("phone"),
		r.Path("guestDetails.mobileNumber"),
		r.Path("mobileNumber"),
	}

	emailRules = []r.Rule{
		r.Path("email"),
		r.Path("guestDetails.email"),
		r.Path("guest.email"),
	}

	idRules        = []r.Rule{r.Path("_id"), r.Path("bookingId"), r.Path("id")}
	bookingIDRules = []r.Rule{r.Path("bookingId"), r.Path("_id")}
	channelRules   = []r.Rule{r.Path("channel"), r.Path("secondaryOta")}

	// property detail records, used when enriching
	detailTitleRules = []r.Rule{r.Path("propertyDetails.stayDetails.title"), r.Path("title")}
	detailUnitRules  = []r.Rule{r.Path("unitNo")}
)
