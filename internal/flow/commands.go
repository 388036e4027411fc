package flow

import (
	"regexp"
	"strconv"
	"strings"
)

// Anchor regexes for the free-text commands. Each command has exactly one
// regex with positional captures; parse failure yields a guidance message,
// not a silent drop.
var (
	reservationRatingRe = regexp.MustCompile(`(?i)r rate (\d+)`)
	orderRatingRe       = regexp.MustCompile(`(?i)rate (\d+)`)
	cancelOrderRe       = regexp.MustCompile(`(?i)cancel order for (.+)`)
	cancelReservationRe = regexp.MustCompile(`(?i)cancel reservation for table (\d+)`)
	bookingFormRe       = regexp.MustCompile(`(?i)Reservation Name:\s*(.+)\s*Date for Booking:\s*([0-9]{1,2} [A-Za-z]+)\s*Time for Booking:\s*([0-9]{1,2} [APap][Mm])\s*Number of People:\s*(\d+)\s*Table Number:\s*(\d+)`)
	orderFormRe         = regexp.MustCompile(`(?is)Order:\s*(.+?)\s*Delivery:\s*(yes|no)(?:\s*Name:\s*(.+?)\s*Location:\s*(.+?)\s*Time:\s*(.+))?`)
	flowTimeRe          = regexp.MustCompile(`(?i)\d{1,2}(?:am|pm)`)
	digitsRe            = regexp.MustCompile(`\d+`)
)

// BookingForm holds the captures of the five-line booking template.
type BookingForm struct {
	Name           string
	Date           string
	Time           string
	NumberOfPeople int
	TableNumber    int
}

// OrderForm holds the captures of the legacy order form template. The
// name/location/time group is optional; it is only present on delivery
// orders.
type OrderForm struct {
	Items    string
	Delivery bool
	Name     string
	Location string
	Time     string
}

// ParseReservationRatingCommand extracts the rating from an "r rate N"
// message.
func ParseReservationRatingCommand(text string) (int, bool) {
	m := reservationRatingRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	rating, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return rating, true
}

// ParseOrderRatingCommand extracts the rating from a "rate N" message.
func ParseOrderRatingCommand(text string) (int, bool) {
	m := orderRatingRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	rating, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return rating, true
}

// ParseCancelOrderCommand extracts the order description from a
// "cancel order for ..." message.
func ParseCancelOrderCommand(text string) (string, bool) {
	m := cancelOrderRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// ParseCancelReservationCommand extracts the table number from a
// "cancel reservation for table N" message.
func ParseCancelReservationCommand(text string) (int, bool) {
	m := cancelReservationRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	table, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return table, true
}

// ParseBookingForm extracts name, date, time, party size, and table number
// from the filled booking template.
func ParseBookingForm(text string) (*BookingForm, bool) {
	m := bookingFormRe.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	people, err := strconv.Atoi(m[4])
	if err != nil {
		return nil, false
	}
	table, err := strconv.Atoi(m[5])
	if err != nil {
		return nil, false
	}
	return &BookingForm{
		Name:           strings.TrimSpace(m[1]),
		Date:           strings.TrimSpace(m[2]),
		Time:           strings.TrimSpace(m[3]),
		NumberOfPeople: people,
		TableNumber:    table,
	}, true
}

// ParseOrderForm extracts item list, delivery flag, and the optional
// delivery details from the filled legacy order form.
func ParseOrderForm(text string) (*OrderForm, bool) {
	m := orderFormRe.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	return &OrderForm{
		Items:    strings.TrimSpace(m[1]),
		Delivery: strings.EqualFold(strings.TrimSpace(m[2]), "yes"),
		Name:     strings.TrimSpace(m[3]),
		Location: strings.TrimSpace(m[4]),
		Time:     strings.TrimSpace(m[5]),
	}, true
}
