package models

// Structured flow submissions arrive as decrypted key→value payloads whose
// keys follow a "screen_<n>_<Label>_<index>" convention. The types below form
// a tagged union over the four known shapes so the router can dispatch with a
// type switch instead of re-sniffing substrings at every call site.

// SubmissionKind tags a classified structured submission.
type SubmissionKind string

const (
	SubmissionReservation       SubmissionKind = "reservation"
	SubmissionOrderRating       SubmissionKind = "order_rating"
	SubmissionReservationRating SubmissionKind = "reservation_rating"
	SubmissionOrderForm         SubmissionKind = "order_flow"
)

// Submission is the sum type over the known structured flow shapes.
type Submission interface {
	Kind() SubmissionKind
}

// ReservationSubmission is a completed reservation form. Matched when both
// "reservation_date" and "reservation_time" keys are present; this check runs
// before all others so a coincidental "Order_Item" key cannot steal it.
type ReservationSubmission struct {
	Name           string
	Date           string
	TimeRaw        string // raw field, the handler regex-extracts "<h>(am|pm)"
	NumberOfPeople string
	TableRaw       string // zero-indexed UI selector, handler adds one
}

func (ReservationSubmission) Kind() SubmissionKind { return SubmissionReservation }

// OrderRatingSubmission carries the raw rating option text for an order
// (any key containing "Order_experience").
type OrderRatingSubmission struct {
	RatingText string
}

func (OrderRatingSubmission) Kind() SubmissionKind { return SubmissionOrderRating }

// ReservationRatingSubmission carries the raw rating option text for a
// reservation (any key containing "Dining_Experience").
type ReservationRatingSubmission struct {
	RatingText string
}

func (ReservationRatingSubmission) Kind() SubmissionKind { return SubmissionReservationRating }

// OrderFormSubmission is a completed interactive order form (any key
// containing "Order_Item"). Items keep their raw "optionindex_displaytext"
// encoding; the handler strips the prefix at the first underscore.
type OrderFormSubmission struct {
	Items       []string
	DeliveryRaw string // "0_Yes" selects delivery, anything else is pickup
	Name        string
	Location    string // optional, defaults applied by the handler
	Time        string // optional
}

func (OrderFormSubmission) Kind() SubmissionKind { return SubmissionOrderForm }
