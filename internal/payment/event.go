package payment

import "encoding/json"

// EventKind is the closed set of gateway event types the service cares
// about. Everything else parses into KindIgnored and is acknowledged
// without side effects; an unknown type is never a parse failure.
type EventKind int

const (
	// KindIgnored is any event type the reconciler has no interest in.
	KindIgnored EventKind = iota
	// KindCheckoutCompleted is a finished checkout session, the only
	// event that can create a reservation.
	KindCheckoutCompleted
)

// CheckoutMetadata is the correlation metadata this service attached
// when it created the checkout session.
type CheckoutMetadata struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Email     string `json:"email"`
	Timezone  string `json:"timezone"`
}

// CheckoutObject is the slice of the gateway's checkout session object
// the reconciler reads.
type CheckoutObject struct {
	ID              string           `json:"id"`
	PaymentStatus   string           `json:"payment_status"`
	PaymentIntent   string           `json:"payment_intent"`
	Metadata        CheckoutMetadata `json:"metadata"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
}

// Event is the parsed form of a gateway webhook payload.
type Event struct {
	ID       string
	Type     string
	Kind     EventKind
	Checkout CheckoutObject
}

type rawEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ParseEvent decodes a webhook body. Only malformed JSON is an error;
// event types outside the closed set come back as KindIgnored.
func ParseEvent(body []byte) (*Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	ev := &Event{ID: raw.ID, Type: raw.Type, Kind: KindIgnored}
	if raw.Type == "checkout.session.completed" {
		if err := json.Unmarshal(raw.Data.Object, &ev.Checkout); err != nil {
			return nil, err
		}
		ev.Kind = KindCheckoutCompleted
	}
	return ev, nil
}
