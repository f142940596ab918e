package payments

import "context"

// Metadata keys carried on a payment intent so the webhook can finalize
// the sale without any server-side session state.
const (
	MetaUserID          = "user_id"
	MetaItemID          = "item_id"
	MetaSellerID        = "seller_id"
	MetaTransactionType = "transaction_type"
)

type CreateIntentInput struct {
	// Amount is in the provider's minor units (cents).
	Amount   int64
	Metadata map[string]string
}

type Intent struct {
	ID           string
	ClientSecret string
}

// ConfirmedEvent is the provider-agnostic projection of an asynchronous
// payment callback after its signature has been verified.
type ConfirmedEvent struct {
	Type     string
	IntentID string
	Amount   int64
	Metadata map[string]string
}

// EventPaymentSucceeded is the only event type the bridge acts on.
const EventPaymentSucceeded = "payment_intent.succeeded"

// Provider is the payment provider integration point. Implementations
// must verify callback authenticity before returning an event.
type Provider interface {
	CreateIntent(ctx context.Context, input CreateIntentInput) (*Intent, error)
	VerifyWebhook(payload []byte, signature string) (*ConfirmedEvent, error)
}
