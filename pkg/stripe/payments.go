package stripe

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/refund"
)

// CheckoutSessionInput carries everything needed to open a hosted payment page
// for one order.
type CheckoutSessionInput struct {
	OrderID string
	// AttemptID distinguishes repeated checkout attempts for the same order.
	// Stripe caches responses per idempotency key for 24 hours, so a key
	// scoped to the order alone would replay the first, possibly expired,
	// session on every retry.
	AttemptID   string
	OrderNumber int64
	Currency    string
	// Lines are display rows; amounts are minor units, already
	// quantity-multiplied.
	Lines         []CheckoutLine
	CustomerEmail string
	ExpiresAt     int64
}

// CheckoutLine is one display row on the hosted payment page.
type CheckoutLine struct {
	Name        string
	AmountCents int64
	Quantity    int64
}

// PaymentClient is the subset of processor operations the payment and refund
// services need. Services depend on this interface so tests can stub the
// processor entirely.
type PaymentClient interface {
	CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*stripe.CheckoutSession, error)
	CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64, idempotencyKey string) (*stripe.Refund, error)
}

// CreateCheckoutSession opens a hosted checkout session for the order.
func (c *Client) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*stripe.CheckoutSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(in.Lines))
	for _, line := range in.Lines {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(line.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(in.Currency),
				UnitAmount: stripe.Int64(line.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(c.successURL),
		CancelURL:  stripe.String(c.cancelURL),
		LineItems:  lineItems,
		Metadata: map[string]string{
			"order_id":     in.OrderID,
			"order_number": fmt.Sprintf("%d", in.OrderNumber),
		},
	}
	params.Context = ctx
	if in.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(in.CustomerEmail)
	}
	if in.ExpiresAt > 0 {
		params.ExpiresAt = stripe.Int64(in.ExpiresAt)
	}
	key := "checkout:" + in.OrderID
	if in.AttemptID != "" {
		key += ":" + in.AttemptID
	}
	params.SetIdempotencyKey(key)

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("creating checkout session: %w", err)
	}
	return sess, nil
}

// CreateRefund issues a refund against a captured payment intent. The
// idempotency key keeps a retried call from refunding twice.
func (c *Client) CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64, idempotencyKey string) (*stripe.Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Amount:        stripe.Int64(amountCents),
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	ref, err := refund.New(params)
	if err != nil {
		return nil, fmt.Errorf("creating refund: %w", err)
	}
	return ref, nil
}
