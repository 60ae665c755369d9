package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/amaliareyes/seamline-backend/pkg/db/models"
	"github.com/amaliareyes/seamline-backend/pkg/enums"
	"github.com/amaliareyes/seamline-backend/pkg/types"
)

type orderItemResponse struct {
	ID             uuid.UUID `json:"id"`
	ServiceID      uuid.UUID `json:"service_id"`
	ServiceName    string    `json:"service_name"`
	BasePriceCents int       `json:"base_price_cents"`
	Qty            int       `json:"qty"`
	PriceCents     int       `json:"price_cents"`
	Status         string    `json:"status"`
}

type timelineEntryResponse struct {
	FromStatus *enums.OrderStatus `json:"from_status,omitempty"`
	ToStatus   enums.OrderStatus  `json:"to_status"`
	ActorRole  enums.ActorRole    `json:"actor_role"`
	Override   bool               `json:"override"`
	Reason     *string            `json:"reason,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

type paymentResponse struct {
	ID                uuid.UUID `json:"id"`
	CheckoutSessionID string    `json:"checkout_session_id"`
	AmountCents       int       `json:"amount_cents"`
	RefundedCents     int       `json:"refunded_cents"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

type payoutResponse struct {
	ID          uuid.UUID  `json:"id"`
	OrderID     uuid.UUID  `json:"order_id"`
	UserID      uuid.UUID  `json:"user_id"`
	Role        string     `json:"role"`
	AmountCents int        `json:"amount_cents"`
	Status      string     `json:"status"`
	Method      *string    `json:"method,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type orderResponse struct {
	ID               uuid.UUID               `json:"id"`
	OrderNumber      int64                   `json:"order_number"`
	CustomerID       uuid.UUID               `json:"customer_id"`
	RunnerID         *uuid.UUID              `json:"runner_id,omitempty"`
	TailorID         *uuid.UUID              `json:"tailor_id,omitempty"`
	Status           enums.OrderStatus       `json:"status"`
	Currency         enums.Currency          `json:"currency"`
	SubtotalCents    int                     `json:"subtotal_cents"`
	DeliveryFeeCents int                     `json:"delivery_fee_cents"`
	TotalCents       int                     `json:"total_cents"`
	CollectionDate   *time.Time              `json:"collection_date,omitempty"`
	CollectionSlot   *string                 `json:"collection_slot,omitempty"`
	DeliveryAddress  types.Address           `json:"delivery_address"`
	PaidAt           *time.Time              `json:"paid_at,omitempty"`
	CancelledAt      *time.Time              `json:"cancelled_at,omitempty"`
	CancelReason     *string                 `json:"cancel_reason,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	Items            []orderItemResponse     `json:"items,omitempty"`
	Payments         []paymentResponse       `json:"payments,omitempty"`
	Payouts          []payoutResponse        `json:"payouts,omitempty"`
	Timeline         []timelineEntryResponse `json:"timeline,omitempty"`
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type payoutListResponse struct {
	Payouts    []payoutResponse `json:"payouts"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

func toOrderResponse(order *models.Order) orderResponse {
	resp := orderResponse{
		ID:               order.ID,
		OrderNumber:      order.OrderNumber,
		CustomerID:       order.CustomerID,
		RunnerID:         order.RunnerID,
		TailorID:         order.TailorID,
		Status:           order.Status,
		Currency:         order.Currency,
		SubtotalCents:    order.SubtotalCents,
		DeliveryFeeCents: order.DeliveryFeeCents,
		TotalCents:       order.TotalCents,
		CollectionDate:   order.CollectionDate,
		CollectionSlot:   order.CollectionSlot,
		DeliveryAddress:  order.DeliveryAddress,
		PaidAt:           order.PaidAt,
		CancelledAt:      order.CancelledAt,
		CancelReason:     order.CancelReason,
		CreatedAt:        order.CreatedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ID:             item.ID,
			ServiceID:      item.ServiceID,
			ServiceName:    item.ServiceName,
			BasePriceCents: item.BasePriceCents,
			Qty:            item.Qty,
			PriceCents:     item.PriceCents,
			Status:         string(item.Status),
		})
	}
	for _, payment := range order.Payments {
		resp.Payments = append(resp.Payments, toPaymentResponse(payment))
	}
	for _, payout := range order.Payouts {
		resp.Payouts = append(resp.Payouts, toPayoutResponse(payout))
	}
	for _, entry := range order.Timeline {
		resp.Timeline = append(resp.Timeline, toTimelineResponse(entry))
	}
	return resp
}

func toOrderListResponse(orders []models.Order, nextCursor string) orderListResponse {
	resp := orderListResponse{
		Orders:     make([]orderResponse, 0, len(orders)),
		NextCursor: nextCursor,
	}
	for i := range orders {
		resp.Orders = append(resp.Orders, toOrderResponse(&orders[i]))
	}
	return resp
}

func toPaymentResponse(payment models.Payment) paymentResponse {
	return paymentResponse{
		ID:                payment.ID,
		CheckoutSessionID: payment.CheckoutSessionID,
		AmountCents:       payment.AmountCents,
		RefundedCents:     payment.RefundedCents,
		Status:            string(payment.Status),
		CreatedAt:         payment.CreatedAt,
	}
}

func toPayoutResponse(payout models.Payout) payoutResponse {
	resp := payoutResponse{
		ID:          payout.ID,
		OrderID:     payout.OrderID,
		UserID:      payout.UserID,
		Role:        string(payout.Role),
		AmountCents: payout.AmountCents,
		Status:      string(payout.Status),
		Notes:       payout.Notes,
		PaidAt:      payout.PaidAt,
		CreatedAt:   payout.CreatedAt,
	}
	if payout.Method != nil {
		method := string(*payout.Method)
		resp.Method = &method
	}
	return resp
}

func toTimelineResponse(entry models.OrderTimelineEntry) timelineEntryResponse {
	return timelineEntryResponse{
		FromStatus: entry.FromStatus,
		ToStatus:   entry.ToStatus,
		ActorRole:  entry.ActorRole,
		Override:   entry.Override,
		Reason:     entry.Reason,
		CreatedAt:  entry.CreatedAt,
	}
}
