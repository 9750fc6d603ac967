package dbmanager

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	v1 "github.com/jovey-lab/project-jovey/internal/api/v1"
)

// HandlerFunc translates one event into a list of human-readable operation
// descriptions. Handlers are pure with respect to state tables in the current
// scope: they log and describe, nothing else. Expected-domain conditions
// (missing payload fields) never produce an error; only infrastructure
// failures may.
type HandlerFunc func(event *v1.Event) ([]string, error)

// defaultHandlers is the static registry mapping recognized event types to
// their handlers. An event type absent from this map is the explicit
// unhandled branch in the processor, not a reflection miss.
func defaultHandlers() map[string]HandlerFunc {
	return map[string]HandlerFunc{
		"product.created":              handleProductCreated,
		"product.updated":              handleProductUpdated,
		"product.price_changed":        handleProductPriceChanged,
		"product.stock_updated":        handleProductStockUpdated,
		"product.deactivated":          handleProductDeactivated,
		"order.created":                handleOrderCreated,
		"order.payment_received":       handleOrderPaymentReceived,
		"order.status_changed":         handleOrderStatusChanged,
		"order.fulfilled":              handleOrderFulfilled,
		"order.cancelled":              handleOrderCancelled,
		"customer.registered":          handleCustomerRegistered,
		"customer.profile_updated":     handleCustomerProfileUpdated,
		"dealer.application_submitted": handleDealerApplicationSubmitted,
		"dealer.approved":              handleDealerApproved,
		"dealer.pricing_updated":       handleDealerPricingUpdated,
		"agent.decision_proposed":      handleAgentDecisionProposed,
		"agent.decision_approved":      handleAgentDecisionApproved,
		"agent.decision_rejected":      handleAgentDecisionRejected,
	}
}

// --- Payload field helpers ---

func stringField(data map[string]interface{}, key, fallback string) string {
	if v, ok := data[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

// moneyField renders a numeric payload field with decimal precision.
// JSON numbers arrive as float64; amounts posted as strings are accepted too.
func moneyField(data map[string]interface{}, key string) string {
	v, ok := data[key]
	if !ok {
		return "unknown"
	}
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n).String()
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return "unknown"
		}
		return d.String()
	default:
		return "unknown"
	}
}

func mapField(data map[string]interface{}, key string) map[string]interface{} {
	if v, ok := data[key]; ok {
		if m, ok := v.(map[string]interface{}); ok {
			return m
		}
	}
	return nil
}

func listField(data map[string]interface{}, key string) []interface{} {
	if v, ok := data[key]; ok {
		if l, ok := v.([]interface{}); ok {
			return l
		}
	}
	return nil
}

// --- Product lifecycle ---

func handleProductCreated(event *v1.Event) ([]string, error) {
	sku := stringField(event.Data, "sku", "unknown")

	slog.Info("Product created", "sku", sku, "product_id", event.AggregateID)
	// Extension point: notify inventory, update search index.
	return []string{fmt.Sprintf("Logged product creation: %s", sku)}, nil
}

func handleProductUpdated(event *v1.Event) ([]string, error) {
	changes := mapField(event.Data, "changes")

	slog.Info("Product updated", "product_id", event.AggregateID, "fields_changed", len(changes))
	return []string{fmt.Sprintf("Logged product update: %s", event.AggregateID)}, nil
}

func handleProductPriceChanged(event *v1.Event) ([]string, error) {
	oldPrice := moneyField(event.Data, "old_price")
	newPrice := moneyField(event.Data, "new_price")
	reason := stringField(event.Data, "reason", "not specified")

	slog.Info("Product price changed",
		"product_id", event.AggregateID,
		"old_price", oldPrice,
		"new_price", newPrice,
		"reason", reason)
	// Extension point: price history table, dealer notifications.
	return []string{fmt.Sprintf("Logged price change: %s", event.AggregateID)}, nil
}

func handleProductStockUpdated(event *v1.Event) ([]string, error) {
	oldQty := moneyField(event.Data, "old_quantity")
	newQty := moneyField(event.Data, "new_quantity")
	reason := stringField(event.Data, "reason", "not specified")

	slog.Info("Product stock updated",
		"product_id", event.AggregateID,
		"old_quantity", oldQty,
		"new_quantity", newQty,
		"reason", reason)
	// Extension point: low-stock alerts, procurement trigger.
	return []string{fmt.Sprintf("Logged stock update: %s", event.AggregateID)}, nil
}

func handleProductDeactivated(event *v1.Event) ([]string, error) {
	reason := stringField(event.Data, "reason", "not specified")

	slog.Info("Product deactivated", "product_id", event.AggregateID, "reason", reason)
	return []string{fmt.Sprintf("Logged product deactivation: %s", event.AggregateID)}, nil
}

// --- Order lifecycle ---

func handleOrderCreated(event *v1.Event) ([]string, error) {
	customerID := stringField(event.Data, "customer_id", "unknown")
	total := moneyField(event.Data, "total")
	items := listField(event.Data, "items")

	slog.Info("Order created",
		"order_id", event.AggregateID,
		"customer_id", customerID,
		"total", total,
		"items", len(items))
	// Extension point: inventory reservation, payment kickoff. Callers must
	// not assume any reservation actually occurs here.
	return []string{fmt.Sprintf("Logged order creation: %s", event.AggregateID)}, nil
}

func handleOrderPaymentReceived(event *v1.Event) ([]string, error) {
	amount := moneyField(event.Data, "amount")
	method := stringField(event.Data, "payment_method", "unknown")
	transactionID := stringField(event.Data, "transaction_id", "unknown")

	slog.Info("Payment received",
		"order_id", event.AggregateID,
		"amount", amount,
		"payment_method", method,
		"transaction_id", transactionID)
	return []string{fmt.Sprintf("Logged payment: %s", event.AggregateID)}, nil
}

func handleOrderStatusChanged(event *v1.Event) ([]string, error) {
	oldStatus := stringField(event.Data, "old_status", "unknown")
	newStatus := stringField(event.Data, "new_status", "unknown")
	changedBy := stringField(event.Data, "changed_by", "unknown")

	slog.Info("Order status changed",
		"order_id", event.AggregateID,
		"old_status", oldStatus,
		"new_status", newStatus,
		"changed_by", changedBy)
	return []string{fmt.Sprintf("Logged status change: %s", event.AggregateID)}, nil
}

func handleOrderFulfilled(event *v1.Event) ([]string, error) {
	trackingNumber := stringField(event.Data, "tracking_number", "unknown")

	slog.Info("Order fulfilled", "order_id", event.AggregateID, "tracking_number", trackingNumber)
	// Extension point: shipping notification, delivery ETA.
	return []string{fmt.Sprintf("Logged order fulfillment: %s", event.AggregateID)}, nil
}

func handleOrderCancelled(event *v1.Event) ([]string, error) {
	reason := stringField(event.Data, "reason", "not specified")
	refund := moneyField(event.Data, "refund_amount")

	slog.Info("Order cancelled",
		"order_id", event.AggregateID,
		"reason", reason,
		"refund_amount", refund)
	// Extension point: refund processing, inventory release.
	return []string{fmt.Sprintf("Logged order cancellation: %s", event.AggregateID)}, nil
}

// --- Customer lifecycle ---

func handleCustomerRegistered(event *v1.Event) ([]string, error) {
	email := stringField(event.Data, "email", "unknown")
	name := stringField(event.Data, "name", "unknown")

	slog.Info("Customer registered", "customer_id", event.AggregateID, "name", name, "email", email)
	// Extension point: welcome email, loyalty account.
	return []string{fmt.Sprintf("Logged customer registration: %s", event.AggregateID)}, nil
}

func handleCustomerProfileUpdated(event *v1.Event) ([]string, error) {
	changes := mapField(event.Data, "changes")

	slog.Info("Customer profile updated", "customer_id", event.AggregateID, "fields_changed", len(changes))
	return []string{fmt.Sprintf("Logged profile update: %s", event.AggregateID)}, nil
}

// --- Dealer lifecycle ---

func handleDealerApplicationSubmitted(event *v1.Event) ([]string, error) {
	businessName := stringField(event.Data, "business_name", "unknown")
	email := stringField(event.Data, "email", "unknown")

	slog.Info("Dealer application submitted",
		"dealer_id", event.AggregateID,
		"business_name", businessName,
		"email", email)
	// Extension point: staff review task, acknowledgment email.
	return []string{fmt.Sprintf("Logged dealer application: %s", event.AggregateID)}, nil
}

func handleDealerApproved(event *v1.Event) ([]string, error) {
	approvedBy := stringField(event.Data, "approved_by", "unknown")

	slog.Info("Dealer approved", "dealer_id", event.AggregateID, "approved_by", approvedBy)
	// Extension point: account activation, pricing tier assignment.
	return []string{fmt.Sprintf("Logged dealer approval: %s", event.AggregateID)}, nil
}

func handleDealerPricingUpdated(event *v1.Event) ([]string, error) {
	productID := stringField(event.Data, "product_id", "unknown")
	dealerPrice := moneyField(event.Data, "dealer_price")

	slog.Info("Dealer pricing updated",
		"dealer_id", event.AggregateID,
		"product_id", productID,
		"dealer_price", dealerPrice)
	return []string{fmt.Sprintf("Logged pricing update: %s", event.AggregateID)}, nil
}

// --- Agent decision lifecycle ---

func handleAgentDecisionProposed(event *v1.Event) ([]string, error) {
	agent := stringField(event.Data, "agent", "unknown")
	decisionType := stringField(event.Data, "decision_type", "unknown")
	confidence := moneyField(event.Data, "confidence")

	slog.Info("Agent decision proposed",
		"decision_id", event.AggregateID,
		"agent", agent,
		"decision_type", decisionType,
		"confidence", confidence)
	// Extension point: approval task creation, staff notification.
	return []string{fmt.Sprintf("Logged agent decision: %s", event.AggregateID)}, nil
}

func handleAgentDecisionApproved(event *v1.Event) ([]string, error) {
	approvedBy := stringField(event.Data, "approved_by", "unknown")

	slog.Info("Agent decision approved", "decision_id", event.AggregateID, "approved_by", approvedBy)
	// Extension point: execute the approved decision.
	return []string{fmt.Sprintf("Logged decision approval: %s", event.AggregateID)}, nil
}

func handleAgentDecisionRejected(event *v1.Event) ([]string, error) {
	rejectedBy := stringField(event.Data, "rejected_by", "unknown")
	reason := stringField(event.Data, "reason", "not specified")

	slog.Info("Agent decision rejected",
		"decision_id", event.AggregateID,
		"rejected_by", rejectedBy,
		"reason", reason)
	return []string{fmt.Sprintf("Logged decision rejection: %s", event.AggregateID)}, nil
}
