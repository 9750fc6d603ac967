package dbmanager

// Mappings documents how each recognized event type is processed. This is a
// static description of the handler registry; the authoritative behavior
// lives in handlers.go. Operations beyond the log entry are named extension
// points, not implemented side effects.
func Mappings() []EventOperationMapping {
	return []EventOperationMapping{
		{
			EventType:     "product.created",
			AggregateType: "product",
			Operations:    []string{"Log product creation"},
			Description:   "Record product creation in the event log",
		},
		{
			EventType:     "product.updated",
			AggregateType: "product",
			Operations:    []string{"Log product update"},
			Description:   "Record product field changes",
		},
		{
			EventType:     "product.price_changed",
			AggregateType: "product",
			Operations:    []string{"Log price change", "Update price history"},
			Description:   "Record price changes for the audit trail",
		},
		{
			EventType:     "product.stock_updated",
			AggregateType: "product",
			Operations:    []string{"Log stock update", "Check low stock alerts"},
			Description:   "Track inventory changes",
		},
		{
			EventType:     "product.deactivated",
			AggregateType: "product",
			Operations:    []string{"Log product deactivation"},
			Description:   "Record product removal from the catalog",
		},
		{
			EventType:     "order.created",
			AggregateType: "order",
			Operations:    []string{"Log order creation", "Reserve inventory"},
			Description:   "Process new order creation",
		},
		{
			EventType:     "order.payment_received",
			AggregateType: "order",
			Operations:    []string{"Log payment", "Update order status"},
			Description:   "Record payment transactions",
		},
		{
			EventType:     "order.status_changed",
			AggregateType: "order",
			Operations:    []string{"Log status change"},
			Description:   "Track order status transitions",
		},
		{
			EventType:     "order.fulfilled",
			AggregateType: "order",
			Operations:    []string{"Log fulfillment", "Send shipping notification"},
			Description:   "Process order fulfillment",
		},
		{
			EventType:     "order.cancelled",
			AggregateType: "order",
			Operations:    []string{"Log cancellation", "Process refund"},
			Description:   "Process order cancellation",
		},
		{
			EventType:     "customer.registered",
			AggregateType: "customer",
			Operations:    []string{"Log registration", "Send welcome email"},
			Description:   "Process new customer registration",
		},
		{
			EventType:     "customer.profile_updated",
			AggregateType: "customer",
			Operations:    []string{"Log profile update"},
			Description:   "Record customer profile changes",
		},
		{
			EventType:     "dealer.application_submitted",
			AggregateType: "dealer",
			Operations:    []string{"Log application", "Notify staff"},
			Description:   "Process dealer application",
		},
		{
			EventType:     "dealer.approved",
			AggregateType: "dealer",
			Operations:    []string{"Log approval", "Activate account"},
			Description:   "Process dealer approval",
		},
		{
			EventType:     "dealer.pricing_updated",
			AggregateType: "dealer",
			Operations:    []string{"Log pricing update"},
			Description:   "Record dealer-specific pricing changes",
		},
		{
			EventType:     "agent.decision_proposed",
			AggregateType: "decision",
			Operations:    []string{"Log decision", "Create approval task"},
			Description:   "Process AI agent decision proposal",
		},
		{
			EventType:     "agent.decision_approved",
			AggregateType: "decision",
			Operations:    []string{"Log approval", "Execute decision"},
			Description:   "Execute approved AI agent decision",
		},
		{
			EventType:     "agent.decision_rejected",
			AggregateType: "decision",
			Operations:    []string{"Log rejection"},
			Description:   "Record rejected AI agent decision",
		},
	}
}
