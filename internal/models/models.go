package models

// All lists every model managed by AutoMigrate, parents first.
func All() []any {
	return []any{
		&Profile{},
		&Plan{},
		&Subscription{},
		&SubscriptionLog{},
		&AdditionalReportsPurchase{},
		&PlanPurchase{},
		&Notification{},
		&PaymentGateway{},
		&AdminLog{},
		&PaymentNotificationLog{},
	}
}
