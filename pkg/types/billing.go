package types

// PlanType is the tier of a plan in the catalog.
type PlanType string

const (
	// PlanTypeAvulso is the pay-per-use tier; its subscriptions never expire.
	PlanTypeAvulso        PlanType = "avulso"
	PlanTypeMensalBasico  PlanType = "mensal_basico"
	PlanTypeMensalPro     PlanType = "mensal_pro"
	PlanTypePersonalizado PlanType = "personalizado"
)

func (t PlanType) Valid() bool {
	switch t {
	case PlanTypeAvulso, PlanTypeMensalBasico, PlanTypeMensalPro, PlanTypePersonalizado:
		return true
	}
	return false
}

// Expires reports whether subscriptions on this tier have a period end.
func (t PlanType) Expires() bool {
	return t != PlanTypeAvulso
}

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusPending, SubscriptionStatusExpired, SubscriptionStatusCancelled:
		return true
	}
	return false
}

// PaymentStatus is the lifecycle of a purchase ledger row: pending -> approved -> expired, or pending -> expired.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusExpired  PaymentStatus = "expired"
)

type SubscriptionChangeReason string

const (
	SubscriptionChangeReasonCreate     SubscriptionChangeReason = "create"
	SubscriptionChangeReasonChangePlan SubscriptionChangeReason = "change_plan"
	SubscriptionChangeReasonAdjust     SubscriptionChangeReason = "adjust"
	SubscriptionChangeReasonCredit     SubscriptionChangeReason = "credit"
	SubscriptionChangeReasonConsume    SubscriptionChangeReason = "consume"
	SubscriptionChangeReasonRenew      SubscriptionChangeReason = "renew"
	SubscriptionChangeReasonExpire     SubscriptionChangeReason = "expire"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type NotificationOrigin string

const (
	NotificationOriginAdmin  NotificationOrigin = "admin"
	NotificationOriginSystem NotificationOrigin = "system"
)
