package dto

// PaymentRequest is the request body for purchase and authorize.
type PaymentRequest struct {
	CustomerID   string `json:"customer_id" binding:"required,uuid"`
	Amount       string `json:"amount" binding:"required"`
	Currency     string `json:"currency" binding:"required,len=3"`
	PaymentNonce string `json:"payment_nonce" binding:"required,max=512"`
}

// CaptureRequest is the request body for settling an authorization. Amount
// omitted means capture the full authorized amount.
type CaptureRequest struct {
	Amount   *string `json:"amount,omitempty"`
	Currency *string `json:"currency,omitempty"`
}

// RefundRequest is the request body for returning captured funds. Amount
// omitted means refund the remaining captured balance.
type RefundRequest struct {
	Amount       *string `json:"amount,omitempty"`
	Currency     *string `json:"currency,omitempty"`
	CardLastFour string  `json:"card_last_four" binding:"required,len=4,numeric"`
}

// OrderResponse is the response body for payment order operations.
type OrderResponse struct {
	ID            string                `json:"id"`
	CustomerID    string                `json:"customer_id"`
	Amount        string                `json:"amount"`
	Currency      string                `json:"currency"`
	Status        string                `json:"status"`
	CorrelationID string                `json:"correlation_id,omitempty"`
	Transactions  []TransactionResponse `json:"transactions"`
	CreatedAt     string                `json:"created_at"`
	UpdatedAt     string                `json:"updated_at"`
}

// TransactionResponse is one ledger entry on an order.
type TransactionResponse struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Amount               string `json:"amount"`
	Currency             string `json:"currency"`
	Status               string `json:"status"`
	GatewayTransactionID string `json:"gateway_transaction_id,omitempty"`
	ResponseCode         string `json:"response_code,omitempty"`
	ResponseMessage      string `json:"response_message,omitempty"`
	ProcessedAt          string `json:"processed_at"`
}

// RefundResponse is the response body for a refund.
type RefundResponse struct {
	ID                   string `json:"id"`
	TransactionID        string `json:"transaction_id"`
	Amount               string `json:"amount"`
	Currency             string `json:"currency"`
	Status               string `json:"status"`
	GatewayTransactionID string `json:"gateway_transaction_id,omitempty"`
	ProcessedAt          string `json:"processed_at"`
}

// CreateSubscriptionRequest opens a recurring billing agreement.
type CreateSubscriptionRequest struct {
	CustomerID         string  `json:"customer_id" binding:"required,uuid"`
	PlanCode           string  `json:"plan_code" binding:"required,safe_id,max=50"`
	ClientReference    string  `json:"client_reference" binding:"required,safe_id,max=100"`
	Amount             string  `json:"amount" binding:"required"`
	Currency           string  `json:"currency" binding:"required,len=3"`
	BillingCycle       string  `json:"billing_cycle" binding:"required,oneof=DAILY WEEKLY MONTHLY YEARLY CUSTOM"`
	IntervalDays       int     `json:"interval_days,omitempty" binding:"omitempty,gt=0"`
	TrialEnd           *string `json:"trial_end,omitempty"`
	FirstBillingAt     *string `json:"first_billing_at,omitempty"`
	PaymentMethodToken string  `json:"payment_method_token" binding:"required,max=512"`
	MaxRetryAttempts   int     `json:"max_retry_attempts,omitempty" binding:"omitempty,gte=0,lte=10"`
}

// UpdateSubscriptionRequest changes plan or billing details. Omitted fields
// keep their current value.
type UpdateSubscriptionRequest struct {
	PlanCode           *string `json:"plan_code,omitempty" binding:"omitempty,safe_id,max=50"`
	Amount             *string `json:"amount,omitempty"`
	Currency           *string `json:"currency,omitempty" binding:"omitempty,len=3"`
	PaymentMethodToken *string `json:"payment_method_token,omitempty" binding:"omitempty,max=512"`
	MaxRetryAttempts   *int    `json:"max_retry_attempts,omitempty" binding:"omitempty,gte=0,lte=10"`
	IntervalDays       *int    `json:"interval_days,omitempty" binding:"omitempty,gt=0"`
	NextBillingAt      *string `json:"next_billing_at,omitempty"`
}

// ResumeSubscriptionRequest optionally overrides the billing anchor when a
// paused subscription is resumed.
type ResumeSubscriptionRequest struct {
	NextBillingAt *string `json:"next_billing_at,omitempty"`
}

// SubscriptionResponse is the response body for subscription operations.
type SubscriptionResponse struct {
	ID               string  `json:"id"`
	CustomerID       string  `json:"customer_id"`
	PlanCode         string  `json:"plan_code"`
	ClientReference  string  `json:"client_reference"`
	Amount           string  `json:"amount"`
	Currency         string  `json:"currency"`
	BillingCycle     string  `json:"billing_cycle"`
	IntervalDays     int     `json:"interval_days,omitempty"`
	Status           string  `json:"status"`
	TrialEnd         *string `json:"trial_end,omitempty"`
	NextBillingAt    string  `json:"next_billing_at"`
	DelinquentSince  *string `json:"delinquent_since,omitempty"`
	RetryCount       int     `json:"retry_count"`
	MaxRetryAttempts int     `json:"max_retry_attempts"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

// ScheduleResponse is one billing attempt on a subscription.
type ScheduleResponse struct {
	ID            string `json:"id"`
	AttemptNumber int    `json:"attempt_number"`
	Status        string `json:"status"`
	ScheduledAt   string `json:"scheduled_at"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// DunningResponse is one failed-charge trail entry.
type DunningResponse struct {
	ID             string `json:"id"`
	ScheduledAt    string `json:"scheduled_at"`
	Status         string `json:"status"`
	FailureCode    string `json:"failure_code,omitempty"`
	FailureMessage string `json:"failure_message,omitempty"`
}

// WebhookNotification is the processor's delivery envelope.
type WebhookNotification struct {
	NotificationID string `json:"notificationId" binding:"required,max=100"`
	EventType      string `json:"eventType" binding:"required,max=100"`
	Payload        any    `json:"payload,omitempty"`
}

// WebhookAck acknowledges a delivery. Duplicate deliveries are acknowledged
// too so the processor stops redelivering.
type WebhookAck struct {
	EventID   string `json:"event_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// WebhookEventResponse exposes a stored event for inspection.
type WebhookEventResponse struct {
	ID            string  `json:"id"`
	EventID       string  `json:"event_id"`
	EventType     string  `json:"event_type"`
	Status        string  `json:"status"`
	ReceivedAt    string  `json:"received_at"`
	ProcessedAt   *string `json:"processed_at,omitempty"`
	FailureReason string  `json:"failure_reason,omitempty"`
}
