package funding

// Notification is the inbound payment notification delivered by the virtual
// account provider. Amounts are integer minor units. TransactionReference is
// the provider's unique id for the event and serves as the idempotency key.
type Notification struct {
	TransactionReference string `json:"transactionReference"`
	PaymentReference     string `json:"paymentReference"`
	AmountPaid           int64  `json:"amountPaid"`
	PaymentStatus        string `json:"paymentStatus"`
	Currency             string `json:"currency"`
	AccountNumber        string `json:"destinationAccountNumber"`
	PayerName            string `json:"payerName"`
	PayerBank            string `json:"payerBank"`
	PaidOn               string `json:"paidOn"`
}
