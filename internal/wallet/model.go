package wallet

import "time"

// Wallet is a user's spendable balance, funded through a dedicated virtual
// bank account. Balance is held in minor currency units and is never
// negative.
type Wallet struct {
	ID             string
	OwnerID        string
	VirtualAccount string
	Currency       string
	Balance        int64
	Status         string
	CreatedAt      time.Time
}
