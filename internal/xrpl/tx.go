package xrpl

// Transaction is a ledger transaction ready for signing and submission.
type Transaction interface {
	TransactionType() string
	TxJSON() map[string]interface{}
}

// EscrowCreate locks drops from Account for Destination until FinishAfter.
type EscrowCreate struct {
	Account     string
	Destination string
	AmountDrops string
	FinishAfter int64 // Unix time; converted to ripple epoch on the wire
}

func (t *EscrowCreate) TransactionType() string { return "EscrowCreate" }

func (t *EscrowCreate) TxJSON() map[string]interface{} {
	return map[string]interface{}{
		"TransactionType": t.TransactionType(),
		"Account":         t.Account,
		"Destination":     t.Destination,
		"Amount":          t.AmountDrops,
		"FinishAfter":     UnixToRippleTime(t.FinishAfter),
	}
}

// EscrowFinish releases a previously created escrow to its destination.
type EscrowFinish struct {
	Account       string
	Owner         string
	OfferSequence uint32
}

func (t *EscrowFinish) TransactionType() string { return "EscrowFinish" }

func (t *EscrowFinish) TxJSON() map[string]interface{} {
	return map[string]interface{}{
		"TransactionType": t.TransactionType(),
		"Account":         t.Account,
		"Owner":           t.Owner,
		"OfferSequence":   t.OfferSequence,
	}
}

// EscrowCancel returns escrowed funds to the owner after expiry.
type EscrowCancel struct {
	Account       string
	Owner         string
	OfferSequence uint32
}

func (t *EscrowCancel) TransactionType() string { return "EscrowCancel" }

func (t *EscrowCancel) TxJSON() map[string]interface{} {
	return map[string]interface{}{
		"TransactionType": t.TransactionType(),
		"Account":         t.Account,
		"Owner":           t.Owner,
		"OfferSequence":   t.OfferSequence,
	}
}

// Clawback registers the issuer's right to reclaim funds from Holder if the
// loan is not repaid.
type Clawback struct {
	Issuer string
	Holder string
	Amount string
}

func (t *Clawback) TransactionType() string { return "Clawback" }

func (t *Clawback) TxJSON() map[string]interface{} {
	return map[string]interface{}{
		"TransactionType": t.TransactionType(),
		"Account":         t.Issuer,
		"Amount": map[string]interface{}{
			"issuer": t.Holder,
			"value":  t.Amount,
		},
	}
}

// Payment moves drops between two accounts.
type Payment struct {
	Account     string
	Destination string
	AmountDrops string
}

func (t *Payment) TransactionType() string { return "Payment" }

func (t *Payment) TxJSON() map[string]interface{} {
	return map[string]interface{}{
		"TransactionType": t.TransactionType(),
		"Account":         t.Account,
		"Destination":     t.Destination,
		"Amount":          t.AmountDrops,
	}
}
