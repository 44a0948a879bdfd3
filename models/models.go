package models

// All lists every table owned by the ledger store, in migration order.
func All() []any {
	return []any{
		&User{},
		&RewardAttempt{},
		&VideoProgress{},
		&FlashcardSessionCredit{},
		&TokenConversion{},
		&Voucher{},
		&VoucherRedemption{},
		&FlashcardReview{},
		&ReconciliationCase{},
	}
}
