package models

// Status is the transaction lifecycle state. PENDING is the only
// non-terminal state; every transition is one-way.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusRejected  Status = "REJECTED"
	StatusFailed    Status = "FAILED"
	StatusDelivered Status = "DELIVERED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusRejected, StatusFailed, StatusDelivered:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s.Valid() && s != StatusPending
}

// CanTransitionTo is the single transition predicate used by both the
// initiation and resolution paths.
func (s Status) CanTransitionTo(to Status) bool {
	return s == StatusPending && to.Terminal()
}

// TransferMethod identifies how money leaves the bank.
type TransferMethod string

const (
	MethodSelf     TransferMethod = "self"      // between the caller's own accounts
	MethodBank     TransferMethod = "bank"      // to another customer of this bank
	MethodIBAN     TransferMethod = "iban"      // external, IBAN + SWIFT
	MethodSortCode TransferMethod = "sort_code" // external, UK sort code
	MethodUSA      TransferMethod = "usa"       // external, ACH routing
)

func (m TransferMethod) Valid() bool {
	switch m {
	case MethodSelf, MethodBank, MethodIBAN, MethodSortCode, MethodUSA:
		return true
	}
	return false
}

func (m TransferMethod) External() bool {
	switch m {
	case MethodIBAN, MethodSortCode, MethodUSA:
		return true
	}
	return false
}

type TransactionType string

const (
	TypeSelfOut     TransactionType = "TRANSFER_SELF_OUT"
	TypeBankOut     TransactionType = "TRANSFER_BANK_OUT"
	TypeIBANOut     TransactionType = "TRANSFER_IBAN_OUT"
	TypeSortCodeOut TransactionType = "TRANSFER_SORT_CODE_OUT"
	TypeUSAOut      TransactionType = "TRANSFER_USA_OUT"
	TypeSelfIn      TransactionType = "TRANSFER_SELF_IN"
	TypeBankIn      TransactionType = "TRANSFER_BANK_IN"
	TypeRefund      TransactionType = "TRANSFER_REFUND"
)

// OutboundType maps a transfer method to the type tag of the record
// written at initiation.
func (m TransferMethod) OutboundType() TransactionType {
	switch m {
	case MethodSelf:
		return TypeSelfOut
	case MethodBank:
		return TypeBankOut
	case MethodIBAN:
		return TypeIBANOut
	case MethodSortCode:
		return TypeSortCodeOut
	case MethodUSA:
		return TypeUSAOut
	}
	return ""
}

// Method recovers the transfer method from a transaction type tag.
func (t TransactionType) Method() TransferMethod {
	switch t {
	case TypeSelfOut, TypeSelfIn:
		return MethodSelf
	case TypeBankOut, TypeBankIn:
		return MethodBank
	case TypeIBANOut:
		return MethodIBAN
	case TypeSortCodeOut:
		return MethodSortCode
	case TypeUSAOut:
		return MethodUSA
	}
	return ""
}

// InboundType is the paired credit type for an internal outbound record.
func (t TransactionType) InboundType() TransactionType {
	switch t {
	case TypeSelfOut:
		return TypeSelfIn
	case TypeBankOut:
		return TypeBankIn
	}
	return ""
}
