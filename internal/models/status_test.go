package models

import "testing"

func TestStatusTransitions(t *testing.T) {
	t.Parallel()

	terminal := []Status{StatusCompleted, StatusRejected, StatusFailed, StatusDelivered}

	for _, to := range terminal {
		if !StatusPending.CanTransitionTo(to) {
			t.Errorf("PENDING should transition to %s", to)
		}
	}

	// Terminal states never transition anywhere, including back to PENDING.
	for _, from := range terminal {
		for _, to := range append(terminal, StatusPending) {
			if from.CanTransitionTo(to) {
				t.Errorf("%s should not transition to %s", from, to)
			}
		}
	}

	if StatusPending.CanTransitionTo(StatusPending) {
		t.Error("PENDING to PENDING is not a transition")
	}
	if StatusPending.CanTransitionTo(Status("bogus")) {
		t.Error("unknown target status must be rejected")
	}
}

func TestMethodTypeMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		method   TransferMethod
		outbound TransactionType
		external bool
	}{
		{MethodSelf, TypeSelfOut, false},
		{MethodBank, TypeBankOut, false},
		{MethodIBAN, TypeIBANOut, true},
		{MethodSortCode, TypeSortCodeOut, true},
		{MethodUSA, TypeUSAOut, true},
	}
	for _, tc := range cases {
		if got := tc.method.OutboundType(); got != tc.outbound {
			t.Errorf("%s: outbound type %s, want %s", tc.method, got, tc.outbound)
		}
		if got := tc.method.External(); got != tc.external {
			t.Errorf("%s: external = %v, want %v", tc.method, got, tc.external)
		}
		if got := tc.outbound.Method(); got != tc.method {
			t.Errorf("%s: round-trip method %s, want %s", tc.outbound, got, tc.method)
		}
	}

	if got := TypeSelfOut.InboundType(); got != TypeSelfIn {
		t.Errorf("TypeSelfOut pair: got %s", got)
	}
	if got := TypeBankOut.InboundType(); got != TypeBankIn {
		t.Errorf("TypeBankOut pair: got %s", got)
	}
	if got := TypeIBANOut.InboundType(); got != "" {
		t.Errorf("external types have no inbound pair, got %s", got)
	}
}
