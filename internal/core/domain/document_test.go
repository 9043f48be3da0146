package domain

import "testing"

func TestDocumentStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to DocumentStatus
		want     bool
	}{
		{StatusPending, StatusSigned, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusPending, false},
		{StatusSigned, StatusPending, false},
		{StatusSigned, StatusRejected, false},
		{StatusSigned, StatusSigned, false},
		{StatusRejected, StatusPending, false},
		{StatusRejected, StatusSigned, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
