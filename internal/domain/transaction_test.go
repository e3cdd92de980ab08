package domain

import "testing"

func TestStatusCanAdvanceTo(t *testing.T) {
	tests := []struct {
		name string
		from TransactionStatus
		to   TransactionStatus
		want bool
	}{
		{name: "initiated to deducted", from: StatusInitiated, to: StatusDeducted, want: true},
		{name: "deducted to credited", from: StatusDeducted, to: StatusCredited, want: true},
		{name: "credited to completed", from: StatusCredited, to: StatusCompleted, want: true},
		{name: "initiated to credited skips a step", from: StatusInitiated, to: StatusCredited, want: false},
		{name: "initiated to completed skips two steps", from: StatusInitiated, to: StatusCompleted, want: false},
		{name: "deducted back to initiated", from: StatusDeducted, to: StatusInitiated, want: false},
		{name: "initiated to failed", from: StatusInitiated, to: StatusFailed, want: true},
		{name: "deducted to failed", from: StatusDeducted, to: StatusFailed, want: true},
		{name: "credited to failed", from: StatusCredited, to: StatusFailed, want: true},
		{name: "completed never fails", from: StatusCompleted, to: StatusFailed, want: false},
		{name: "completed never moves", from: StatusCompleted, to: StatusDeducted, want: false},
		{name: "failed never recovers", from: StatusFailed, to: StatusInitiated, want: false},
		{name: "failed stays failed", from: StatusFailed, to: StatusFailed, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanAdvanceTo(tt.to); got != tt.want {
				t.Fatalf("CanAdvanceTo(%s -> %s) = %t, want %t", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	terminal := map[TransactionStatus]bool{
		StatusInitiated: false,
		StatusDeducted:  false,
		StatusCredited:  false,
		StatusCompleted: true,
		StatusFailed:    true,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Fatalf("IsTerminal(%s) = %t, want %t", status, got, want)
		}
	}
}
