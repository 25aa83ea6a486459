package tablestatus

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   Status
		wantOK bool
	}{
		{name: "lowercase", raw: "free", want: Statuses.Free, wantOK: true},
		{name: "uppercase", raw: "REQUESTING_BILL", want: Statuses.RequestingBill, wantOK: true},
		{name: "mixedCaseWithSpaces", raw: "  Taken ", want: Statuses.Taken, wantOK: true},
		{name: "legacyAvailable", raw: "AVAILABLE", want: Statuses.Free, wantOK: true},
		{name: "unknown", raw: "closed", want: Status{Name: "closed"}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.raw)
			if ok != tt.wantOK {
				t.Errorf("Parse(%q) ok = %v, want %v", tt.raw, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestIsSelectable(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{raw: "free", want: true},
		{raw: "FREE", want: true},
		{raw: "available", want: true},
		{raw: "waiting", want: false},
		{raw: "served", want: false},
		{raw: "finished", want: false},
		{raw: "", want: false},
	}

	for _, tt := range tests {
		if got := IsSelectable(tt.raw); got != tt.want {
			t.Errorf("IsSelectable(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	if got := Statuses.RequestingBill.Label(); got != "Requesting Bill" {
		t.Errorf("Label() = %q, want %q", got, "Requesting Bill")
	}
}
