package model

import (
	"errors"
	"testing"
)

func TestPatchApplyKeepsUnsetFields(t *testing.T) {
	base := Appointment{
		ID:            "a-1",
		CustomerName:  "Jane",
		CustomerEmail: "jane@example.com",
		Service:       ServiceFacial,
		Date:          "2030-05-01",
		Time:          "10:00",
		Status:        StatusPending,
	}
	newTime := "11:30"
	approved := StatusApproved

	got := Patch{Time: &newTime, Status: &approved}.Apply(base)
	if got.Time != "11:30" || got.Status != StatusApproved {
		t.Fatalf("patched fields not applied: %+v", got)
	}
	if got.CustomerName != "Jane" || got.Date != "2030-05-01" || got.Service != ServiceFacial {
		t.Fatalf("unset fields changed: %+v", got)
	}
	if base.Time != "10:00" {
		t.Fatal("Apply must not mutate its input")
	}
}

func TestPatchEmpty(t *testing.T) {
	if !(Patch{}).Empty() {
		t.Fatal("zero patch should be empty")
	}
	name := "x"
	p := Patch{CustomerName: &name}
	if p.Empty() {
		t.Fatal("patch with a name is not empty")
	}
	if p.TouchesSlot() {
		t.Fatal("name-only patch should not touch the slot")
	}
}

func TestParseStatusAndService(t *testing.T) {
	if s, err := ParseStatus(" Approved "); err != nil || s != StatusApproved {
		t.Fatalf("ParseStatus: got %q, %v", s, err)
	}
	if _, err := ParseStatus("done"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if s, err := ParseService("bridal & event glam"); err != nil || s != ServiceBridalEventGlam {
		t.Fatalf("ParseService: got %q, %v", s, err)
	}
	if _, err := ParseService("Massage"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestFilterMatches(t *testing.T) {
	a := Appointment{Date: "2030-05-01", Status: StatusApproved}
	cases := []struct {
		f    Filter
		want bool
	}{
		{Filter{}, true},
		{Filter{Status: StatusApproved}, true},
		{Filter{Status: StatusPending}, false},
		{Filter{Date: "2030-05-01", Status: StatusApproved}, true},
		{Filter{Date: "2030-05-02"}, false},
	}
	for _, tc := range cases {
		if got := tc.f.Matches(a); got != tc.want {
			t.Fatalf("Matches(%+v) = %v, want %v", tc.f, got, tc.want)
		}
	}
}
