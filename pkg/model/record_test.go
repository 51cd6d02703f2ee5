package model

import "testing"

func TestValidChamber(t *testing.T) {
	for _, c := range []string{"house", "senate", "joint"} {
		if !ValidChamber(c) {
			t.Errorf("expected %s to be valid", c)
		}
	}
	for _, c := range []string{"House", "Plenary", ""} {
		if ValidChamber(c) {
			t.Errorf("expected %q to be invalid", c)
		}
	}
}

func TestValidDate(t *testing.T) {
	cases := map[string]bool{
		"2024-01-20": true,
		"1789-03-04": true,
		"1789-03-03": false, // before MinDate
		"2024-02-30": false, // not a real calendar date
		"not-a-date": false,
		"":           false,
	}
	for in, want := range cases {
		if got := ValidDate(in); got != want {
			t.Errorf("ValidDate(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-01-20T15:04:05Z", "2024-01-20", true},
		{"2024-01-20T15:04:05-05:00", "2024-01-20", true},
		{"2024-01-20", "2024-01-20", true},
		{"garbage", "", false},
		{"1700-01-01T00:00:00Z", "", false}, // before MinDate
	}
	for _, tc := range cases {
		got, ok := NormalizeDate(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("NormalizeDate(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestRecordClone(t *testing.T) {
	r := Record{
		ID:     "118-hr-100",
		Extras: map[string]any{"title": "A Bill"},
	}
	cloned := r.Clone()
	cloned.Extras["title"] = "Changed"

	if r.Extras["title"] != "A Bill" {
		t.Error("Clone should not alias the original Extras map")
	}
}
