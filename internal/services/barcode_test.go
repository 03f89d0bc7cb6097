package services

import "testing"

func TestNormalizeBarcode(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{name: "ean13 with separators", raw: "4 740-123 456 789", want: "4740123456789", ok: true},
		{name: "upc12 padded to 13", raw: "012345678905", want: "0012345678905", ok: true},
		{name: "gtin14 leading zero stripped once", raw: "00012345678905", want: "0012345678905", ok: true},
		{name: "gtin14 nonzero indicator kept", raw: "10012345678905", want: "10012345678905", ok: true},
		{name: "ean8", raw: "96385074", want: "96385074", ok: true},
		{name: "ean13 plain", raw: "4740123456789", want: "4740123456789", ok: true},
		{name: "too short", raw: "1234567", want: "", ok: false},
		{name: "odd length", raw: "123456789", want: "", ok: false},
		{name: "empty", raw: "", want: "", ok: false},
		{name: "letters only", raw: "no-code", want: "", ok: false},
		{name: "too long", raw: "123456789012345", want: "", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizeBarcode(tc.raw)
			if got != tc.want || ok != tc.ok {
				t.Fatalf("NormalizeBarcode(%q) = (%q, %v), want (%q, %v)", tc.raw, got, ok, tc.want, tc.ok)
			}
		})
	}
}
