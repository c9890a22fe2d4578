package logger

import "testing"

func TestMaskEmail(t *testing.T) {
	got := MaskEmail("season.ticket.holder@example.com")
	want := "****lder@example.com"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestMaskPhone(t *testing.T) {
	got := MaskPhone("+14155550142")
	want := "****0142"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestMaskPaymentReference(t *testing.T) {
	got := MaskPaymentReference("pi_3OaQ8x2eZvKYlo2C1ghYwXyz")
	want := "pi_****wXyz"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestMaskEmptyValues(t *testing.T) {
	if MaskEmail("") != "" || MaskPhone("") != "" || MaskPaymentReference("") != "" {
		t.Fatalf("expected empty values to stay empty")
	}
}
