package fold

import "testing"

func TestString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Bão Lũ", "bao lu"},
		{"  Quảng   Ngãi ", "quang ngai"},
		{"Đà Nẵng", "da nang"},
		{"THỪA THIÊN HUẾ", "thua thien hue"},
		{"plain ascii", "plain ascii"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := String(tt.in); got != tt.want {
				t.Errorf("String(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestContains(t *testing.T) {
	if !Contains("Mưa lũ gây ngập sâu tại Huế", "NGAP") {
		t.Error("expected folded match for NGAP")
	}
	if !Contains("Cứu trợ bão lũ miền Trung", "cuu tro") {
		t.Error("expected folded match for cuu tro")
	}
	if Contains("nắng đẹp", "lũ") {
		t.Error("unexpected match")
	}
	if Contains("anything", "   ") {
		t.Error("blank needle must not match")
	}
}

func TestContainsAny(t *testing.T) {
	if !ContainsAny("Sạt lở đất ở Lào Cai", []string{"bão", "sạt lở"}) {
		t.Error("expected match on second needle")
	}
	if ContainsAny("Giá vàng hôm nay", []string{"bão", "lũ"}) {
		t.Error("unexpected match")
	}
	if ContainsAny("bão", nil) {
		t.Error("nil needles must not match")
	}
}
