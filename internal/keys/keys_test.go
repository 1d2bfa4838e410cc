package keys

import "testing"

func TestUniqueConstraintPK_Deterministic(t *testing.T) {
	a := UniqueConstraintPK("dish", "name", "Granola")
	b := UniqueConstraintPK("dish", "name", "Granola")
	if a != b {
		t.Errorf("same inputs produced different keys: %q vs %q", a, b)
	}
	if len(a) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(a))
	}
}

func TestUniqueConstraintPK_Distinct(t *testing.T) {
	tests := []struct {
		name string
		a, b [3]string
	}{
		{"different value", [3]string{"dish", "name", "Granola"}, [3]string{"dish", "name", "Steak"}},
		{"different field", [3]string{"dish", "name", "granola"}, [3]string{"dish", "public_id", "granola"}},
		{"different entity", [3]string{"dish", "name", "granola"}, [3]string{"menu", "name", "granola"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if UniqueConstraintPK(tt.a[0], tt.a[1], tt.a[2]) == UniqueConstraintPK(tt.b[0], tt.b[1], tt.b[2]) {
				t.Error("distinct inputs collided")
			}
		})
	}
}
