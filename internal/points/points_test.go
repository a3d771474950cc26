package points

import "testing"

func TestFor(t *testing.T) {
	tests := []struct {
		streak int
		want   Award
	}{
		{0, Award{Base: 10, Bonus: 0, Total: 10}},
		{-7, Award{Base: 10, Bonus: 0, Total: 10}},
		{1, Award{Base: 10, Bonus: 0, Total: 10}},
		{6, Award{Base: 10, Bonus: 0, Total: 10}},
		{7, Award{Base: 10, Bonus: 5, Total: 15}},
		{8, Award{Base: 10, Bonus: 0, Total: 10}},
		{14, Award{Base: 10, Bonus: 5, Total: 15}},
		{700, Award{Base: 10, Bonus: 5, Total: 15}},
	}

	for _, tt := range tests {
		if got := For(tt.streak); got != tt.want {
			t.Errorf("For(%d) = %+v, want %+v", tt.streak, got, tt.want)
		}
	}
}

func TestRetroactiveHasNoBonus(t *testing.T) {
	got := Retroactive()
	if got.Bonus != 0 || got.Base != 10 || got.Total != 10 {
		t.Errorf("Retroactive() = %+v", got)
	}
}
