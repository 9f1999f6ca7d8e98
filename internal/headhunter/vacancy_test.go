package headhunter

import "testing"

func TestSalaryMeetsFloor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		salary *Salary
		floor  uint
		expect bool
	}{
		{
			name:   "zero floor disables the check",
			salary: nil,
			floor:  0,
			expect: true,
		},
		{
			name:   "no salary info fails any floor",
			salary: &Salary{},
			floor:  1,
			expect: false,
		},
		{
			name:   "nil salary fails any floor",
			salary: nil,
			floor:  1,
			expect: false,
		},
		{
			name:   "usd converted above floor",
			salary: &Salary{From: 100, To: 200, Currency: "USD"},
			floor:  15000,
			expect: true,
		},
		{
			name:   "usd converted below floor",
			salary: &Salary{From: 100, To: 200, Currency: "USD"},
			floor:  20000,
			expect: false,
		},
		{
			name:   "roubles taken as is",
			salary: &Salary{From: 100000, Currency: "RUR"},
			floor:  90000,
			expect: true,
		},
		{
			name:   "unknown currency taken at face value",
			salary: &Salary{To: 5000, Currency: "XYZ"},
			floor:  10000,
			expect: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.salary.MeetsFloor(tt.floor); got != tt.expect {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestSalaryEffectiveMax(t *testing.T) {
	t.Parallel()

	s := &Salary{From: 100, To: 200, Currency: "USD"}
	if got := s.EffectiveMax(); got != 18000 {
		t.Fatalf("expected 18000, got %v", got)
	}

	s = &Salary{From: 300, To: 200, Currency: "RUR"}
	if got := s.EffectiveMax(); got != 300 {
		t.Fatalf("expected the larger bound, got %v", got)
	}
}

func TestSalaryDisplay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		salary *Salary
		expect string
	}{
		{"nil", nil, "not specified"},
		{"empty", &Salary{}, "not specified"},
		{"range", &Salary{From: 100, To: 200, Currency: "USD"}, "100 - 200 USD"},
		{"from only", &Salary{From: 100000, Currency: "RUR"}, "from 100000 RUR"},
		{"to only", &Salary{To: 250000, Currency: "RUR"}, "up to 250000 RUR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.salary.Display(); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestVacanciesFindByID(t *testing.T) {
	t.Parallel()

	v := &Vacancies{Items: []*Vacancy{{ID: "1"}, {ID: "2"}}}
	if got := v.FindByID("2"); got == nil || got.ID != "2" {
		t.Fatalf("expected vacancy 2, got %+v", got)
	}
	if got := v.FindByID("3"); got != nil {
		t.Fatalf("expected nil for unknown id, got %+v", got)
	}
}
