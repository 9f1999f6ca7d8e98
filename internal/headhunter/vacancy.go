package headhunter

import "fmt"

type Vacancies struct {
	Items []*Vacancy
}

type Vacancy struct {
	ID           string     `json:"id,omitempty"`
	Name         string     `json:"name,omitempty"`
	Area         Area       `json:"area,omitempty"`
	Salary       *Salary    `json:"salary,omitempty"`
	Experience   Dictionary `json:"experience,omitempty"`
	Schedule     Dictionary `json:"schedule,omitempty"`
	Employer     Employer   `json:"employer,omitempty"`
	AlternateURL string     `json:"alternate_url,omitempty"`
	Snippet      Snippet    `json:"snippet,omitempty"`
	PublishedAt  string     `json:"published_at,omitempty"`
	Archived     bool       `json:"archived,omitempty"`
}

type Area struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Dictionary is a generic id/name pair used by several HH.ru fields.
type Dictionary struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type Employer struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	URL     string `json:"url,omitempty"`
	Trusted bool   `json:"trusted,omitempty"`
}

type Snippet struct {
	Requirement    string `json:"requirement,omitempty"`
	Responsibility string `json:"responsibility,omitempty"`
}

type Salary struct {
	From     int    `json:"from,omitempty"`
	To       int    `json:"to,omitempty"`
	Currency string `json:"currency,omitempty"`
	Gross    bool   `json:"gross,omitempty"`
}

// currencyMultipliers holds approximate conversion rates to roubles. The
// upstream salary filter is unreliable at currency conversion, so postings
// are re-checked on our side with these rates.
var currencyMultipliers = map[string]float64{
	"RUR": 1,
	"RUB": 1,
	"USD": 90,
	"EUR": 100,
	"KZT": 0.2,
	"BYR": 30,
}

// Display renders the salary range for humans.
func (s *Salary) Display() string {
	if s == nil || (s.From == 0 && s.To == 0) {
		return "not specified"
	}

	switch {
	case s.From != 0 && s.To != 0:
		return fmt.Sprintf("%d - %d %s", s.From, s.To, s.Currency)
	case s.From != 0:
		return fmt.Sprintf("from %d %s", s.From, s.Currency)
	default:
		return fmt.Sprintf("up to %d %s", s.To, s.Currency)
	}
}

// EffectiveMax returns the upper salary bound converted to roubles.
// Unknown currencies are taken at face value.
func (s *Salary) EffectiveMax() float64 {
	if s == nil {
		return 0
	}

	max := s.From
	if s.To > max {
		max = s.To
	}

	multiplier, ok := currencyMultipliers[s.Currency]
	if !ok {
		multiplier = 1
	}

	return float64(max) * multiplier
}

// MeetsFloor reports whether the salary passes the configured minimum.
// A zero floor disables the check. Postings without salary information
// never pass a non-zero floor.
func (s *Salary) MeetsFloor(floor uint) bool {
	if floor == 0 {
		return true
	}

	if s == nil || (s.From == 0 && s.To == 0) {
		return false
	}

	return s.EffectiveMax() >= float64(floor)
}

func (v *Vacancies) Len() int {
	return len(v.Items)
}

func (v *Vacancies) FindByID(id string) *Vacancy {
	for _, vacancy := range v.Items {
		if vacancy.ID == id {
			return vacancy
		}
	}
	return nil
}
