package pipeline

import (
	"strconv"
	"strings"

	"github.com/spigell/hh-notifier/internal/headhunter"
	"go.uber.org/zap"
)

const remoteSchedule = "remote"

// Filters narrows a single search request.
type Filters struct {
	MinSalary  uint
	Experience string
	Area       string
	RemoteOnly bool
	Page       uint
}

// Searcher is the slice of the HeadHunter client the fetcher needs.
type Searcher interface {
	Search(params *headhunter.SearchParams) (*headhunter.Vacancies, error)
}

// Fetcher adapts the search client to the pipeline's degrade-to-empty
// contract: a failed fetch is logged and yields no results, so a single
// bad cycle never crashes the loop.
type Fetcher struct {
	client Searcher
	logger *zap.Logger
}

func NewFetcher(client Searcher, logger *zap.Logger) *Fetcher {
	return &Fetcher{client: client, logger: logger}
}

// Fetch returns one page of postings matching the query, newest first.
// The upstream salary filter is unreliable at currency conversion, so the
// floor is re-checked client-side after fetching.
func (f *Fetcher) Fetch(query string, filters Filters) []*headhunter.Vacancy {
	params := &headhunter.SearchParams{
		Text:        query,
		SearchField: "name",
		Page:        filters.Page,
		Experience:  filters.Experience,
	}

	if filters.MinSalary > 0 {
		params.Salary = filters.MinSalary
		params.OnlyWithSalary = true
	}

	if area := strings.TrimSpace(filters.Area); area != "" {
		if id, err := strconv.Atoi(area); err == nil {
			params.Areas = []int{id}
		} else {
			f.logger.Warn("ignoring malformed area code", zap.String("area", area))
		}
	}

	if filters.RemoteOnly {
		params.Schedules = []string{remoteSchedule}
	}

	vacancies, err := f.client.Search(params)
	if err != nil {
		f.logger.Error("vacancy fetch failed",
			zap.String("query", query),
			zap.Uint("page", filters.Page),
			zap.Error(err),
		)
		return nil
	}

	kept := make([]*headhunter.Vacancy, 0, vacancies.Len())
	for _, v := range vacancies.Items {
		if v.Archived {
			continue
		}
		if !v.Salary.MeetsFloor(filters.MinSalary) {
			continue
		}
		kept = append(kept, v)
	}

	if dropped := vacancies.Len() - len(kept); dropped > 0 {
		f.logger.Debug("salary re-check dropped postings",
			zap.String("query", query),
			zap.Int("initial", vacancies.Len()),
			zap.Int("dropped", dropped),
			zap.Int("left", len(kept)),
		)
	}

	return kept
}
