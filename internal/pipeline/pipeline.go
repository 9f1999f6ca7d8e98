package pipeline

import (
	"context"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spigell/hh-notifier/internal/ai"
	"github.com/spigell/hh-notifier/internal/headhunter"
	"github.com/spigell/hh-notifier/internal/store"
	"github.com/spigell/hh-notifier/internal/utils"
	"go.uber.org/zap"
)

const (
	// Capacity of the posting cache serving favorite/hide callbacks.
	// A miss degrades to an identifier-only stub, so the bound is a
	// memory cap, not a correctness requirement.
	cacheSize = 256

	// Max postings delivered by a single catch-up cycle.
	defaultCatchUpLimit = 5
)

var now = time.Now

// fetcher is satisfied by *Fetcher; split out so tests can fake the source.
type fetcher interface {
	Fetch(query string, filters Filters) []*headhunter.Vacancy
}

// Sender delivers a rendered posting to a chat.
type Sender interface {
	SendVacancy(ctx context.Context, chatID int64, v *headhunter.Vacancy, assessment *ai.Assessment, favorite bool) error
}

// Chat is the explicit delivery target for one cycle: the channel id plus
// the settings snapshot taken at cycle start.
type Chat struct {
	ID       int64
	Settings store.Settings
}

// Config tunes a pipeline instance.
type Config struct {
	ScoringEnabled bool
	MinScore       int
	SendDelay      time.Duration
	CatchUpLimit   int
}

// Pipeline orchestrates one delivery cycle: fetch, drop hidden and already
// sent postings, score the rest, deliver survivors and mark them sent.
type Pipeline struct {
	fetcher fetcher
	store   store.Store
	scorer  ai.Scorer
	sender  Sender
	cache   *lru.Cache[string, *headhunter.Vacancy]
	cfg     Config
	logger  *zap.Logger
}

// New creates a pipeline. scorer may be nil when scoring is disabled.
func New(f fetcher, st store.Store, scorer ai.Scorer, sender Sender, cfg Config, logger *zap.Logger) (*Pipeline, error) {
	cache, err := lru.New[string, *headhunter.Vacancy](cacheSize)
	if err != nil {
		return nil, err
	}

	if cfg.CatchUpLimit <= 0 {
		cfg.CatchUpLimit = defaultCatchUpLimit
	}

	return &Pipeline{
		fetcher: f,
		store:   st,
		scorer:  scorer,
		sender:  sender,
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// SplitQueries splits a comma-joined multi-query string.
func SplitQueries(s string) []string {
	var queries []string
	for _, q := range strings.Split(s, ",") {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	return queries
}

// Cached returns the last-seen payload for a delivered posting. The cache is
// process-lifetime only; after a restart callers fall back to an id stub.
func (p *Pipeline) Cached(id string) (*headhunter.Vacancy, bool) {
	return p.cache.Get(id)
}

// RunCycle runs one incremental cycle for the chat: page 0 of every
// configured query, oldest postings first. Returns the number of postings
// actually rendered.
func (p *Pipeline) RunCycle(ctx context.Context, chat Chat) (int, error) {
	delivered := 0
	for _, query := range SplitQueries(chat.Settings.Query) {
		vacancies := p.fetcher.Fetch(query, p.filters(chat.Settings, 0))
		p.recordStats(query, vacancies)

		candidates := p.undelivered(vacancies, 0)

		p.logger.Info("incremental cycle",
			zap.Int64("chat_id", chat.ID),
			zap.String("query", query),
			zap.Int("initial", len(vacancies)),
			zap.Int("dropped", len(vacancies)-len(candidates)),
			zap.Int("left", len(candidates)),
		)

		for _, v := range candidates {
			sent, err := p.deliver(ctx, chat, query, v)
			if err != nil {
				return delivered, err
			}
			if sent {
				delivered++
			}
		}
	}

	return delivered, nil
}

// CatchUp pages deeper into results when the incremental cycle found
// nothing new. Page 0 retention upstream is limited, so without this a
// chat with an exhausted first page would report "nothing new" forever.
func (p *Pipeline) CatchUp(ctx context.Context, chat Chat) (int, error) {
	depth := chat.Settings.SearchDepth
	if depth < 1 {
		depth = 1
	}

	delivered := 0
	for _, query := range SplitQueries(chat.Settings.Query) {
		var candidates []*headhunter.Vacancy

		for page := 0; page < depth; page++ {
			vacancies := p.fetcher.Fetch(query, p.filters(chat.Settings, uint(page)))
			if len(vacancies) == 0 {
				break
			}

			candidates = append(candidates, p.undelivered(vacancies, p.cfg.CatchUpLimit-len(candidates))...)
			if len(candidates) >= p.cfg.CatchUpLimit {
				break
			}
		}

		p.logger.Info("catch-up cycle",
			zap.Int64("chat_id", chat.ID),
			zap.String("query", query),
			zap.Int("depth", depth),
			zap.Int("candidates", len(candidates)),
		)

		for _, v := range candidates {
			sent, err := p.deliver(ctx, chat, query, v)
			if err != nil {
				return delivered, err
			}
			if sent {
				delivered++
			}
		}
	}

	return delivered, nil
}

func (p *Pipeline) filters(settings store.Settings, page uint) Filters {
	return Filters{
		MinSalary:  settings.MinSalary,
		Experience: settings.Experience,
		Area:       settings.Area,
		RemoteOnly: settings.RemoteOnly,
		Page:       page,
	}
}

// undelivered walks postings oldest to newest (pages arrive newest first,
// so delivery order within a batch stays chronological) and keeps the ones
// neither hidden nor already sent. A non-positive limit means no limit.
func (p *Pipeline) undelivered(vacancies []*headhunter.Vacancy, limit int) []*headhunter.Vacancy {
	var kept []*headhunter.Vacancy

	for i := len(vacancies) - 1; i >= 0; i-- {
		v := vacancies[i]
		if v.ID == "" {
			continue
		}

		hidden, err := p.store.IsHidden(v.ID)
		if err != nil {
			p.logger.Error("hidden check failed", zap.String("vacancy_id", v.ID), zap.Error(err))
			continue
		}
		if hidden {
			continue
		}

		sent, err := p.store.IsSent(v.ID)
		if err != nil {
			p.logger.Error("sent check failed", zap.String("vacancy_id", v.ID), zap.Error(err))
			continue
		}
		if sent {
			continue
		}

		kept = append(kept, v)
		if limit > 0 && len(kept) >= limit {
			break
		}
	}

	return kept
}

// deliver scores a single posting, suppresses low scorers (marking them
// sent so they are never re-evaluated) and sends the rest. Reports whether
// the posting was actually rendered.
func (p *Pipeline) deliver(ctx context.Context, chat Chat, query string, v *headhunter.Vacancy) (bool, error) {
	assessment := p.score(ctx, v, query)

	if !ai.ShouldSend(assessment.Score, p.cfg.MinScore) {
		p.logger.Info("vacancy suppressed by score",
			zap.String("vacancy_id", v.ID),
			zap.Int("score", assessment.Score),
			zap.Int("threshold", p.cfg.MinScore),
		)
		if err := p.store.MarkSent(v.ID); err != nil {
			p.logger.Error("marking suppressed vacancy", zap.String("vacancy_id", v.ID), zap.Error(err))
		}
		return false, nil
	}

	p.cache.Add(v.ID, v)

	favorite, err := p.store.IsFavorite(v.ID)
	if err != nil {
		p.logger.Error("favorite check failed", zap.String("vacancy_id", v.ID), zap.Error(err))
	}

	if err := p.sender.SendVacancy(ctx, chat.ID, v, assessment, favorite); err != nil {
		// Not marked sent: the posting is retried on the next cycle.
		p.logger.Error("delivery failed",
			zap.Int64("chat_id", chat.ID),
			zap.String("vacancy_id", v.ID),
			zap.Error(err),
		)
		return false, nil
	}

	if err := p.store.MarkSent(v.ID); err != nil {
		p.logger.Error("marking delivered vacancy", zap.String("vacancy_id", v.ID), zap.Error(err))
	}

	// Fixed pause between messages to respect outbound rate limits.
	if err := utils.WaitFor(ctx, p.cfg.SendDelay); err != nil {
		return true, err
	}

	return true, nil
}

// score applies the fail-open policy: a missing or broken scorer yields an
// unavailable assessment, which always passes the gate.
func (p *Pipeline) score(ctx context.Context, v *headhunter.Vacancy, query string) *ai.Assessment {
	if !p.cfg.ScoringEnabled || p.scorer == nil {
		return &ai.Assessment{Score: ai.Unavailable}
	}

	assessment, err := p.scorer.Score(ctx, v, query)
	if err != nil {
		p.logger.Warn("scoring failed, delivering anyway",
			zap.String("vacancy_id", v.ID),
			zap.Error(err),
		)
		return &ai.Assessment{Score: ai.Unavailable}
	}

	return assessment
}

func (p *Pipeline) recordStats(query string, vacancies []*headhunter.Vacancy) {
	if len(vacancies) == 0 {
		return
	}

	var salarySum float64
	salaries := 0
	employers := make(map[string]int)

	for _, v := range vacancies {
		if max := v.Salary.EffectiveMax(); max > 0 {
			salarySum += max
			salaries++
		}
		if v.Employer.Name != "" {
			employers[v.Employer.Name]++
		}
	}

	var avg float64
	if salaries > 0 {
		avg = salarySum / float64(salaries)
	}

	top := ""
	best := 0
	for name, count := range employers {
		if count > best {
			top, best = name, count
		}
	}

	day := now().Format("2006-01-02")
	if err := p.store.RecordStats(day, query, len(vacancies), avg, top); err != nil {
		p.logger.Error("recording daily stats", zap.String("query", query), zap.Error(err))
	}
}
