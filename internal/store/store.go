package store

// Store owns all durable state: registered chats, delivered and hidden
// vacancy ids, favorites, per-chat settings and daily search stats.
// Every operation is a single independent statement; no caller spans tables.
type Store interface {
	RegisterChat(chatID int64) (bool, error)
	Chats() ([]int64, error)

	IsSent(vacancyID string) (bool, error)
	MarkSent(vacancyID string) error

	IsHidden(vacancyID string) (bool, error)
	Hide(vacancyID string) (bool, error)

	IsFavorite(vacancyID string) (bool, error)
	AddFavorite(fav Favorite) (bool, error)
	RemoveFavorite(vacancyID string) (bool, error)
	ListFavorites(limit int) ([]Favorite, error)

	Settings(chatID int64) (Settings, error)
	SetQuery(chatID int64, query string) error
	SetMinSalary(chatID int64, salary uint) error
	SetExperience(chatID int64, experience string) error
	SetArea(chatID int64, area string) error
	SetRemoteOnly(chatID int64, remote bool) error
	SetSearchDepth(chatID int64, depth int) error

	RecordStats(day, query string, count int, avgSalary float64, topEmployer string) error
	StatsSince(day string) ([]QueryStats, error)

	Close() error
}

// Favorite is a denormalized snapshot of a vacancy kept for the favorites
// list, so listing does not require re-fetching from the API.
type Favorite struct {
	ID       string
	Title    string
	URL      string
	Employer string
	Salary   string
}

// Settings holds the per-chat search configuration. A chat without a row
// gets the process-wide defaults unmodified.
type Settings struct {
	Query       string
	MinSalary   uint
	Experience  string
	Area        string
	RemoteOnly  bool
	SearchDepth int
}

// QueryStats is one day of aggregated search results for a single query.
type QueryStats struct {
	Day         string
	Query       string
	Count       int
	AvgSalary   float64
	TopEmployer string
}
