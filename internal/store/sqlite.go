package store

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite is the Store implementation backed by a local SQLite database.
type SQLite struct {
	db       *sql.DB
	defaults Settings
	logger   *zap.Logger
}

// NewSQLite opens (or creates) the database at path, runs pending migrations
// and returns a ready store. defaults are served for chats without settings.
func NewSQLite(path string, defaults Settings, logger *zap.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if err := migrate(db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db, defaults: defaults, logger: logger}, nil
}

func (s *SQLite) RegisterChat(chatID int64) (bool, error) {
	res, err := s.db.Exec(`INSERT OR IGNORE INTO chats (chat_id) VALUES (?)`, chatID)
	if err != nil {
		return false, fmt.Errorf("registering chat %d: %w", chatID, err)
	}
	return inserted(res)
}

func (s *SQLite) Chats() ([]int64, error) {
	rows, err := s.db.Query(`SELECT chat_id FROM chats ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	defer rows.Close()

	var chats []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning chat id: %w", err)
		}
		chats = append(chats, id)
	}
	return chats, rows.Err()
}

func (s *SQLite) IsSent(vacancyID string) (bool, error) {
	return s.exists(`SELECT 1 FROM sent_vacancies WHERE id = ?`, vacancyID)
}

// MarkSent records a vacancy as delivered. Repeated calls are no-ops.
func (s *SQLite) MarkSent(vacancyID string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO sent_vacancies (id) VALUES (?)`, vacancyID)
	if err != nil {
		return fmt.Errorf("marking vacancy %s as sent: %w", vacancyID, err)
	}
	return nil
}

func (s *SQLite) IsHidden(vacancyID string) (bool, error) {
	return s.exists(`SELECT 1 FROM hidden_vacancies WHERE id = ?`, vacancyID)
}

// Hide excludes a vacancy from all future cycles. Returns false when it was
// already hidden so callers can give accurate feedback.
func (s *SQLite) Hide(vacancyID string) (bool, error) {
	res, err := s.db.Exec(`INSERT OR IGNORE INTO hidden_vacancies (id) VALUES (?)`, vacancyID)
	if err != nil {
		return false, fmt.Errorf("hiding vacancy %s: %w", vacancyID, err)
	}
	return inserted(res)
}

func (s *SQLite) IsFavorite(vacancyID string) (bool, error) {
	return s.exists(`SELECT 1 FROM favorites WHERE id = ?`, vacancyID)
}

func (s *SQLite) AddFavorite(fav Favorite) (bool, error) {
	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO favorites (id, title, url, employer, salary) VALUES (?, ?, ?, ?, ?)`,
		fav.ID, fav.Title, fav.URL, fav.Employer, fav.Salary,
	)
	if err != nil {
		return false, fmt.Errorf("adding favorite %s: %w", fav.ID, err)
	}
	return inserted(res)
}

func (s *SQLite) RemoveFavorite(vacancyID string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM favorites WHERE id = ?`, vacancyID)
	if err != nil {
		return false, fmt.Errorf("removing favorite %s: %w", vacancyID, err)
	}
	return inserted(res)
}

func (s *SQLite) ListFavorites(limit int) ([]Favorite, error) {
	rows, err := s.db.Query(
		`SELECT id, title, url, employer, salary FROM favorites ORDER BY added_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	defer rows.Close()

	var favorites []Favorite
	for rows.Next() {
		var fav Favorite
		if err := rows.Scan(&fav.ID, &fav.Title, &fav.URL, &fav.Employer, &fav.Salary); err != nil {
			return nil, fmt.Errorf("scanning favorite: %w", err)
		}
		favorites = append(favorites, fav)
	}
	return favorites, rows.Err()
}

func (s *SQLite) Settings(chatID int64) (Settings, error) {
	settings := s.defaults

	var remote int
	err := s.db.QueryRow(
		`SELECT query, min_salary, experience, area, remote_only, search_depth FROM chat_settings WHERE chat_id = ?`,
		chatID,
	).Scan(&settings.Query, &settings.MinSalary, &settings.Experience, &settings.Area, &remote, &settings.SearchDepth)
	if err == sql.ErrNoRows {
		return s.defaults, nil
	}
	if err != nil {
		return s.defaults, fmt.Errorf("reading settings for chat %d: %w", chatID, err)
	}

	settings.RemoteOnly = remote != 0
	return settings, nil
}

func (s *SQLite) SetQuery(chatID int64, query string) error {
	return s.upsertSetting(chatID, "query", query)
}

func (s *SQLite) SetMinSalary(chatID int64, salary uint) error {
	return s.upsertSetting(chatID, "min_salary", salary)
}

func (s *SQLite) SetExperience(chatID int64, experience string) error {
	return s.upsertSetting(chatID, "experience", experience)
}

func (s *SQLite) SetArea(chatID int64, area string) error {
	return s.upsertSetting(chatID, "area", area)
}

func (s *SQLite) SetRemoteOnly(chatID int64, remote bool) error {
	value := 0
	if remote {
		value = 1
	}
	return s.upsertSetting(chatID, "remote_only", value)
}

func (s *SQLite) SetSearchDepth(chatID int64, depth int) error {
	return s.upsertSetting(chatID, "search_depth", depth)
}

// upsertSetting creates the settings row lazily on first mutation, seeding
// the remaining columns with the process-wide defaults.
func (s *SQLite) upsertSetting(chatID int64, column string, value any) error {
	remote := 0
	if s.defaults.RemoteOnly {
		remote = 1
	}

	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO chat_settings (chat_id, query, min_salary, experience, area, remote_only, search_depth)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		chatID,
		s.defaults.Query, s.defaults.MinSalary, s.defaults.Experience, s.defaults.Area, remote, s.defaults.SearchDepth,
	)
	if err != nil {
		return fmt.Errorf("creating settings row for chat %d: %w", chatID, err)
	}

	// column is always one of our fixed column names, never user input.
	set := fmt.Sprintf(`UPDATE chat_settings SET %s = ? WHERE chat_id = ?`, column)
	if _, err := s.db.Exec(set, value, chatID); err != nil {
		return fmt.Errorf("updating %s for chat %d: %w", column, chatID, err)
	}

	return nil
}

// RecordStats accumulates the posting count for (day, query) and refreshes
// the derived columns.
func (s *SQLite) RecordStats(day, query string, count int, avgSalary float64, topEmployer string) error {
	_, err := s.db.Exec(
		`INSERT INTO daily_stats (day, query, count, avg_salary, top_employer) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(day, query) DO UPDATE SET
			count = count + excluded.count,
			avg_salary = excluded.avg_salary,
			top_employer = excluded.top_employer`,
		day, query, count, avgSalary, topEmployer,
	)
	if err != nil {
		return fmt.Errorf("recording stats for %q on %s: %w", query, day, err)
	}
	return nil
}

func (s *SQLite) StatsSince(day string) ([]QueryStats, error) {
	rows, err := s.db.Query(
		`SELECT day, query, count, avg_salary, top_employer FROM daily_stats WHERE day >= ? ORDER BY day DESC, query`,
		day,
	)
	if err != nil {
		return nil, fmt.Errorf("reading stats since %s: %w", day, err)
	}
	defer rows.Close()

	var stats []QueryStats
	for rows.Next() {
		var st QueryStats
		if err := rows.Scan(&st.Day, &st.Query, &st.Count, &st.AvgSalary, &st.TopEmployer); err != nil {
			return nil, fmt.Errorf("scanning stats row: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) exists(query, id string) (bool, error) {
	var one int
	err := s.db.QueryRow(query, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", id, err)
	}
	return true, nil
}

func inserted(res sql.Result) (bool, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return affected > 0, nil
}
