package store

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()

	defaults := Settings{
		Query:       "Frontend React",
		MinSalary:   0,
		Area:        "113",
		SearchDepth: 1,
	}

	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"), defaults, zap.NewNop())
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func TestMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.db")

	s, err := NewSQLite(path, Settings{}, zap.NewNop())
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s.MarkSent("1"); err != nil {
		t.Fatalf("marking sent: %v", err)
	}
	s.Close()

	// Reopen: migrations must apply nothing new and data must survive.
	s, err = NewSQLite(path, Settings{}, zap.NewNop())
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s.Close()

	sent, err := s.IsSent("1")
	if err != nil {
		t.Fatalf("checking sent: %v", err)
	}
	if !sent {
		t.Fatal("expected vacancy to stay marked after reopen")
	}
}

func TestMarkSentIsIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	if err := s.MarkSent("42"); err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if err := s.MarkSent("42"); err != nil {
		t.Fatalf("second mark: %v", err)
	}

	sent, err := s.IsSent("42")
	if err != nil {
		t.Fatalf("checking sent: %v", err)
	}
	if !sent {
		t.Fatal("expected vacancy to be marked as sent")
	}

	sent, err = s.IsSent("43")
	if err != nil {
		t.Fatalf("checking unsent: %v", err)
	}
	if sent {
		t.Fatal("expected unknown vacancy to be unsent")
	}
}

func TestHideReportsDuplicates(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	ok, err := s.Hide("7")
	if err != nil {
		t.Fatalf("hiding: %v", err)
	}
	if !ok {
		t.Fatal("expected first hide to insert")
	}

	ok, err = s.Hide("7")
	if err != nil {
		t.Fatalf("hiding again: %v", err)
	}
	if ok {
		t.Fatal("expected second hide to report duplicate")
	}

	hidden, err := s.IsHidden("7")
	if err != nil {
		t.Fatalf("checking hidden: %v", err)
	}
	if !hidden {
		t.Fatal("expected vacancy to be hidden")
	}
}

func TestFavoritesRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	fav := Favorite{ID: "1", Title: "Go Developer", URL: "https://example.com/1", Employer: "Acme", Salary: "from 100000 RUR"}

	ok, err := s.AddFavorite(fav)
	if err != nil {
		t.Fatalf("adding favorite: %v", err)
	}
	if !ok {
		t.Fatal("expected insert on first add")
	}

	ok, err = s.AddFavorite(fav)
	if err != nil {
		t.Fatalf("adding duplicate favorite: %v", err)
	}
	if ok {
		t.Fatal("expected duplicate add to report false")
	}

	isFav, err := s.IsFavorite("1")
	if err != nil {
		t.Fatalf("checking favorite: %v", err)
	}
	if !isFav {
		t.Fatal("expected vacancy to be a favorite")
	}

	list, err := s.ListFavorites(20)
	if err != nil {
		t.Fatalf("listing favorites: %v", err)
	}
	if len(list) != 1 || list[0] != fav {
		t.Fatalf("unexpected favorites list: %+v", list)
	}

	ok, err = s.RemoveFavorite("1")
	if err != nil {
		t.Fatalf("removing favorite: %v", err)
	}
	if !ok {
		t.Fatal("expected removal to report true")
	}

	ok, err = s.RemoveFavorite("1")
	if err != nil {
		t.Fatalf("removing missing favorite: %v", err)
	}
	if ok {
		t.Fatal("expected second removal to report false")
	}
}

func TestSettingsDefaultsAndUpserts(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	settings, err := s.Settings(100)
	if err != nil {
		t.Fatalf("reading settings: %v", err)
	}
	if settings.Query != "Frontend React" || settings.Area != "113" || settings.SearchDepth != 1 {
		t.Fatalf("expected defaults for chat without a row, got %+v", settings)
	}

	if err := s.SetRemoteOnly(100, true); err != nil {
		t.Fatalf("setting remote only: %v", err)
	}

	settings, err = s.Settings(100)
	if err != nil {
		t.Fatalf("re-reading settings: %v", err)
	}
	if !settings.RemoteOnly {
		t.Fatal("expected remote_only to read back true")
	}
	// Untouched fields keep the defaults the row was seeded with.
	if settings.Query != "Frontend React" {
		t.Fatalf("expected seeded query, got %q", settings.Query)
	}

	if err := s.SetQuery(100, "Go developer, Backend"); err != nil {
		t.Fatalf("setting query: %v", err)
	}
	if err := s.SetMinSalary(100, 150000); err != nil {
		t.Fatalf("setting salary: %v", err)
	}
	if err := s.SetExperience(100, "between1And3"); err != nil {
		t.Fatalf("setting experience: %v", err)
	}
	if err := s.SetSearchDepth(100, 3); err != nil {
		t.Fatalf("setting depth: %v", err)
	}

	settings, err = s.Settings(100)
	if err != nil {
		t.Fatalf("final settings read: %v", err)
	}
	if settings.Query != "Go developer, Backend" || settings.MinSalary != 150000 ||
		settings.Experience != "between1And3" || settings.SearchDepth != 3 || !settings.RemoteOnly {
		t.Fatalf("unexpected settings: %+v", settings)
	}

	// Other chats stay on defaults.
	other, err := s.Settings(200)
	if err != nil {
		t.Fatalf("reading other chat settings: %v", err)
	}
	if other.Query != "Frontend React" || other.RemoteOnly {
		t.Fatalf("expected untouched defaults for other chat, got %+v", other)
	}
}

func TestRegisterChat(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	ok, err := s.RegisterChat(1)
	if err != nil {
		t.Fatalf("registering chat: %v", err)
	}
	if !ok {
		t.Fatal("expected first registration to insert")
	}

	ok, err = s.RegisterChat(1)
	if err != nil {
		t.Fatalf("re-registering chat: %v", err)
	}
	if ok {
		t.Fatal("expected duplicate registration to report false")
	}

	if _, err := s.RegisterChat(2); err != nil {
		t.Fatalf("registering second chat: %v", err)
	}

	chats, err := s.Chats()
	if err != nil {
		t.Fatalf("listing chats: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("expected 2 chats, got %v", chats)
	}
}

func TestRecordStatsAccumulatesCount(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	if err := s.RecordStats("2024-05-01", "Go developer", 5, 150000, "Acme"); err != nil {
		t.Fatalf("recording stats: %v", err)
	}
	if err := s.RecordStats("2024-05-01", "Go developer", 3, 160000, "Globex"); err != nil {
		t.Fatalf("recording stats again: %v", err)
	}
	if err := s.RecordStats("2024-04-01", "Go developer", 1, 100000, "Acme"); err != nil {
		t.Fatalf("recording old stats: %v", err)
	}

	stats, err := s.StatsSince("2024-05-01")
	if err != nil {
		t.Fatalf("reading stats: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected 1 row since cutoff, got %d", len(stats))
	}

	st := stats[0]
	if st.Count != 8 {
		t.Fatalf("expected accumulated count 8, got %d", st.Count)
	}
	if st.AvgSalary != 160000 || st.TopEmployer != "Globex" {
		t.Fatalf("expected derived columns refreshed, got %+v", st)
	}
}
