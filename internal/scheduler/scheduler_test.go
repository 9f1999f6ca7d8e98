package scheduler

import (
	"context"
	"testing"

	"github.com/spigell/hh-notifier/internal/pipeline"
	"github.com/spigell/hh-notifier/internal/store"
	"go.uber.org/zap"
)

type fakeCycler struct {
	cycles   []int64
	catchUps []int64
	counts   map[int64]int
}

func (f *fakeCycler) RunCycle(_ context.Context, chat pipeline.Chat) (int, error) {
	f.cycles = append(f.cycles, chat.ID)
	return f.counts[chat.ID], nil
}

func (f *fakeCycler) CatchUp(_ context.Context, chat pipeline.Chat) (int, error) {
	f.catchUps = append(f.catchUps, chat.ID)
	return 0, nil
}

type chatStore struct {
	store.Store
	chats []int64
}

func (c *chatStore) Chats() ([]int64, error) { return c.chats, nil }
func (c *chatStore) Settings(int64) (store.Settings, error) {
	return store.Settings{Query: "Go"}, nil
}

func TestTickFallsBackToCatchUp(t *testing.T) {
	t.Parallel()

	cycler := &fakeCycler{counts: map[int64]int{1: 2, 2: 0}}
	s := New(&chatStore{chats: []int64{1, 2}}, cycler, "@every 10m", zap.NewNop())

	s.tick(context.Background())

	if len(cycler.cycles) != 2 {
		t.Fatalf("expected a cycle per chat, got %v", cycler.cycles)
	}

	// Only the chat with zero fresh postings gets a catch-up.
	if len(cycler.catchUps) != 1 || cycler.catchUps[0] != 2 {
		t.Fatalf("expected catch-up only for chat 2, got %v", cycler.catchUps)
	}
}

func TestTickSkipsWhenNoChats(t *testing.T) {
	t.Parallel()

	cycler := &fakeCycler{counts: map[int64]int{}}
	s := New(&chatStore{}, cycler, "@every 10m", zap.NewNop())

	s.tick(context.Background())

	if len(cycler.cycles) != 0 {
		t.Fatalf("expected no cycles without registered chats, got %v", cycler.cycles)
	}
}
