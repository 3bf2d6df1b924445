package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sipmarket/market-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu      sync.RWMutex
	games   map[string]*model.Game
	players map[string][]model.Player // by game ID, join order
	bets    []model.Bet
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:   make(map[string]*model.Game),
		players: make(map[string][]model.Player),
	}
}

func copyGame(g *model.Game) *model.Game {
	c := *g
	c.Assets = g.Assets.Clone()
	c.Deck = model.CloneDeck(g.Deck)
	return &c
}

func (s *MemoryStore) CreateGame(_ context.Context, g *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[g.ID]; ok {
		return fmt.Errorf("game %s: %w", g.ID, ErrConflict)
	}

	// Store a copy to avoid external mutation.
	s.games[g.ID] = copyGame(g)
	return nil
}

func (s *MemoryStore) GetGame(_ context.Context, id string) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[id]
	if !ok {
		return nil, fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	return copyGame(g), nil
}

func (s *MemoryStore) ListGames(_ context.Context) ([]model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	games := make([]model.Game, 0, len(s.games))
	for _, g := range s.games {
		games = append(games, *copyGame(g))
	}
	sort.Slice(games, func(i, j int) bool { return games[i].CreatedAt.After(games[j].CreatedAt) })
	return games, nil
}

func (s *MemoryStore) UpdateGame(_ context.Context, g *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[g.ID]; !ok {
		return fmt.Errorf("game %s: %w", g.ID, ErrNotFound)
	}
	s.games[g.ID] = copyGame(g)
	return nil
}

func (s *MemoryStore) AddPlayer(_ context.Context, p *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[p.GameID]; !ok {
		return fmt.Errorf("game %s: %w", p.GameID, ErrNotFound)
	}
	for _, existing := range s.players[p.GameID] {
		if existing.PlayerID == p.PlayerID {
			return fmt.Errorf("player %s in game %s: %w", p.PlayerID, p.GameID, ErrConflict)
		}
	}
	s.players[p.GameID] = append(s.players[p.GameID], *p)
	return nil
}

func (s *MemoryStore) GetPlayer(_ context.Context, gameID, playerID string) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.players[gameID] {
		if p.PlayerID == playerID {
			c := p
			return &c, nil
		}
	}
	return nil, fmt.Errorf("player %s in game %s: %w", playerID, gameID, ErrNotFound)
}

func (s *MemoryStore) ListPlayers(_ context.Context, gameID string) ([]model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.Player{}, s.players[gameID]...), nil
}

func (s *MemoryStore) UpdatePlayer(_ context.Context, p *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	players := s.players[p.GameID]
	for i := range players {
		if players[i].PlayerID == p.PlayerID {
			players[i] = *p
			return nil
		}
	}
	return fmt.Errorf("player %s in game %s: %w", p.PlayerID, p.GameID, ErrNotFound)
}

func (s *MemoryStore) InsertBet(_ context.Context, bet *model.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bets = append(s.bets, *bet)
	return nil
}

func (s *MemoryStore) GetBetsByGame(_ context.Context, gameID string) ([]model.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bets := []model.Bet{}
	for _, b := range s.bets {
		if b.GameID == gameID {
			bets = append(bets, b)
		}
	}
	return bets, nil
}

func (s *MemoryStore) GetBetsByPlayer(_ context.Context, gameID, playerID string) ([]model.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bets := []model.Bet{}
	for _, b := range s.bets {
		if b.GameID == gameID && b.PlayerID == playerID {
			bets = append(bets, b)
		}
	}
	return bets, nil
}
