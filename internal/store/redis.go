package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sipmarket/market-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreateGame(ctx context.Context, g *model.Game) error {
	if err := s.primary.CreateGame(ctx, g); err != nil {
		return err
	}
	s.cache(ctx, gameKey(g.ID), g)
	return nil
}

func (s *CachedStore) UpdateGame(ctx context.Context, g *model.Game) error {
	if err := s.primary.UpdateGame(ctx, g); err != nil {
		return err
	}
	// Invalidate cache; next read will re-populate.
	s.rdb.Del(ctx, gameKey(g.ID))
	return nil
}

func (s *CachedStore) AddPlayer(ctx context.Context, p *model.Player) error {
	if err := s.primary.AddPlayer(ctx, p); err != nil {
		return err
	}
	s.rdb.Del(ctx, playersKey(p.GameID))
	return nil
}

func (s *CachedStore) UpdatePlayer(ctx context.Context, p *model.Player) error {
	if err := s.primary.UpdatePlayer(ctx, p); err != nil {
		return err
	}
	s.rdb.Del(ctx, playersKey(p.GameID))
	return nil
}

func (s *CachedStore) InsertBet(ctx context.Context, bet *model.Bet) error {
	if err := s.primary.InsertBet(ctx, bet); err != nil {
		return err
	}
	s.rdb.Del(ctx, betsKey(bet.GameID))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetGame(ctx context.Context, id string) (*model.Game, error) {
	var g model.Game
	if s.lookup(ctx, gameKey(id), &g) {
		return &g, nil
	}

	// Cache miss: read from primary.
	fresh, err := s.primary.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache(ctx, gameKey(id), fresh)
	return fresh, nil
}

func (s *CachedStore) ListPlayers(ctx context.Context, gameID string) ([]model.Player, error) {
	var players []model.Player
	if s.lookup(ctx, playersKey(gameID), &players) {
		return players, nil
	}

	players, err := s.primary.ListPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}

	s.cache(ctx, playersKey(gameID), players)
	return players, nil
}

func (s *CachedStore) GetPlayer(ctx context.Context, gameID, playerID string) (*model.Player, error) {
	players, err := s.ListPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	for _, p := range players {
		if p.PlayerID == playerID {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("player %s in game %s: %w", playerID, gameID, ErrNotFound)
}

func (s *CachedStore) GetBetsByGame(ctx context.Context, gameID string) ([]model.Bet, error) {
	var bets []model.Bet
	if s.lookup(ctx, betsKey(gameID), &bets) {
		return bets, nil
	}

	bets, err := s.primary.GetBetsByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	s.cache(ctx, betsKey(gameID), bets)
	return bets, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListGames(ctx context.Context) ([]model.Game, error) {
	return s.primary.ListGames(ctx)
}

func (s *CachedStore) GetBetsByPlayer(ctx context.Context, gameID, playerID string) ([]model.Bet, error) {
	return s.primary.GetBetsByPlayer(ctx, gameID, playerID)
}

// --- Cache helpers ---

func (s *CachedStore) lookup(ctx context.Context, key string, dst any) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *CachedStore) cache(ctx context.Context, key string, v any) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

func gameKey(id string) string        { return fmt.Sprintf("game:%s", id) }
func playersKey(gameID string) string { return fmt.Sprintf("players:%s", gameID) }
func betsKey(gameID string) string    { return fmt.Sprintf("bets:%s", gameID) }
