// Package store defines the persistence interface for the market engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/sipmarket/market-engine/internal/model"
)

var (
	// ErrNotFound is returned when a game or player does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when a record with the same key already exists.
	ErrConflict = errors.New("store: already exists")
)

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// --- Game operations ---

	// CreateGame persists a new game.
	CreateGame(ctx context.Context, game *model.Game) error

	// GetGame retrieves a game by its join code.
	GetGame(ctx context.Context, id string) (*model.Game, error)

	// ListGames returns all games, newest first.
	ListGames(ctx context.Context) ([]model.Game, error)

	// UpdateGame stores the game's status, round, board, and deck.
	UpdateGame(ctx context.Context, game *model.Game) error

	// --- Player operations ---

	// AddPlayer adds a player to a game.
	AddPlayer(ctx context.Context, player *model.Player) error

	// GetPlayer retrieves one player's state in a game.
	GetPlayer(ctx context.Context, gameID, playerID string) (*model.Player, error)

	// ListPlayers returns a game's players in join order.
	ListPlayers(ctx context.Context, gameID string) ([]model.Player, error)

	// UpdatePlayer stores the player's option and sip flags.
	UpdatePlayer(ctx context.Context, player *model.Player) error

	// --- Immutable bet ledger ---

	// InsertBet appends an immutable bet record.
	InsertBet(ctx context.Context, bet *model.Bet) error

	// GetBetsByGame returns all bets for a game in placement order.
	GetBetsByGame(ctx context.Context, gameID string) ([]model.Bet, error)

	// GetBetsByPlayer returns one player's bets in a game.
	GetBetsByPlayer(ctx context.Context, gameID, playerID string) ([]model.Bet, error)
}
