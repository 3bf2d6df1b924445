package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sipmarket/market-engine/internal/model"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Sip amounts are stored as NUMERIC; rules, board, and deck as JSONB.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// mapErr converts driver errors into the store's sentinels.
func mapErr(err error, what string) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.As(err, &pgErr) && pgErr.Code == uniqueViolation:
		return fmt.Errorf("%s: %w", what, ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (s *PostgresStore) CreateGame(ctx context.Context, g *model.Game) error {
	rules, assets, deck, err := encodeGame(g)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO games (id, status, rules, assets, deck, round, call_window_open, put_window_open, created_by, created_at)
		 VALUES ($1, $2, $3::JSONB, $4::JSONB, $5::JSONB, $6, $7, $8, $9, $10)`,
		g.ID, string(g.Status), rules, assets, deck, g.Round, g.CallWindowOpen, g.PutWindowOpen, g.CreatedBy, g.CreatedAt,
	)
	if err != nil {
		return mapErr(err, "create game "+g.ID)
	}
	return nil
}

const selectGame = `SELECT id, status, rules, assets, deck, round, call_window_open, put_window_open, created_by, created_at FROM games`

func (s *PostgresStore) GetGame(ctx context.Context, id string) (*model.Game, error) {
	g, err := scanGame(s.pool.QueryRow(ctx, selectGame+` WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "get game "+id)
	}
	return g, nil
}

func (s *PostgresStore) ListGames(ctx context.Context) ([]model.Game, error) {
	rows, err := s.pool.Query(ctx, selectGame+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := []model.Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}

func (s *PostgresStore) UpdateGame(ctx context.Context, g *model.Game) error {
	_, assets, deck, err := encodeGame(g)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE games
		 SET status = $2, assets = $3::JSONB, deck = $4::JSONB, round = $5,
		     call_window_open = $6, put_window_open = $7
		 WHERE id = $1`,
		g.ID, string(g.Status), assets, deck, g.Round, g.CallWindowOpen, g.PutWindowOpen,
	)
	if err != nil {
		return mapErr(err, "update game "+g.ID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update game %s: %w", g.ID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) AddPlayer(ctx context.Context, p *model.Player) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO players (game_id, player_id, nickname, call_decision, call_asset, put_option_used, sips_taken, joined_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.GameID, p.PlayerID, p.Nickname,
		callDecision(p.CallOption), string(p.CallOption.Asset),
		p.PutOptionUsed, p.SipsTaken, p.JoinedAt,
	)
	if err != nil {
		return mapErr(err, fmt.Sprintf("add player %s to game %s", p.PlayerID, p.GameID))
	}
	return nil
}

const selectPlayer = `SELECT game_id, player_id, nickname, call_decision, call_asset, put_option_used, sips_taken, joined_at FROM players`

func (s *PostgresStore) GetPlayer(ctx context.Context, gameID, playerID string) (*model.Player, error) {
	p, err := scanPlayer(s.pool.QueryRow(ctx, selectPlayer+` WHERE game_id = $1 AND player_id = $2`, gameID, playerID))
	if err != nil {
		return nil, mapErr(err, fmt.Sprintf("get player %s in game %s", playerID, gameID))
	}
	return p, nil
}

func (s *PostgresStore) ListPlayers(ctx context.Context, gameID string) ([]model.Player, error) {
	rows, err := s.pool.Query(ctx, selectPlayer+` WHERE game_id = $1 ORDER BY joined_at`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := []model.Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

func (s *PostgresStore) UpdatePlayer(ctx context.Context, p *model.Player) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE players
		 SET nickname = $3, call_decision = $4, call_asset = $5, put_option_used = $6, sips_taken = $7
		 WHERE game_id = $1 AND player_id = $2`,
		p.GameID, p.PlayerID, p.Nickname,
		callDecision(p.CallOption), string(p.CallOption.Asset),
		p.PutOptionUsed, p.SipsTaken,
	)
	if err != nil {
		return mapErr(err, "update player "+p.PlayerID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update player %s in game %s: %w", p.PlayerID, p.GameID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) InsertBet(ctx context.Context, b *model.Bet) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO bets (id, game_id, player_id, asset, amount, type, put_option_player, created_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6, $7, $8)`,
		b.ID, b.GameID, b.PlayerID, string(b.Asset), b.Amount.String(),
		string(b.Type), b.PutOptionPlayer, b.CreatedAt,
	)
	if err != nil {
		return mapErr(err, "insert bet "+b.ID)
	}
	return nil
}

const selectBet = `SELECT id, game_id, player_id, asset, amount::TEXT, type, put_option_player, created_at FROM bets`

func (s *PostgresStore) GetBetsByGame(ctx context.Context, gameID string) ([]model.Bet, error) {
	rows, err := s.pool.Query(ctx, selectBet+` WHERE game_id = $1 ORDER BY created_at`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBets(rows)
}

func (s *PostgresStore) GetBetsByPlayer(ctx context.Context, gameID, playerID string) ([]model.Bet, error) {
	rows, err := s.pool.Query(ctx, selectBet+` WHERE game_id = $1 AND player_id = $2 ORDER BY created_at`, gameID, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBets(rows)
}

func encodeGame(g *model.Game) (rules, assets, deck string, err error) {
	r, err := json.Marshal(g.Rules)
	if err != nil {
		return "", "", "", fmt.Errorf("encode rules: %w", err)
	}
	a, err := json.Marshal(g.Assets)
	if err != nil {
		return "", "", "", fmt.Errorf("encode assets: %w", err)
	}
	d := g.Deck
	if d == nil {
		d = []model.MarketEventCard{}
	}
	dk, err := json.Marshal(d)
	if err != nil {
		return "", "", "", fmt.Errorf("encode deck: %w", err)
	}
	return string(r), string(a), string(dk), nil
}

func callDecision(c model.CallOption) string {
	if c.IsUndecided() {
		return string(model.CallUndecided)
	}
	return string(c.Decision)
}

func scanGame(row pgx.Row) (*model.Game, error) {
	var g model.Game
	var status string
	var rules, assets, deck []byte
	if err := row.Scan(&g.ID, &status, &rules, &assets, &deck, &g.Round, &g.CallWindowOpen, &g.PutWindowOpen, &g.CreatedBy, &g.CreatedAt); err != nil {
		return nil, err
	}
	g.Status = model.GameStatus(status)
	if err := json.Unmarshal(rules, &g.Rules); err != nil {
		return nil, fmt.Errorf("decode rules of game %s: %w", g.ID, err)
	}
	if err := json.Unmarshal(assets, &g.Assets); err != nil {
		return nil, fmt.Errorf("decode assets of game %s: %w", g.ID, err)
	}
	if err := json.Unmarshal(deck, &g.Deck); err != nil {
		return nil, fmt.Errorf("decode deck of game %s: %w", g.ID, err)
	}
	return &g, nil
}

func scanPlayer(row pgx.Row) (*model.Player, error) {
	var p model.Player
	var decision, asset string
	if err := row.Scan(&p.GameID, &p.PlayerID, &p.Nickname, &decision, &asset,
		&p.PutOptionUsed, &p.SipsTaken, &p.JoinedAt); err != nil {
		return nil, err
	}
	p.CallOption = model.CallOption{Decision: model.CallDecision(decision), Asset: model.Asset(asset)}
	return &p, nil
}

func scanBets(rows pgx.Rows) ([]model.Bet, error) {
	bets := []model.Bet{}
	for rows.Next() {
		var b model.Bet
		var asset, amount, typ string

		if err := rows.Scan(&b.ID, &b.GameID, &b.PlayerID, &asset, &amount,
			&typ, &b.PutOptionPlayer, &b.CreatedAt); err != nil {
			return nil, err
		}

		b.Asset = model.Asset(asset)
		b.Type = model.BetType(typ)
		b.Amount, _ = decimal.NewFromString(amount)

		bets = append(bets, b)
	}
	return bets, rows.Err()
}
