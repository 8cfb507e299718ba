package mariadb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hangman_bot/internal/config"
	"hangman_bot/internal/models"
	"hangman_bot/internal/puzzle"
	"hangman_bot/internal/storage"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const errDuplicateEntry = 1062

type Storage struct {
	DB *gorm.DB
}

func New(cfg config.Database) (*Storage, error) {
	const op = "storage.mariadb.New"

	db, err := gorm.Open(mysql.Open(cfg.GetDSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{DB: db}, nil
}

func (s *Storage) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Storage) Migrate() error {
	const op = "storage.mariadb.Migrate"

	if err := s.DB.AutoMigrate(&wordRow{}, &gameRow{}, &userRow{}, &stepOrderRow{}, &scoreRow{}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) ActiveGame(ctx context.Context, channelID int64) (*models.Game, error) {
	const op = "storage.mariadb.ActiveGame"

	var row gameRow
	err := s.DB.WithContext(ctx).
		Where("peer_id = ? AND status IN ?", channelID, activeStatuses).
		Order("id DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return row.toModel(), nil
}

func (s *Storage) CreateGame(ctx context.Context, channelID int64) (*models.Game, error) {
	const op = "storage.mariadb.CreateGame"

	row := gameRow{PeerID: channelID, Status: string(models.StatusPreparing)}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&gameRow{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("peer_id = ? AND status IN ?", channelID, activeStatuses).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return storage.ErrExists
		}

		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return row.toModel(), nil
}

// StartGame draws the unused word with the lowest id and starts the game
// with it in one transaction. The word stays unused when the game is no
// longer preparing.
func (s *Storage) StartGame(ctx context.Context, gameID int64, start models.GameStart) (*models.Game, *models.Word, error) {
	const op = "storage.mariadb.StartGame"

	var word wordRow
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("is_used = ?", false).
			Order("id").
			Take(&word).Error; err != nil {
			return err
		}

		res := tx.Model(&gameRow{}).
			Where("id = ? AND status = ?", gameID, models.StatusPreparing).
			Updates(map[string]any{
				"status":     string(models.StatusStarted),
				"word_id":    word.ID,
				"word_state": string(puzzle.NewMask(word.WordKey)),
				"whos_step":  start.FirstTurn,
				"turn_seq":   gorm.Expr("turn_seq + 1"),
				"deadline":   start.Deadline,
				"start_time": start.StartedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return storage.ErrStale
		}

		word.IsUsed = true
		return tx.Model(&wordRow{}).Where("id = ?", word.ID).Update("is_used", true).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	game, err := s.gameByID(ctx, gameID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return game, word.toModel(), nil
}

// SaveHit writes the revealed mask and the score entry together, and ends
// the game in the same transaction when the hit solved the word.
func (s *Storage) SaveHit(ctx context.Context, gameID int64, expect models.Turn, hit models.Hit) (*models.Game, error) {
	const op = "storage.mariadb.SaveHit"

	values := map[string]any{
		"word_state": string(hit.Mask),
		"turn_seq":   gorm.Expr("turn_seq + 1"),
		"deadline":   hit.Deadline,
	}
	if hit.EndedAt != nil {
		values["status"] = string(models.StatusFinished)
		values["end_time"] = *hit.EndedAt
		values["deadline"] = nil
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateTurn(tx, gameID, expect, values); err != nil {
			return err
		}

		row := scoreRow{GameID: hit.Score.GameID, UserID: hit.Score.PlayerID, Score: hit.Score.Points}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	game, err := s.gameByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return game, nil
}

func (s *Storage) AdvanceTurn(ctx context.Context, gameID int64, expect models.Turn, next int64, deadline time.Time) (*models.Game, error) {
	const op = "storage.mariadb.AdvanceTurn"

	if err := updateTurn(s.DB.WithContext(ctx), gameID, expect, map[string]any{
		"whos_step": next,
		"turn_seq":  gorm.Expr("turn_seq + 1"),
		"deadline":  deadline,
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	game, err := s.gameByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return game, nil
}

func (s *Storage) EndGame(ctx context.Context, gameID int64, status models.GameStatus, endedAt time.Time) error {
	const op = "storage.mariadb.EndGame"

	res := s.DB.WithContext(ctx).
		Model(&gameRow{}).
		Where("id = ? AND status IN ?", gameID, activeStatuses).
		Updates(map[string]any{
			"status":   string(status),
			"end_time": endedAt,
			"deadline": nil,
		})
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrStale)
	}

	return nil
}

func (s *Storage) GamesInProgress(ctx context.Context) ([]models.Game, error) {
	const op = "storage.mariadb.GamesInProgress"

	var rows []gameRow
	if err := s.DB.WithContext(ctx).
		Where("status = ?", models.StatusStarted).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	games := make([]models.Game, 0, len(rows))
	for i := range rows {
		games = append(games, *rows[i].toModel())
	}

	return games, nil
}

func (s *Storage) PlayerByExternalID(ctx context.Context, externalID int64) (*models.Player, error) {
	const op = "storage.mariadb.PlayerByExternalID"

	var row userRow
	err := s.DB.WithContext(ctx).Where("vk_id = ?", externalID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return row.toModel(), nil
}

func (s *Storage) CreatePlayer(ctx context.Context, externalID int64) (*models.Player, error) {
	const op = "storage.mariadb.CreatePlayer"

	row := userRow{VkID: externalID}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return nil, storage.ErrExists
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return row.toModel(), nil
}

// AppendTurn adds the player at max(step_number)+1 of the game.
func (s *Storage) AppendTurn(ctx context.Context, gameID int64, player models.Player) (models.TurnEntry, error) {
	const op = "storage.mariadb.AppendTurn"

	row := stepOrderRow{GameID: gameID, UserID: player.ID}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var joined int64
		if err := tx.Model(&stepOrderRow{}).
			Where("game_id = ? AND user_id = ?", gameID, player.ID).
			Count(&joined).Error; err != nil {
			return err
		}
		if joined > 0 {
			return storage.ErrExists
		}

		var last int
		if err := tx.Model(&stepOrderRow{}).
			Select("COALESCE(MAX(step_number), 0)").
			Where("game_id = ?", gameID).
			Scan(&last).Error; err != nil {
			return err
		}

		row.StepNumber = last + 1
		return tx.Create(&row).Error
	})
	if errors.Is(err, storage.ErrExists) || isDuplicate(err) {
		return models.TurnEntry{}, storage.ErrExists
	}
	if err != nil {
		return models.TurnEntry{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.TurnEntry{
		GameID:     gameID,
		PlayerID:   player.ID,
		ExternalID: player.ExternalID,
		Position:   row.StepNumber,
	}, nil
}

func (s *Storage) TurnOrder(ctx context.Context, gameID int64) ([]models.TurnEntry, error) {
	const op = "storage.mariadb.TurnOrder"

	var rows []turnEntryRow
	if err := s.DB.WithContext(ctx).
		Table("step_orders").
		Select("step_orders.game_id, step_orders.user_id, users.vk_id, step_orders.step_number").
		Joins("JOIN users ON users.id = step_orders.user_id").
		Where("step_orders.game_id = ?", gameID).
		Order("step_orders.step_number").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	order := make([]models.TurnEntry, 0, len(rows))
	for _, r := range rows {
		order = append(order, r.toModel())
	}

	return order, nil
}

func (s *Storage) Scores(ctx context.Context, gameID int64) ([]models.ScoreEntry, error) {
	const op = "storage.mariadb.Scores"

	var rows []scoreRow
	if err := s.DB.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	entries := make([]models.ScoreEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toModel())
	}

	return entries, nil
}

func (s *Storage) WordByID(ctx context.Context, id int64) (*models.Word, error) {
	const op = "storage.mariadb.WordByID"

	var row wordRow
	err := s.DB.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return row.toModel(), nil
}

func (s *Storage) CreateWord(ctx context.Context, key, desc string) (*models.Word, error) {
	const op = "storage.mariadb.CreateWord"

	row := wordRow{WordKey: key, Description: desc}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return nil, storage.ErrExists
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return row.toModel(), nil
}

func (s *Storage) WordByKey(ctx context.Context, key string) (*models.Word, error) {
	const op = "storage.mariadb.WordByKey"

	var row wordRow
	err := s.DB.WithContext(ctx).Where("word_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return row.toModel(), nil
}

func (s *Storage) ListWords(ctx context.Context) ([]models.Word, error) {
	const op = "storage.mariadb.ListWords"

	var rows []wordRow
	if err := s.DB.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	words := make([]models.Word, 0, len(rows))
	for i := range rows {
		words = append(words, *rows[i].toModel())
	}

	return words, nil
}

// updateTurn applies values only while the game is started and the turn
// is still the expected one.
func updateTurn(db *gorm.DB, gameID int64, expect models.Turn, values map[string]any) error {
	res := db.Model(&gameRow{}).
		Where("id = ? AND status = ? AND whos_step = ? AND turn_seq = ?",
			gameID, models.StatusStarted, expect.Player, expect.Seq).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrStale
	}
	return nil
}

func (s *Storage) gameByID(ctx context.Context, id int64) (*models.Game, error) {
	var row gameRow
	if err := s.DB.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func isDuplicate(err error) bool {
	var mysqlErr *mysqldriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == errDuplicateEntry
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
