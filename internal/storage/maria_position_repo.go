package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/annel0/tile-brawl/internal/vec"
)

// MariaPositionRepo реализует PositionRepo для базы данных MariaDB/MySQL.
// Использует таблицу player_positions для хранения позиций игроков.
type MariaPositionRepo struct {
	db *sql.DB
}

const upsertPosition = `
		INSERT INTO player_positions (player, x, y)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE
			x = VALUES(x),
			y = VALUES(y),
			updated_at = CURRENT_TIMESTAMP
	`

// NewMariaPositionRepo создает новый репозиторий позиций для MariaDB.
// Автоматически создает таблицу, если она не существует.
//
// Параметры:
//
//	dsn - строка подключения к базе данных (user:pass@tcp(host:port)/dbname)
func NewMariaPositionRepo(ctx context.Context, dsn string) (*MariaPositionRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaPositionRepo{db: db}
	if err := repo.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}

	return repo, nil
}

// createTable создает таблицу player_positions, если она не существует.
func (r *MariaPositionRepo) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS player_positions (
			player     VARCHAR(64) PRIMARY KEY,
			x          INT         NOT NULL,
			y          INT         NOT NULL,
			updated_at TIMESTAMP   DEFAULT CURRENT_TIMESTAMP
			           ON UPDATE   CURRENT_TIMESTAMP
		) ENGINE=InnoDB
	`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка создания таблицы player_positions: %w", err)
	}
	return nil
}

// Save сохраняет позицию игрока в базе данных.
// Использует INSERT ... ON DUPLICATE KEY UPDATE для обновления существующих записей.
func (r *MariaPositionRepo) Save(ctx context.Context, player string, cell vec.Vec2) error {
	if err := validPlayer(player); err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, upsertPosition, player, cell.X, cell.Y); err != nil {
		return fmt.Errorf("ошибка сохранения позиции игрока %s: %w", player, err)
	}
	return nil
}

// Load загружает позицию игрока из базы данных.
func (r *MariaPositionRepo) Load(ctx context.Context, player string) (vec.Vec2, bool, error) {
	if err := validPlayer(player); err != nil {
		return vec.Vec2{}, false, err
	}

	var cell vec.Vec2
	err := r.db.QueryRowContext(ctx, `SELECT x, y FROM player_positions WHERE player = ?`, player).Scan(&cell.X, &cell.Y)
	if errors.Is(err, sql.ErrNoRows) {
		// Позиция не найдена - первый вход игрока
		return vec.Vec2{}, false, nil
	}
	if err != nil {
		return vec.Vec2{}, false, fmt.Errorf("ошибка загрузки позиции игрока %s: %w", player, err)
	}
	return cell, true, nil
}

// Delete удаляет сохраненную позицию игрока.
func (r *MariaPositionRepo) Delete(ctx context.Context, player string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM player_positions WHERE player = ?`, player)
	if err != nil {
		return fmt.Errorf("ошибка удаления позиции игрока %s: %w", player, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества затронутых строк: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, player)
	}
	return nil
}

// BatchSave сохраняет позиции нескольких игроков в одной транзакции.
func (r *MariaPositionRepo) BatchSave(ctx context.Context, positions map[string]vec.Vec2) error {
	if len(positions) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback() // Откат в случае ошибки

	stmt, err := tx.PrepareContext(ctx, upsertPosition)
	if err != nil {
		return fmt.Errorf("ошибка подготовки запроса: %w", err)
	}
	defer stmt.Close()

	for player, cell := range positions {
		if err := validPlayer(player); err != nil {
			return fmt.Errorf("batch: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, player, cell.X, cell.Y); err != nil {
			return fmt.Errorf("ошибка сохранения позиции игрока %s в batch: %w", player, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// Close закрывает соединение с базой данных.
func (r *MariaPositionRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
