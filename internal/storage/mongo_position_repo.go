package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/annel0/tile-brawl/internal/vec"
)

// MongoConfig настройки подключения к MongoDB
type MongoConfig struct {
	URI        string // mongodb://localhost:27017
	Database   string // tile_brawl
	Collection string // player_positions
}

// DefaultMongoConfig возвращает конфигурацию по умолчанию
func DefaultMongoConfig() *MongoConfig {
	return &MongoConfig{
		URI:        "mongodb://localhost:27017",
		Database:   "tile_brawl",
		Collection: "player_positions",
	}
}

// positionDoc документ позиции; _id совпадает с именем игрока
type positionDoc struct {
	Player    string    `bson:"_id"`
	X         int       `bson:"x"`
	Y         int       `bson:"y"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func newPositionDoc(player string, cell vec.Vec2) positionDoc {
	return positionDoc{Player: player, X: cell.X, Y: cell.Y, UpdatedAt: time.Now().UTC()}
}

func (d positionDoc) cell() vec.Vec2 { return vec.Vec2{X: d.X, Y: d.Y} }

// MongoPositionRepository реализует PositionRepo на MongoDB
type MongoPositionRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoPositionRepository подключается к MongoDB и проверяет соединение
func NewMongoPositionRepository(ctx context.Context, cfg *MongoConfig) (*MongoPositionRepository, error) {
	def := DefaultMongoConfig()
	if cfg == nil {
		cfg = def
	}
	if cfg.URI == "" {
		cfg.URI = def.URI
	}
	if cfg.Database == "" {
		cfg.Database = def.Database
	}
	if cfg.Collection == "" {
		cfg.Collection = def.Collection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("не удалось проверить соединение с MongoDB: %w", err)
	}

	return &MongoPositionRepository{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Save сохраняет позицию игрока (upsert по _id)
func (r *MongoPositionRepository) Save(ctx context.Context, player string, cell vec.Vec2) error {
	if err := validPlayer(player); err != nil {
		return err
	}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": player}, newPositionDoc(player, cell),
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("ошибка сохранения позиции игрока %s: %w", player, err)
	}
	return nil
}

// Load загружает позицию игрока
func (r *MongoPositionRepository) Load(ctx context.Context, player string) (vec.Vec2, bool, error) {
	if err := validPlayer(player); err != nil {
		return vec.Vec2{}, false, err
	}
	var doc positionDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": player}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return vec.Vec2{}, false, nil
	}
	if err != nil {
		return vec.Vec2{}, false, fmt.Errorf("ошибка загрузки позиции игрока %s: %w", player, err)
	}
	return doc.cell(), true, nil
}

// Delete удаляет позицию игрока
func (r *MongoPositionRepository) Delete(ctx context.Context, player string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": player})
	if err != nil {
		return fmt.Errorf("ошибка удаления позиции игрока %s: %w", player, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, player)
	}
	return nil
}

// BatchSave сохраняет позиции одним BulkWrite; имена проверяются до записи
func (r *MongoPositionRepository) BatchSave(ctx context.Context, positions map[string]vec.Vec2) error {
	models, err := batchModels(positions)
	if err != nil || len(models) == 0 {
		return err
	}
	if _, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("ошибка пакетного сохранения позиций: %w", err)
	}
	return nil
}

func batchModels(positions map[string]vec.Vec2) ([]mongo.WriteModel, error) {
	models := make([]mongo.WriteModel, 0, len(positions))
	for player, cell := range positions {
		if err := validPlayer(player); err != nil {
			return nil, fmt.Errorf("batch: %w", err)
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": player}).
			SetReplacement(newPositionDoc(player, cell)).
			SetUpsert(true))
	}
	return models, nil
}

// Close отключается от MongoDB
func (r *MongoPositionRepository) Close() error {
	if r.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}
