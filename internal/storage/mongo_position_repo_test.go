package storage

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/annel0/tile-brawl/internal/vec"
)

var _ PositionRepo = (*MongoPositionRepository)(nil)

// TestMongoPositionRepo_Unreachable проверяет, что конструктор не возвращает
// репозиторий без живого сервера
func TestMongoPositionRepo_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	repo, err := NewMongoPositionRepository(ctx, &MongoConfig{URI: "mongodb://127.0.0.1:1"})
	if err == nil {
		repo.Close()
		t.Fatal("Ожидалась ошибка подключения к недоступному серверу")
	}
}

// TestMongoPositionRepo_ValidatesBeforeWrite проверяет, что неверные имена
// отклоняются до обращения к коллекции
func TestMongoPositionRepo_ValidatesBeforeWrite(t *testing.T) {
	repo := &MongoPositionRepository{}
	ctx := context.Background()

	if err := repo.Save(ctx, "", vec.Vec2{}); err == nil {
		t.Error("Ожидалась ошибка для пустого имени")
	}
	if _, _, err := repo.Load(ctx, string(make([]byte, 65))); err == nil {
		t.Error("Ожидалась ошибка для слишком длинного имени")
	}
	if err := repo.BatchSave(ctx, map[string]vec.Vec2{"alice": {X: 1}, "": {X: 2}}); err == nil {
		t.Error("Ожидалась ошибка для пакета с пустым именем")
	}
	if err := repo.BatchSave(ctx, nil); err != nil {
		t.Errorf("Пустой пакет не должен обращаться к базе: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Errorf("Close без клиента: %v", err)
	}
}

// TestPositionDoc_UsesPlayerAsID проверяет раскладку документа
func TestPositionDoc_UsesPlayerAsID(t *testing.T) {
	raw, err := bson.Marshal(newPositionDoc("alice", vec.Vec2{X: 3, Y: -4}))
	if err != nil {
		t.Fatalf("Ошибка сериализации: %v", err)
	}

	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		t.Fatalf("Ошибка разбора: %v", err)
	}
	if m["_id"] != "alice" {
		t.Errorf("_id = %v, ожидалось alice", m["_id"])
	}

	var doc positionDoc
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Ошибка разбора документа: %v", err)
	}
	if doc.cell() != (vec.Vec2{X: 3, Y: -4}) {
		t.Errorf("Ячейка = %v", doc.cell())
	}

	models, err := batchModels(map[string]vec.Vec2{"alice": {X: 1}, "bob": {Y: 2}})
	if err != nil {
		t.Fatalf("batchModels: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("Ожидалось 2 операции, получено %d", len(models))
	}
	if _, ok := models[0].(*mongo.ReplaceOneModel); !ok {
		t.Errorf("Ожидалась ReplaceOneModel, получено %T", models[0])
	}
}
