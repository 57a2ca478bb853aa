package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"

	"github.com/annel0/tile-brawl/internal/logging"
	"github.com/annel0/tile-brawl/internal/world"
)

var (
	// ErrLevelNotFound уровень с таким ключом не сохранён
	ErrLevelNotFound = errors.New("level not found")
	// ErrChecksum контрольная сумма записи не совпала
	ErrChecksum = errors.New("level checksum mismatch")
	// ErrStorageClosed хранилище уже закрыто
	ErrStorageClosed = errors.New("level storage closed")
)

const (
	levelKeyPrefix = "level:"
	checksumSize   = 8
)

// LevelStorage хранит уровни в BadgerDB.
// Запись: 8 байт xxhash64 (big-endian) сжатых данных, затем zstd-кадр с JSON уровня.
type LevelStorage struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool

	encoder *zstd.Encoder
	decoder *zstd.Decoder
	logger  *logging.Logger
}

// NewLevelStorage открывает хранилище в dataPath/levels.
// Пустой dataPath открывает базу в памяти.
func NewLevelStorage(dataPath string) (*LevelStorage, error) {
	var opts badger.Options
	dbPath := ""
	if dataPath == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dbPath = filepath.Join(dataPath, "levels")
		opts = badger.DefaultOptions(dbPath)
	}
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, err
	}

	return &LevelStorage{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
		encoder: encoder,
		decoder: decoder,
		logger:  logging.GetComponentLogger("storage"),
	}, nil
}

// SaveLevel сохраняет уровень под ключом key
func (ls *LevelStorage) SaveLevel(key string, lvl *world.Level) error {
	if lvl == nil {
		return errors.New("nil level")
	}
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()
	if !ls.isReady {
		return ErrStorageClosed
	}

	data, err := json.Marshal(lvl)
	if err != nil {
		return fmt.Errorf("ошибка сериализации уровня: %w", err)
	}
	record := ls.seal(data)

	err = ls.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(levelKeyPrefix+key), record)
	})
	if err != nil {
		return fmt.Errorf("ошибка записи уровня %q: %w", key, err)
	}

	ls.logger.Debug("💾 Уровень %q сохранён: %d байт JSON, %d байт на диске", key, len(data), len(record))
	return nil
}

// LoadLevel загружает уровень; ErrLevelNotFound, если ключа нет
func (ls *LevelStorage) LoadLevel(key string) (*world.Level, error) {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()
	if !ls.isReady {
		return nil, ErrStorageClosed
	}

	var record []byte
	err := ls.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(levelKeyPrefix + key))
		if err != nil {
			return err
		}
		record, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrLevelNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения уровня %q: %w", key, err)
	}

	data, err := ls.open(record)
	if err != nil {
		return nil, fmt.Errorf("уровень %q: %w", key, err)
	}

	var lvl world.Level
	if err := json.Unmarshal(data, &lvl); err != nil {
		return nil, fmt.Errorf("ошибка десериализации уровня %q: %w", key, err)
	}
	return &lvl, nil
}

// DeleteLevel удаляет уровень; отсутствие ключа не ошибка
func (ls *LevelStorage) DeleteLevel(key string) error {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()
	if !ls.isReady {
		return ErrStorageClosed
	}
	return ls.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(levelKeyPrefix + key))
	})
}

// Keys возвращает ключи сохранённых уровней
func (ls *LevelStorage) Keys() ([]string, error) {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()
	if !ls.isReady {
		return nil, ErrStorageClosed
	}

	var keys []string
	err := ls.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(levelKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return keys, err
}

// Close закрывает хранилище данных
func (ls *LevelStorage) Close() error {
	ls.mutex.Lock()
	defer ls.mutex.Unlock()

	if !ls.isReady {
		return nil
	}
	ls.isReady = false
	ls.encoder.Close()
	ls.decoder.Close()
	return ls.db.Close()
}

// seal сжимает данные и дописывает контрольную сумму спереди
func (ls *LevelStorage) seal(data []byte) []byte {
	record := make([]byte, checksumSize, checksumSize+len(data)/2)
	record = ls.encoder.EncodeAll(data, record)
	binary.BigEndian.PutUint64(record[:checksumSize], xxhash.Sum64(record[checksumSize:]))
	return record
}

// open проверяет контрольную сумму и распаковывает данные
func (ls *LevelStorage) open(record []byte) ([]byte, error) {
	if len(record) < checksumSize {
		return nil, fmt.Errorf("%w: запись короче заголовка", ErrChecksum)
	}
	body := record[checksumSize:]
	if binary.BigEndian.Uint64(record[:checksumSize]) != xxhash.Sum64(body) {
		return nil, ErrChecksum
	}
	data, err := ls.decoder.DecodeAll(body, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки: %w", err)
	}
	return data, nil
}
