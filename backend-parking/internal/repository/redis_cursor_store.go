package repository

import (
	"context"
	"strconv"

	pkgredis "github.com/carlosaltan18/Parkingit4-Data/pkg/redis"
)

// AuditRelayCursorKey stores the id of the last relayed audit record
const AuditRelayCursorKey = "parking:audit-relay:cursor"

// RedisCursorStore implements CursorStore as a Redis string key without expiry
type RedisCursorStore struct {
	client RedisKV
	key    string
}

// NewRedisCursorStore creates a cursor store on key
func NewRedisCursorStore(client RedisKV, key string) *RedisCursorStore {
	return &RedisCursorStore{client: client, key: key}
}

// Load returns the saved position, zero when none was saved
func (c *RedisCursorStore) Load(ctx context.Context) (int64, error) {
	val, err := c.client.Get(ctx, c.key).Result()
	if err != nil {
		if pkgredis.IsNil(err) {
			return 0, nil
		}
		return 0, storageError("load cursor", err)
	}
	pos, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, storageError("parse cursor", err)
	}
	return pos, nil
}

// Save stores position
func (c *RedisCursorStore) Save(ctx context.Context, position int64) error {
	if err := c.client.Set(ctx, c.key, strconv.FormatInt(position, 10), 0).Err(); err != nil {
		return storageError("save cursor", err)
	}
	return nil
}

var _ CursorStore = (*RedisCursorStore)(nil)
