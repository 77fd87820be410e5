package vault

import (
	"context"
	"fmt"

	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/tokenbridge/internal/security/secretbox"
)

// Redis guarda los valores cifrados con secretbox bajo <prefix>:<field>:<uid>.
type Redis struct {
	c      *rdb.Client
	prefix string
}

func NewRedis(addr string, db int, prefix string) *Redis {
	if prefix == "" {
		prefix = "tb"
	}
	return &Redis{
		c:      rdb.NewClient(&rdb.Options{Addr: addr, DB: db}),
		prefix: prefix,
	}
}

func (r *Redis) key(uid, field string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, field, uid)
}

func (r *Redis) Put(ctx context.Context, uid, field, value string) error {
	sealed, err := secretbox.Encrypt(value)
	if err != nil {
		return err
	}
	// Sin TTL: el valor vive hasta el próximo login que lo pise.
	return r.c.Set(ctx, r.key(uid, field), sealed, 0).Err()
}

func (r *Redis) Get(ctx context.Context, uid, field string) (string, bool, error) {
	sealed, err := r.c.Get(ctx, r.key(uid, field)).Result()
	if err == rdb.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	v, err := secretbox.Decrypt(sealed)
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Redis) Close() error { return r.c.Close() }

func (r *Redis) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }
