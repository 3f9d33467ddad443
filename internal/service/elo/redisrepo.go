package elo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/park285/elo-ladder-bot/internal/domain"
	coreelo "github.com/park285/elo-ladder-bot/internal/elo"
)

// redisrepo stores entries as JSON values guarded by WATCH. Sets index the
// entries per partition and per member so reads never scan the keyspace.
type redisrepo struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisRepository(rdb *redis.Client) Repository {
	return &redisrepo{rdb: rdb, now: time.Now}
}

// OpenRedis parses a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for the redis store")
	}
	opts, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func keyGameTypes(teamID string) string { return "elo:gametypes:" + teamID }

func keyPartition(p domain.Partition) string {
	return "elo:part:" + p.TeamID + ":" + p.GameTypeID + ":" + strconv.Itoa(p.TeamSize)
}

func keyEntry(k domain.EntryKey) string { return keyPartition(k.Partition) + ":" + k.MemberKey }

func keyMemberIdx(teamID, member string) string { return "elo:member:" + teamID + ":" + member }

func (r *redisrepo) RegisterGameType(ctx context.Context, teamID, name string) (*domain.GameType, error) {
	gt := &domain.GameType{
		ID:        uuid.NewString(),
		TeamID:    teamID,
		Name:      strings.TrimSpace(name),
		CreatedAt: r.now().UTC(),
	}
	raw, err := json.Marshal(gt)
	if err != nil {
		return nil, err
	}
	ok, err := r.rdb.HSetNX(ctx, keyGameTypes(teamID), gt.Name, raw).Result()
	if err != nil {
		return nil, fmt.Errorf("register game type: %w", err)
	}
	if !ok {
		return nil, ErrGameTypeExists
	}
	return gt, nil
}

func (r *redisrepo) FindGameType(ctx context.Context, teamID, name string) (*domain.GameType, error) {
	raw, err := r.rdb.HGet(ctx, keyGameTypes(teamID), strings.TrimSpace(name)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find game type: %w", err)
	}
	var gt domain.GameType
	if err := json.Unmarshal(raw, &gt); err != nil {
		return nil, err
	}
	return &gt, nil
}

func (r *redisrepo) ListGameTypes(ctx context.Context, teamID string) ([]*domain.GameType, error) {
	all, err := r.rdb.HGetAll(ctx, keyGameTypes(teamID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list game types: %w", err)
	}
	out := make([]*domain.GameType, 0, len(all))
	for _, raw := range all {
		var gt domain.GameType
		if err := json.Unmarshal([]byte(raw), &gt); err != nil {
			return nil, err
		}
		out = append(out, &gt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *redisrepo) UpdatePair(ctx context.Context, k1, k2 domain.EntryKey, initial float64, fn PairUpdateFunc) (*domain.RatingEntry, *domain.RatingEntry, error) {
	if err := validPair(k1, k2); err != nil {
		return nil, nil, err
	}
	key1, key2 := keyEntry(k1), keyEntry(k2)

	var t1, t2 *domain.RatingEntry
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		now := r.now().UTC()
		var err error
		if t1, err = loadEntry(ctx, tx, key1, k1, initial, now); err != nil {
			return err
		}
		if t2, err = loadEntry(ctx, tx, key2, k2, initial, now); err != nil {
			return err
		}
		if err := fn(t1, t2); err != nil {
			return err
		}
		t1.UpdatedAt, t2.UpdatedAt = now, now

		raw1, err := json.Marshal(t1)
		if err != nil {
			return err
		}
		raw2, err := json.Marshal(t2)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key1, raw1, 0)
			pipe.Set(ctx, key2, raw2, 0)
			part := keyPartition(k1.Partition)
			pipe.SAdd(ctx, part, k1.MemberKey, k2.MemberKey)
			for _, k := range []domain.EntryKey{k1, k2} {
				for _, m := range coreelo.Members(k.MemberKey) {
					pipe.SAdd(ctx, keyMemberIdx(k.TeamID, m), keyEntry(k))
				}
			}
			return nil
		})
		return err
	}, key1, key2)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return nil, nil, ErrConflict
		}
		return nil, nil, err
	}
	return t1, t2, nil
}

func loadEntry(ctx context.Context, tx *redis.Tx, key string, k domain.EntryKey, initial float64, now time.Time) (*domain.RatingEntry, error) {
	raw, err := tx.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return domain.NewRatingEntry(k, initial, now), nil
	}
	if err != nil {
		return nil, err
	}
	var e domain.RatingEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode rating entry %s: %w", key, err)
	}
	return &e, nil
}

func (r *redisrepo) ListPartition(ctx context.Context, p domain.Partition) ([]*domain.RatingEntry, error) {
	members, err := r.rdb.SMembers(ctx, keyPartition(p)).Result()
	if err != nil {
		return nil, fmt.Errorf("list partition: %w", err)
	}
	keys := make([]string, 0, len(members))
	for _, m := range members {
		keys = append(keys, keyEntry(domain.EntryKey{Partition: p, MemberKey: m}))
	}
	return r.loadMany(ctx, keys)
}

func (r *redisrepo) ListEntriesForMember(ctx context.Context, teamID, member string) ([]*domain.RatingEntry, error) {
	keys, err := r.rdb.SMembers(ctx, keyMemberIdx(teamID, member)).Result()
	if err != nil {
		return nil, fmt.Errorf("list member entries: %w", err)
	}
	return r.loadMany(ctx, keys)
}

func (r *redisrepo) loadMany(ctx context.Context, keys []string) ([]*domain.RatingEntry, error) {
	out := make([]*domain.RatingEntry, 0, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load rating entries: %w", err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var e domain.RatingEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			return nil, fmt.Errorf("decode rating entry %s: %w", keys[i], err)
		}
		out = append(out, &e)
	}
	return out, nil
}

func (r *redisrepo) Close() error { return r.rdb.Close() }
