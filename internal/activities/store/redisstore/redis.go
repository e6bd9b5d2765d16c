// Package redisstore keeps rosters in Redis. Each activity is a hash for its
// fields, a list for signup order and a set for membership checks; all three
// are updated together inside Lua scripts. The index set is the source of
// truth for which activities exist.
//
// Key layout, one namespace per kind so no activity name can address another
// activity's keys:
//
//	<prefix>:index            set of activity names
//	<prefix>:meta:<name>      hash: description, schedule, max_participants
//	<prefix>:roster:<name>    list of emails in signup order
//	<prefix>:members:<name>   set of emails
package redisstore

import (
	"context"
	"fmt"
	"strconv"

	"mergington-activities/internal/activities"

	"github.com/redis/go-redis/v9"
)

// Script return codes. -2 means "duplicate" for signup and "not on the
// roster" for unregister.
const (
	codeOK          = 1
	codeNotFound    = -1
	codeDuplicate   = -2
	codeNotSignedUp = -2
	codeFull        = -3
)

// KEYS: meta hash, roster list, members set, index set
// ARGV: name, description, schedule, max_participants, participants...
var seedScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[4], ARGV[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'description', ARGV[2], 'schedule', ARGV[3], 'max_participants', ARGV[4])
for i = 5, #ARGV do
  if redis.call('SADD', KEYS[3], ARGV[i]) == 1 then
    redis.call('RPUSH', KEYS[2], ARGV[i])
  end
end
redis.call('SADD', KEYS[4], ARGV[1])
return 1
`)

// KEYS: meta hash, roster list, members set, index set
// ARGV: name, email, enforce capacity ("1" or "0")
var signupScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[4], ARGV[1]) == 0 then
  return -1
end
if redis.call('SISMEMBER', KEYS[3], ARGV[2]) == 1 then
  return -2
end
if ARGV[3] == '1' then
  local max = tonumber(redis.call('HGET', KEYS[1], 'max_participants'))
  if max and redis.call('LLEN', KEYS[2]) >= max then
    return -3
  end
end
redis.call('SADD', KEYS[3], ARGV[2])
redis.call('RPUSH', KEYS[2], ARGV[2])
return 1
`)

// KEYS: meta hash, roster list, members set, index set
// ARGV: name, email
var unregisterScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[4], ARGV[1]) == 0 then
  return -1
end
if redis.call('SREM', KEYS[3], ARGV[2]) == 0 then
  return -2
end
redis.call('LREM', KEYS[2], 0, ARGV[2])
return 1
`)

type Store struct {
	client *redis.Client
	prefix string
}

func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "activities"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) indexKey() string { return s.prefix + ":index" }

// keys returns the meta, roster, members and index keys for name, in the
// order the scripts expect them.
func (s *Store) keys(name string) []string {
	return []string{
		s.prefix + ":meta:" + name,
		s.prefix + ":roster:" + name,
		s.prefix + ":members:" + name,
		s.indexKey(),
	}
}

func (s *Store) List(ctx context.Context) (map[string]activities.Activity, error) {
	names, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("read activity index: %w", err)
	}

	type pending struct {
		meta   *redis.MapStringStringCmd
		roster *redis.StringSliceCmd
	}
	cmds := make(map[string]pending, len(names))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, name := range names {
			k := s.keys(name)
			cmds[name] = pending{
				meta:   pipe.HGetAll(ctx, k[0]),
				roster: pipe.LRange(ctx, k[1], 0, -1),
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read activities: %w", err)
	}

	out := make(map[string]activities.Activity, len(names))
	for name, c := range cmds {
		meta := c.meta.Val()
		if len(meta) == 0 {
			continue
		}
		capacity, err := strconv.Atoi(meta["max_participants"])
		if err != nil {
			return nil, fmt.Errorf("activity %q: bad max_participants %q: %w", name, meta["max_participants"], err)
		}
		a := activities.Activity{
			Name:            name,
			Description:     meta["description"],
			Schedule:        meta["schedule"],
			MaxParticipants: capacity,
			Participants:    c.roster.Val(),
		}
		out[name] = a.Clone()
	}
	return out, nil
}

func (s *Store) AddParticipant(ctx context.Context, activityName, email string, enforceCapacity bool) error {
	enforce := "0"
	if enforceCapacity {
		enforce = "1"
	}
	code, err := signupScript.Run(ctx, s.client, s.keys(activityName), activityName, email, enforce).Int()
	if err != nil {
		return fmt.Errorf("signup script: %w", err)
	}
	switch code {
	case codeOK:
		return nil
	case codeNotFound:
		return activities.ErrNotFound
	case codeDuplicate:
		return activities.ErrAlreadySignedUp
	case codeFull:
		return activities.ErrActivityFull
	default:
		return fmt.Errorf("signup script: unexpected result %d", code)
	}
}

func (s *Store) RemoveParticipant(ctx context.Context, activityName, email string) error {
	code, err := unregisterScript.Run(ctx, s.client, s.keys(activityName), activityName, email).Int()
	if err != nil {
		return fmt.Errorf("unregister script: %w", err)
	}
	switch code {
	case codeOK:
		return nil
	case codeNotFound:
		return activities.ErrNotFound
	case codeNotSignedUp:
		return activities.ErrNotSignedUp
	default:
		return fmt.Errorf("unregister script: unexpected result %d", code)
	}
}

func (s *Store) Seed(ctx context.Context, seed []activities.Activity) (int, error) {
	added := 0
	for _, a := range seed {
		keys := s.keys(a.Name)
		args := make([]interface{}, 0, 4+len(a.Participants))
		args = append(args, a.Name, a.Description, a.Schedule, a.MaxParticipants)
		for _, p := range a.Participants {
			args = append(args, p)
		}

		n, err := seedScript.Run(ctx, s.client, keys, args...).Int()
		if err != nil {
			return added, fmt.Errorf("seed %q: %w", a.Name, err)
		}
		if n == 1 {
			added++
		}
	}
	return added, nil
}

// Ping reports whether Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
