package redis

import "github.com/redis/go-redis/v9"

// Every script checks the document hash first and returns nil (redis.Nil on
// the client side) when it is missing, so the existence check and the write
// happen in one atomic step.
//
// KEYS[1] is always the document hash.

// incrScript: KEYS[1]=doc, ARGV[1]=field, ARGV[2]=delta. Returns the floored post value.
var incrScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
local v = redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[2])
if v < 0 then
	redis.call('HSET', KEYS[1], ARGV[1], 0)
	v = 0
end
return v
`)

// setFieldScript: KEYS[1]=doc, ARGV[1]=field, ARGV[2]=value.
var setFieldScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1
`)

// addScript: KEYS[1]=doc, KEYS[2]=set, ARGV[1]=member.
var addScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
redis.call('SADD', KEYS[2], ARGV[1])
return 1
`)

// removeScript: KEYS[1]=doc, KEYS[2]=set, ARGV[1]=member.
var removeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
redis.call('SREM', KEYS[2], ARGV[1])
return 1
`)

// createScript: KEYS[1]=doc, KEYS[2]=registry, ARGV[1]=id, ARGV[2..]=counter fields.
// Returns 1 when the document was created, 0 when it already existed.
var createScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], 'id', ARGV[1]) == 0 then
	return 0
end
for i = 2, #ARGV do
	redis.call('HSET', KEYS[1], ARGV[i], 0)
end
redis.call('SADD', KEYS[2], ARGV[1])
return 1
`)
