package redisstore

import "github.com/redis/go-redis/v9"

// Script results shared by the transition scripts.
const (
	resMissing = -1
	resLost    = 0
	resOK      = 1
)

// claimScript atomically moves a task from Pending to In Progress.
// KEYS: task, pending zset, from-status set, to-status set
// ARGV: id, expected status, new status, started_ms
var claimScript = redis.NewScript(
	// language=Lua
	`
	local st = redis.call('HGET', KEYS[1], 'status')
	if not st then return -1 end
	if st ~= ARGV[2] then return 0 end
	redis.call('HSET', KEYS[1], 'status', ARGV[3], 'started_ms', ARGV[4])
	redis.call('ZREM', KEYS[2], ARGV[1])
	redis.call('SMOVE', KEYS[3], KEYS[4], ARGV[1])
	return 1
	`,
)

// completeScript atomically moves an In Progress task to Completed and
// indexes it in the review queue when flagged.
// KEYS: task, from-status set, to-status set, review zset
// ARGV: id, expected, new, completed_ms, summary, result, review(0|1), review score
var completeScript = redis.NewScript(
	// language=Lua
	`
	local st = redis.call('HGET', KEYS[1], 'status')
	if not st then return -1 end
	if st ~= ARGV[2] then return 0 end
	redis.call('HSET', KEYS[1], 'status', ARGV[3], 'completed_ms', ARGV[4],
		'result_summary', ARGV[5], 'result_data', ARGV[6], 'requires_human_review', ARGV[7])
	redis.call('SMOVE', KEYS[2], KEYS[3], ARGV[1])
	if ARGV[7] == '1' then
		redis.call('ZADD', KEYS[4], ARGV[8], ARGV[1])
	end
	return 1
	`,
)

// failScript atomically moves an In Progress task to Failed.
// KEYS: task, from-status set, to-status set
// ARGV: id, expected, new, completed_ms, error
var failScript = redis.NewScript(
	// language=Lua
	`
	local st = redis.call('HGET', KEYS[1], 'status')
	if not st then return -1 end
	if st ~= ARGV[2] then return 0 end
	redis.call('HSET', KEYS[1], 'status', ARGV[3], 'completed_ms', ARGV[4], 'error_message', ARGV[5])
	redis.call('SMOVE', KEYS[2], KEYS[3], ARGV[1])
	return 1
	`,
)

// requeueScript atomically moves a Failed task back to Pending.
// KEYS: task, from-status set, to-status set, pending zset
// ARGV: id, expected, new, pending score
var requeueScript = redis.NewScript(
	// language=Lua
	`
	local st = redis.call('HGET', KEYS[1], 'status')
	if not st then return -1 end
	if st ~= ARGV[2] then return 0 end
	redis.call('HSET', KEYS[1], 'status', ARGV[3], 'started_ms', '0', 'completed_ms', '0')
	redis.call('HINCRBY', KEYS[1], 'retry_count', 1)
	redis.call('SMOVE', KEYS[2], KEYS[3], ARGV[1])
	redis.call('ZADD', KEYS[4], ARGV[4], ARGV[1])
	return 1
	`,
)

// reviewedScript marks a task in the review queue as reviewed.
// KEYS: task, review zset
// ARGV: id, completed status, notes
var reviewedScript = redis.NewScript(
	// language=Lua
	`
	local v = redis.call('HMGET', KEYS[1], 'status', 'requires_human_review', 'human_reviewed')
	if not v[1] then return -1 end
	if v[1] ~= ARGV[2] or v[2] ~= '1' or v[3] == '1' then return 0 end
	redis.call('HSET', KEYS[1], 'human_reviewed', '1', 'human_review_notes', ARGV[3])
	redis.call('ZREM', KEYS[2], ARGV[1])
	return 1
	`,
)
