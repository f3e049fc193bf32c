package keys

import "strings"

// Package keys centralizes Redis key construction.
// It is kept in internal to avoid leaking key formats to public API.
// Every key of one namespace shares a hash tag so Lua scripts stay
// single-slot on Redis Cluster.

// DefaultNamespace is the hash tag used when none is configured.
const DefaultNamespace = "tasks"

// Space holds all precomputed keys for a namespace to avoid repeated concatenations.
type Space struct {
	prefix string
	// Pending is a ZSET of Pending task ids scored by priority and assignment time.
	Pending string
	// Review is a ZSET of tasks awaiting review scored by priority and completion time.
	Review string
	// All is a ZSET of every task id scored by creation time.
	All string
	// Seq is a counter giving each insert a monotonically increasing number.
	Seq string
}

// For returns a set of precomputed keys for the provided namespace.
func For(ns string) Space {
	if ns == "" {
		ns = DefaultNamespace
	}
	prefix := "supplyq:{" + ns + "}:"
	return Space{
		prefix:  prefix,
		Pending: prefix + "pending",
		Review:  prefix + "review",
		All:     prefix + "all",
		Seq:     prefix + "seq",
	}
}

// Task returns the hash key holding one task record.
func (s Space) Task(id string) string { return s.prefix + "task:" + id }

// Status returns the SET key indexing task ids in the given status.
func (s Space) Status(status string) string { return s.prefix + "status:" + status }

// Namespace parses the namespace out of a raw key (e.g. "supplyq:{tasks}:pending").
// It returns an empty string if the format is invalid.
func Namespace(key string) string {
	start := strings.Index(key, "{")
	if start == -1 {
		return ""
	}
	end := strings.Index(key, "}")
	if end == -1 || end <= start+1 {
		return ""
	}
	return key[start+1 : end]
}
