package cache

// SeenCache records keys for a bounded time so callers can cheaply skip work
// they already performed. It is a best-effort, process-local optimization:
// anything that needs a hard exactly-once guarantee must rely on a durable
// constraint, not on this cache.
type SeenCache interface {
	Seen(key string) bool
	MarkSeen(key string)
}
