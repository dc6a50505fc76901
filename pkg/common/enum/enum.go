package enum

type KVStoreType string

const (
	KVStoreTypeBadger KVStoreType = "badger"
	KVStoreTypeConsul KVStoreType = "consul"
	KVStoreTypeRedis  KVStoreType = "redis"
)

// EmitterType selects where fired trigger items are published.
type EmitterType string

const (
	EmitterTypeNATS EmitterType = "nats"
	EmitterTypeLog  EmitterType = "log"
)
