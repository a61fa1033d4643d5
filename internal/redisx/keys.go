package redisx

import (
	"fmt"
	"time"
)

const (
	// idem:order:place:{user_id}:{Idempotency-Key} -> order id
	KeyIdemOrderPlace = "idem:order:place:%d:%s"

	// held while the first request with a key is placing the order
	KeyIdemOrderPending = "idem:order:place:%d:%s:pending"

	// order:{order_id} -> order with items as JSON
	KeyOrder = "order:%d"

	// dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLIdemPending = 30 * time.Second
	TTLOrderCache  = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)

func IdemOrderPlaceKey(userID int64, key string) string {
	return fmt.Sprintf(KeyIdemOrderPlace, userID, key)
}

func IdemOrderPendingKey(userID int64, key string) string {
	return fmt.Sprintf(KeyIdemOrderPending, userID, key)
}

func OrderKey(orderID int64) string { return fmt.Sprintf(KeyOrder, orderID) }

func DedupKey(service, id string) string { return fmt.Sprintf(KeyDedup, service, id) }
