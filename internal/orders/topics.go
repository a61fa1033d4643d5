package orders

const TopicOrderPlaced = "storefront.order.placed"

// PartitionKey keeps every event of one order on the same partition.
func PartitionKey(orderNumber string) []byte { return []byte(orderNumber) }
