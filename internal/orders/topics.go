package orders

const (
	TopicOrderCreated = "order.created"
	TopicStockLow     = "inventory.stock.low"
)

// Partition key: order events by order id, stock events by product id, so
// each entity keeps its ordering.
func PartitionKey(id string) []byte { return []byte(id) }
