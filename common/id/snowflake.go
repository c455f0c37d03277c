package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a time-ordered unique int64 ID. Every accepted webhook
// delivery gets one so its enqueue and processing log lines correlate.
func New() int64 {
	return node.Generate().Int64()
}
