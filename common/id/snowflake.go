package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID (0-1023).
// It must be called once at startup before NewString. The server and worker
// use different node IDs so ids minted by either never collide.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// NewString returns a new Snowflake ID in its decimal string form, the
// representation used for session, recommendation and insight IDs.
func NewString() string {
	return node.Generate().String()
}
