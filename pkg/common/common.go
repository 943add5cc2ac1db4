package common

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

var (
	snowflakeNode *snowflake.Node
	snowflakeOnce sync.Once
	snowflakeID   int64 = 1
)

// SetNodeID sets the snowflake node id; it only takes effect before the first UUIDint64 call.
func SetNodeID(id int64) {
	if id >= 0 && id <= 1023 {
		snowflakeID = id
	}
}

// UUIDint64 returns a time-ordered unique id
func UUIDint64() int64 {
	snowflakeOnce.Do(func() {
		node, err := snowflake.NewNode(snowflakeID)
		if err != nil {
			zap.S().Errorf("snowflake node init error: %s", err.Error())
			node, _ = snowflake.NewNode(1)
		}
		snowflakeNode = node
	})
	return snowflakeNode.Generate().Int64()
}
