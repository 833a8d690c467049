package common

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/bwmarrin/snowflake"
)

var snowflakeNode *snowflake.Node

func init() {
	rand.Seed(time.Now().UnixNano())
	node, err := snowflake.NewNode(rand.Int63n(1023))
	if err != nil {
		panic(err)
	}
	snowflakeNode = node
}

// UUID returns a snowflake int64 id.
func UUID() int64 {
	return snowflakeNode.Generate().Int64()
}

// UUIDBase32 returns a snowflake id in base32 string form.
func UUIDBase32() string {
	return snowflakeNode.Generate().Base32()
}

// UUIDStr returns a snowflake id in decimal string form.
func UUIDStr() string {
	return fmt.Sprintf("%d", UUID())
}
