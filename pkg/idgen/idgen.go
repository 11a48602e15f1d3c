package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

// Generator hands out identifiers. Sequence ids are time ordered so that
// ascending id order matches creation order.
type Generator interface {
	NextID() int64
	NewUUID() string
}

type snowflakeGenerator struct {
	node *snowflake.Node
}

// New builds a Generator for the given snowflake node (0..1023).
func New(node int64) (Generator, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", node, err)
	}
	return &snowflakeGenerator{node: n}, nil
}

func (g *snowflakeGenerator) NextID() int64 {
	return g.node.Generate().Int64()
}

func (g *snowflakeGenerator) NewUUID() string {
	return uuid.New().String()
}
