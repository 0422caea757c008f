// Package id issues time-ordered request ids.
package id

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Generator issues strictly increasing int64 ids from one snowflake node
type Generator struct {
	node *snowflake.Node
}

// NewGenerator creates a generator for nodeID (0-1023)
func NewGenerator(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node %d: %w", nodeID, err)
	}
	return &Generator{node: node}, nil
}

// Next returns a new id. Ids from one generator never repeat and always increase.
func (g *Generator) Next() int64 {
	return g.node.Generate().Int64()
}
