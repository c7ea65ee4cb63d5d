package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddEdge(t *testing.T) {
	g := New()
	g.AddEdge("A", "B", 1)
	g.AddEdge("B", "C", 2)
	g.AddEdge("A", "B", 5)

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, 2, g.EdgeCount())
	assert.Equal(t, []string{"A", "B", "C"}, g.Nodes())

	w, ok := g.Weight("A", "B")
	assert.True(t, ok)
	assert.Equal(t, 5.0, w)

	_, ok = g.Weight("B", "A")
	assert.False(t, ok)
	_, ok = g.Weight("Z", "A")
	assert.False(t, ok)
}

func TestAddNode(t *testing.T) {
	g := New()
	g.AddNode("A")
	g.AddNode("A")
	assert.Equal(t, 1, g.Len())
	assert.True(t, g.Has("A"))
	assert.False(t, g.Has("B"))
}

func TestNeighbors(t *testing.T) {
	g := New()
	g.AddEdge("A", "B", 1)
	g.AddEdge("C", "A", 1)
	g.AddEdge("A", "C", 1)

	assert.Equal(t, []string{"B", "C"}, g.Neighbors("A"))
	assert.Equal(t, []string{"A"}, g.Neighbors("B"))
	assert.Nil(t, g.Neighbors("Z"))
}
