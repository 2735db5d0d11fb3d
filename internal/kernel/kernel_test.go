package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindCycle_AcyclicGraphReportsNone(t *testing.T) {
	c := NewChecker()
	c.AssertDependsOn("write_handler", "create_model")
	c.AssertDependsOn("create_model", "create_migration")

	node, err := c.FindCycle()
	require.NoError(t, err)
	assert.Empty(t, node)
}

func TestFindCycle_DirectCycleIsDetected(t *testing.T) {
	c := NewChecker()
	c.AssertDependsOn("a", "b")
	c.AssertDependsOn("b", "a")

	node, err := c.FindCycle()
	require.NoError(t, err)
	assert.NotEmpty(t, node)
}

func TestFindCycle_TransitiveCycleIsDetected(t *testing.T) {
	c := NewChecker()
	c.AssertDependsOn("a", "b")
	c.AssertDependsOn("b", "c")
	c.AssertDependsOn("c", "a")

	node, err := c.FindCycle()
	require.NoError(t, err)
	assert.NotEmpty(t, node)
}

func TestCheckPartition_DisjointSetsHaveNoOverlap(t *testing.T) {
	overlap := CheckPartition([]string{"User", "Order"}, []string{"Invoice", "Payment"})
	assert.Empty(t, overlap)
}

func TestCheckPartition_ReportsOverlap(t *testing.T) {
	overlap := CheckPartition([]string{"User", "Order"}, []string{"Order", "Invoice"})
	assert.ElementsMatch(t, []string{"Order"}, overlap)
}

func TestCheckTodoDAG_AcyclicTodoList(t *testing.T) {
	acyclic, node, err := CheckTodoDAG(
		[]string{"t1", "t2", "t3"},
		map[string][]string{"t2": {"t1"}, "t3": {"t2"}},
	)
	require.NoError(t, err)
	assert.True(t, acyclic)
	assert.Empty(t, node)
}

func TestCheckTodoDAG_CyclicTodoListIsRejected(t *testing.T) {
	acyclic, node, err := CheckTodoDAG(
		[]string{"t1", "t2"},
		map[string][]string{"t1": {"t2"}, "t2": {"t1"}},
	)
	require.NoError(t, err)
	assert.False(t, acyclic)
	assert.NotEmpty(t, node)
}

func TestCheckTopologicalOrder_ValidOrderPasses(t *testing.T) {
	_, _, ok := CheckTopologicalOrder(
		[]string{"create_model", "create_migration", "write_handler"},
		map[string][]string{"create_model": {"write_handler"}, "create_migration": {"write_handler"}},
	)
	assert.True(t, ok)
}

func TestCheckTopologicalOrder_ViolationIsReported(t *testing.T) {
	a, b, ok := CheckTopologicalOrder(
		[]string{"write_handler", "create_model"},
		map[string][]string{"create_model": {"write_handler"}},
	)
	assert.False(t, ok)
	assert.Equal(t, "create_model", a)
	assert.Equal(t, "write_handler", b)
}

func TestCheckTopologicalOrder_UnknownIDsAreIgnored(t *testing.T) {
	_, _, ok := CheckTopologicalOrder(
		[]string{"a"},
		map[string][]string{"a": {"unknown_downstream"}, "unknown_upstream": {"a"}},
	)
	assert.True(t, ok)
}
