package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexPutScanDel(t *testing.T) {
	stub := newMockStub()

	require.NoError(t, indexPut(stub, ownerProductIndex, "farmer01", "PROD000001"))
	require.NoError(t, indexPut(stub, ownerProductIndex, "farmer01", "PROD000002"))
	require.NoError(t, indexPut(stub, ownerProductIndex, "farmer02", "PROD000003"))

	ids, err := indexScan(stub, ownerProductIndex, "farmer01")
	require.NoError(t, err)
	assert.Equal(t, []string{"PROD000001", "PROD000002"}, ids)

	require.NoError(t, indexDel(stub, ownerProductIndex, "farmer01", "PROD000001"))
	ids, err = indexScan(stub, ownerProductIndex, "farmer01")
	require.NoError(t, err)
	assert.Equal(t, []string{"PROD000002"}, ids)
}

func TestIndexScanDoesNotMatchAttributePrefixes(t *testing.T) {
	stub := newMockStub()

	require.NoError(t, indexPut(stub, ownerProductIndex, "farmer1", "PROD000001"))
	require.NoError(t, indexPut(stub, ownerProductIndex, "farmer10", "PROD000002"))

	ids, err := indexScan(stub, ownerProductIndex, "farmer1")
	require.NoError(t, err)
	assert.Equal(t, []string{"PROD000001"}, ids, "null-byte framing must keep farmer1 and farmer10 apart")
}

func TestIndexMove(t *testing.T) {
	stub := newMockStub()
	require.NoError(t, indexPut(stub, statusProductIndex, "CREATED", "PROD000001"))

	require.NoError(t, indexMove(stub, statusProductIndex, "CREATED", "IN_TRANSIT", "PROD000001"))

	old, err := indexScan(stub, statusProductIndex, "CREATED")
	require.NoError(t, err)
	assert.Empty(t, old, "a move must never leave the stale entry behind")
	moved, err := indexScan(stub, statusProductIndex, "IN_TRANSIT")
	require.NoError(t, err)
	assert.Equal(t, []string{"PROD000001"}, moved)
}

func TestIndexMoveSameAttributeIsNoop(t *testing.T) {
	stub := newMockStub()
	require.NoError(t, indexPut(stub, statusProductIndex, "CREATED", "PROD000001"))
	before := snapshotState(stub)

	require.NoError(t, indexMove(stub, statusProductIndex, "CREATED", "CREATED", "PROD000001"))
	assert.Equal(t, before, stub.state)
}

func TestProductIndexEntriesCoverAllFourIndexes(t *testing.T) {
	product := &Product{
		ProductID:    "PROD000001",
		ProductType:  "vegetable",
		CurrentOwner: "farmer01",
		Status:       ProductStatusCreated,
		Location:     "Farm",
	}
	entries := productIndexEntries(product)
	require.Len(t, entries, 4)

	got := map[string]string{}
	for _, e := range entries {
		got[e.name] = e.attr
	}
	assert.Equal(t, map[string]string{
		ownerProductIndex:    "farmer01",
		statusProductIndex:   "CREATED",
		typeProductIndex:     "vegetable",
		locationProductIndex: "Farm",
	}, got)
}
