package memory_adaptor

import (
	"testing"

	"github.com/lunfardo314/btrees/btree"
	"github.com/lunfardo314/btrees/common"
	"github.com/stretchr/testify/require"
)

func TestMemoryJarRoundTrip(t *testing.T) {
	jar := New([]byte("memory-jar-roundtrip"))

	tree := btree.NewBTree[int, string](common.IntOps, common.StringOps, 4, 4)
	for i := 0; i < 50; i++ {
		_, err := tree.Insert(i, "v")
		require.NoError(t, err)
	}

	oid, err := jar.Put(tree)
	require.NoError(t, err)
	require.NoError(t, jar.Commit())

	ghost := btree.GhostBTreeResolver[int, string]{
		KeyOps:        common.IntOps,
		ValOps:        common.StringOps,
		MaxBucketSize: 4,
		MaxBTreeSize:  4,
		BucketResolver: btree.GhostBucketResolver[int, string]{
			KeyOps: common.IntOps,
			ValOps: common.StringOps,
		},
	}
	reloaded, err := ghost.ResolveBTree(jar, oid)
	require.NoError(t, err)

	n, err := reloaded.Len()
	require.NoError(t, err)
	require.Equal(t, 50, n)

	v, ok, err := reloaded.Get(25)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestMemoryJarObjectNotFound(t *testing.T) {
	jar := New([]byte("memory-jar-missing"))
	_, err := jar.Load(common.OIDFromUint64(999))
	require.ErrorIs(t, err, common.ErrObjectNotFound)
}
