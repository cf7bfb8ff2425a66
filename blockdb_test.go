package blockdb_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	blockdb "github.com/pschou/go-blockdb"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkHash(b byte) (h blockdb.Hash) {
	for i := range h {
		h[i] = b
	}
	return
}

func fileSize(t *testing.T, fs afero.Fs, dir, name string) int64 {
	t.Helper()
	fi, err := fs.Stat(filepath.Join(dir, name))
	require.NoError(t, err)
	return fi.Size()
}

func TestCreatePutGet(t *testing.T) {
	fs := afero.NewMemMapFs()
	db, err := blockdb.Create("chain", blockdb.WithFS(fs))
	require.NoError(t, err)
	defer db.Close()

	hash := mkHash(42)
	data := []byte("test block data")
	require.NoError(t, db.Put(hash, 0, data))

	assert.True(t, db.Contains(hash))
	assert.Equal(t, uint64(1), db.EntryCount())
	assert.Equal(t, uint64(len(data)), db.DataSize())

	got, err := db.Get(hash)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = db.Get(mkHash(43))
	assert.ErrorIs(t, err, blockdb.ErrNotFound)
}

func TestCreateAlreadyExists(t *testing.T) {
	fs := afero.NewMemMapFs()
	db, err := blockdb.Create("chain", blockdb.WithFS(fs))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = blockdb.Create("chain", blockdb.WithFS(fs))
	assert.ErrorIs(t, err, blockdb.ErrAlreadyExists)
}

func TestOpenMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := blockdb.Open("nowhere", blockdb.WithFS(fs))
	require.Error(t, err)
}

func TestOpenOrCreate(t *testing.T) {
	fs := afero.NewMemMapFs()

	db, err := blockdb.OpenOrCreate("chain", blockdb.WithFS(fs))
	require.NoError(t, err)
	require.NoError(t, db.Put(mkHash(1), 1, []byte("one")))
	require.NoError(t, db.Close())

	db, err = blockdb.OpenOrCreate("chain", blockdb.WithFS(fs))
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, uint64(1), db.EntryCount())
	assert.True(t, db.Contains(mkHash(1)))
}

func TestHeightIndex(t *testing.T) {
	fs := afero.NewMemMapFs()
	db, err := blockdb.Create("chain", blockdb.WithFS(fs))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put(mkHash(10), 0, []byte("genesis")))
	require.NoError(t, db.Put(mkHash(11), 1, []byte("block 1")))
	require.NoError(t, db.Put(mkHash(12), 2, []byte("block 2")))

	for height, want := range map[uint64]string{0: "genesis", 1: "block 1", 2: "block 2"} {
		got, err := db.GetByHeight(height)
		require.NoError(t, err)
		assert.Equal(t, []byte(want), got)
	}

	hash, err := db.GetHashByHeight(2)
	require.NoError(t, err)
	assert.Equal(t, mkHash(12), hash)

	_, err = db.GetByHeight(3)
	assert.ErrorIs(t, err, blockdb.ErrNotFound)
	_, err = db.GetHashByHeight(3)
	assert.ErrorIs(t, err, blockdb.ErrNotFound)
	assert.True(t, db.ContainsHeight(1))
	assert.False(t, db.ContainsHeight(3))
}

func TestDeduplication(t *testing.T) {
	fs := afero.NewMemMapFs()
	db, err := blockdb.Create("chain", blockdb.WithFS(fs))
	require.NoError(t, err)
	defer db.Close()

	hash := mkHash(42)
	require.NoError(t, db.Put(hash, 1, []byte("first")))

	// The second write is silently ignored, even with a different
	// payload and height.
	require.NoError(t, db.Put(hash, 9, []byte("second")))

	assert.Equal(t, uint64(1), db.EntryCount())
	got, err := db.Get(hash)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
	assert.False(t, db.ContainsHeight(9))
}

func TestHeightGuard(t *testing.T) {
	fs := afero.NewMemMapFs()
	db, err := blockdb.Create("chain", blockdb.WithFS(fs))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put(mkHash(1), 1, []byte("ok")))
	dataLen := fileSize(t, fs, "chain", blockdb.DataFileName)
	idxLen := fileSize(t, fs, "chain", blockdb.IndexFileName)
	hgtLen := fileSize(t, fs, "chain", blockdb.HeightFileName)

	err = db.Put(mkHash(2), blockdb.MaxReasonableHeight+1, []byte("corrupt"))
	var tooLarge *blockdb.HeightTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, uint64(blockdb.MaxReasonableHeight+1), tooLarge.Height)

	// The guard fires before any I/O or mutation.
	assert.Equal(t, uint64(1), db.EntryCount())
	assert.Equal(t, dataLen, fileSize(t, fs, "chain", blockdb.DataFileName))
	assert.Equal(t, idxLen, fileSize(t, fs, "chain", blockdb.IndexFileName))
	assert.Equal(t, hgtLen, fileSize(t, fs, "chain", blockdb.HeightFileName))

	// The bound itself is writable.
	require.NoError(t, db.Put(mkHash(3), blockdb.MaxReasonableHeight, []byte("edge")))
}

func TestReopen(t *testing.T) {
	fs := afero.NewMemMapFs()
	db, err := blockdb.Create("chain", blockdb.WithFS(fs))
	require.NoError(t, err)

	blocks := map[uint64][]byte{
		1: []byte("block one"),
		2: []byte("block two"),
		3: []byte("block three"),
		4: []byte("block four"),
	}
	for height, data := range blocks {
		require.NoError(t, db.Put(mkHash(byte(height)), height, data))
	}
	require.NoError(t, db.Sync())
	require.NoError(t, db.Close())

	db, err = blockdb.Open("chain", blockdb.WithFS(fs))
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, uint64(len(blocks)), db.EntryCount())
	assert.Equal(t, uint64(4), db.LatestHeight())
	assert.Equal(t, mkHash(4), db.LatestHash())
	for height, data := range blocks {
		got, err := db.GetByHeight(height)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	}
}

func TestHeightOverwrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	db, err := blockdb.Create("chain", blockdb.WithFS(fs))
	require.NoError(t, err)

	h1, h2 := mkHash(1), mkHash(2)
	require.NoError(t, db.Put(h1, 5, []byte("A")))
	require.NoError(t, db.Put(h2, 5, []byte("B")))

	// The height log keeps both records; the map resolves to the last
	// one written, before and after a replay.
	got, err := db.GetByHeight(5)
	require.NoError(t, err)
	assert.Equal(t, []byte("B"), got)
	require.NoError(t, db.Close())

	db, err = blockdb.Open("chain", blockdb.WithFS(fs))
	require.NoError(t, err)
	defer db.Close()

	got, err = db.GetByHeight(5)
	require.NoError(t, err)
	assert.Equal(t, []byte("B"), got)

	// Both payloads stay independently retrievable by hash.
	got, err = db.Get(h1)
	require.NoError(t, err)
	assert.Equal(t, []byte("A"), got)
	got, err = db.Get(h2)
	require.NoError(t, err)
	assert.Equal(t, []byte("B"), got)
}

func TestGenesisScenario(t *testing.T) {
	fs := afero.NewMemMapFs()
	db, err := blockdb.Create("chain", blockdb.WithFS(fs))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put(blockdb.ZeroHash, 0, []byte("genesis")))
	require.NoError(t, db.Put(mkHash(1), 1, []byte("block1")))

	assert.Equal(t, uint64(2), db.EntryCount())
	got, err := db.GetByHeight(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("genesis"), got)

	hash, err := db.GetHashByHeight(1)
	require.NoError(t, err)
	assert.Equal(t, mkHash(1), hash)

	assert.False(t, db.Contains(mkHash(2)))
}

// A lone genesis write never moves LatestHash off the zero sentinel:
// the aggregate only advances on a strictly greater height, and the
// counter starts at 0.
func TestGenesisLatestHash(t *testing.T) {
	fs := afero.NewMemMapFs()
	db, err := blockdb.Create("chain", blockdb.WithFS(fs))
	require.NoError(t, err)
	defer db.Close()

	genesis := mkHash(7)
	require.NoError(t, db.Put(genesis, 0, []byte("genesis")))

	assert.Equal(t, genesis, db.GenesisHash())
	assert.Equal(t, uint64(0), db.LatestHeight())
	assert.Equal(t, blockdb.ZeroHash, db.LatestHash())

	require.NoError(t, db.Put(mkHash(8), 1, []byte("block1")))
	assert.Equal(t, mkHash(8), db.LatestHash())
	assert.Equal(t, genesis, db.GenesisHash())
}

func TestPartialTrailingRecordDropped(t *testing.T) {
	fs := afero.NewMemMapFs()
	db, err := blockdb.Create("chain", blockdb.WithFS(fs))
	require.NoError(t, err)
	require.NoError(t, db.Put(mkHash(1), 1, []byte("one")))
	require.NoError(t, db.Close())

	// Simulate an interrupted append: a short trailing chunk on both
	// index logs.
	for _, name := range []string{blockdb.IndexFileName, blockdb.HeightFileName} {
		fh, err := fs.OpenFile(filepath.Join("chain", name), os.O_RDWR, 0644)
		require.NoError(t, err)
		fi, err := fh.Stat()
		require.NoError(t, err)
		_, err = fh.WriteAt([]byte("torn write"), fi.Size())
		require.NoError(t, err)
		require.NoError(t, fh.Close())
	}

	db, err = blockdb.Open("chain", blockdb.WithFS(fs))
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, uint64(1), db.EntryCount())
	assert.True(t, db.Contains(mkHash(1)))
	heights := db.Heights()
	require.Len(t, heights, 1)
	assert.Equal(t, uint64(1), heights[0])
}

func TestZeroHashRecordsSkippedOnReplay(t *testing.T) {
	fs := afero.NewMemMapFs()
	db, err := blockdb.Create("chain", blockdb.WithFS(fs))
	require.NoError(t, err)
	require.NoError(t, db.Put(mkHash(1), 1, []byte("one")))
	require.NoError(t, db.Close())

	// Pad the index log with a full zero chunk, as an uninitialized
	// preallocated region would look.
	fh, err := fs.OpenFile(filepath.Join("chain", blockdb.IndexFileName), os.O_RDWR, 0644)
	require.NoError(t, err)
	fi, err := fh.Stat()
	require.NoError(t, err)
	_, err = fh.WriteAt(make([]byte, blockdb.IndexEntrySize), fi.Size())
	require.NoError(t, err)
	require.NoError(t, fh.Close())

	db, err = blockdb.Open("chain", blockdb.WithFS(fs))
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, uint64(1), db.EntryCount())
	assert.False(t, db.Contains(blockdb.ZeroHash))
}

func TestCorruptMetadata(t *testing.T) {
	fs := afero.NewMemMapFs()
	db, err := blockdb.Create("chain", blockdb.WithFS(fs))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	metaPath := filepath.Join("chain", blockdb.MetaFileName)

	// Bad magic.
	fh, err := fs.OpenFile(metaPath, os.O_RDWR, 0644)
	require.NoError(t, err)
	_, err = fh.WriteAt([]byte("XXXX"), 0)
	require.NoError(t, err)
	require.NoError(t, fh.Close())

	_, err = blockdb.Open("chain", blockdb.WithFS(fs))
	var corrupt *blockdb.CorruptionError
	require.ErrorAs(t, err, &corrupt)

	// Restore the magic but persist an absurd latest height.
	fh, err = fs.OpenFile(metaPath, os.O_RDWR, 0644)
	require.NoError(t, err)
	_, err = fh.WriteAt(blockdb.Magic[:], 0)
	require.NoError(t, err)
	var height [8]byte
	binary.LittleEndian.PutUint64(height[:], blockdb.MaxReasonableHeight+1)
	_, err = fh.WriteAt(height[:], 24)
	require.NoError(t, err)
	require.NoError(t, fh.Close())

	_, err = blockdb.Open("chain", blockdb.WithFS(fs))
	var tooLarge *blockdb.HeightTooLargeError
	require.ErrorAs(t, err, &tooLarge)

	// Truncated metadata file.
	require.NoError(t, fs.Remove(metaPath))
	require.NoError(t, afero.WriteFile(fs, metaPath, blockdb.Magic[:], 0644))
	_, err = blockdb.Open("chain", blockdb.WithFS(fs))
	require.ErrorAs(t, err, &corrupt)
}

func TestHeights(t *testing.T) {
	fs := afero.NewMemMapFs()
	db, err := blockdb.Create("chain", blockdb.WithFS(fs))
	require.NoError(t, err)
	defer db.Close()

	for _, height := range []uint64{9, 2, 7, 4} {
		require.NoError(t, db.Put(mkHash(byte(height)), height, []byte("x")))
	}
	assert.Equal(t, []uint64{2, 4, 7, 9}, db.Heights())
}

func TestWalkAndScanner(t *testing.T) {
	fs := afero.NewMemMapFs()
	db, err := blockdb.Create("chain", blockdb.WithFS(fs))
	require.NoError(t, err)
	defer db.Close()

	payload := func(height uint64) []byte {
		return bytes.Repeat([]byte{byte(height)}, int(height)+1)
	}
	for _, height := range []uint64{3, 1, 2} {
		require.NoError(t, db.Put(mkHash(byte(height)), height, payload(height)))
	}

	var visited []uint64
	err = db.Walk(func(height uint64, hash blockdb.Hash, data []byte) error {
		assert.Equal(t, mkHash(byte(height)), hash)
		assert.Equal(t, payload(height), data)
		visited = append(visited, height)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, visited)

	s := db.NewScanner()
	require.True(t, s.Scan())
	assert.Equal(t, uint64(1), s.Height())
	assert.Equal(t, mkHash(1), s.Hash())
	assert.Equal(t, payload(1), s.Bytes())
	require.True(t, s.Scan())
	require.True(t, s.Scan())
	assert.False(t, s.Scan())
	assert.NoError(t, s.Err())
}

func TestReadCache(t *testing.T) {
	for name, cache := range map[string]blockdb.Cache{
		"lru":  blockdb.NewLRUCache(8),
		"fifo": blockdb.NewFIFOCache(8),
	} {
		t.Run(name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			db, err := blockdb.Create("chain", blockdb.WithFS(fs), blockdb.WithCache(cache))
			require.NoError(t, err)
			defer db.Close()

			hash := mkHash(5)
			data := []byte("cached block")
			require.NoError(t, db.Put(hash, 1, data))

			for i := 0; i < 3; i++ {
				got, err := db.Get(hash)
				require.NoError(t, err)
				assert.Equal(t, data, got)
			}
		})
	}
}

func TestStatsSnapshot(t *testing.T) {
	fs := afero.NewMemMapFs()
	db, err := blockdb.Create("chain", blockdb.WithFS(fs), blockdb.WithSyncWrites(false))
	require.NoError(t, err)

	require.NoError(t, db.Put(mkHash(1), 1, []byte("12345")))
	require.NoError(t, db.Put(mkHash(2), 2, []byte("678")))

	stats := db.Stats()
	assert.Equal(t, uint64(2), stats.EntryCount)
	assert.Equal(t, uint64(8), stats.DataSize)
	assert.Equal(t, uint64(2), stats.LatestHeight)
	assert.Equal(t, mkHash(2), stats.LatestHash)
	assert.NotEmpty(t, stats.String())

	// Buffered mode: the on-disk aggregate only advances on Sync.
	require.NoError(t, db.Sync())
	require.NoError(t, db.Close())
	db, err = blockdb.Open("chain", blockdb.WithFS(fs))
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, stats, db.Stats())
}
