package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueEnqueueIsSetSemantics(t *testing.T) {
	q := NewQueue()
	q.Enqueue("/a.txt")
	q.Enqueue("/a.txt")
	q.Enqueue("/b.txt")

	paths, alreadyRunning := q.swap()
	assert.False(t, alreadyRunning)
	assert.ElementsMatch(t, []string{"/a.txt", "/b.txt"}, paths)
}

func TestProcessQueueDrainsAndSucceeds(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newTestPipeline(t)
	q := NewQueue()

	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(name), 0o600))
		q.Enqueue(path)
	}

	result := p.ProcessQueue(ctx, q, 2)
	assert.False(t, result.AlreadyRunning)
	assert.Len(t, result.Succeeded, 3)
	assert.Empty(t, result.Failed)
}

func TestQueueSwapReportsAlreadyRunning(t *testing.T) {
	q := NewQueue()
	q.running = true
	paths, alreadyRunning := q.swap()
	assert.True(t, alreadyRunning)
	assert.Nil(t, paths)
}
