package input

import (
	"sync"
	"testing"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glvox"
	"github.com/stretchr/testify/assert"
)

func TestSnapshotClears(t *testing.T) {
	m := NewMailbox(4)
	m.SetKey(KeyForward, true)
	m.SetKey(KeyLeft, true)
	m.SetKey(KeyLeft, false)
	m.CursorMoved(10, 10)
	m.CursorMoved(13, 8)
	m.CursorMoved(15, 9)
	assert.True(t, m.PostEdit(Edit{World: ms3.Vec{X: 1}, Value: 2}))

	s, dropped := m.Snapshot()
	assert.Zero(t, dropped)
	assert.True(t, s.Down(KeyForward))
	assert.False(t, s.Down(KeyLeft))
	assert.Equal(t, float32(1), s.Axis(KeyForward, KeyBackward))
	assert.Equal(t, float32(0), s.Axis(KeyLeft, KeyRight))
	assert.Equal(t, 5.0, s.LookX)
	assert.Equal(t, -1.0, s.LookY)
	assert.Equal(t, []Edit{{World: ms3.Vec{X: 1}, Value: 2}}, s.Edits)

	s, _ = m.Snapshot()
	assert.True(t, s.Down(KeyForward), "key state persists")
	assert.Zero(t, s.LookX)
	assert.Zero(t, s.LookY)
	assert.Empty(t, s.Edits)
}

func TestReleaseCursor(t *testing.T) {
	m := NewMailbox(1)
	m.CursorMoved(0, 0)
	m.ReleaseCursor()
	m.CursorMoved(100, 100)
	m.CursorMoved(101, 100)
	s, _ := m.Snapshot()
	assert.Equal(t, 1.0, s.LookX)
	assert.Zero(t, s.LookY)
}

func TestEditQueueBound(t *testing.T) {
	m := NewMailbox(2)
	assert.True(t, m.PostEdit(Edit{Edit: glvox.EditSet}))
	assert.True(t, m.PostEdit(Edit{Edit: glvox.EditClear}))
	assert.False(t, m.PostEdit(Edit{}))
	s, dropped := m.Snapshot()
	assert.Len(t, s.Edits, 2)
	assert.Equal(t, 1, dropped)
	assert.True(t, m.PostEdit(Edit{}), "snapshot frees the queue")
}

func TestConcurrentPosts(t *testing.T) {
	m := NewMailbox(1000)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.PostEdit(Edit{Value: uint32(i)})
				m.SetKey(KeyUp, i%2 == 0)
			}
		}()
	}
	total := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for finished := false; !finished; {
		select {
		case <-done:
			finished = true
		default:
		}
		s, _ := m.Snapshot()
		total += len(s.Edits)
	}
	s, _ := m.Snapshot()
	total += len(s.Edits)
	assert.Equal(t, 800, total)
	m.RequestQuit()
	s, _ = m.Snapshot()
	assert.True(t, s.Quit)
}
