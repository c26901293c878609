package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AddGetRemove(t *testing.T) {
	r := New()
	e := NewEntry("s1", KindWatch, nil)
	r.Add(e)

	got, ok := r.Get("s1")
	require.True(t, ok)
	assert.Same(t, e, got)
	assert.True(t, r.IsActive("s1"))

	r.Remove("s1")
	_, ok = r.Get("s1")
	assert.False(t, ok)
}

func TestRegistry_StopIsIdempotentAndSignalsOnce(t *testing.T) {
	r := New()
	e := NewEntry("s1", KindShell, nil)
	r.Add(e)

	assert.True(t, r.Stop("s1"))
	assert.True(t, r.Stop("s1"), "stopping twice must not panic or error")
	assert.False(t, r.Stop("does-not-exist"), "stopping a non-existent session is not an error, but reports false")

	select {
	case <-e.Stopped():
	default:
		t.Fatal("expected stop signal to have fired")
	}
	assert.False(t, r.IsActive("s1"), "a stopped entry is no longer active even though it's still present until removed")
}

func TestRegistry_ListFiltersByKind(t *testing.T) {
	r := New()
	r.Add(NewEntry("w1", KindWatch, nil))
	r.Add(NewEntry("w2", KindWatch, nil))
	r.Add(NewEntry("s1", KindShell, nil))

	assert.Len(t, r.List(KindWatch), 2)
	assert.Len(t, r.List(KindShell), 1)
	assert.Len(t, r.List(""), 3)
}

func TestRegistry_ConcurrentAddRemove(t *testing.T) {
	r := New()
	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		go func(n int) {
			id := string(rune('a' + n%26))
			r.Add(NewEntry(id, KindLog, nil))
			r.Stop(id)
			r.Remove(id)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 50; i++ {
		<-done
	}
}
