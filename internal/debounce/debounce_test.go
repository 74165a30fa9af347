package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *recorder) add(v string) {
	r.mu.Lock()
	r.seen = append(r.seen, v)
	r.mu.Unlock()
}

func (r *recorder) values() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func TestOnlyLatestValueIsEmitted(t *testing.T) {
	rec := &recorder{}
	d := New(50*time.Millisecond, rec.add)
	defer d.Stop()

	d.Push("e")
	d.Push("el")
	d.Push("eld")

	assert.Eventually(t, func() bool { return len(rec.values()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"eld"}, rec.values())
	assert.Equal(t, "eld", d.Value())
}

func TestSeparatedPushesEmitEach(t *testing.T) {
	rec := &recorder{}
	d := New(10*time.Millisecond, rec.add)
	defer d.Stop()

	d.Push("a")
	assert.Eventually(t, func() bool { return len(rec.values()) == 1 }, time.Second, time.Millisecond)
	d.Push("ab")
	assert.Eventually(t, func() bool { return len(rec.values()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"a", "ab"}, rec.values())
}

func TestStopCancelsPending(t *testing.T) {
	rec := &recorder{}
	d := New(20*time.Millisecond, rec.add)

	d.Push("late")
	d.Stop()
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.values())

	d.Push("after stop")
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.values())
}

func TestFlush(t *testing.T) {
	rec := &recorder{}
	d := New(time.Hour, rec.add)
	defer d.Stop()

	d.Push("x")
	d.Flush()
	assert.Equal(t, []string{"x"}, rec.values())

	d.Flush()
	assert.Equal(t, []string{"x"}, rec.values(), "nothing pending")
}

func TestZeroDelayIsSynchronous(t *testing.T) {
	rec := &recorder{}
	d := New(0, rec.add)
	d.Push("now")
	assert.Equal(t, []string{"now"}, rec.values())
}
