package gallery

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierAutoDismiss(t *testing.T) {
	n := NewNotifier(20*time.Millisecond, nil)
	n.Success("Image added")

	got, ok := n.Current()
	require.True(t, ok)
	assert.Equal(t, Notice{Kind: NoticeSuccess, Message: "Image added"}, got)

	assert.Eventually(t, func() bool {
		_, ok := n.Current()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestNotifierReplaceRestartsTimer(t *testing.T) {
	n := NewNotifier(60*time.Millisecond, nil)
	n.Success("first")
	time.Sleep(40 * time.Millisecond)
	n.Error("second")
	time.Sleep(40 * time.Millisecond)

	// 第一个定时器已过期, 但不能清除新的通知
	got, ok := n.Current()
	require.True(t, ok)
	assert.Equal(t, Notice{Kind: NoticeError, Message: "second"}, got)
}

func TestNotifierDismiss(t *testing.T) {
	n := NewNotifier(time.Hour, nil)
	n.Error("Upload failed")
	n.Dismiss()
	_, ok := n.Current()
	assert.False(t, ok)
}

func TestNotifierOnShow(t *testing.T) {
	var mu sync.Mutex
	var shown []Notice
	n := NewNotifier(0, func(notice Notice) {
		mu.Lock()
		shown = append(shown, notice)
		mu.Unlock()
	})
	assert.Equal(t, DefaultNoticeTTL, n.ttl)

	n.Success("a")
	n.Error("b")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Notice{
		{Kind: NoticeSuccess, Message: "a"},
		{Kind: NoticeError, Message: "b"},
	}, shown)
}
