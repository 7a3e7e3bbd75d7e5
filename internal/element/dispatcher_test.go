// internal/element/dispatcher_test.go
package element

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestDispatcher_ThreadAffinity(t *testing.T) {
	defer goleak.VerifyNone(t)
	logger := zaptest.NewLogger(t)
	d := NewDispatcher(logger)
	defer d.Close()

	tree := NewTree(WithLogger(logger), WithDispatcher(d))
	ctx := context.Background()

	_, err := tree.NewNode("", KindElement)
	assert.ErrorIs(t, err, ErrWrongThread)
	assert.Equal(t, StructuralError, KindOf(err))
	assert.ErrorIs(t, tree.CheckAccess(), ErrWrongThread)

	var h Handle
	require.NoError(t, d.Invoke(ctx, func() error {
		var err error
		if h, err = tree.NewNode("", KindTextBlock); err != nil {
			return err
		}
		return tree.SetValue(h, FontSizeProperty, 18.0)
	}))

	_, err = tree.GetValue(h, FontSizeProperty)
	assert.ErrorIs(t, err, ErrWrongThread)
	_, ok := tree.TryFindResource(h, "anything")
	assert.False(t, ok)

	var got any
	require.NoError(t, d.Invoke(ctx, func() error {
		var err error
		got, err = tree.GetValue(h, FontSizeProperty)
		return err
	}))
	assert.Equal(t, 18.0, got)
	assert.False(t, d.CheckAccess())
}

func TestDispatcher_Invoke(t *testing.T) {
	defer goleak.VerifyNone(t)
	d := NewDispatcher(zaptest.NewLogger(t))
	defer d.Close()
	ctx := context.Background()

	t.Run("returns the closure error", func(t *testing.T) {
		sentinel := errors.New("boom")
		assert.ErrorIs(t, d.Invoke(ctx, func() error { return sentinel }), sentinel)
	})

	t.Run("recovers panics", func(t *testing.T) {
		err := d.Invoke(ctx, func() error { panic("kaboom") })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kaboom")

		assert.NoError(t, d.Invoke(ctx, func() error { return nil }), "the loop survives a panic")
	})

	t.Run("honors a cancelled context while busy", func(t *testing.T) {
		release := make(chan struct{})
		started := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- d.Invoke(ctx, func() error {
				close(started)
				<-release
				return nil
			})
		}()
		<-started

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, d.Invoke(cctx, func() error { return nil }), context.Canceled)

		close(release)
		assert.NoError(t, <-done)
	})
}

func TestDispatcher_Closed(t *testing.T) {
	defer goleak.VerifyNone(t)
	d := NewDispatcher(zaptest.NewLogger(t))
	d.Close()
	d.Close()

	err := d.Invoke(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrDispatcherClosed)
}
