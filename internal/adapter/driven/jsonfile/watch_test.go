package jsonfile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

func TestWatch_FiresOnAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	store := NewFindingStore(dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, store.Path(), func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, store.Save(ctx, model.NewPendingFinding(model.Issue{Number: 1})))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("watch callback not invoked")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
