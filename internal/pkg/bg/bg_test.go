package bg

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSyncRunsInline(t *testing.T) {
	executed := false
	Sync{}.Do(func() { executed = true })
	assert.True(t, executed)
}

func TestAsyncDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	start := time.Now()
	Async{}.Do(func() {
		<-release
		wg.Done()
	})
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	close(release)
	wg.Wait()
}
