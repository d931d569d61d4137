package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithInterrupt_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	in := WithInterrupt(parent)
	defer in.Stop()

	cancel()
	<-in.Done()
	assert.False(t, in.Interrupted(), "a cancelled parent is not a signal")
	assert.Nil(t, in.Signal())
}

func TestWithInterrupt_Stop(t *testing.T) {
	in := WithInterrupt(context.Background())
	in.Stop()
	<-in.Done()
	assert.ErrorIs(t, in.Err(), context.Canceled)
	assert.False(t, in.Interrupted())
}
