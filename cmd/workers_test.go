package main

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
)

func TestProcessBuildRequeuesUndecodablePayload(t *testing.T) {
	b := &jbinfoInstance{}

	task := asynq.NewTask("builds_to_process", []byte("not json"))
	err := b.processBuild(context.Background(), task)

	assert.Error(t, err)
	// must stay retryable: a failed decode is nacked for redelivery after
	// the configured delay, never archived
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}
