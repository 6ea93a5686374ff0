package kernel

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceErrorWrapsSentinel(t *testing.T) {
	cause := fmt.Errorf("pthread_create: EAGAIN")
	err := error(&ResourceError{Cause: cause})

	assert.ErrorIs(t, err, ErrOutOfResources)

	var re *ResourceError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, cause, re.Cause)
	assert.Contains(t, err.Error(), "out of resources")
	assert.Contains(t, err.Error(), "EAGAIN")
}

func TestResourceErrorWithoutCause(t *testing.T) {
	err := &ResourceError{}
	assert.Equal(t, ErrOutOfResources.Error(), err.Error())
	assert.ErrorIs(t, err, ErrOutOfResources)
}

func TestDeadlockErrorReportsBlockedCount(t *testing.T) {
	err := &DeadlockError{Report: DeadlockReport{BlockSites: []BlockSite{
		{ProcessID: 1, Site: "channel.read"},
		{ProcessID: 2, Site: "barrier.sync"},
	}}}

	assert.Contains(t, err.Error(), "2 process(es)")
	require.Len(t, err.Report.BlockSites, 2)
	assert.Equal(t, "channel.read", err.Report.BlockSites[0].Site)
}

func TestResourceErrorIsNotOtherSentinels(t *testing.T) {
	err := &ResourceError{Cause: errors.New("x")}
	assert.False(t, errors.Is(err, ErrSchedulerStopped))
}
