package grouperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/chainfleet/groupmgr/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestGroupErrorMessage(t *testing.T) {
	err := NewGroupNotExists("c1", "g1")
	assert.Equal(t, "[4002] group not exists: c1/g1", err.Error())
}

func TestGroupErrorWithCause(t *testing.T) {
	cause := errors.New("row missing")
	err := NewCreateGroupFailed("c1", "g1", cause)
	assert.Contains(t, err.Error(), "row missing")
	assert.Equal(t, cause, err.Unwrap())
}

func TestOperationNotAllowedIncludesStatus(t *testing.T) {
	err := NewOperationNotAllowed(types.StatusStarted)
	assert.Contains(t, err.Error(), "Started")
}

func TestErrTableExistsIsComparable(t *testing.T) {
	wrapped := fmt.Errorf("create table t_chain: %w", ErrTableExists)
	assert.True(t, errors.Is(wrapped, ErrTableExists))
}
