/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("delete")
	require.NoError(t, err)
	assert.IsType(t, DeleteSession{}, p)

	p, err = PolicyByName("promote")
	require.NoError(t, err)
	assert.IsType(t, PromotePlayer{}, p)

	_, err = PolicyByName("elect")
	assert.Error(t, err)
}
