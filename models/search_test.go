package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchStatus_IsTerminal(t *testing.T) {
	assert.False(t, SearchStatusPending.IsTerminal())
	assert.False(t, SearchStatusRunning.IsTerminal())
	assert.True(t, SearchStatusCompleted.IsTerminal())
	assert.True(t, SearchStatusFailed.IsTerminal())
	assert.True(t, SearchStatusStopped.IsTerminal())
}

func TestSearchStatus_CanTransition(t *testing.T) {
	// Forward transitions
	assert.True(t, SearchStatusPending.CanTransition(SearchStatusRunning))
	assert.True(t, SearchStatusRunning.CanTransition(SearchStatusCompleted))
	assert.True(t, SearchStatusRunning.CanTransition(SearchStatusFailed))
	assert.True(t, SearchStatusRunning.CanTransition(SearchStatusStopped))

	// Terminal states never move
	for _, terminal := range []SearchStatus{SearchStatusCompleted, SearchStatusFailed, SearchStatusStopped} {
		for _, next := range []SearchStatus{SearchStatusPending, SearchStatusRunning, SearchStatusCompleted, SearchStatusFailed, SearchStatusStopped} {
			assert.False(t, terminal.CanTransition(next), "%s -> %s should be rejected", terminal, next)
		}
	}

	// No going back to pending
	assert.False(t, SearchStatusRunning.CanTransition(SearchStatusPending))
}

func TestValidSearchType(t *testing.T) {
	for _, valid := range []SearchType{SearchTypeEmail, SearchTypeUsername, SearchTypeDomain, SearchTypeCompany, SearchTypeKeyword, SearchTypeGitHub} {
		assert.True(t, ValidSearchType(valid))
	}
	assert.False(t, ValidSearchType("wallet"))
	assert.False(t, ValidSearchType(""))
}
