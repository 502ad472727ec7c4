package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalParticipants(t *testing.T) {
	assert.Equal(t, CanonicalParticipants("u1", "u2"), CanonicalParticipants("u2", "u1"))
	assert.Equal(t, []string{"u1", "u2"}, CanonicalParticipants("u2", "u1"))
}

func TestHasParticipant(t *testing.T) {
	c := Conversation{Participants: []string{"u1", "u2"}}
	assert.True(t, c.HasParticipant("u1"))
	assert.True(t, c.HasParticipant("u2"))
	assert.False(t, c.HasParticipant("u3"))
}

func TestValidContentType(t *testing.T) {
	assert.True(t, ValidContentType(ContentText))
	assert.True(t, ValidContentType(ContentImage))
	assert.True(t, ValidContentType(ContentVideo))
	assert.False(t, ValidContentType("audio"))
	assert.False(t, ValidContentType(""))
}
