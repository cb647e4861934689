package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamDrain(t *testing.T) {
	fragments := make(chan string, 3)
	stream := NewStream(fragments, nil)

	fragments <- "a"
	fragments <- "b"
	close(fragments)

	var got string
	for f := range stream.C {
		got += f
	}
	assert.Equal(t, "ab", got)
	assert.NoError(t, stream.Err())
}

func TestStreamFirstErrorWins(t *testing.T) {
	stream := NewStream(make(chan string), nil)

	first := errors.New("first")
	stream.Fail(first)
	stream.Fail(errors.New("second"))

	assert.ErrorIs(t, stream.Err(), first)
}

func TestStreamCloseSignalsDone(t *testing.T) {
	stream := NewStream(make(chan string), nil)

	select {
	case <-stream.Done():
		t.Fatal("done must stay open until Close")
	default:
	}

	assert.NoError(t, stream.Close())

	select {
	case <-stream.Done():
	default:
		t.Fatal("done must be closed after Close")
	}
}

func TestStreamFailAfterCloseIsNoOp(t *testing.T) {
	stream := NewStream(make(chan string), nil)
	assert.NoError(t, stream.Close())

	stream.Fail(errors.New("read on abandoned body"))
	assert.NoError(t, stream.Err())
}

func TestStreamCloseIsIdempotent(t *testing.T) {
	closes := 0
	stream := NewStream(make(chan string), func() { closes++ })

	assert.NoError(t, stream.Close())
	assert.NoError(t, stream.Close())
	assert.Equal(t, 1, closes)
}

func TestStreamCloseWithoutReleaseFunc(t *testing.T) {
	stream := NewStream(make(chan string), nil)
	assert.NoError(t, stream.Close())
}
