package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUUIDint64Ordered(t *testing.T) {
	prev := UUIDint64()
	for i := 0; i < 1000; i++ {
		next := UUIDint64()
		assert.Greater(t, next, prev)
		prev = next
	}
}
