package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}
	start := c.Now()
	assert.GreaterOrEqual(t, c.Since(start), time.Duration(0))
}

func TestMockClock(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewMockClock(base)

	assert.Equal(t, base, c.Now())
	assert.Equal(t, base, c.Now(), "no step configured")

	c.Advance(2 * time.Second)
	assert.Equal(t, 2*time.Second, c.Since(base))

	later := base.Add(time.Hour)
	c.Set(later)
	assert.Equal(t, later, c.Now())
}

func TestSteppingClock(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewSteppingClock(base, 5*time.Millisecond)

	start := c.Now()
	assert.Equal(t, base, start)
	assert.Equal(t, 5*time.Millisecond, c.Since(start))
	assert.Equal(t, 5*time.Millisecond, c.Since(start), "Since does not step")
	assert.Equal(t, base.Add(5*time.Millisecond), c.Now())
}
