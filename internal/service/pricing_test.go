package service

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestTotal(t *testing.T) {
    got, err := Total(1500, 3)
    require.NoError(t, err)
    assert.Equal(t, uint32(4500), got)

    got, err = Total(1500, 0)
    require.NoError(t, err)
    assert.Equal(t, uint32(0), got)
}

func TestTotalOverflow(t *testing.T) {
    _, err := Total(^uint32(0), 2)
    assert.ErrorIs(t, err, ErrPriceOverflow)

    _, err = Total(100, -1)
    assert.ErrorIs(t, err, ErrPriceOverflow)
}
