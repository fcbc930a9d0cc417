package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	values map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string]string)}
}

func (f *fakeStore) Config(key string) (string, bool, error) {
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeStore) ConfigSet(key, value string) error {
	f.values[key] = value
	return nil
}

func TestPartitionEnableDefaultsFalse(t *testing.T) {
	store := newFakeStore()
	enabled, err := PartitionEnable(store)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestSetPartitionEnableRoundTrips(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, SetPartitionEnable(store, true))

	enabled, err := PartitionEnable(store)
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestPartitionPeriodRoundTrips(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, SetPartitionPeriod(store, 24*time.Hour))

	period, err := PartitionPeriod(store)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, period)
}

func TestPartitionPeriodDefaultsZero(t *testing.T) {
	store := newFakeStore()
	period, err := PartitionPeriod(store)
	require.NoError(t, err)
	assert.Zero(t, period)
}
