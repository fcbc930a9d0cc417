// Package config exposes typed accessors over a container's own
// config key-value store for the partition rollover settings
// (PARTITION_ENABLE, PARTITION_PERIOD). It only stores and reads them:
// nothing else in this module consults them, and no automatic
// partition rollover is performed.
package config

import (
	"fmt"
	"strconv"
	"time"
)

// Store is the subset of *sos.Container's config API this package
// needs. It is expressed as an interface, not a direct dependency on
// package sos, so that config stays a small, independently testable
// leaf package that doesn't reach back into the container internals.
type Store interface {
	Config(key string) (string, bool, error)
	ConfigSet(key, value string) error
}

const (
	keyPartitionEnable = "PARTITION_ENABLE"
	keyPartitionPeriod = "PARTITION_PERIOD"
)

// PartitionEnable reports whether automatic partition rollover is
// enabled, defaulting to false when unset.
func PartitionEnable(s Store) (bool, error) {
	v, ok, err := s.Config(keyPartitionEnable)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", keyPartitionEnable, err)
	}
	return b, nil
}

// SetPartitionEnable persists whether automatic partition rollover is
// enabled.
func SetPartitionEnable(s Store, enabled bool) error {
	return s.ConfigSet(keyPartitionEnable, strconv.FormatBool(enabled))
}

// PartitionPeriod returns the configured partition rollover period,
// parsed the same way time.ParseDuration accepts seconds-compatible
// suffixes ("86400s", "24h"). Returns zero when unset.
func PartitionPeriod(s Store) (time.Duration, error) {
	v, ok, err := s.Config(keyPartitionPeriod)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", keyPartitionPeriod, err)
	}
	return d, nil
}

// SetPartitionPeriod persists the partition rollover period.
func SetPartitionPeriod(s Store, period time.Duration) error {
	return s.ConfigSet(keyPartitionPeriod, period.String())
}
