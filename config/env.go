package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variable names recognised by ApplyEnv.
const (
	EnvHost      = "host"
	EnvRack      = "remoteRack"
	EnvSlot      = "remoteSlot"
	EnvNumCycles = "numCycles"
	EnvCycleTime = "cycleTime" // milliseconds
	EnvTags      = "tags"
	EnvTagsFile  = "tagsFile"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from environment variables. Unset or empty
// variables leave the field unchanged.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		return v, ok && v != ""
	}

	if v, ok := get(EnvHost); ok {
		c.Host = v
	}
	if v, ok := get(EnvRack); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRack, err)
		}
		c.Rack = n
	}
	if v, ok := get(EnvSlot); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSlot, err)
		}
		c.Slot = n
	}
	if v, ok := get(EnvNumCycles); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvNumCycles, err)
		}
		c.NumCycles = n
	}
	if v, ok := get(EnvCycleTime); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCycleTime, err)
		}
		c.CycleTime = time.Duration(n) * time.Millisecond
	}
	if v, ok := get(EnvTags); ok {
		c.Tags = v
	}
	if v, ok := get(EnvTagsFile); ok {
		c.TagsFile = v
		// A tags file from the environment outranks inline tags from the file config.
		if _, inline := get(EnvTags); !inline {
			c.Tags = ""
		}
	}
	return nil
}
