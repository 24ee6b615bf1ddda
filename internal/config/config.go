// Package config provides the startup configuration surface: environment
// maps read through an injected provider, with typed key accessors and the
// settings consumed by archive initialization.
package config

import (
	"fmt"
	"strconv"
)

// Environment keys understood by the filesystem layer.
const (
	KeySDMCRoot   = "HORIZONFS_SDMC_ROOT"
	KeyMountMemfs = "HORIZONFS_MOUNT_MEMFS"
)

type genericConfigProvider interface {
	Read(filenames ...string) (envMap map[string]string, err error)
}

type Handler struct {
	GenericHandler genericConfigProvider
}

func NewHandler(genericHandler genericConfigProvider) *Handler {
	return &Handler{
		GenericHandler: genericHandler,
	}
}

func (c *Handler) ReadGeneric(filenames ...string) (map[string]string, error) {
	return c.GenericHandler.Read(filenames...)
}

func (c *Handler) MapKeyToString(envMap map[string]string, key string) string {
	if value, exists := envMap[key]; exists {
		return value
	}

	return ""
}

func (c *Handler) MapKeyToInt(envMap map[string]string, key string) int {
	value := c.MapKeyToString(envMap, key)
	if value == "" {
		return -1
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}

	return intValue
}

func (c *Handler) MapKeyToUInt64(envMap map[string]string, key string) uint64 {
	value := c.MapKeyToString(envMap, key)
	if value == "" {
		return 0
	}
	intValue, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}

	return intValue
}

func (c *Handler) MapKeyToBool(envMap map[string]string, key string) bool {
	value := c.MapKeyToString(envMap, key)
	if value == "" {
		return false
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return false
	}

	return boolValue
}

// Settings are the mount-time options consumed by archive initialization.
type Settings struct {
	// SDMCRoot is the host directory backing the SDMC archive; empty
	// leaves SDMC unmounted.
	SDMCRoot string

	// MountMemfs mounts an in-memory save-data archive when set.
	MountMemfs bool
}

// Load reads the given env files and maps them into Settings.
func (c *Handler) Load(filenames ...string) (Settings, error) {
	envMap, err := c.ReadGeneric(filenames...)
	if err != nil {
		return Settings{}, fmt.Errorf("(config) %w", err)
	}

	return Settings{
		SDMCRoot:   c.MapKeyToString(envMap, KeySDMCRoot),
		MountMemfs: c.MapKeyToBool(envMap, KeyMountMemfs),
	}, nil
}
