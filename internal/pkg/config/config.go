// Package config reads typed settings from a file with environment overrides.
package config

import (
	"io"
	"time"
)

// Config retrieves values by dotted key, for example
// "modules.credential.ttl_seconds". A missing or unconvertible value yields
// the zero value of the requested type.
type Config interface {
	io.Closer

	GetBool(key string) bool
	GetString(key string) string
	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
	GetUint16(key string) uint16
	GetFloat64(key string) float64

	// Duration getters read an integer count of the unit in their name.
	GetMillisecond(key string) time.Duration
	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration
	GetHour(key string) time.Duration

	// GetBinary decodes base64 and returns nil for anything else.
	GetBinary(key string) []byte

	// GetArray reads a YAML list or a comma separated string. Elements are
	// trimmed and blanks dropped.
	GetArray(key string) []string

	// GetMap reads "k1:v1,k2:v2" and skips entries without a colon.
	GetMap(key string) map[string]string
}
