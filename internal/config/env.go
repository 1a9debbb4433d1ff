package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	apperr "github.com/hed1ad/anomalyconsensus/internal/errors"
)

// Conf is a namespaced view over environment variables (e.g. "CONSENSUS_").
// Invalid values are collected rather than silently replaced by defaults.
type Conf struct {
	prefix string
	errs   *[]string
}

// NewConf returns a root Conf with no prefix.
func NewConf() Conf { return Conf{errs: new([]string)} }

// Prefix returns a child Conf with an additional prefix.
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p, errs: c.errs} }

func (c Conf) key(k string) string { return c.prefix + k }

func (c Conf) lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(c.key(key)))
	return v, v != ""
}

func (c Conf) invalid(key, value, want string) {
	*c.errs = append(*c.errs, c.key(key)+"="+strconv.Quote(value)+": expected "+want)
}

// Err reports every invalid value seen so far as one configuration error.
func (c Conf) Err() error {
	if len(*c.errs) == 0 {
		return nil
	}
	return apperr.Configuration("invalid environment: " + strings.Join(*c.errs, "; "))
}

// String returns the value or def if missing or empty.
func (c Conf) String(key, def string) string {
	if v, ok := c.lookup(key); ok {
		return v
	}
	return def
}

// Int returns the value or def if missing.
func (c Conf) Int(key string, def int) int {
	s, ok := c.lookup(key)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		c.invalid(key, s, "an integer")
		return def
	}
	return v
}

// Int64 returns the value or def if missing.
func (c Conf) Int64(key string, def int64) int64 {
	s, ok := c.lookup(key)
	if !ok {
		return def
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		c.invalid(key, s, "an integer")
		return def
	}
	return v
}

// Float returns the value or def if missing.
func (c Conf) Float(key string, def float64) float64 {
	s, ok := c.lookup(key)
	if !ok {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		c.invalid(key, s, "a number")
		return def
	}
	return v
}

// Bool parses "1|true|yes|0|false|no" with a default fallback.
func (c Conf) Bool(key string, def bool) bool {
	s, ok := c.lookup(key)
	if !ok {
		return def
	}
	switch strings.ToLower(s) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	c.invalid(key, s, "a boolean")
	return def
}

// Duration returns the value (e.g. 250ms, 2s) or def if missing.
func (c Conf) Duration(key string, def time.Duration) time.Duration {
	s, ok := c.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		c.invalid(key, s, "a duration such as 250ms or 2s")
		return def
	}
	return d
}

// List splits a comma-separated value, dropping blanks.
func (c Conf) List(key string, def []string) []string {
	s, ok := c.lookup(key)
	if !ok {
		return def
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
