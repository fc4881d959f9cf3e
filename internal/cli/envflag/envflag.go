// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package envflag defines flags whose defaults come from environment
// variables.
package envflag

import (
	"flag"
	"fmt"
	"strconv"
	"time"
)

// Type is a constraint that permits only types supported by envflag package.
type Type interface {
	int | bool | string | time.Duration
}

// Value defines a flag with the given name and usage on fs.
//
// If the environment variable envName is set and parses as T, it replaces
// value as the flag default. A command-line flag always wins over the
// environment.
func Value[T Type](
	name, envName string, value T, usage string,
	fs *flag.FlagSet, getenv func(string) string,
) *T {
	v := &flagValue[T]{p: new(T)}
	*v.p = value
	if s := getenv(envName); s != "" {
		// Malformed environment values are ignored.
		_ = v.Set(s)
	}
	fs.Var(v, name, usage+" Can be overridden by "+envName+" environment variable.")
	return v.p
}

type flagValue[T Type] struct{ p *T }

func (f *flagValue[T]) String() string {
	if f.p == nil {
		return ""
	}
	return fmt.Sprint(*f.p)
}

func (f *flagValue[T]) IsBoolFlag() bool {
	_, ok := any(f.p).(*bool)
	return ok
}

func (f *flagValue[T]) Set(s string) error {
	var (
		v   any
		err error
	)
	switch any(f.p).(type) {
	case *int:
		v, err = strconv.Atoi(s)
	case *bool:
		v, err = strconv.ParseBool(s)
	case *string:
		v = s
	case *time.Duration:
		v, err = time.ParseDuration(s)
	}
	if err != nil {
		return err
	}
	*f.p = v.(T)
	return nil
}
