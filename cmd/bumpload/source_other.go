//go:build !unix

package main

import (
	"github.com/pavanmanishd/bump"
	"github.com/pkg/errors"
)

func mmapSource() (bump.Source, error) {
	return nil, errors.New("mmap source is only available on unix")
}
