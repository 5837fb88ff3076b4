//go:build unix

package main

import "github.com/pavanmanishd/bump"

func mmapSource() (bump.Source, error) {
	return bump.MmapSource{}, nil
}
