package main

import (
	"errors"

	"github.com/you-not-fish/kestrel/internal/cfg"
	"github.com/you-not-fish/kestrel/internal/compiler"
)

// errorLine returns the listing line err refers to, or 0.
func errorLine(err error) int {
	var ce *compiler.Error
	if errors.As(err, &ce) {
		return ce.Line
	}
	var ge *cfg.Error
	if errors.As(err, &ge) {
		return ge.Line
	}
	return 0
}
