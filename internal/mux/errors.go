package mux

import "errors"

var errBinaryMissing = errors.New("mux: no muxer binary found on PATH")
