package bridge

import (
	"sort"

	"github.com/wippyai/wasm-gojs/errors"
	"github.com/wippyai/wasm-gojs/memory"
)

// Command line and environment strings are passed in a fixed window of guest
// memory the Go runtime leaves free for this purpose.
const (
	argvOffset = 4096
	argvLimit  = argvOffset + 8192
)

func align8(n uint32) uint32 {
	return (n + 7) &^ 7
}

// writeArgs lays out args and env at argvOffset: NUL terminated strings each
// padded to 8 bytes, then the argv pointer array terminated by 0 and the
// envp pointer array terminated by 0. Every pointer occupies 8 bytes. It
// returns argc and the address of argv.
func writeArgs(v *memory.View, args []string, env map[string]string) (uint32, uint32, error) {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	strs := make([]string, 0, len(args)+len(keys))
	strs = append(strs, args...)
	for _, k := range keys {
		strs = append(strs, k+"="+env[k])
	}

	end := uint64(argvOffset)
	for _, s := range strs {
		end += uint64(align8(uint32(len(s)) + 1))
		if end >= argvLimit {
			return 0, 0, tooLong()
		}
	}
	end += uint64(len(strs)+2) * 8
	if end >= argvLimit {
		return 0, 0, tooLong()
	}

	offset := uint32(argvOffset)
	ptrs := make([]uint32, 0, len(strs)+2)
	for i, s := range strs {
		if i == len(args) {
			ptrs = append(ptrs, 0)
		}
		b := make([]byte, align8(uint32(len(s))+1))
		copy(b, s)
		if err := v.Write(offset, b); err != nil {
			return 0, 0, err
		}
		ptrs = append(ptrs, offset)
		offset += uint32(len(b))
	}
	if len(keys) == 0 {
		ptrs = append(ptrs, 0)
	}
	ptrs = append(ptrs, 0)

	argv := offset
	for _, p := range ptrs {
		if err := v.WriteUint64(offset, uint64(p)); err != nil {
			return 0, 0, err
		}
		offset += 8
	}
	return uint32(len(args)), argv, nil
}

func tooLong() error {
	return errors.ResourceLimit(errors.PhaseLifecycle,
		"total length of command line and environment variables exceeds limit")
}
