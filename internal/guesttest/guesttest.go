// Package guesttest assembles minimal GOOS=js shaped wasm modules for tests.
//
// The generated guest imports gojs runtime.wasmExit, exports run, resume,
// getsp and a one page memory named mem. Its run export returns without
// exiting when argc < 2; otherwise it calls wasmExit with argc as the exit
// code. resume is a no-op and getsp returns SP.
//
// AddGuest builds a variant importing _gotest.add whose run exits with
// argc + AddOperand.
package guesttest

// SP is the stack pointer reported by the guest.
const SP = 0x8000

// AddOperand is the constant AddGuest passes to _gotest.add with argc.
const AddOperand = 40

const (
	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionMemory   = 5
	sectionExport   = 7
	sectionCode     = 10

	kindFunc   = 0x00
	kindMemory = 0x02

	typeI32       = 0x7f
	opEnd         = 0x0b
	opReturn      = 0x0f
	opIf          = 0x04
	opBlockEmpty  = 0x40
	opCall        = 0x10
	opLocalGet    = 0x20
	opI32Store    = 0x36
	opI32Const    = 0x41
	opI32LtU      = 0x49
	funcTypeMagic = 0x60
)

// Exports names every export of a complete guest.
var Exports = []string{"run", "resume", "getsp", "mem"}

type importSpec struct {
	module string
	name   string
	typ    byte
}

// Guest returns a complete guest. extra names additional gojs imports of
// type (i32) -> (); they are never called.
func Guest(extra ...string) []byte {
	imports := gojsImports(extra)
	return build(imports, "", exitArgc())
}

// Without returns a guest lacking the named export.
func Without(export string) []byte {
	imports := gojsImports(nil)
	return build(imports, export, exitArgc())
}

// AddGuest returns a guest whose run stores _gotest.add(argc, AddOperand) at
// SP+8 and calls wasmExit with it.
func AddGuest() []byte {
	imports := append(gojsImports(nil), importSpec{"_gotest", "add", typeAdd})
	sp := append([]byte{opI32Const}, sleb(SP)...)

	run := []byte{0}
	run = append(run, sp...)
	run = append(run, opLocalGet, 0, opI32Const)
	run = append(run, sleb(AddOperand)...)
	run = append(run, opCall)
	run = append(run, uleb(1)...)
	run = append(run, opI32Store, 2, 8)
	run = append(run, sp...)
	run = append(run, opCall)
	run = append(run, uleb(0)...)
	run = append(run, opEnd)
	return build(imports, "", run)
}

func gojsImports(extra []string) []importSpec {
	imports := []importSpec{{"gojs", "runtime.wasmExit", typeSP}}
	for _, name := range extra {
		imports = append(imports, importSpec{"gojs", name, typeSP})
	}
	return imports
}

// exitArgc is the default run body: return when argc < 2, otherwise exit
// with argc.
func exitArgc() []byte {
	sp := append([]byte{opI32Const}, sleb(SP)...)
	exit := uleb(0) // runtime.wasmExit is always the first import

	run := []byte{0} // no locals
	run = append(run, opLocalGet, 0, opI32Const, 2, opI32LtU, opIf, opBlockEmpty, opReturn, opEnd)
	run = append(run, sp...)
	run = append(run, opLocalGet, 0, opI32Store, 2, 8)
	run = append(run, sp...)
	run = append(run, opCall)
	run = append(run, exit...)
	run = append(run, opEnd)
	return run
}

// Plain returns a module with one exported memory and no imports.
func Plain() []byte {
	var b []byte
	b = append(b, header()...)
	b = append(b, section(sectionMemory, vec(1, []byte{0x00, 0x01}))...)
	b = append(b, section(sectionExport, vec(1, export("mem", kindMemory, 0)))...)
	return b
}

// Type indices used by build.
const (
	typeSP     = 0 // (i32) -> ()
	typeRun    = 1 // (i32 i32) -> ()
	typeResume = 2 // () -> ()
	typeGetSP  = 3 // () -> (i32)
	typeAdd    = 4 // (i32 i32) -> (i32)
)

func build(imports []importSpec, skip string, run []byte) []byte {
	types := vec(5,
		[]byte{funcTypeMagic, 1, typeI32, 0},
		[]byte{funcTypeMagic, 2, typeI32, typeI32, 0},
		[]byte{funcTypeMagic, 0, 0},
		[]byte{funcTypeMagic, 0, 1, typeI32},
		[]byte{funcTypeMagic, 2, typeI32, typeI32, 1, typeI32},
	)

	var imps [][]byte
	for _, imp := range imports {
		b := append(str(imp.module), str(imp.name)...)
		imps = append(imps, append(b, kindFunc, imp.typ))
	}

	first := uint32(len(imports))
	sp := append([]byte{opI32Const}, sleb(SP)...)

	resume := []byte{0, opEnd}
	getsp := append(append([]byte{0}, sp...), opEnd)

	var exps [][]byte
	for i, name := range Exports {
		if name == skip {
			continue
		}
		if name == "mem" {
			exps = append(exps, export(name, kindMemory, 0))
			continue
		}
		exps = append(exps, export(name, kindFunc, first+uint32(i)))
	}

	var b []byte
	b = append(b, header()...)
	b = append(b, section(sectionType, types)...)
	b = append(b, section(sectionImport, vec(len(imps), imps...))...)
	b = append(b, section(sectionFunction, vec(3, []byte{typeRun}, []byte{typeResume}, []byte{typeGetSP}))...)
	b = append(b, section(sectionMemory, vec(1, []byte{0x00, 0x01}))...)
	b = append(b, section(sectionExport, vec(len(exps), exps...))...)
	b = append(b, section(sectionCode, vec(3, sized(run), sized(resume), sized(getsp)))...)
	return b
}

func header() []byte {
	return []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
}

func section(id byte, content []byte) []byte {
	return append([]byte{id}, sized(content)...)
}

func sized(b []byte) []byte {
	return append(uleb(uint32(len(b))), b...)
}

func vec(n int, items ...[]byte) []byte {
	out := uleb(uint32(n))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func str(s string) []byte {
	return sized([]byte(s))
}

func export(name string, kind byte, idx uint32) []byte {
	return append(append(str(name), kind), uleb(idx)...)
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func sleb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
