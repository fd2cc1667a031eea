package ptree

import "strings"

// intrinsicNames is the fixed set of Fortran intrinsic procedures. The dump
// format renders intrinsic function calls exactly like user function
// references, so the call pass consults this set before attempting
// resolution.
var intrinsicNames = map[string]struct{}{}

func init() {
	for _, n := range []string{
		// numeric
		"abs", "aimag", "aint", "anint", "ceiling", "cmplx", "conjg",
		"dble", "dim", "dprod", "floor", "int", "max", "min", "mod",
		"modulo", "nint", "real", "sign",
		// mathematical
		"acos", "acosh", "asin", "asinh", "atan", "atan2", "atanh",
		"bessel_j0", "bessel_j1", "bessel_jn", "bessel_y0", "bessel_y1",
		"bessel_yn", "cos", "cosh", "erf", "erfc", "erfc_scaled", "exp",
		"gamma", "hypot", "log", "log10", "log_gamma", "norm2", "sin",
		"sinh", "sqrt", "tan", "tanh",
		// character
		"achar", "adjustl", "adjustr", "char", "iachar", "ichar", "index",
		"len", "len_trim", "lge", "lgt", "lle", "llt", "new_line", "repeat",
		"scan", "trim", "verify",
		// kind / numeric inquiry
		"bit_size", "digits", "epsilon", "exponent", "fraction", "huge",
		"kind", "maxexponent", "minexponent", "nearest", "precision",
		"radix", "range", "rrspacing", "scale", "selected_char_kind",
		"selected_int_kind", "selected_real_kind", "set_exponent",
		"spacing", "tiny",
		// bit manipulation
		"btest", "iand", "ibclr", "ibits", "ibset", "ieor", "ior", "ishft",
		"ishftc", "leadz", "maskl", "maskr", "merge_bits", "not", "popcnt",
		"poppar", "shifta", "shiftl", "shiftr", "trailz",
		// array
		"all", "any", "count", "cshift", "dot_product", "eoshift",
		"findloc", "lbound", "matmul", "maxloc", "maxval", "merge",
		"minloc", "minval", "pack", "product", "reshape", "shape", "size",
		"spread", "sum", "transfer", "transpose", "ubound", "unpack",
		// inquiry and misc
		"allocated", "associated", "command_argument_count", "extends_type_of",
		"is_iostat_end", "is_iostat_eor", "present", "same_type_as",
		"storage_size",
		// subroutine intrinsics that still appear as references
		"cpu_time", "date_and_time", "execute_command_line", "get_command",
		"get_command_argument", "get_environment_variable", "move_alloc",
		"mvbits", "random_number", "random_seed", "system_clock",
		// legacy specifics common in ocean-model codebases
		"alog", "alog10", "amax1", "amin1", "amod", "dabs", "dcos", "dexp",
		"dlog", "dmax1", "dmin1", "dsign", "dsin", "dsqrt", "float", "iabs",
		"idint", "ifix", "isign", "sngl",
	} {
		intrinsicNames[n] = struct{}{}
	}
}

// isIntrinsic reports whether name is a Fortran intrinsic procedure.
func isIntrinsic(name string) bool {
	_, ok := intrinsicNames[lower(name)]
	return ok
}

// foreignCallPrefix marks runtime/library calls that are never resolvable
// from parse trees (MPI and friends); they are dropped without a warning.
const foreignCallPrefix = "mpi_"

func isForeignCall(name string) bool {
	return strings.HasPrefix(lower(name), foreignCallPrefix)
}

func lower(s string) string { return strings.ToLower(s) }
