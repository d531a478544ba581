package typemap

import "testing"

func TestExactKeys(t *testing.T) {
	cases := []struct {
		cppType string
		mpi     MPIType
		literal string
	}{
		{"int", MPIInt, "0"},
		{"long", MPILong, "0L"},
		{"long long", MPILongLong, "0LL"},
		{"unsigned int", MPIUnsigned, "0U"},
		{"float", MPIFloat, "0.0f"},
		{"double", MPIDouble, "0.0"},
		{"bool", MPIBool, "false"},
		{"_Bool", MPIBool, "false"},
		{"char", MPIChar, "'\\0'"},
		{"std::string", Unsupported, "\"\""},
	}
	for _, c := range cases {
		if got := MPITypeOf(c.cppType); got != c.mpi {
			t.Errorf("MPITypeOf(%q) = %q, want %q", c.cppType, got, c.mpi)
		}
		if got := DefaultLiteralOf(c.cppType); got != c.literal {
			t.Errorf("DefaultLiteralOf(%q) = %q, want %q", c.cppType, got, c.literal)
		}
	}
}

func TestChronoIsUnsupported(t *testing.T) {
	if IsSupported("std::chrono::duration<double>") {
		t.Fatal("chrono types must be unsupported")
	}
	if got := DefaultLiteralOf("std::chrono::duration<double>"); got != "std::chrono::system_clock::time_point{}" {
		t.Errorf("unexpected chrono default literal: %q", got)
	}
}

func TestNamespacedTypeIsUnsupported(t *testing.T) {
	if IsSupported("MyNamespace::Matrix") {
		t.Fatal("namespaced types must be unsupported")
	}
	if got := DefaultLiteralOf("MyNamespace::Matrix"); got != "MyNamespace::Matrix{}" {
		t.Errorf("unexpected default literal: %q", got)
	}
}

func TestUnknownScalarFallsBackToInt(t *testing.T) {
	if got := MPITypeOf("size_t"); got != MPIInt {
		t.Errorf("unknown scalar should fall back to MPI_INT, got %q", got)
	}
	if got := DefaultLiteralOf("size_t"); got != "0" {
		t.Errorf("unknown scalar default literal = %q, want 0", got)
	}
}
