package gf256

import "testing"

func TestAddIsXor(t *testing.T) {
	tests := []struct{ a, b, want byte }{
		{0, 0, 0},
		{1, 1, 0},
		{0xFF, 0x0F, 0xF0},
		{0x53, 0xCA, 0x53 ^ 0xCA},
	}
	for _, tt := range tests {
		if got := Add(tt.a, tt.b); got != tt.want {
			t.Errorf("Add(%#x,%#x) = %#x, want %#x", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMulZero(t *testing.T) {
	for a := 0; a < 256; a++ {
		if Mul(byte(a), 0) != 0 || Mul(0, byte(a)) != 0 {
			t.Fatalf("Mul with 0 must be 0, a=%d", a)
		}
	}
}

func TestMulIdentity(t *testing.T) {
	for a := 1; a < 256; a++ {
		if got := Mul(byte(a), 1); got != byte(a) {
			t.Errorf("Mul(%d,1) = %d, want %d", a, got, a)
		}
	}
}

func TestMulCommutative(t *testing.T) {
	for a := 0; a < 256; a += 7 {
		for b := 0; b < 256; b += 11 {
			if Mul(byte(a), byte(b)) != Mul(byte(b), byte(a)) {
				t.Fatalf("Mul not commutative for %d,%d", a, b)
			}
		}
	}
}

func TestInvert(t *testing.T) {
	if _, err := Invert(0); err == nil {
		t.Fatal("Invert(0) should fail")
	}
	for a := 1; a < 256; a++ {
		inv, err := Invert(byte(a))
		if err != nil {
			t.Fatalf("Invert(%d) failed: %v", a, err)
		}
		if got := Mul(byte(a), inv); got != 1 {
			t.Errorf("a=%d * inv(a)=%d = %d, want 1", a, inv, got)
		}
	}
}

func TestMulSliceAgainstMul(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5, 250, 251, 0}
	dst := make([]byte, len(src))
	scalar := byte(37)
	MulSlice(dst, src, scalar)
	for i, s := range src {
		if want := Mul(s, scalar); dst[i] != want {
			t.Errorf("MulSlice[%d] = %d, want %d", i, dst[i], want)
		}
	}
}

func TestAddSliceXorsInPlace(t *testing.T) {
	dst := []byte{1, 2, 3}
	src := []byte{1, 1, 1}
	AddSlice(dst, src)
	want := []byte{0, 3, 2}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("AddSlice result = %v, want %v", dst, want)
		}
	}
}

func TestGenerateCauchyMatrixSystematic(t *testing.T) {
	k, m := 4, 2
	matrix := GenerateCauchyMatrix(k, m)
	if len(matrix) != k+m {
		t.Fatalf("expected %d rows, got %d", k+m, len(matrix))
	}
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			want := byte(0)
			if i == j {
				want = 1
			}
			if matrix[i][j] != want {
				t.Fatalf("identity block mismatch at (%d,%d): got %d want %d", i, j, matrix[i][j], want)
			}
		}
	}
}

func TestCauchySubmatrixInvertible(t *testing.T) {
	k, m := 6, 4
	matrix := GenerateCauchyMatrix(k, m)

	// Every size-k subset of rows must produce an invertible k x k submatrix.
	// Exhaustive subset enumeration is exponential; sample the boundary cases
	// (all-systematic, all-parity-where-possible, and mixed) instead.
	subsets := [][]int{
		seqRange(0, k),
		append(seqRange(0, k-m), seqRange(k, k+m)...),
		append(seqRange(1, k), k),
	}
	for _, idx := range subsets {
		sub := make([][]byte, len(idx))
		for i, r := range idx {
			sub[i] = matrix[r]
		}
		if _, err := InvertMatrix(sub); err != nil {
			t.Errorf("submatrix for rows %v should be invertible: %v", idx, err)
		}
	}
}

func seqRange(lo, hi int) []int {
	out := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, i)
	}
	return out
}

func TestInvertMatrixDoesNotMutateInput(t *testing.T) {
	m := [][]byte{{1, 2}, {3, 5}}
	original := [][]byte{{1, 2}, {3, 5}}
	if _, err := InvertMatrix(m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range m {
		for j := range m[i] {
			if m[i][j] != original[i][j] {
				t.Fatalf("InvertMatrix mutated its input")
			}
		}
	}
}

func TestInvertMatrixRoundTrip(t *testing.T) {
	m := [][]byte{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 10},
	}
	inv, err := InvertMatrix(m)
	if err != nil {
		t.Fatalf("InvertMatrix failed: %v", err)
	}

	// m * inv should be the identity matrix.
	n := len(m)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var sum byte
			for k := 0; k < n; k++ {
				sum = Add(sum, Mul(m[i][k], inv[k][j]))
			}
			want := byte(0)
			if i == j {
				want = 1
			}
			if sum != want {
				t.Fatalf("m*inv[%d][%d] = %d, want %d", i, j, sum, want)
			}
		}
	}
}

func TestInvertMatrixSingular(t *testing.T) {
	m := [][]byte{
		{1, 1},
		{1, 1},
	}
	if _, err := InvertMatrix(m); err == nil {
		t.Fatal("expected singular matrix error")
	}
}
