// Package gf256 implements arithmetic over the Galois field GF(2^8) used by
// the Reed-Solomon codec: element addition/multiplication/inversion, slice
// operations, and construction of the systematic Cauchy generator matrix.
package gf256

import "github.com/zzenonn/fecvault/internal/errors"

// primitivePoly is x^8 + x^4 + x^3 + x^2 + 1, the polynomial used to build
// the exponent/log tables (0x11D with the implicit x^8 term dropped: 0x1D).
const primitivePoly = 0x1D

var (
	expTable [510]byte // doubled so (log[a]+log[b]) never needs a modulo branch
	logTable [256]uint16
)

func init() {
	x := byte(1)
	for i := 0; i < 255; i++ {
		expTable[i] = x
		logTable[x] = uint16(i)
		hi := x&0x80 != 0
		x <<= 1
		if hi {
			x ^= primitivePoly
		}
	}
	logTable[0] = 0
	for i := 255; i < 510; i++ {
		expTable[i] = expTable[i-255]
	}
}

// Add returns a XOR b, the field's addition (and its own inverse).
func Add(a, b byte) byte {
	return a ^ b
}

// AddSlice XORs src into dst in place. Panics if the slices differ in length.
func AddSlice(dst, src []byte) {
	if len(dst) != len(src) {
		panic("gf256: AddSlice length mismatch")
	}
	for i := range dst {
		dst[i] ^= src[i]
	}
}

// Mul returns a*b over GF(2^8).
func Mul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	sum := int(logTable[a]) + int(logTable[b])
	return expTable[sum]
}

// MulSlice computes dst[i] = scalar * src[i] for all i. Panics if the slices
// differ in length.
func MulSlice(dst, src []byte, scalar byte) {
	if len(dst) != len(src) {
		panic("gf256: MulSlice length mismatch")
	}
	if scalar == 0 {
		clear(dst)
		return
	}
	logScalar := int(logTable[scalar])
	for i, s := range src {
		if s == 0 {
			dst[i] = 0
			continue
		}
		dst[i] = expTable[logScalar+int(logTable[s])]
	}
}

// Invert returns the multiplicative inverse of a. a must be non-zero.
func Invert(a byte) (byte, error) {
	if a == 0 {
		return 0, errors.InvalidParameters("invert: zero has no multiplicative inverse")
	}
	return expTable[255-int(logTable[a])], nil
}

// InvertMatrix returns the inverse of a square matrix over GF(2^8) using
// Gauss-Jordan elimination, taking as pivot the first non-zero entry at or
// below the diagonal in the active column and swapping rows to place it. It
// allocates a working copy and never mutates m. Returns ErrSingularMatrix if
// no pivot is found in the active column.
func InvertMatrix(m [][]byte) ([][]byte, error) {
	n := len(m)
	work := make([][]byte, n)
	inv := make([][]byte, n)
	for i := range m {
		if len(m[i]) != n {
			return nil, errors.InvalidParameters("InvertMatrix: not square")
		}
		work[i] = append([]byte(nil), m[i]...)
		inv[i] = make([]byte, n)
		inv[i][i] = 1
	}

	for col := 0; col < n; col++ {
		pivotRow := -1
		for row := col; row < n; row++ {
			if work[row][col] != 0 {
				pivotRow = row
				break
			}
		}
		if pivotRow < 0 {
			return nil, errors.ErrSingularMatrix
		}
		if pivotRow != col {
			work[col], work[pivotRow] = work[pivotRow], work[col]
			inv[col], inv[pivotRow] = inv[pivotRow], inv[col]
		}

		pivotInv, err := Invert(work[col][col])
		if err != nil {
			return nil, errors.ErrSingularMatrix
		}
		MulSlice(work[col], work[col], pivotInv)
		MulSlice(inv[col], inv[col], pivotInv)

		for row := 0; row < n; row++ {
			if row == col || work[row][col] == 0 {
				continue
			}
			factor := work[row][col]
			scaledWork := make([]byte, n)
			scaledInv := make([]byte, n)
			MulSlice(scaledWork, work[col], factor)
			MulSlice(scaledInv, inv[col], factor)
			AddSlice(work[row], scaledWork)
			AddSlice(inv[row], scaledInv)
		}
	}

	return inv, nil
}

// GenerateCauchyMatrix returns the (k+m)x k systematic generator matrix: the
// top k rows are the identity, the bottom m rows form a Cauchy matrix with
// C[i][j] = 1/(x_i XOR y_j), x_i = i for i in [0,m), y_j = m+j for j in [0,k).
// Because the x_i and y_j sequences are disjoint, every square submatrix of
// the Cauchy rows is invertible, and so is every k x k submatrix formed from
// any k rows of the result (the MDS property).
func GenerateCauchyMatrix(k, m int) [][]byte {
	rows := k + m
	matrix := make([][]byte, rows)
	for i := 0; i < k; i++ {
		matrix[i] = make([]byte, k)
		matrix[i][i] = 1
	}
	for i := 0; i < m; i++ {
		row := make([]byte, k)
		x := byte(i)
		for j := 0; j < k; j++ {
			y := byte(m + j)
			denom := x ^ y
			inv, _ := Invert(denom) // denom != 0: x and y sequences are disjoint
			row[j] = inv
		}
		matrix[k+i] = row
	}
	return matrix
}
