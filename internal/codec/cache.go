package codec

import (
	"fmt"
	"sync"

	"github.com/zzenonn/fecvault/internal/gf256"
)

// matrixKey identifies a cached generator matrix by shape.
type matrixKey struct {
	k, m int
}

// matrixCache memoizes generator matrices by (k, m) so repeated encodes at
// the same shape don't repeat the Cauchy construction. Only generator
// matrices are cached; decode submatrix inversions are not.
// Callers receive a defensive copy; the cache itself is never mutated by a
// caller holding a row slice.
type matrixCache struct {
	mu    sync.RWMutex
	byKey map[matrixKey][][]byte
}

func newMatrixCache() *matrixCache {
	return &matrixCache{byKey: make(map[matrixKey][][]byte)}
}

func (c *matrixCache) get(k, m int) [][]byte {
	key := matrixKey{k, m}

	c.mu.RLock()
	cached, ok := c.byKey[key]
	c.mu.RUnlock()
	if ok {
		return cloneMatrix(cached)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.byKey[key]; ok {
		return cloneMatrix(cached)
	}
	matrix := gf256.GenerateCauchyMatrix(k, m)
	c.byKey[key] = matrix
	return cloneMatrix(matrix)
}

func cloneMatrix(m [][]byte) [][]byte {
	out := make([][]byte, len(m))
	for i, row := range m {
		out[i] = append([]byte(nil), row...)
	}
	return out
}

func (c *matrixCache) String() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fmt.Sprintf("matrixCache{%d shapes cached}", len(c.byKey))
}
