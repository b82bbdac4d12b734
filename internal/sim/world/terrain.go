package world

import (
	"math"
	"sync"
)

type Block uint8

const (
	BlockAir Block = iota
	BlockGround
	BlockWater
	BlockPlaced
)

func (b Block) Solid() bool { return b == BlockGround || b == BlockPlaced }

// ProceduralTerrain is a seeded height field: value noise over a coarse grid, water filling
// basins below sea level, plus explicit block overrides placed at runtime.
type ProceduralTerrain struct {
	Seed      int64
	BaseY     int
	Amplitude int
	SeaLevel  int
	CellSize  int

	mu        sync.RWMutex
	overrides map[blockKey]Block
}

type blockKey struct {
	world   string
	x, y, z int
}

var _ Terrain = (*ProceduralTerrain)(nil)

func NewProceduralTerrain(seed int64) *ProceduralTerrain {
	return &ProceduralTerrain{
		Seed:      seed,
		BaseY:     64,
		Amplitude: 12,
		SeaLevel:  58,
		CellSize:  32,
		overrides: map[blockKey]Block{},
	}
}

// SurfaceY is the height of the natural ground column before water and overrides.
func (t *ProceduralTerrain) SurfaceY(world string, x, z int) int {
	cell := t.CellSize
	if cell <= 0 {
		cell = 32
	}
	gx, gz := floorDiv(x, cell), floorDiv(z, cell)
	fx := float64(x-gx*cell) / float64(cell)
	fz := float64(z-gz*cell) / float64(cell)

	ws := worldSalt(world)
	h00 := t.corner(ws, gx, gz)
	h10 := t.corner(ws, gx+1, gz)
	h01 := t.corner(ws, gx, gz+1)
	h11 := t.corner(ws, gx+1, gz+1)

	sx, sz := smooth(fx), smooth(fz)
	top := h00 + (h10-h00)*sx
	bottom := h01 + (h11-h01)*sx
	v := top + (bottom-top)*sz
	return t.BaseY + int(math.Round(v*float64(t.Amplitude)))
}

func (t *ProceduralTerrain) corner(salt int, gx, gz int) float64 {
	h := hash3(t.Seed, gx, salt, gz)
	// [-1,1)
	return float64(h%2000)/1000.0 - 1.0
}

func (t *ProceduralTerrain) natural(world string, x, y, z int) Block {
	s := t.SurfaceY(world, x, z)
	if y <= s {
		return BlockGround
	}
	if y < t.SeaLevel {
		return BlockWater
	}
	return BlockAir
}

func (t *ProceduralTerrain) BlockAt(world string, x, y, z int) Block {
	t.mu.RLock()
	b, ok := t.overrides[blockKey{world, x, y, z}]
	t.mu.RUnlock()
	if ok {
		return b
	}
	return t.natural(world, x, y, z)
}

func (t *ProceduralTerrain) SetBlock(world string, x, y, z int, b Block) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.overrides == nil {
		t.overrides = map[blockKey]Block{}
	}
	t.overrides[blockKey{world, x, y, z}] = b
}

func (t *ProceduralTerrain) ClearBlock(world string, x, y, z int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.overrides, blockKey{world, x, y, z})
}

func (t *ProceduralTerrain) HighestBlockY(world string, x, z int) int {
	top := t.SurfaceY(world, x, z)
	if top < t.SeaLevel-1 {
		top = t.SeaLevel - 1
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	for k, b := range t.overrides {
		if k.world != world || k.x != x || k.z != z {
			continue
		}
		if b != BlockAir && k.y > top {
			top = k.y
		}
	}
	// Overrides may also carve the natural top away.
	for top > 0 {
		b, ok := t.overrides[blockKey{world, x, top, z}]
		if !ok || b != BlockAir {
			break
		}
		top--
	}
	return top
}

func (t *ProceduralTerrain) Solid(world string, x, y, z int) bool {
	return t.BlockAt(world, x, y, z).Solid()
}

func smooth(f float64) float64 { return f * f * (3 - 2*f) }

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func worldSalt(world string) int {
	// FNV-1a 64-bit, folded to int.
	var h uint64 = 1469598103934665603
	for i := 0; i < len(world); i++ {
		h ^= uint64(world[i])
		h *= 1099511628211
	}
	return int(uint32(h))
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash3(seed int64, x, y, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xc2b2ae3d27d4eb4f) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}
