package sdfmarch

import "github.com/soypat/sdfmarch/glbuild"

// Scale factors for [Builder.NewCityGrid].
const (
	// CityBlockScale renders blocks 2.8 units wide and 20 units tall, a street tile every 16 units.
	CityBlockScale float32 = 1
	// MiniatureScale shrinks the city so a whole tile fits within one unit.
	MiniatureScale float32 = 1. / 16
)

// City grid layout at unit scale.
const (
	cityTile         = 16
	cityGroundHeight = -0.5
	cityBlockHalfX   = 1.4
	cityBlockHalfY   = 10
	cityBlockHalfZ   = 1.4
	citySphereRadius = 1
)

// NewCityGrid returns the union of a ground plane at y=-0.5, an infinite grid of tall blocks
// and an infinite grid of spheres resting above the ground, interleaved with the blocks
// by half a tile. The whole scene is then scaled by k.
func (bld *Builder) NewCityGrid(k float32) glbuild.Shader3D {
	const halfTile = cityTile / 2
	ground := bld.NewGround(cityGroundHeight)
	block := bld.NewBox(cityBlockHalfX, cityBlockHalfY, cityBlockHalfZ)
	block = bld.Translate(block, 0, cityBlockHalfY, 0)
	blocks := bld.TileXZ(block, cityTile, 0, halfTile)

	ball := bld.NewSphere(citySphereRadius)
	ball = bld.Translate(ball, 0, citySphereRadius, 0)
	balls := bld.TileXZ(ball, cityTile, halfTile, 0)

	city := bld.Union(ground, blocks, balls)
	if k == 1 {
		return city
	}
	return bld.Scale(city, k)
}
