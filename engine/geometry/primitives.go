package geometry

import "github.com/spaghettifunk/onyx/engine/math"

// cubeFaces lists each face as its normal and the corners of the quad in
// the order min-uv, max-uv, (min u, max v), (max u, min v).
var cubeFaces = [6]struct {
	normal  math.Vec3
	corners [4]math.Vec3
}{
	// front
	{math.Vec3{X: 0, Y: 0, Z: 1}, [4]math.Vec3{{X: -1, Y: -1, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: -1, Y: 1, Z: 1}, {X: 1, Y: -1, Z: 1}}},
	// back
	{math.Vec3{X: 0, Y: 0, Z: -1}, [4]math.Vec3{{X: 1, Y: -1, Z: -1}, {X: -1, Y: 1, Z: -1}, {X: 1, Y: 1, Z: -1}, {X: -1, Y: -1, Z: -1}}},
	// left
	{math.Vec3{X: -1, Y: 0, Z: 0}, [4]math.Vec3{{X: -1, Y: -1, Z: -1}, {X: -1, Y: 1, Z: 1}, {X: -1, Y: 1, Z: -1}, {X: -1, Y: -1, Z: 1}}},
	// right
	{math.Vec3{X: 1, Y: 0, Z: 0}, [4]math.Vec3{{X: 1, Y: -1, Z: 1}, {X: 1, Y: 1, Z: -1}, {X: 1, Y: 1, Z: 1}, {X: 1, Y: -1, Z: -1}}},
	// bottom
	{math.Vec3{X: 0, Y: -1, Z: 0}, [4]math.Vec3{{X: 1, Y: -1, Z: 1}, {X: -1, Y: -1, Z: -1}, {X: 1, Y: -1, Z: -1}, {X: -1, Y: -1, Z: 1}}},
	// top
	{math.Vec3{X: 0, Y: 1, Z: 0}, [4]math.Vec3{{X: -1, Y: 1, Z: 1}, {X: 1, Y: 1, Z: -1}, {X: -1, Y: 1, Z: -1}, {X: 1, Y: 1, Z: 1}}},
}

// NewCube builds a box centred on the origin with 4 vertices and 2
// triangles per face. tileX and tileY scale the texture coordinates.
func NewCube(width, height, depth, tileX, tileY float32, name string) *Geometry {
	width = nonZero(width, "width")
	height = nonZero(height, "height")
	depth = nonZero(depth, "depth")
	tileX = nonZero(tileX, "tileX")
	tileY = nonZero(tileY, "tileY")
	if name == "" {
		name = DefaultName
	}

	half := math.NewVec3(width*0.5, height*0.5, depth*0.5)
	uvs := [4]math.Vec2{{X: 0, Y: 0}, {X: tileX, Y: tileY}, {X: 0, Y: tileY}, {X: tileX, Y: 0}}

	g := &Geometry{
		Name:     name,
		Vertices: make([]math.Vertex3D, 0, 4*6),
		Indices:  make([]uint32, 0, 6*6),
	}
	for _, face := range cubeFaces {
		base := uint32(len(g.Vertices))
		for i, c := range face.corners {
			g.Vertices = append(g.Vertices, math.Vertex3D{
				Position: c.Mul(half),
				Normal:   face.normal,
				Texcoord: uvs[i],
				Colour:   math.NewVec4One(),
			})
		}
		g.Indices = append(g.Indices, base, base+1, base+2, base, base+3, base+1)
	}

	math.GenerateTangents(g.Vertices, g.Indices)
	g.computeExtents()
	return g
}

// NewPlane builds a grid of xSegments by ySegments quads in the XY plane,
// facing +Z.
func NewPlane(width, height float32, xSegments, ySegments uint32, tileX, tileY float32, name string) *Geometry {
	width = nonZero(width, "width")
	height = nonZero(height, "height")
	tileX = nonZero(tileX, "tileX")
	tileY = nonZero(tileY, "tileY")
	if xSegments == 0 {
		xSegments = 1
	}
	if ySegments == 0 {
		ySegments = 1
	}
	if name == "" {
		name = DefaultName
	}

	segW := width / float32(xSegments)
	segH := height / float32(ySegments)
	halfW := width * 0.5
	halfH := height * 0.5

	g := &Geometry{
		Name:     name,
		Vertices: make([]math.Vertex3D, 0, xSegments*ySegments*4),
		Indices:  make([]uint32, 0, xSegments*ySegments*6),
	}
	for y := uint32(0); y < ySegments; y++ {
		for x := uint32(0); x < xSegments; x++ {
			minX := float32(x)*segW - halfW
			minY := float32(y)*segH - halfH
			maxX := minX + segW
			maxY := minY + segH
			minU := float32(x) / float32(xSegments) * tileX
			minV := float32(y) / float32(ySegments) * tileY
			maxU := float32(x+1) / float32(xSegments) * tileX
			maxV := float32(y+1) / float32(ySegments) * tileY

			base := uint32(len(g.Vertices))
			quad := [4]struct{ p, uv math.Vec2 }{
				{math.NewVec2(minX, minY), math.NewVec2(minU, minV)},
				{math.NewVec2(maxX, maxY), math.NewVec2(maxU, maxV)},
				{math.NewVec2(minX, maxY), math.NewVec2(minU, maxV)},
				{math.NewVec2(maxX, minY), math.NewVec2(maxU, minV)},
			}
			for _, q := range quad {
				g.Vertices = append(g.Vertices, math.Vertex3D{
					Position: math.NewVec3(q.p.X, q.p.Y, 0),
					Normal:   math.NewVec3(0, 0, 1),
					Texcoord: q.uv,
					Colour:   math.NewVec4One(),
				})
			}
			g.Indices = append(g.Indices, base, base+1, base+2, base, base+3, base+1)
		}
	}

	math.GenerateTangents(g.Vertices, g.Indices)
	g.computeExtents()
	return g
}
