package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

// Quaternion represents a rotational orientation.
type Quaternion Vec4

// Mat4 is a 4x4 row-major matrix. Vectors are treated as rows, so
// a.Mul(b) applies a first and then b.
type Mat4 struct {
	Data [16]float32
}

// Extents3D holds the bounds of a 3d object.
type Extents3D struct {
	Min Vec3
	Max Vec3
}

// Vertex3D is a single vertex as laid out in vertex buffers.
type Vertex3D struct {
	Position Vec3
	Normal   Vec3
	Texcoord Vec2
	Colour   Vec4
	Tangent  Vec3
}

// Transform is a position/rotation/scale triple with a lazily rebuilt
// local matrix. Transforms can have a parent whose own transform is then
// taken into account.
type Transform struct {
	Position Vec3
	Rotation Quaternion
	Scale    Vec3
	// IsDirty is set whenever position, rotation or scale change.
	IsDirty bool
	Local   Mat4
	Parent  *Transform
}
