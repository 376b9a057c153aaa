package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const tol = 1e-4

func TestMat4InverseRoundTrip(t *testing.T) {
	m := NewMat4EulerXYZ(0.3, -1.1, 0.7).Mul(NewMat4Translation(NewVec3(4, -2, 9)))
	assert.True(t, m.Mul(m.Inverse()).Compare(NewMat4Identity(), tol))
	assert.True(t, m.Inverse().Mul(m).Compare(NewMat4Identity(), tol))
}

func TestMat4MulOrder(t *testing.T) {
	// Scale then translate: the translation must not be scaled.
	m := NewMat4Scale(NewVec3(2, 2, 2)).Mul(NewMat4Translation(NewVec3(1, 0, 0)))
	p := NewVec3(1, 1, 1).Transform(m)
	assert.InDelta(t, 3, p.X, tol)
	assert.InDelta(t, 2, p.Y, tol)
	assert.InDelta(t, 2, p.Z, tol)
}

func TestLookAtIsInverseOfXform(t *testing.T) {
	pos := NewVec3(3, 4, 5)
	target := NewVec3(0, 0, 0)
	view := NewMat4LookAt(pos, target, NewVec3Up())
	xform := NewMat4LookAtXform(pos, target, NewVec3Up())

	assert.True(t, xform.Inverse().Compare(view, tol))
	assert.True(t, pos.Transform(view).Compare(NewVec3Zero(), tol))
	assert.True(t, xform.Forward().Compare(target.Sub(pos).Normalized(), tol))
}

func TestQuaternionMatchesEuler(t *testing.T) {
	angle := float32(0.8)
	cases := []struct {
		axis  Vec3
		euler Mat4
	}{
		{NewVec3(1, 0, 0), NewMat4EulerX(angle)},
		{NewVec3(0, 1, 0), NewMat4EulerY(angle)},
		{NewVec3(0, 0, 1), NewMat4EulerZ(angle)},
	}
	for _, c := range cases {
		q := NewQuatFromAxisAngle(c.axis, angle, true)
		assert.True(t, q.ToMat4().Compare(c.euler, tol), "axis %v", c.axis)
	}
}

func TestTransformWorld(t *testing.T) {
	parent := NewTransformFrom(NewVec3(10, 0, 0), NewQuatIdentity(), NewVec3One())
	child := NewTransformFrom(NewVec3(0, 1, 0), NewQuatIdentity(), NewVec3(2, 2, 2))
	child.Parent = parent

	p := NewVec3(1, 0, 0).Transform(child.WorldMatrix())
	assert.True(t, p.Compare(NewVec3(12, 1, 0), tol))

	child.SetPosition(NewVec3Zero())
	assert.True(t, child.IsDirty)
	p = NewVec3Zero().Transform(child.WorldMatrix())
	assert.True(t, p.Compare(NewVec3(10, 0, 0), tol))
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint64(0), AlignUp[uint64](0, 16))
	assert.Equal(t, uint64(112), AlignUp[uint64](100, 16))
	assert.Equal(t, uint64(256), AlignUp[uint64](256, 256))
	assert.True(t, IsPowerOfTwo[uint64](64))
	assert.False(t, IsPowerOfTwo[uint64](0))
	assert.False(t, IsPowerOfTwo[uint64](48))
}

func TestGenerateNormals(t *testing.T) {
	verts := []Vertex3D{
		{Position: NewVec3(0, 0, 0), Texcoord: NewVec2(0, 0)},
		{Position: NewVec3(1, 0, 0), Texcoord: NewVec2(1, 0)},
		{Position: NewVec3(0, 1, 0), Texcoord: NewVec2(0, 1)},
	}
	idx := []uint32{0, 1, 2}
	GenerateNormals(verts, idx)
	GenerateTangents(verts, idx)
	for _, v := range verts {
		assert.True(t, v.Normal.Compare(NewVec3(0, 0, 1), tol))
		assert.True(t, v.Tangent.Compare(NewVec3(1, 0, 0), tol))
	}
}

func TestQuaternionFromEuler(t *testing.T) {
	q := NewQuatFromEulerXYZ(0.4, -0.9, 1.3)
	assert.True(t, q.ToMat4().Compare(NewMat4EulerXYZ(0.4, -0.9, 1.3), tol))
}
