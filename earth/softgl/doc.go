// Package softgl is the software rasterizer behind the globe view.
//
// It knows about meshes, a camera, one ambient+directional light and pixel targets.
// Object bookkeeping (which meshes exist, their handles) lives in the scene package;
// softgl only draws what a MeshSource hands it.
//
// Pipeline (fixed):
//
//	Mesh → Model transform → View/Projection → Clip → Rasterize → Target.
//
// Matrices are column-major float32, laid out like OpenGL: m[col*4+row].
package softgl
