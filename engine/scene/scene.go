package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/penumbra/engine/assets"
	"github.com/spaghettifunk/penumbra/engine/config"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/camera"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

// MeshUploader is the slice of the renderer the scene needs to get its
// geometry onto the GPU.
type MeshUploader interface {
	UploadMesh(vertices []float32, indices []uint32) (uint32, error)
}

type sceneObject struct {
	geometryID  uint32
	position    mgl32.Vec3
	scale       float32
	spinSpeed   float32
	angle       float32
	castsShadow bool
}

// Scene is the demo world: a heightmap terrain, a ring of spinning
// cubes, a skybox and one directional light orbiting slowly to show
// the cascades moving.
type Scene struct {
	Camera *camera.Camera

	light     metadata.LightData
	lightTime float64

	objects   []*sceneObject
	terrainID uint32
	skyboxID  uint32

	elapsed float64
}

func New(cfg *config.Config) *Scene {
	aspect := float32(cfg.Application.Width) / float32(cfg.Application.Height)
	cam := camera.New(mgl32.Vec3{0, 3.5, 10}, cfg.Camera.FovDegrees, aspect, cfg.Camera.Near, cfg.Camera.Far)
	cam.Rotate(0, -12)

	return &Scene{
		Camera: cam,
		light: metadata.LightData{
			Direction: mgl32.Vec3{-0.4, -1.0, -0.3},
			Color:     mgl32.Vec3{1.0, 0.96, 0.88},
			Ambient:   0.12,
		},
		terrainID: metadata.InvalidID,
		skyboxID:  metadata.InvalidID,
	}
}

// Load uploads all scene geometry. The terrain comes from the
// heightmap asset when present, otherwise from a generated fallback.
func (s *Scene) Load(uploader MeshUploader, am *assets.AssetManager) error {
	heightmap := s.loadHeightmap(am)
	terrainVerts, terrainIndices := TerrainMesh(heightmap, 0.5, 4.0)
	id, err := uploader.UploadMesh(terrainVerts, terrainIndices)
	if err != nil {
		return err
	}
	s.terrainID = id

	skyVerts, skyIndices := SkyboxMesh(1.0)
	if s.skyboxID, err = uploader.UploadMesh(skyVerts, skyIndices); err != nil {
		return err
	}

	cubeVerts, cubeIndices := CubeMesh(1.0)
	cubeID, err := uploader.UploadMesh(cubeVerts, cubeIndices)
	if err != nil {
		return err
	}

	placements := []struct {
		position mgl32.Vec3
		scale    float32
		spin     float32
	}{
		{mgl32.Vec3{0, 2.2, 0}, 1.4, 0.6},
		{mgl32.Vec3{-4, 1.6, -3}, 1.0, -0.9},
		{mgl32.Vec3{3.5, 1.9, -5}, 1.2, 0.4},
		{mgl32.Vec3{5, 1.4, 2}, 0.8, 1.3},
		{mgl32.Vec3{-3, 1.2, 4}, 0.7, -0.5},
		{mgl32.Vec3{0, 1.5, -9}, 1.1, 0.8},
	}
	for _, p := range placements {
		s.objects = append(s.objects, &sceneObject{
			geometryID:  cubeID,
			position:    p.position,
			scale:       p.scale,
			spinSpeed:   p.spin,
			castsShadow: true,
		})
	}

	core.LogInfo("scene loaded: %d objects, terrain %dx%d", len(s.objects), heightmap.Width, heightmap.Height)
	return nil
}

func (s *Scene) loadHeightmap(am *assets.AssetManager) *metadata.HeightmapResourceData {
	res, err := am.LoadAsset("terrain.png", metadata.ResourceTypeHeightmap, nil)
	if err != nil {
		core.LogWarn("terrain heightmap unavailable (%v), using generated terrain", err)
		return FallbackHeightmap(64)
	}
	return res.Data.(*metadata.HeightmapResourceData)
}

// Update advances animations. deltaTime is in seconds.
func (s *Scene) Update(deltaTime float64) {
	s.elapsed += deltaTime
	s.lightTime += deltaTime * 0.1

	for _, obj := range s.objects {
		obj.angle += obj.spinSpeed * float32(deltaTime)
	}

	// Swing the light slowly across the sky.
	x := float32(-0.6 + 0.4*mgl32.Abs(float32(s.lightTime-float64(int(s.lightTime)))-0.5)*2)
	s.light.Direction = mgl32.Vec3{x, -1.0, -0.3}.Normalize()
}

// BuildPacket assembles the frame's draw list and overlay text.
func (s *Scene) BuildPacket(deltaTime float64) *metadata.RenderPacket {
	packet := &metadata.RenderPacket{
		DeltaTime: deltaTime,
		Light:     s.light,
	}

	for _, obj := range s.objects {
		model := mgl32.Translate3D(obj.position.X(), obj.position.Y(), obj.position.Z()).
			Mul4(mgl32.HomogRotate3DY(obj.angle)).
			Mul4(mgl32.Scale3D(obj.scale, obj.scale, obj.scale))
		packet.Geometries = append(packet.Geometries, &metadata.GeometryRenderData{
			Model:       model,
			GeometryID:  obj.geometryID,
			CastsShadow: obj.castsShadow,
		})
	}

	if s.terrainID != metadata.InvalidID {
		packet.Terrain = &metadata.GeometryRenderData{
			Model:       mgl32.Ident4(),
			GeometryID:  s.terrainID,
			CastsShadow: true,
		}
	}

	if s.skyboxID != metadata.InvalidID {
		// The skybox follows the camera so its faces never clip.
		pos := s.Camera.Position
		packet.Skybox = &metadata.GeometryRenderData{
			Model:      mgl32.Translate3D(pos.X(), pos.Y(), pos.Z()).Mul4(mgl32.Scale3D(2, 2, 2)),
			GeometryID: s.skyboxID,
		}
	}

	fps, frameTime := core.MetricsFrame()
	packet.Texts = []*metadata.UIText{
		{
			Text: fmt.Sprintf("%.0f fps  %.2f ms", fps, frameTime),
			X:    10, Y: 10,
			RGBA: mgl32.Vec4{1, 1, 1, 1},
		},
	}
	return packet
}
