package blend

import (
	"fmt"
	"os"
)

// Marker lines of the textual driver protocol. These are load-bearing:
// the extractor keys its classification off the literal strings, so any
// change here is a breaking change against the driver script.
const (
	metadataStartMarker = "SCENE_METADATA_START"
	metadataEndMarker   = "SCENE_METADATA_END"
	previewStartMarker  = "PREVIEW_METADATA_UPDATE"
	previewEndMarker    = "PREVIEW_METADATA_END"
	previewSkippedLine  = "PREVIEW_SKIPPED"
	driverFinishedLine  = "DRIVER_FINISHED"
	loadFailedLine      = "load failed"
)

// driverScript is executed inside the renderer's embedded Python. It
// prints scene statistics between the metadata markers, then attempts a
// viewport preview render and reports the outcome between the preview
// markers. Positional arguments after '--' are: previewPath, targetPath.
const driverScript = `
import bpy
import json
import sys


def scene_stats():
    scene = bpy.context.scene
    objects = bpy.data.objects
    return {
        'renderer_version': bpy.app.version_string.split()[0],
        'frame_count': scene.frame_end - scene.frame_start,
        'fps': scene.render.fps,
        'engine': scene.render.engine,
        'resolution_x': scene.render.resolution_x,
        'resolution_y': scene.render.resolution_y,
        'total_objects': len(objects),
        'meshes': len([o for o in objects if o.type == 'MESH']),
        'cameras': len([o for o in objects if o.type == 'CAMERA']),
        'lights': len([o for o in objects if o.type in ('LIGHT', 'LAMP')]),
        'empties': len([o for o in objects if o.type == 'EMPTY']),
    }


def render_preview(preview_path):
    scene = bpy.context.scene
    if not bpy.data.objects:
        return False
    scene.render.resolution_x = 512
    scene.render.resolution_y = 512
    scene.render.resolution_percentage = 100
    scene.render.image_settings.file_format = 'JPEG'
    scene.render.filepath = preview_path
    bpy.ops.render.opengl(write_still=True)
    return True


def main():
    print("SCENE_METADATA_START", flush=True)
    print(json.dumps(scene_stats()), flush=True)
    print("SCENE_METADATA_END", flush=True)

    argv = sys.argv[sys.argv.index('--') + 1:] if '--' in sys.argv else []
    if argv:
        preview_path = argv[0]
        try:
            if render_preview(preview_path):
                print("PREVIEW_METADATA_UPDATE", flush=True)
                print(json.dumps({'preview_rendered': True}), flush=True)
                print("PREVIEW_METADATA_END", flush=True)
            else:
                print("PREVIEW_SKIPPED", flush=True)
        except Exception as exc:
            print("PREVIEW_SKIPPED", flush=True)
            print("preview error: %s" % exc, flush=True)

    print("DRIVER_FINISHED", flush=True)


main()
`

// writeDriverScript materialises the driver into a scratch file for one
// attempt. The caller removes it when the attempt completes.
func writeDriverScript(dir string) (string, error) {
	script, err := os.CreateTemp(dir, "slate-driver-*.py")
	if err != nil {
		return "", fmt.Errorf("failed to create driver script: %w", err)
	}

	if _, err := script.WriteString(driverScript); err != nil {
		script.Close()
		os.Remove(script.Name())
		return "", fmt.Errorf("failed to write driver script: %w", err)
	}

	if err := script.Close(); err != nil {
		os.Remove(script.Name())
		return "", err
	}

	return script.Name(), nil
}
