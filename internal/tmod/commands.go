package tmod

import (
	"github.com/pkg/errors"

	"github.com/Faultbox/tmodexport/pkg/coord"
	"github.com/Faultbox/tmodexport/pkg/scene"
)

// Fixed values of the scene commands.
const (
	WindowOriginX    = 3
	WindowOriginY    = 29
	StereoSeparation = 2.25
	SensorHalfWidth  = 16.0 // mm, half of the 32 mm sensor the lens is measured against
)

// ErrNotCamera is returned when a camera command is requested for a non-camera
// object.
var ErrNotCamera = errors.New("object has no camera payload")

// FocalValue derives the engine's focal value from the lens and the output
// aspect ratio.
func FocalValue(lens, aspect float64) float64 {
	return aspect * 2.0 * SensorHalfWidth / lens * 0.1
}

// WriteCamera writes a CHNG_CAM command for a camera object: eye, look-at
// point, up point, the look-at point again, focal value, perspective flag and
// stereo separation.
func WriteCamera(w *Writer, obj *scene.Object, display scene.Display) error {
	cam, ok := obj.Data.(*scene.Camera)
	if !ok || cam == nil {
		return errors.Wrapf(ErrNotCamera, "object %q", obj.Name)
	}

	eye := coord.Point(obj.Matrix, coord.RowTranslation)
	at := eye.Sub(coord.Point(obj.Matrix, coord.RowZ))
	up := eye.Add(coord.Point(obj.Matrix, coord.RowY))
	focal := FocalValue(cam.Lens, display.Aspect())

	w.Printf("CHNG_CAM\t{ {%f %f %f }{%f %f %f }{%f %f %f }{%f %f %f }%f %d %f\n\t}\n",
		eye[0], eye[1], eye[2],
		at[0], at[1], at[2],
		up[0], up[1], up[2],
		at[0], at[1], at[2],
		focal,
		1, // perspective
		StereoSeparation)
	return w.Err()
}

// WriteWindow writes a CHNG_WIN command.
func WriteWindow(w *Writer, width, height int) error {
	w.Printf("CHNG_WIN\t{ %d %d %d %d \n\t}\n", WindowOriginX, WindowOriginY, width, height)
	return w.Err()
}

// WriteView writes a CHNG_VIEW command carrying the animator settings and the
// view data file reference.
func WriteView(w *Writer, fps, startFrame, endFrame int, baseName string) error {
	w.Line(0, "CHNG_VIEW\t{")
	w.Line(1, "VIEW\t{")
	w.Line(2, "view_animator\t{")
	w.Line(3, "Animator\t{")
	w.Line(4, "fps\t%d", fps)
	w.Line(4, "start_frame\t%d", startFrame)
	w.Line(4, "end_frame\t%d", endFrame)
	w.Line(4, "name\t{ %s }", baseName)
	w.Line(4, "} }")
	w.Line(2, "view_data_file\t{ %s }", baseName)
	w.Line(2, "}")
	w.Line(1, "}")
	return w.Err()
}

// WriteLamp is a placeholder: lamps are discovered and reported but produce
// no output.
func WriteLamp(w *Writer, obj *scene.Object) error {
	return w.Err()
}
