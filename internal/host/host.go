// Package host opens scene sources from files on disk. Each format has its own
// adapter package turning the file into plain scene structures.
package host

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/Faultbox/tmodexport/internal/host/gltfscene"
	"github.com/Faultbox/tmodexport/internal/host/objscene"
	"github.com/Faultbox/tmodexport/internal/host/yamlscene"
	"github.com/Faultbox/tmodexport/pkg/scene"
)

// Supported formats.
const (
	FormatYAML = "yaml"
	FormatGLTF = "gltf"
	FormatOBJ  = "obj"
)

// ErrUnknownFormat is returned when no adapter handles the requested format.
var ErrUnknownFormat = errors.New("unknown scene format")

// DetectFormat picks a format from the file extension.
func DetectFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".gltf", ".glb":
		return FormatGLTF, nil
	case ".obj":
		return FormatOBJ, nil
	default:
		return "", errors.Wrapf(ErrUnknownFormat, "cannot detect format of %s", path)
	}
}

// Open loads the scene at path. An empty format is detected from the
// extension.
func Open(format, path string) (scene.Source, error) {
	if format == "" {
		var err error
		if format, err = DetectFormat(path); err != nil {
			return nil, err
		}
	}

	var (
		src scene.Source
		err error
	)
	switch strings.ToLower(format) {
	case FormatYAML, "yml":
		src, err = yamlscene.Open(path)
	case FormatGLTF, "glb":
		src, err = gltfscene.Open(path)
	case FormatOBJ:
		src, err = objscene.Open(path)
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", format)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s scene %s", format, path)
	}
	return src, nil
}
