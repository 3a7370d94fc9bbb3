package audio

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/zurustar/jxscript/pkg/fileutil"
)

// DefaultSoundFontName is the SoundFont filename searched for under the script root.
const DefaultSoundFontName = "GeneralUser-GS.sf2"

// ErrSoundFontNotFound is returned when the SoundFont file cannot be found.
var ErrSoundFontNotFound = errors.New("SoundFont file not found")

// FindSoundFont searches the file system for the default SoundFont:
// first "soundfonts/<name>", then "<name>" at the root.
func FindSoundFont(fsys fileutil.FileSystem) (string, bool) {
	for _, p := range []string{"soundfonts/" + DefaultSoundFontName, DefaultSoundFontName} {
		if _, err := fsys.Resolve(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// LoadSoundFontFS reads and parses a SoundFont file through the FileSystem.
func LoadSoundFontFS(fsys fileutil.FileSystem, path string) (*meltysynth.SoundFont, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSoundFontNotFound, path)
	}

	soundFont, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SoundFont: %w", err)
	}
	return soundFont, nil
}
