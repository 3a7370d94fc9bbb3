package app

import (
	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/zurustar/jxscript/pkg/audio"
	"github.com/zurustar/jxscript/pkg/fileutil"
)

// SoundFontLocation represents the location of a SoundFont file.
type SoundFontLocation struct {
	// Path is the path to the SoundFont file, relative to FileSystem
	Path string
	// FileSystem is the FileSystem to load it from
	FileSystem fileutil.FileSystem
}

// findSoundFont searches for a SoundFont file in the following order:
// 1. The script root (soundfonts/ first, then the root itself)
// 2. The current directory
//
// Returns nil if no SoundFont is found.
func findSoundFont(root fileutil.FileSystem, workDir string) *SoundFontLocation {
	candidates := []fileutil.FileSystem{root}
	if workDir != "" {
		candidates = append(candidates, fileutil.NewRealFS(workDir))
	}

	for _, fsys := range candidates {
		if fsys == nil {
			continue
		}
		if p, ok := audio.FindSoundFont(fsys); ok {
			return &SoundFontLocation{Path: p, FileSystem: fsys}
		}
	}
	return nil
}

// loadSoundFont finds and parses the SoundFont. A missing SoundFont is reported
// as audio.ErrSoundFontNotFound.
func loadSoundFont(root fileutil.FileSystem, workDir string) (*meltysynth.SoundFont, *SoundFontLocation, error) {
	loc := findSoundFont(root, workDir)
	if loc == nil {
		return nil, nil, audio.ErrSoundFontNotFound
	}
	sf, err := audio.LoadSoundFontFS(loc.FileSystem, loc.Path)
	if err != nil {
		return nil, loc, err
	}
	return sf, loc, nil
}
