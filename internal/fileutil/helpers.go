// Package fileutil provides file and path utility functions for the worker.
//
// It covers the small set of naming rules the job pipeline depends on: where
// artifacts live, what they are called and which content type they carry.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultDirPermissions = 0o750
	dot                   = "."
	space                 = " "
	underscore            = "_"
)

// File extension constants.
const (
	extAAC  = ".aac"
	extFLAC = ".flac"
	extM4A  = ".m4a"
	extMP3  = ".mp3"
	extOGG  = ".ogg"
	extWAV  = ".wav"
	extJSON = ".json"
)

// Content types for the audio formats the synthesis engine can emit.
const (
	contentTypeAAC     = "audio/aac"
	contentTypeFLAC    = "audio/flac"
	contentTypeM4A     = "audio/mp4"
	contentTypeMP3     = "audio/mpeg"
	contentTypeOGG     = "audio/ogg"
	contentTypeWAV     = "audio/wav"
	contentTypeUnknown = "application/octet-stream"
)

const errFmtFailedToCreateDir = "failed to create directory %s: %w"

// EnsureDir ensures a directory exists at the given path, creating it if it doesn't.
func EnsureDir(path string) error {
	_, statErr := os.Stat(path)
	if errors.Is(statErr, os.ErrNotExist) {
		mkdirErr := os.MkdirAll(path, defaultDirPermissions)
		if mkdirErr != nil {
			return fmt.Errorf(errFmtFailedToCreateDir, path, mkdirErr)
		}
	}

	return nil
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return info.Mode().IsRegular(), nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}

// StripExt returns the base name of path without its extension.
func StripExt(path string) string {
	base := filepath.Base(path)

	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ReplaceExt swaps the extension of path for ext, which must include the dot.
func ReplaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// StructuredSibling names the JSON file that sits next to an audio artifact.
func StructuredSibling(audioPath string) string {
	return ReplaceExt(audioPath, extJSON)
}

// AudioContentType maps an audio file name to its MIME type.
func AudioContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case extMP3:
		return contentTypeMP3
	case extWAV:
		return contentTypeWAV
	case extOGG:
		return contentTypeOGG
	case extFLAC:
		return contentTypeFLAC
	case extM4A:
		return contentTypeM4A
	case extAAC:
		return contentTypeAAC
	default:
		return contentTypeUnknown
	}
}

// SafeName keeps letters, digits, spaces, hyphens and underscores, then turns
// spaces into underscores. The result is safe as a storage object path segment.
func SafeName(name string) string {
	var builder strings.Builder

	for _, r := range name {
		if isSafeRune(r) {
			builder.WriteRune(r)
		}
	}

	return strings.ReplaceAll(strings.TrimSpace(builder.String()), space, underscore)
}

func isSafeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == ' ', r == '-', r == '_':
		return true
	default:
		return false
	}
}

// GetFileExtension returns the file extension without the leading dot.
func GetFileExtension(filename string) string {
	return strings.TrimPrefix(filepath.Ext(filename), dot)
}
