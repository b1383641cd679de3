package utils

import (
	"path/filepath"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	NanoidSize     = 24
	nanoidAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

func NanoID() string {
	return NanoIDSize(NanoidSize)
}

func NanoIDSize(size int) string {
	if size == 0 {
		size = NanoidSize
	}

	return gonanoid.MustGenerate(nanoidAlphabet, size)
}

// ObjectName builds a collision free storage object name that keeps the
// lowercased extension of the uploaded file name.
func ObjectName(prefix, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	name := NanoID() + ext
	if prefix == "" {
		return name
	}
	return strings.TrimSuffix(prefix, "/") + "/" + name
}
