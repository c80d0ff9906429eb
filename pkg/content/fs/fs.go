package fs

import (
	"github.com/octohelm/unifs/pkg/filesystem"

	"github.com/ociworks/distkit/pkg/content/fs/driver"
	"github.com/ociworks/distkit/pkg/content/fs/layout"
)

func newWorkspace(fsys filesystem.FileSystem, l layout.Layout) *workspace {
	return &workspace{
		Driver: driver.FromFileSystem(fsys),
		layout: l,
	}
}

type workspace struct {
	driver.Driver

	layout layout.Layout
}
