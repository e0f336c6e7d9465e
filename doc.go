// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

/*
Package gfs provides a virtual filesystem core for games and similar content
pipelines: mounts map names to real directories, files are addressed by a
caller-assigned FileID, and payloads are persisted through a small binary
container format with optional LZ4 compression. A per-mount watcher feeds a
hot-reload queue drained on Tick, and a pluggable import dispatcher routes
source assets to caller-provided converters.

# Mounting and writing

	fsys := gfs.NewFilesystem(gfs.FilesystemOptions{})
	mountID, err := fsys.MountDir("addon/data", true)
	if err != nil {
	    return err
	}

	ok, err := fsys.WriteFile(mountID, "models/crate.rbin", 234598753, nil, payload, false, "")
	if err != nil || !ok {
	    return err
	}

WriteFile serializes payload through the Streamable capability:

	type Crate struct {
	    Count int32
	}

	func (c *Crate) WriteStream(w *gfs.WriteBuffer) error {
	    return w.WriteUint32(uint32(c.Count))
	}

	func (c *Crate) ReadStream(r *gfs.ReadBuffer) error {
	    v, err := r.ReadUint32()
	    c.Count = int32(v)
	    return err
	}

# Reading

	var crate Crate
	ok, err := fsys.ReadFile(234598753, &crate)
	if err != nil || !ok {
	    return err
	}

Compression is requested per write and is only actually applied at or above
gfs.CompressMinBytes; smaller payloads are always stored verbatim regardless
of the compress flag:

	ok, err = fsys.WriteFile(mountID, "textures/large.rbin", fileID, nil, payload, true, "")

# Archiving

Aggregate several already-written files into one container. Source bytes are
relayed verbatim (no re-compression), and the index is updated to resolve
each FileID against the new archive:

	ok, err = fsys.CreateArchive(mountID, "bundle.rpak", []gfs.FileID{1111, 2222, 3333})

# Importing

Bind importers by extension, then let Import/Reimport route to them:

	fsys.SetImporter([]string{".png", ".tga"}, textureImporter{})
	ok, err = fsys.Import("raw/crate_diffuse.png", mountID, "textures")

Glob-pattern overrides can route by path instead of extension, evaluated
ahead of the extension table:

	err = fsys.SetImporterOverrides(
	    []string{"raw/cutscenes/**"},
	    []gfs.FileImporter{videoImporter{}},
	)

An importer derives its destination path through DeriveImportOutputPath
rather than joining outputDir and the source name directly, since source
filenames are not guaranteed to be safe on every host filesystem:

	dest, err := fsys.DeriveImportOutputPath(outputMount, outputDir, sourcePath)

# Hot reload

A background watcher observes each mount's root directory; call Tick
periodically (e.g. once per frame) to apply pending changes and fire the
reimport callback:

	fsys.SetFileReimportCallback(func(id gfs.FileID) {
	    _, _ = fsys.Reimport(id)
	})

	for running {
	    fsys.Tick()
	}
*/
package gfs
