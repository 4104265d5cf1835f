package host

import (
	"context"

	"github.com/trixi-framework/libtrixi-go/domain/entities"
)

// Version is the version of this bridge.
const Version = "0.1.0"

// VersionLibrary returns the hosted library's full version string.
func (l *Library) VersionLibrary(ctx context.Context) (string, error) {
	s, err := l.versionPacked(ctx, entities.EntryVersionLibrary, func(f *boundFuncs) packedStr { return f.versionLibrary })
	return s, l.fail(err)
}

// VersionLibraryMajor returns the major version of the hosted library.
func (l *Library) VersionLibraryMajor(ctx context.Context) (int, error) {
	v, err := l.versionConst(ctx, entities.EntryVersionLibraryMajor, func(f *boundFuncs) constI32 { return f.versionLibraryMajor })
	return v, l.fail(err)
}

// VersionLibraryMinor returns the minor version of the hosted library.
func (l *Library) VersionLibraryMinor(ctx context.Context) (int, error) {
	v, err := l.versionConst(ctx, entities.EntryVersionLibraryMinor, func(f *boundFuncs) constI32 { return f.versionLibraryMinor })
	return v, l.fail(err)
}

// VersionLibraryPatch returns the patch version of the hosted library.
func (l *Library) VersionLibraryPatch(ctx context.Context) (int, error) {
	v, err := l.versionConst(ctx, entities.EntryVersionLibraryPatch, func(f *boundFuncs) constI32 { return f.versionLibraryPatch })
	return v, l.fail(err)
}

// VersionInfo returns all library version parts in one value.
func (l *Library) VersionInfo(ctx context.Context) (entities.VersionInfo, error) {
	info, err := l.versionInfo(ctx)
	return info, l.fail(err)
}

func (l *Library) versionInfo(ctx context.Context) (entities.VersionInfo, error) {
	var info entities.VersionInfo
	var err error
	if info.Full, err = l.versionPacked(ctx, entities.EntryVersionLibrary, func(f *boundFuncs) packedStr { return f.versionLibrary }); err != nil {
		return info, err
	}
	if info.Major, err = l.versionConst(ctx, entities.EntryVersionLibraryMajor, func(f *boundFuncs) constI32 { return f.versionLibraryMajor }); err != nil {
		return info, err
	}
	if info.Minor, err = l.versionConst(ctx, entities.EntryVersionLibraryMinor, func(f *boundFuncs) constI32 { return f.versionLibraryMinor }); err != nil {
		return info, err
	}
	info.Patch, err = l.versionConst(ctx, entities.EntryVersionLibraryPatch, func(f *boundFuncs) constI32 { return f.versionLibraryPatch })
	return info, err
}

// VersionPackages returns name and version of the hosted library's main
// dependencies, one per line.
func (l *Library) VersionPackages(ctx context.Context) (string, error) {
	s, err := l.versionPacked(ctx, entities.EntryVersionPackages, func(f *boundFuncs) packedStr { return f.versionPackages })
	return s, l.fail(err)
}

// VersionPackagesExtended is VersionPackages including indirect dependencies.
func (l *Library) VersionPackagesExtended(ctx context.Context) (string, error) {
	s, err := l.versionPacked(ctx, entities.EntryVersionPackagesExtended, func(f *boundFuncs) packedStr { return f.versionPackagesExtended })
	return s, l.fail(err)
}

func (l *Library) versionConst(ctx context.Context, entry entities.EntryPoint, pick func(*boundFuncs) constI32) (int, error) {
	fns, err := l.ready(entry.String())
	if err != nil {
		return 0, err
	}
	var v int32
	err = l.invoke(ctx, entry, "", func(ctx context.Context) error {
		var err error
		v, err = pick(fns)(ctx)
		return err
	})
	return int(v), err
}

func (l *Library) versionPacked(ctx context.Context, entry entities.EntryPoint, pick func(*boundFuncs) packedStr) (string, error) {
	fns, err := l.ready(entry.String())
	if err != nil {
		return "", err
	}
	return l.versionString(ctx, entry, pick(fns))
}

// versionString calls a packed-string entry point and takes ownership of the
// returned buffer.
func (l *Library) versionString(ctx context.Context, entry entities.EntryPoint, fn packedStr) (string, error) {
	fns := l.table.fns
	var s string
	err := l.invoke(ctx, entry, "", func(ctx context.Context) error {
		packed, err := fn(ctx)
		if err != nil {
			return err
		}
		s, err = l.readOwned(ctx, fns, packed)
		return err
	})
	return s, err
}
