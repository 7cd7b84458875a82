// Package files provides file discovery and the file operations used to
// relocate measurement files.
//
// Discovery lists input files by extension in a stable, name-sorted order.
//
// Manager copies files without ever overwriting: an existing destination
// with identical content counts as already copied, anything else is a
// collision.
//
//	discovery := files.NewDiscovery("")
//	inputs, err := discovery.FindByExtension("/lab/nanoz", ".txt")
//
//	manager := files.NewManager(logger)
//	if _, err := manager.CopyNoClobber(inputs[0].Path, dst); err != nil {
//	    // errors.IsType(err, errors.ErrTypeCollision)
//	}
package files
