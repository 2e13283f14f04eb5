// Package storage saves downloaded post media to disk.
//
// The Manager type:
//   - Creates the output directory
//   - Saves media with atomic write operations (temporary file and rename)
//   - Detects files that were already downloaded
//
// Media files are named <shortcode>_<NN>.jpg or .mp4, NN being the 1-based
// position of the item in the post.
//
// Usage:
//
//	manager, err := storage.NewManager("downloads")
//	if err != nil {
//	    return err
//	}
//
//	name := storage.MediaFileName("C8x1Y2zABCD", 1, false)
//	if !manager.IsDownloaded(name) {
//	    path, err := manager.SaveMedia(bytes.NewReader(data), name)
//	    ...
//	}
package storage
