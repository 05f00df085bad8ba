// Package watcher keeps the catalogue in step with a batch file.
//
// The Watcher subscribes to filesystem events for the batch file's
// directory. After a write settles it reloads the file and hands entries it
// has not yet ingested successfully to the pipeline. Editors that replace
// the file through a rename are handled because the directory, not the
// file, is watched.
//
// Example usage:
//
//	w, err := watcher.New("repos.yaml", p, watcher.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := w.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer w.Stop()
//
// A watcher can also be detached into the background with StartDaemon and
// stopped with StopDaemon, using a PID file.
package watcher
