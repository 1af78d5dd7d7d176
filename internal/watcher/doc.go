// Package watcher reports changes to record files under a directory.
//
// fsnotify is used when available, with directory polling as a fallback for
// mounts where it does not work. Events for the same file within the
// debounce window are coalesced and delivered as one batch.
//
//	w, err := watcher.New(watcher.Options{Filter: record.IsRecordFile})
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//	go w.Start(ctx, recordsDir)
//
//	for batch := range w.Events() {
//	    for _, ev := range batch {
//	        // ev.Operation is OpCreate, OpModify, OpDelete or OpRename
//	    }
//	}
package watcher
