// Package scan finds input files on disk and feeds them to a processor in batches.
//
// Find lists matching files directly under a directory, or the whole tree when
// Recursive is set. Scanner builds on Find for large inboxes where one batch
// per directory would be too big:
//
//	s := scan.New(logger)
//	res, err := s.Scan(ctx, scan.ScanOptions{
//	    Root:      "/data/inbox",
//	    Find:      scan.FindOptions{Recursive: true},
//	    BatchSize: 50,
//	    Processor: scan.BatchFunc(func(ctx context.Context, paths []string) error {
//	        _, err := svc.IngestFiles(ctx, paths, opts)
//	        return err
//	    }),
//	})
package scan
