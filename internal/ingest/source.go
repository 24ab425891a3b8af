package ingest

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"veracity/internal/logtype"
)

// hashWorkers bounds the concurrent read+hash prescan of a directory.
const hashWorkers = 4

// ImportSource ingests a file, directory, or zip archive, choosing the
// handler by what the path actually is.
func (imp *Importer) ImportSource(ctx context.Context, path string) ([]*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		return imp.ImportDir(ctx, path)
	}
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return imp.ImportZip(ctx, path)
	}
	lt, ok := logtype.Detect(path)
	if !ok {
		return nil, fmt.Errorf("cannot determine log type of %s", path)
	}
	res, err := imp.ImportFile(ctx, path, lt)
	if err != nil {
		return nil, err
	}
	return []*Result{res}, nil
}

type candidate struct {
	path string
	lt   logtype.LogType
	data []byte
}

// ImportDir walks dir, matches files to log types by name pattern, and
// imports them in name order. Reading and hashing happen concurrently up
// front; the imports themselves stay sequential, one transaction each.
func (imp *Importer) ImportDir(ctx context.Context, dir string) ([]*Result, error) {
	var matched []candidate
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if lt, ok := logtype.Detect(path); ok {
			matched = append(matched, candidate{path: path, lt: lt})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].path < matched[j].path })

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hashWorkers)
	for i := range matched {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(matched[i].path)
			if err != nil {
				return fmt.Errorf("read source: %w", err)
			}
			matched[i].data = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]*Result, 0, len(matched))
	for _, c := range matched {
		res, err := imp.ImportReader(ctx, c.path, c.data, c.lt)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// ImportZip streams archive entries directly, without temp-file extraction.
// Entries match by base filename at any nesting depth; each gets the
// synthetic source id "archive.zip:entry/path". A corrupt archive is fatal
// and propagates.
func (imp *Importer) ImportZip(ctx context.Context, path string) ([]*Result, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	var results []*Result
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		lt, ok := logtype.Detect(entry.Name)
		if !ok {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return results, fmt.Errorf("open archive entry %s: %w", entry.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return results, fmt.Errorf("read archive entry %s: %w", entry.Name, err)
		}

		sourceID := filepath.Base(path) + ":" + entry.Name
		res, err := imp.ImportReader(ctx, sourceID, data, lt)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
