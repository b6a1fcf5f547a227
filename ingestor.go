package main

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/portwally/Retro-Graphics-converter-sub001/disk"
	"github.com/portwally/Retro-Graphics-converter-sub001/loggy"
)

var ingestExtensions = map[string]bool{
	".dsk": true,
	".do":  true,
	".po":  true,
	".2mg": true,
	".ssd": true,
	".dsd": true,
	".trd": true,
	".img": true,
	".di":  true,
}

// Ingest walks a file or directory tree, catalogs every recognizable
// disk image and returns the catalogs sorted by filename. Images are
// independent so each one is parsed on its own goroutine; the disk
// package holds no shared state between parses.
func Ingest(root string) []*disk.DiskCatalog {

	log := loggy.Get(0)

	var candidates []string

	info, err := os.Stat(root)
	if err != nil {
		log.Errorf("ingest %s: %v", root, err)
		return nil
	}

	if info.IsDir() {
		filepath.Walk(root, func(p string, fi os.FileInfo, err error) error {
			if err != nil || fi.IsDir() {
				return nil
			}
			if ingestExtensions[strings.ToLower(filepath.Ext(p))] {
				candidates = append(candidates, p)
			}
			return nil
		})
	} else {
		candidates = append(candidates, root)
	}

	type result struct {
		name string
		cat  *disk.DiskCatalog
	}

	workers := 8
	if len(candidates) < workers {
		workers = len(candidates)
	}

	jobs := make(chan string)
	results := make(chan result)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				data, err := os.ReadFile(name)
				if err != nil {
					log.Errorf("read %s: %v", name, err)
					continue
				}
				cat := disk.Detect(data, name)
				if cat == nil {
					log.Logf("skip %s: unrecognized", name)
					continue
				}
				if cat.DiskName == "" {
					cat.DiskName = filepath.Base(name)
				}
				results <- result{name: name, cat: cat}
			}
		}()
	}

	go func() {
		for _, name := range candidates {
			jobs <- name
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	byName := map[string]*disk.DiskCatalog{}
	var names []string
	for res := range results {
		byName[res.name] = res.cat
		names = append(names, res.name)
		log.Logf("ingested %s: %s, %d files", res.name, res.cat.DiskFormatLabel, res.cat.FileCount())
	}

	sort.Strings(names)
	out := make([]*disk.DiskCatalog, 0, len(names))
	for _, name := range names {
		out = append(out, byName[name])
	}
	return out
}
