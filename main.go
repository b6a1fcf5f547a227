package main

/*
Retro graphics converter, disk side: reads raw disk images from six
8-bit era filesystems (Apple DOS 3.3, ProDOS, Acorn DFS, TRS-80 RS-DOS,
MSX FAT12, ZX Spectrum TR-DOS) and produces file catalogs with raw
content, ready for the pixel decoders.
*/

import (
	"flag"
	"fmt"
	"os"
	"path"
	"runtime"

	"github.com/portwally/Retro-Graphics-converter-sub001/disk"
	"github.com/portwally/Retro-Graphics-converter-sub001/loggy"
)

func usage() {
	fmt.Printf(`%s <options>

Reads 8-bit era disk images and catalogs the files they contain.

`, path.Base(os.Args[0]))
	flag.PrintDefaults()
}

func binpath() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("USERPROFILE") + "/RetroDisk"
	}
	return os.Getenv("HOME") + "/RetroDisk"
}

func init() {
	loggy.LogFolder = binpath() + "/logs/"
}

var catName = flag.String("catalog", "", "Disk image to catalog")
var extractName = flag.String("extract", "", "Disk image to extract files from")
var outDir = flag.String("out", ".", "Output directory for -extract")
var ingestPath = flag.String("ingest", "", "Disk file or path to ingest")
var csvOut = flag.Bool("csv", false, "Output catalog reports as CSV")
var imagesOnly = flag.Bool("images-only", false, "Report only entries that look like graphics")
var serveAddr = flag.String("serve", "", "Serve ingested catalogs over HTTP on this address")
var shellMode = flag.Bool("shell", false, "Start interactive mode")
var verbose = flag.Bool("verbose", false, "Log to stderr")

func main() {

	flag.Parse()

	loggy.ECHO = *verbose
	log := loggy.Get(0)

	switch {

	case *catName != "":
		cat, err := catalogFile(*catName)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		reportCatalog(os.Stdout, cat, *csvOut, *imagesOnly)

	case *extractName != "":
		cat, err := catalogFile(*extractName)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		n, err := extractAll(cat, *outDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("Extracted %d files to %s\n", n, *outDir)

	case *ingestPath != "":
		results := Ingest(*ingestPath)
		log.Logf("ingested %d disks", len(results))
		for _, cat := range results {
			reportCatalog(os.Stdout, cat, *csvOut, *imagesOnly)
		}
		if *serveAddr != "" {
			if err := Serve(*serveAddr, results); err != nil {
				log.Errorf("serve: %v", err)
				os.Exit(1)
			}
		}

	case *shellMode:
		RunShell()

	default:
		usage()
	}

}

func catalogFile(filename string) (*disk.DiskCatalog, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	cat := disk.Detect(data, filename)
	if cat == nil {
		return nil, fmt.Errorf("%s: no supported filesystem recognized", filename)
	}
	if cat.DiskName == "" {
		cat.DiskName = path.Base(filename)
	}
	return cat, nil
}

func extractAll(cat *disk.DiskCatalog, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, err
	}
	n := 0
	for _, e := range cat.Flatten() {
		if len(e.RawData) == 0 {
			continue
		}
		name := sanitizeName(e.Name)
		if name == "" {
			continue
		}
		if err := os.WriteFile(path.Join(dir, name), e.RawData, 0644); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func sanitizeName(name string) string {
	out := ""
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out += string(r)
		case r == '.' || r == '-' || r == '_':
			out += string(r)
		default:
			out += "_"
		}
	}
	return out
}
