package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/portwally/Retro-Graphics-converter-sub001/disk"
)

// reportCatalog prints one disk's catalog as a text listing or CSV.
func reportCatalog(w io.Writer, cat *disk.DiskCatalog, asCSV, imagesOnly bool) {

	entries := cat.Flatten()

	if asCSV {
		cw := csv.NewWriter(w)
		cw.Write([]string{"disk", "format", "file", "type", "size", "load", "image", "hint"})
		for _, e := range entries {
			if imagesOnly && !e.IsImage {
				continue
			}
			cw.Write([]string{
				cat.DiskName,
				cat.DiskFormatLabel,
				e.Name,
				e.FileTypeLabel,
				strconv.Itoa(e.Size),
				fmt.Sprintf("0x%04X", e.LoadAddress),
				strconv.FormatBool(e.IsImage),
				e.ImageTypeHint,
			})
		}
		cw.Flush()
		return
	}

	fmt.Fprintf(w, "%s (%s, %d bytes)\n", cat.DiskName, cat.DiskFormatLabel, cat.DiskSizeBytes)
	for _, e := range entries {
		if imagesOnly && !e.IsImage {
			continue
		}
		marker := " "
		if e.IsImage {
			marker = "*"
		}
		fmt.Fprintf(w, " %s %-24s %-5s %7d  0x%04X  %s\n",
			marker, e.Name, e.FileTypeLabel, e.Size, e.LoadAddress, e.ImageTypeHint)
	}
	fmt.Fprintln(w)
}
