package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/portwally/Retro-Graphics-converter-sub001/disk"
	"github.com/portwally/Retro-Graphics-converter-sub001/loggy"
)

type diskSummary struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Format string `json:"format"`
	Bytes  int    `json:"bytes"`
	Files  int    `json:"files"`
}

type fileSummary struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Size        int    `json:"size"`
	LoadAddress int    `json:"loadAddress"`
	IsImage     bool   `json:"isImage"`
	ImageHint   string `json:"imageHint,omitempty"`
}

// Serve exposes ingested catalogs over HTTP: the disk list, one disk's
// file list, and raw file content for downstream decoders to fetch.
func Serve(addr string, catalogs []*disk.DiskCatalog) error {

	log := loggy.Get(0)

	r := mux.NewRouter()

	r.HandleFunc("/disks", func(w http.ResponseWriter, req *http.Request) {
		out := make([]diskSummary, 0, len(catalogs))
		for i, cat := range catalogs {
			out = append(out, diskSummary{
				ID:     i,
				Name:   cat.DiskName,
				Format: cat.DiskFormatLabel,
				Bytes:  cat.DiskSizeBytes,
				Files:  cat.FileCount(),
			})
		}
		writeJSON(w, out)
	}).Methods("GET")

	r.HandleFunc("/disks/{id:[0-9]+}", func(w http.ResponseWriter, req *http.Request) {
		cat := lookupDisk(catalogs, mux.Vars(req)["id"])
		if cat == nil {
			http.NotFound(w, req)
			return
		}
		files := cat.Flatten()
		out := make([]fileSummary, 0, len(files))
		for _, e := range files {
			out = append(out, fileSummary{
				Name:        e.Name,
				Type:        e.FileTypeLabel,
				Size:        e.Size,
				LoadAddress: e.LoadAddress,
				IsImage:     e.IsImage,
				ImageHint:   e.ImageTypeHint,
			})
		}
		writeJSON(w, out)
	}).Methods("GET")

	r.HandleFunc("/disks/{id:[0-9]+}/files/{name:.+}", func(w http.ResponseWriter, req *http.Request) {
		cat := lookupDisk(catalogs, mux.Vars(req)["id"])
		if cat == nil {
			http.NotFound(w, req)
			return
		}
		name := mux.Vars(req)["name"]
		for _, e := range cat.Flatten() {
			if e.Name == name {
				w.Header().Set("Content-Type", "application/octet-stream")
				w.Write(e.RawData)
				return
			}
		}
		http.NotFound(w, req)
	}).Methods("GET")

	log.Logf("serving %d catalogs on %s", len(catalogs), addr)
	return http.ListenAndServe(addr, r)
}

func lookupDisk(catalogs []*disk.DiskCatalog, id string) *disk.DiskCatalog {
	n, err := strconv.Atoi(id)
	if err != nil || n < 0 || n >= len(catalogs) {
		return nil
	}
	return catalogs[n]
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
