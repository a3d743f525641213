package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

func (r *Router) exportJSON(w http.ResponseWriter, req *http.Request) {
	data, err := r.ix.Export()
	if err != nil {
		r.respondOpError(w, "export", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", attachment("json"))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (r *Router) exportCSV(w http.ResponseWriter, req *http.Request) {
	data, err := r.ix.ExportCSV()
	if err != nil {
		r.respondOpError(w, "export", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", attachment("csv"))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (r *Router) importJSON(w http.ResponseWriter, req *http.Request) {
	defer req.Body.Close()
	raw, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not read body")
		return
	}
	res, err := r.ix.Import(raw)
	if err != nil {
		r.respondOpError(w, "import", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// importCSV accepts a raw text/csv body or a multipart upload in "file".
func (r *Router) importCSV(w http.ResponseWriter, req *http.Request) {
	defer req.Body.Close()

	var src io.Reader = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/") {
		file, _, err := req.FormFile("file")
		if err != nil {
			respondError(w, http.StatusBadRequest, "multipart upload needs a \"file\" field")
			return
		}
		defer file.Close()
		src = file
	}

	res, err := r.ix.ImportCSV(src)
	if err != nil {
		r.respondOpError(w, "import csv", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func attachment(ext string) string {
	return fmt.Sprintf("attachment; filename=\"pantrysync-%s.%s\"", time.Now().UTC().Format("20060102-150405"), ext)
}
