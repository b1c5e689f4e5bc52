// Package server contains misc server utilities.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi"
)

// ReplyWithFile replies to the client request by serving the given file name
// from fldr.  Names that would leave fldr are refused.
func ReplyWithFile(w http.ResponseWriter, r *http.Request, fn string, fldr string) {
	clean := filepath.Clean("/" + fn)
	if strings.Contains(fn, "..") {
		http.Error(w, "file name may not contain ..", http.StatusBadRequest)
		return
	}
	filePath, err := filepath.Abs(filepath.Join(fldr, clean))
	if err != nil {
		fstr := fmt.Sprintf("unable to compute abspath of file %s %s %s", fldr, fn, err)
		log.Println(fstr)
		http.Error(w, fstr, http.StatusInternalServerError)
		return
	}

	f, err := os.Open(filePath)
	if err != nil {
		fstr := fmt.Sprintf("source file missing %s", fn)
		log.Println(fstr)
		http.Error(w, fstr, http.StatusNotFound)
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil || stat.IsDir() {
		fstr := fmt.Sprintf("error retrieving source file stats %s", fn)
		log.Println(fstr)
		http.Error(w, fstr, http.StatusNotFound)
		return
	}
	// read some stuff to set the headers appropriately
	http.ServeContent(w, r, stat.Name(), stat.ModTime(), f)
}

// FileServer returns a handler serving the file named by the wildcard of
// the route from the folder root returns
func FileServer(root func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ReplyWithFile(w, r, chi.URLParam(r, "*"), root())
	}
}

// Endpoints returns a handler that lists a graph of mounted routes as JSON
func Endpoints(graph map[string][]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(graph)
		if err != nil {
			fstr := fmt.Sprintf("error encoding list of routes data to json %q", err)
			log.Println(fstr)
			http.Error(w, fstr, http.StatusInternalServerError)
		}
	}
}
