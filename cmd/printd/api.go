package main

import (
	"encoding/json"
	"errors"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/printforge/printd/print"
)

type api struct {
	http.Handler
	pipe    *print.Pipeline
	estop   chan<- struct{}
	dataDir string
	sse     *sse.Server
	ws      *wsHub
}

type statusJSON struct {
	Job   string `json:"job,omitempty"`
	Phase string `json:"phase"`
	Error string `json:"error,omitempty"`
}

func newAPI(pipe *print.Pipeline, estop chan<- struct{}, dir string) *api {
	r := mux.NewRouter()

	a := &api{
		Handler: r,
		pipe:    pipe,
		estop:   estop,
		dataDir: dir,
		ws:      newWSHub(),
		sse: sse.NewServer(&sse.Options{
			Logger: log.New(ioutil.Discard, "", 0),
		}),
	}

	r.HandleFunc("/api/jobs", a.submitJob).Methods("POST")
	r.HandleFunc("/api/print/stop", a.control(pipe.Stop)).Methods("POST")
	r.HandleFunc("/api/print/pause", a.control(pipe.Pause)).Methods("POST")
	r.HandleFunc("/api/print/resume", a.control(pipe.Resume)).Methods("POST")
	r.HandleFunc("/api/status", a.status).Methods("GET")
	r.HandleFunc("/api/estop", a.postEstop).Methods("POST")
	r.HandleFunc("/ws", a.ws.serve)
	r.PathPrefix("/events/").Handler(a.sse)

	fs := http.FileServer(http.Dir(dir))
	r.PathPrefix("/data/").Handler(http.StripPrefix("/data", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case "GET":
			fs.ServeHTTP(w, req)
		case "PUT":
			a.putFile(w, req)
		case "DELETE":
			a.deleteFile(w, req)
		default:
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	})))

	go a.publishEvents()

	return a
}

// publishEvents fans pipeline events out to the SSE and websocket
// consumers.
func (a *api) publishEvents() {
	for ev := range a.pipe.Events() {
		data, err := json.Marshal(eventJSON(ev))
		if err != nil {
			log.Printf("ERROR: marshal json: %+v", err)
			continue
		}
		a.sse.SendMessage("/events/state", sse.SimpleMessage(string(data)))
		a.ws.broadcast(data)
	}
}

func eventJSON(ev print.Event) statusJSON {
	s := statusJSON{Phase: ev.Phase.String()}
	if ev.Job != uuid.Nil {
		s.Job = ev.Job.String()
	}
	if ev.Err != nil {
		s.Error = ev.Err.Error()
	}
	return s
}

func errorStatus(err error) int {
	var decodeErr *print.DecodeError
	var transitionErr *print.InvalidTransitionError
	switch {
	case errors.As(err, &decodeErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &transitionErr):
		return http.StatusConflict
	case errors.Is(err, print.ErrChannelClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// submitJob decodes the posted instruction stream (or a stored file
// named by the `file` form value) and starts printing it.
func (a *api) submitJob(w http.ResponseWriter, req *http.Request) {
	src := io.Reader(req.Body)
	if name := req.FormValue("file"); name != "" {
		ok, full := safePath(a.dataDir, name)
		if !ok {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		f, err := os.Open(full)
		if err != nil {
			log.Printf("ERROR: open '%s': %+v", full, err)
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		defer f.Close()
		src = f
	}

	id, err := a.pipe.Submit(src)
	if err != nil {
		log.Printf("ERROR: submit: %+v", err)
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"id": id.String()})
}

func (a *api) control(fn func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := fn(); err != nil {
			log.Printf("ERROR: control: %+v", err)
			http.Error(w, err.Error(), errorStatus(err))
		}
	}
}

func (a *api) status(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(eventJSON(a.pipe.Status()))
}

// postEstop queues an emergency stop on the dedicated lane. It is
// accepted even while the pipeline is busy or blocked.
func (a *api) postEstop(w http.ResponseWriter, req *http.Request) {
	select {
	case a.estop <- struct{}{}:
	default: // one already pending
	}
	w.WriteHeader(http.StatusAccepted)
}

func safePath(base, name string) (bool, string) {
	if filepath.Separator != '/' && strings.ContainsRune(name, filepath.Separator) {
		log.Println("invalid path '" + name + "'")
		return false, ""
	}
	dir := base
	if dir == "" {
		dir = "."
	}
	fullName := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+name)))
	return true, fullName
}

func (a *api) putFile(w http.ResponseWriter, req *http.Request) {
	ok, name := safePath(a.dataDir, req.URL.Path)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	os.MkdirAll(filepath.Dir(name), 0755)
	f, err := os.Create(name)
	if err != nil {
		log.Printf("ERROR: create '%s': %+v", name, err)
		http.Error(w, err.Error(), 500)
		return
	}
	defer f.Close()
	_, err = io.Copy(f, req.Body)
	if err != nil {
		log.Printf("ERROR: write '%s': %+v", name, err)
		http.Error(w, err.Error(), 500)
		return
	}
}

func (a *api) deleteFile(w http.ResponseWriter, req *http.Request) {
	ok, name := safePath(a.dataDir, req.URL.Path)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	err := os.Remove(name)
	if err != nil {
		log.Printf("ERROR: delete '%s': %+v", name, err)
		http.Error(w, err.Error(), 500)
		return
	}
}
