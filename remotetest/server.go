// Package remotetest runs an in-process fake of the conversational
// workflow service for tests.
package remotetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/loanwizard/model"
)

// Reply lets a test decide what a run does to the thread state. It is
// called once per run with the submitted messages.
type Reply func(threadId string, input []model.RemoteMessage, values *model.ThreadStateValues)

type run struct {
	model.Run
	polls int
}

type Server struct {
	*httptest.Server

	mu      sync.Mutex
	seq     int
	threads map[string]*model.Thread
	states  map[string]*model.ThreadStateValues
	runs    map[string]*run

	// PendingPolls is how many GetRun calls report a running run before
	// it reaches FinalStatus.
	PendingPolls int
	FinalStatus  model.RunStatus
	ErrorOutput  string
	Reply        Reply
	// RawState, when set, is served verbatim for every state read.
	RawState string
	// FailAll makes every endpoint answer with this status code.
	FailAll int

	CreateRunCalls int
	GetRunCalls    int
	GetStateCalls  int
	PatchCalls     int
	LastRunRequest model.RunRequest
	LastPatch      map[string]any
}

func NewServer() *Server {
	s := &Server{
		threads:     make(map[string]*model.Thread),
		states:      make(map[string]*model.ThreadStateValues),
		runs:        make(map[string]*run),
		FinalStatus: model.RUN_SUCCESS,
		Reply:       EchoReply,
	}
	router := mux.NewRouter()
	router.HandleFunc("/threads", s.handleCreateThread).Methods(http.MethodPost)
	router.HandleFunc("/threads/search", s.handleSearch).Methods(http.MethodPost)
	router.HandleFunc("/threads/{id}", s.handleGetThread).Methods(http.MethodGet)
	router.HandleFunc("/threads/{id}/state", s.handleGetState).Methods(http.MethodGet)
	router.HandleFunc("/threads/{id}/state", s.handlePatchState).Methods(http.MethodPatch)
	router.HandleFunc("/threads/{id}/runs", s.handleCreateRun).Methods(http.MethodPost)
	router.HandleFunc("/threads/{id}/runs/{run_id}", s.handleGetRun).Methods(http.MethodGet)
	router.Use(s.failMiddleware)
	s.Server = httptest.NewServer(router)
	return s
}

// EchoReply appends the submitted messages and an assistant echo of the
// last one.
func EchoReply(threadId string, input []model.RemoteMessage, values *model.ThreadStateValues) {
	values.Messages = append(values.Messages, input...)
	last := ""
	if len(input) > 0 {
		last = string(input[len(input)-1].Content)
	}
	values.Messages = append(values.Messages, model.RemoteMessage{
		Type:    "ai",
		Content: model.MessageContent("echo: " + last),
	})
}

// AddThread registers a thread directly, bypassing the API.
func (s *Server) AddThread(thread model.Thread, values model.ThreadStateValues) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := thread
	s.threads[t.ThreadId] = &t
	s.states[t.ThreadId] = &values
}

// Update changes the server's behavior while holding its lock.
func (s *Server) Update(fn func(s *Server)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (s *Server) LastRun() model.RunRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LastRunRequest
}

func (s *Server) Patches() (int, map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.PatchCalls, s.LastPatch
}

func (s *Server) State(threadId string) model.ThreadStateValues {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.states[threadId]; ok {
		return *v
	}
	return model.ThreadStateValues{}
}

func (s *Server) Counts() (createRun, getRun, getState int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CreateRunCalls, s.GetRunCalls, s.GetStateCalls
}

func (s *Server) failMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		code := s.FailAll
		s.mu.Unlock()
		if code != 0 {
			http.Error(w, "unavailable", code)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	var req model.ThreadCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.seq++
	thread := &model.Thread{
		ThreadId:  fmt.Sprintf("thread-%d", s.seq),
		CreatedAt: time.Date(2024, 1, 1, 0, 0, s.seq, 0, time.UTC),
		Metadata:  req.Metadata,
	}
	s.threads[thread.ThreadId] = thread
	s.states[thread.ThreadId] = &model.ThreadStateValues{}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, thread)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req model.ThreadSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	threads := make([]model.Thread, 0, len(s.threads))
	for _, t := range s.threads {
		if req.Metadata.UserId != "" && t.Metadata.UserId != req.Metadata.UserId {
			continue
		}
		threads = append(threads, *t)
	}
	s.mu.Unlock()
	if req.Limit > 0 && len(threads) > req.Limit {
		threads = threads[:req.Limit]
	}
	writeJSON(w, http.StatusOK, threads)
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	t, ok := s.threads[mux.Vars(r)["id"]]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "thread not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.GetStateCalls++
	raw := s.RawState
	v, ok := s.states[mux.Vars(r)["id"]]
	var values model.ThreadStateValues
	if ok {
		values = *v
	}
	s.mu.Unlock()
	if raw != "" {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(raw))
		return
	}
	if !ok {
		http.Error(w, "thread not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, model.ThreadState{Values: values})
}

func (s *Server) handlePatchState(w http.ResponseWriter, r *http.Request) {
	var req model.ThreadStateUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PatchCalls++
	s.LastPatch = req.Values
	v, ok := s.states[mux.Vars(r)["id"]]
	if !ok {
		http.Error(w, "thread not found", http.StatusNotFound)
		return
	}
	if msgs, ok := req.Values["messages"].([]any); ok && len(msgs) == 0 {
		v.Messages = nil
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	threadId := mux.Vars(r)["id"]
	var req model.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CreateRunCalls++
	s.LastRunRequest = req
	if _, ok := s.threads[threadId]; !ok {
		http.Error(w, "thread not found", http.StatusNotFound)
		return
	}
	s.seq++
	rn := &run{Run: model.Run{
		RunId:    fmt.Sprintf("run-%d", s.seq),
		ThreadId: threadId,
		Status:   model.RUN_PENDING,
	}}
	s.runs[rn.RunId] = rn
	if s.Reply != nil && s.FinalStatus == model.RUN_SUCCESS {
		s.Reply(threadId, req.Input.Messages, s.states[threadId])
	}
	writeJSON(w, http.StatusOK, rn.Run)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GetRunCalls++
	rn, ok := s.runs[vars["run_id"]]
	if !ok || rn.ThreadId != vars["id"] {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	rn.polls++
	out := rn.Run
	if rn.polls <= s.PendingPolls {
		out.Status = model.RUN_RUNNING
	} else {
		out.Status = s.FinalStatus
		if s.FinalStatus == model.RUN_ERROR && s.ErrorOutput != "" {
			out.Output, _ = json.Marshal(map[string]string{"error": s.ErrorOutput})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	res, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(res)
}
