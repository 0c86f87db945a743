package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/mux"
)

// A small in-memory Radarr/Sonarr v3 API for trying tagarr without a real
// server. Scores, resolutions and release groups are random but stable for
// the lifetime of the process.

type tag struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

type file struct {
	ID                int            `json:"id"`
	ParentID          int            `json:"-"`
	CustomFormatScore *int           `json:"customFormatScore,omitempty"`
	ReleaseGroup      string         `json:"releaseGroup,omitempty"`
	Quality           map[string]any `json:"quality"`
}

type entity struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Year        int    `json:"year"`
	Monitored   bool   `json:"monitored"`
	Tags        []int  `json:"tags"`
	HasFile     bool   `json:"hasFile"`
	MovieFileID int    `json:"movieFileId,omitempty"`
}

type store struct {
	mu       sync.Mutex
	kind     string
	apiKey   string
	tags     []tag
	entities map[int]*entity
	files    map[int][]file
	order    []int
	puts     int
}

var titles = []string{
	"Blade Runner", "Heat", "Alien", "The Thing", "Arrival", "Dune", "Sicario",
	"Zodiac", "Prisoners", "Oldboy", "Akira", "Paprika", "Solaris", "Stalker",
	"Ran", "Drive", "Collateral", "Gattaca", "Moon", "Her",
}

var groups = []string{"FraMeSToR", "MOTONG", "NTb", "SPARKS", "EVO", ""}

func main() {
	port := flag.Int("port", 8989, "Port to listen on")
	kind := flag.String("kind", "radarr", "API flavour to serve: radarr or sonarr")
	count := flag.Int("count", 20, "Number of entities to generate")
	apiKey := flag.String("api-key", "fake", "API key clients must send")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()

	s := newStore(*kind, *apiKey, *count, rand.New(rand.NewSource(*seed)))

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v3").Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("/system/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/tag", s.handleListTags).Methods("GET")
	api.HandleFunc("/tag", s.handleCreateTag).Methods("POST")
	api.HandleFunc("/movie", s.handleListEntities).Methods("GET")
	api.HandleFunc("/series", s.handleListEntities).Methods("GET")
	api.HandleFunc("/movie/{id:[0-9]+}", s.handleUpdateEntity).Methods("PUT")
	api.HandleFunc("/series/{id:[0-9]+}", s.handleUpdateEntity).Methods("PUT")
	api.HandleFunc("/moviefile/{id:[0-9]+}", s.handleMovieFile).Methods("GET")
	api.HandleFunc("/episodefile", s.handleEpisodeFiles).Methods("GET")

	fmt.Printf("Fake %s server starting on :%d with %d entities\n", *kind, *port, *count)
	fmt.Printf("Use url http://localhost:%d and api_key %q\n", *port, *apiKey)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", *port), r))
}

func newStore(kind, apiKey string, count int, rng *rand.Rand) *store {
	s := &store{
		kind:     kind,
		apiKey:   apiKey,
		tags:     []tag{{ID: 1, Label: "favorite"}},
		entities: make(map[int]*entity),
		files:    make(map[int][]file),
	}

	nextFile := 100
	for i := 1; i <= count; i++ {
		e := &entity{
			ID:        i,
			Title:     titles[(i-1)%len(titles)],
			Year:      1980 + rng.Intn(45),
			Monitored: true,
			Tags:      []int{},
		}
		if rng.Intn(4) == 0 {
			e.Tags = append(e.Tags, 1)
		}

		files := 0
		switch {
		case kind == "sonarr":
			files = rng.Intn(4)
		case rng.Intn(6) != 0:
			files = 1
		}
		for j := 0; j < files; j++ {
			nextFile++
			f := file{
				ID:           nextFile,
				ParentID:     i,
				ReleaseGroup: groups[rng.Intn(len(groups))],
				Quality:      qualityFor(rng),
			}
			if rng.Intn(8) != 0 {
				score := rng.Intn(400) - 150
				f.CustomFormatScore = &score
			}
			s.files[i] = append(s.files[i], f)
		}
		if kind != "sonarr" && files > 0 {
			e.HasFile = true
			e.MovieFileID = s.files[i][0].ID
		}

		s.entities[i] = e
		s.order = append(s.order, i)
	}
	return s
}

func qualityFor(rng *rand.Rand) map[string]any {
	resolutions := []int{720, 1080, 1080, 2160}
	res := resolutions[rng.Intn(len(resolutions))]
	return map[string]any{
		"quality": map[string]any{
			"name":       fmt.Sprintf("Bluray-%dp", res),
			"resolution": res,
		},
	}
}

func (s *store) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != s.apiKey {
			http.Error(w, `{"message":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		log.Printf("%s %s", r.Method, r.URL.RequestURI())
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *store) handleStatus(w http.ResponseWriter, r *http.Request) {
	name := "Radarr"
	if s.kind == "sonarr" {
		name = "Sonarr"
	}
	writeJSON(w, http.StatusOK, map[string]string{"appName": name, "version": "5.0.0.0"})
}

func (s *store) handleListTags(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.tags)
}

func (s *store) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var req tag
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Label == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "label is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tags {
		if strings.EqualFold(t.Label, req.Label) {
			writeJSON(w, http.StatusOK, t)
			return
		}
	}
	req.ID = len(s.tags) + 1
	s.tags = append(s.tags, req)
	writeJSON(w, http.StatusCreated, req)
}

func (s *store) handleListEntities(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entities[id])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *store) handleUpdateEntity(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	var req entity
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
		return
	}
	e.Tags = req.Tags
	s.puts++
	log.Printf("Updated %q tags to %v (%d updates so far)", e.Title, e.Tags, s.puts)
	writeJSON(w, http.StatusAccepted, e)
}

func (s *store) handleMovieFile(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, files := range s.files {
		for _, f := range files {
			if f.ID == id {
				writeJSON(w, http.StatusOK, f)
				return
			}
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
}

func (s *store) handleEpisodeFiles(w http.ResponseWriter, r *http.Request) {
	seriesID, err := strconv.Atoi(r.URL.Query().Get("seriesId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "seriesId is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	files := s.files[seriesID]
	if files == nil {
		files = []file{}
	}
	writeJSON(w, http.StatusOK, files)
}
