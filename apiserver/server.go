// Package apiserver exposes the stereo solver over HTTP: submit a rectified
// pair, poll a run's state, and fetch its disparity map once finished. Every
// route but /health sits behind a bearer token checked against a pre-shared
// signing key, grounded in the request-handling shape of a media-management
// daemon this package's author had previously worked on (closures over a
// shared Dependencies struct, one handler per route, explicit method checks)
// adapted here to a single long-running compute job instead of a queue of
// transcodes.
package apiserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pmonasse/disparity-with-graph-cuts/cost"
	"github.com/pmonasse/disparity-with-graph-cuts/dispmap"
	"github.com/pmonasse/disparity-with-graph-cuts/jobstore"
	"github.com/pmonasse/disparity-with-graph-cuts/rectimg"
	"github.com/pmonasse/disparity-with-graph-cuts/rngutil"
	"github.com/pmonasse/disparity-with-graph-cuts/scenetag"
	"github.com/pmonasse/disparity-with-graph-cuts/stereo"
)

// Dependencies bundles everything a handler needs; every HandleFunc below
// closes over one of these rather than reaching for package-level globals.
type Dependencies struct {
	Store  *jobstore.Store
	Auth   *Authenticator
	OutDir string // directory disparity map outputs are written under, one subdir per run ID
	Seed   uint64

	// SceneModelPath, if set, points to an ONNX classifier run on the left
	// image before calibration; its top label is looked up in
	// stereo.ScenePresets to bias the smoothness weights. A CGO-less build
	// or a missing/unrecognized label simply skips this step.
	SceneModelPath string
	SceneLabels    []string
}

// NewMux builds the daemon's route table.
func NewMux(deps *Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler(deps))
	mux.HandleFunc("POST /runs", deps.Auth.requireAuth(createRunHandler(deps)))
	mux.HandleFunc("GET /runs", deps.Auth.requireAuth(listRunsHandler(deps)))
	mux.HandleFunc("GET /runs/{id}", deps.Auth.requireAuth(getRunHandler(deps)))
	mux.HandleFunc("GET /runs/{id}/disparity.png", deps.Auth.requireAuth(disparityPNGHandler(deps)))
	return mux
}

func healthHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Use GET", http.StatusMethodNotAllowed)
			return
		}
		w.Write([]byte("ok"))
	}
}

// createRunRequest is the JSON body accepted by POST /runs. Fraction fields
// are "num/den" strings, or "AUTO" to request calibration; see
// stereo.CalibrationInput.
type createRunRequest struct {
	LeftPath  string `json:"leftPath"`
	RightPath string `json:"rightPath"`
	DispMin   int    `json:"dispMin"`
	DispMax   int    `json:"dispMax"`
	K         string `json:"k"`
	Lambda1   string `json:"lambda1"`
	Lambda2   string `json:"lambda2"`
	Lambda    string `json:"lambda"`
	MaxIter   int    `json:"maxIter"`
}

type createRunResponse struct {
	ID string `json:"id"`
}

func createRunHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Use POST", http.StatusMethodNotAllowed)
			return
		}
		var req createRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.LeftPath == "" || req.RightPath == "" {
			http.Error(w, "leftPath and rightPath are required", http.StatusBadRequest)
			return
		}
		if req.MaxIter <= 0 {
			req.MaxIter = 4
		}

		paramsJSON, err := json.Marshal(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		id, err := deps.Store.Create(req.LeftPath, req.RightPath, string(paramsJSON))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		go deps.runSolve(id, req)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(createRunResponse{ID: id})
	}
}

// runSolve loads the pair, calibrates parameters, runs the expansion sweep
// to convergence, and writes a PNG visualization before marking the run
// completed. It runs detached from the request that created it.
func (deps *Dependencies) runSolve(id string, req createRunRequest) {
	if err := deps.Store.MarkRunning(id); err != nil {
		log.Printf("apiserver: run %s: MarkRunning: %v", id, err)
		return
	}

	pair, err := rectimg.Load(req.LeftPath, req.RightPath)
	if err != nil {
		deps.fail(id, fmt.Errorf("loading pair: %w", err))
		return
	}

	kernel := &cost.Kernel{Left: pair.Left, Right: pair.Right, DataCost: cost.L1, EdgeThresh: 8}
	in := stereo.CalibrationInput{
		DispMin:     req.DispMin,
		DispMax:     req.DispMax,
		K:           parseFraction(req.K),
		Lambda1:     parseFraction(req.Lambda1),
		Lambda2:     parseFraction(req.Lambda2),
		Lambda:      parseFraction(req.Lambda),
		ScenePreset: deps.classifyScene(req.LeftPath),
	}
	params, err := stereo.Calibrate(in, kernel, pair.Left.Size)
	if err != nil {
		deps.fail(id, fmt.Errorf("calibrating parameters: %w", err))
		return
	}
	params.MaxIter = req.MaxIter
	params.Randomize = true

	rng := rngutil.NewSource(deps.Seed)
	driver, err := stereo.NewDriver(kernel, pair.Left.Size, pair.Right.Size, params, rng)
	if err != nil {
		deps.fail(id, fmt.Errorf("initializing driver: %w", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	steps := 0
	if err := driver.Run(ctx, func(p stereo.Progress) { steps = p.Step }); err != nil {
		deps.fail(id, fmt.Errorf("solving: %w", err))
		return
	}

	outDir := filepath.Join(deps.OutDir, id)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		deps.fail(id, fmt.Errorf("creating output directory: %w", err))
		return
	}
	pngPath := filepath.Join(outDir, "disparity.png")
	if err := dispmap.WritePNG(pngPath, driver.Labeling(), params.DispMin, params.DispMax, false); err != nil {
		deps.fail(id, fmt.Errorf("writing disparity png: %w", err))
		return
	}

	if err := deps.Store.MarkCompleted(id, driver.Energy(), steps); err != nil {
		log.Printf("apiserver: run %s: MarkCompleted: %v", id, err)
	}
}

// classifyScene returns the top scene label scenetag recognizes as a
// stereo.ScenePresets key, or "" if no model is configured, the call
// fails (no CGO, bad model path), or the top tag isn't a known preset.
func (deps *Dependencies) classifyScene(leftPath string) string {
	if deps.SceneModelPath == "" {
		return ""
	}
	opts := scenetag.DefaultOptions()
	opts.Labels = deps.SceneLabels
	tags, err := scenetag.Classify(deps.SceneModelPath, leftPath, opts)
	if err != nil || len(tags) == 0 {
		log.Printf("apiserver: scene classification skipped: %v", err)
		return ""
	}
	if _, ok := stereo.ScenePresets[tags[0].Label]; !ok {
		return ""
	}
	return tags[0].Label
}

func (deps *Dependencies) fail(id string, cause error) {
	log.Printf("apiserver: run %s failed: %v", id, cause)
	if err := deps.Store.MarkFailed(id, cause); err != nil {
		log.Printf("apiserver: run %s: MarkFailed: %v", id, err)
	}
}

// parseFraction accepts "AUTO" or "num/den"; anything else is treated as AUTO.
func parseFraction(s string) stereo.Fraction {
	var num, den int
	if s == "" || s == "AUTO" {
		return stereo.Fraction{Num: stereo.AutoFraction, Den: 1}
	}
	if _, err := fmt.Sscanf(s, "%d/%d", &num, &den); err != nil || den == 0 {
		return stereo.Fraction{Num: stereo.AutoFraction, Den: 1}
	}
	return stereo.Fraction{Num: num, Den: den}
}

func listRunsHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Use GET", http.StatusMethodNotAllowed)
			return
		}
		runs, err := deps.Store.List()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(runs)
	}
}

func getRunHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Use GET", http.StatusMethodNotAllowed)
			return
		}
		run, err := deps.Store.Get(r.PathValue("id"))
		if err != nil {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(run)
	}
}

func disparityPNGHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Use GET", http.StatusMethodNotAllowed)
			return
		}
		id := r.PathValue("id")
		run, err := deps.Store.Get(id)
		if err != nil {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		if run.State != jobstore.StateCompleted {
			http.Error(w, fmt.Sprintf("run is %s, not completed", run.State), http.StatusConflict)
			return
		}
		http.ServeFile(w, r, filepath.Join(deps.OutDir, id, "disparity.png"))
	}
}
