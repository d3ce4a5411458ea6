// Command kzdisparityd runs the stereo solver as an HTTP daemon: submit a
// rectified pair over the wire, poll the run's state, and fetch the
// resulting disparity map, with every run recorded in a SQLite history.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pmonasse/disparity-with-graph-cuts/apiserver"
	"github.com/pmonasse/disparity-with-graph-cuts/jobstore"
)

func main() {
	addr := flag.String("addr", ":8420", "listen address")
	dbPath := flag.String("db", "kzdisparityd.sqlite3", "SQLite path for run history")
	outDir := flag.String("out-dir", "kzdisparityd-output", "directory disparity outputs are written under")
	secretEnv := flag.String("secret-env", "KZDISPARITYD_SECRET", "environment variable holding the JWT signing secret")
	seed := flag.Uint64("seed", 0, "PRNG seed shared by every run's label sweep")
	issueTokenFor := flag.String("issue-token", "", "print a bearer token for this subject and exit, instead of serving")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of a token printed by --issue-token")
	sceneModel := flag.String("scene-model", "", "ONNX model classifying the left image into a smoothness preset before calibration (requires CGO); empty disables it")
	sceneLabels := flag.String("scene-labels", "outdoor,indoor,textured", "comma-separated labels matching --scene-model's output order")
	flag.Parse()

	secret := os.Getenv(*secretEnv)
	if secret == "" {
		fmt.Fprintf(os.Stderr, "kzdisparityd: environment variable %s must hold the JWT signing secret\n", *secretEnv)
		os.Exit(2)
	}

	if *issueTokenFor != "" {
		token, err := apiserver.NewAuthenticator(secret).IssueToken(*issueTokenFor, *tokenTTL)
		if err != nil {
			log.Fatalf("kzdisparityd: issuing token: %v", err)
		}
		fmt.Println(token)
		return
	}

	store, err := jobstore.Open(*dbPath)
	if err != nil {
		log.Fatalf("kzdisparityd: opening job store: %v", err)
	}
	defer store.Close()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("kzdisparityd: creating output directory: %v", err)
	}

	deps := &apiserver.Dependencies{
		Store:          store,
		Auth:           apiserver.NewAuthenticator(secret),
		OutDir:         *outDir,
		Seed:           *seed,
		SceneModelPath: *sceneModel,
		SceneLabels:    strings.Split(*sceneLabels, ","),
	}

	log.Printf("kzdisparityd: listening on %s, history at %s, output under %s", *addr, *dbPath, *outDir)
	if err := http.ListenAndServe(*addr, apiserver.NewMux(deps)); err != nil {
		log.Fatalf("kzdisparityd: %v", err)
	}
}
