// Package api implements the operational HTTP status surface (§4.N): a
// small read-only/admin introspection layer, outside the voter-facing
// trust boundary. It never serves CVR contents, only counts and tallies.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vocdoni/votegraph/config"
	"github.com/vocdoni/votegraph/electionconfig"
	"github.com/vocdoni/votegraph/log"
	"github.com/vocdoni/votegraph/merge"
	"github.com/vocdoni/votegraph/store"
	"github.com/vocdoni/votegraph/tally"
)

const maxRequestBodyLog = 512

// tallyCacheSize bounds how many (contest, mainline-head) tally results the
// tally endpoint keeps around; mainline only ever advances, so a cache hit
// means "no new CVRs merged in since the last request for this contest."
const tallyCacheSize = 256

type tallyCacheKey struct {
	uid  string
	head store.Digest
}

// Config is the API server's configuration: the backing store plus the
// election graph and merge controller it exposes counts/sweeps/tallies
// for.
type Config struct {
	Host        string
	Port        int
	Store       store.Store
	Election    *electionconfig.ElectionConfig
	ElectionCfg config.ElectionConfig
	MergeCtrl   *merge.Controller
}

// API is the operational HTTP server.
type API struct {
	router      *chi.Mux
	store       store.Store
	election    *electionconfig.ElectionConfig
	electionCfg config.ElectionConfig
	mergeCtrl   *merge.Controller
	tallyCache  *lru.Cache[tallyCacheKey, *tally.Result]
}

// New builds an API and starts serving it in the background.
func New(ctx context.Context, conf *Config) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Store == nil {
		return nil, fmt.Errorf("missing store instance")
	}
	if conf.Election == nil {
		return nil, fmt.Errorf("missing election configuration")
	}

	tallyCache, err := lru.New[tallyCacheKey, *tally.Result](tallyCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tally cache: %w", err)
	}

	a := &API{
		store:       conf.Store,
		election:    conf.Election,
		electionCfg: conf.ElectionCfg,
		mergeCtrl:   conf.MergeCtrl,
		tallyCache:  tallyCache,
	}
	a.initRouter()

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		Handler: a.router,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnw("api: shutdown error", "err", err.Error())
		}
	}()
	go func() {
		log.Infow("starting api server", "host", conf.Host, "port", conf.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw(err, "api server stopped unexpectedly")
		}
	}()
	return a, nil
}

// Router returns the chi router, for testing.
func (a *API) Router() *chi.Mux {
	return a.router
}

func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	a.router.Use(loggingMiddleware(maxRequestBodyLog))
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Timeout(45 * time.Second))

	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) { httpWriteOK(w) })

	log.Infow("register handler", "endpoint", BranchesEndpoint, "method", "GET")
	a.router.Get(BranchesEndpoint, a.branches)

	log.Infow("register handler", "endpoint", MergeEndpoint, "method", "POST")
	a.router.Post(MergeEndpoint, a.triggerMerge)

	log.Infow("register handler", "endpoint", TallyEndpoint, "method", "GET")
	a.router.Get(TallyEndpoint, a.tally)
}

// branchResponse is the JSON body GET .../branches returns.
type branchResponse struct {
	Uid   string `json:"uid"`
	Count int    `json:"outstandingBranches"`
}

func (a *API) branches(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, ContestUidParam)
	names, err := a.store.ListBranches(r.Context())
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	prefix := a.electionCfg.ContestFileSubdir + "/" + uid + "/"
	count := 0
	for _, n := range names {
		if strings.HasPrefix(n, prefix) {
			count++
		}
	}
	httpWriteJSON(w, branchResponse{Uid: uid, Count: count})
}

// mergeResponse is the JSON body POST .../merge returns.
type mergeResponse struct {
	Results []merge.SweepResult `json:"results"`
}

func (a *API) triggerMerge(w http.ResponseWriter, r *http.Request) {
	if a.mergeCtrl == nil {
		ErrGenericInternalServerError.Withf("merge controller not configured").Write(w)
		return
	}
	flush := r.URL.Query().Get("flush") == "true"
	params := merge.DefaultParams(a.electionCfg)
	params.Flush = flush

	results, err := a.mergeCtrl.Sweep(r.Context(), params)
	if err != nil {
		ErrMergeSweepFailed.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, mergeResponse{Results: results})
}

func (a *API) tally(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, ContestUidParam)

	ref, err := tally.ReferenceFromConfig(a.election, uid)
	if err != nil {
		ErrContestNotFound.WithErr(err).Write(w)
		return
	}

	mainline := a.electionCfg.RootElectionDataSubdir
	head, err := a.store.Head(r.Context(), mainline)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}

	key := tallyCacheKey{uid: uid, head: head}
	result, ok := a.tallyCache.Get(key)
	if !ok {
		batch, err := tally.BuildBatch(r.Context(), a.store, head, a.electionCfg.ContestFileSubdir, uid)
		if err != nil {
			ErrTallyFailed.WithErr(err).Write(w)
			return
		}
		result, err = tally.Tallyho(ref, batch, nil, nil)
		if err != nil {
			ErrTallyFailed.WithErr(err).Write(w)
			return
		}
		a.tallyCache.Add(key, result)
	}
	httpWritePlainText(w, result.Render())
}
