package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/acorn-io/dns01-hook/pkg/hook"
	"github.com/acorn-io/dns01-hook/pkg/version"
	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type apiServer struct {
	ctx       context.Context
	log       *logrus.Entry
	port      int
	tokenHash string
}

func NewAPIServer(ctx context.Context, log *logrus.Entry, port int, tokenHash string) *apiServer {
	return &apiServer{
		ctx:       ctx,
		log:       log,
		port:      port,
		tokenHash: tokenHash,
	}
}

// NewRouter returns the webhook's routes. The challenge endpoints follow the
// request format of lego's httpreq provider.
func NewRouter(log *logrus.Entry, tokenHash string, lifecycle hook.Lifecycle, resolver Resolver) http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.Use(loggingMiddleware(log))
	h := newHandler(lifecycle, resolver)

	router.Path("/").HandlerFunc(h.root)
	router.Path("/healthz").HandlerFunc(h.root)

	authed := router.NewRoute().Subrouter()
	authed.Use(tokenAuthMiddleware(tokenHash))
	authed.Path("/present").Methods(http.MethodPost).HandlerFunc(h.present)
	authed.Path("/cleanup").Methods(http.MethodPost).HandlerFunc(h.cleanup)

	// Must be set after all other routes so unknown paths are still logged.
	router.NotFoundHandler = router.NewRoute().HandlerFunc(http.NotFound).GetHandler()

	return router
}

func (a *apiServer) Start(lifecycle hook.Lifecycle, resolver Resolver) error {
	a.log.Infof("Version: %s", version.Get())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.port),
		Handler:           ghandlers.CORS()(NewRouter(a.log, a.tokenHash, lifecycle, resolver)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.log.WithField("port", a.port).Info("starting api server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Fatalf("listen: %s\n", err)
		}
	}()

	<-a.ctx.Done()

	a.log.Info("shutting down the api server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		a.log.WithError(err).Error("unable to shutdown the api server gracefully")
		return err
	}

	return nil
}
