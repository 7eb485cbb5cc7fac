// @title           Legal RAG API
// @version         1.0
// @description     Asynchronous legal question answering and PDF ingestion over a vector collection
// @termsOfService  http://swagger.io/terms/

// @contact.name    me lol
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/LegalRAG/internal/app"
	"github.com/akolanti/LegalRAG/internal/config"
	jobmodel "github.com/akolanti/LegalRAG/internal/domain/jobModel"
	"github.com/akolanti/LegalRAG/internal/handlers"
	"github.com/akolanti/LegalRAG/internal/job"
	"github.com/akolanti/LegalRAG/internal/middleware"
	"github.com/akolanti/LegalRAG/internal/server"
	"github.com/akolanti/LegalRAG/internal/worker"
	"github.com/akolanti/LegalRAG/pkg/logger_i"
)

var (
	listenAddr        string
	envFile           string
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {
	//config
	flag.StringVar(&listenAddr, "listen-addr", "", "server listen address, overrides LISTEN_ADDR")
	flag.StringVar(&envFile, "env", ".env", "dotenv file to load before the environment")
	flag.Parse()

	settings, err := config.Load(envFile)
	if err != nil {
		logger_i.Init()
		logger_i.NewLogger("main").Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if listenAddr != "" {
		settings.ListenAddr = listenAddr
	}

	logger_i.InitWith(os.Stdout, settings.LogLevel, settings.LogJSON)
	var logger = logger_i.NewLogger("main")

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service and job store
	jobStore, err := app.JobStore(serviceContext, settings)
	if err != nil {
		logger.Error("Job store is offline. Shutting down.", "error", err)
		return
	}
	logger.Info("Starting job service")
	service := job.InitJobService(job.ServiceConfig{
		JobChannel:        jobChannel,
		DispatcherChannel: dispatcherChannel,
		JobStore:          jobStore,
	})

	services, err := app.Bootstrap(serviceContext, settings)
	if err != nil {
		logger.Error("One or more external services failed to initialize. Shutting down.", "error", err)
		return
	}

	//init worker pool
	worker.NewPool(service, services.RAG, stopWorkerChannel, &workerWaitGroup).Start()

	router := server.NewRouter(handlers.NewJobHandler(service, settings.UploadDir), middleware.New(settings))
	httpServer := server.CreateServer(settings.ListenAddr, router)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go httpServer.ShutDownHandler(shutdownParams)
	go httpServer.ListenAndServe()

	<-stopExecution
	if err := services.Close(); err != nil {
		logger.Error("Closing services failed", "error", err)
	}
	logger.Info("Server stopped")
}
