/*
 * Copyright Tabular Pipeline Org. 2026
 *
 * contact@tabular-pipeline.io
 *
 * This software is part of the Tabular Pipeline project, an open-source
 * machine learning pipeline.
 *
 * This software is governed by the CeCILL license, compatible with the
 * GNU GPL, under French law and abiding by the rules of distribution of
 * free software. You can  use, modify and/ or redistribute the software
 * under the terms of the CeCILL license as circulated by CEA, CNRS and
 * INRIA at the following URL "http://www.cecill.info".
 *
 * As a counterpart to the access to the source code and  rights to copy,
 * modify and redistribute granted by the license, users are provided only
 * with a limited warranty  and the software's author,  the holder of the
 * economic rights,  and the successive licensors  have only  limited
 * liability.
 *
 * In this respect, the user's attention is drawn to the risks associated
 * with loading,  using,  modifying and/or developing or reproducing the
 * software by the user in light of its specific status of free software,
 * that may mean  that it is complicated to manipulate,  and  that  also
 * therefore means  that it is reserved for developers  and  experienced
 * professionals having in-depth computer knowledge. Users are therefore
 * encouraged to load and test the software's suitability as regards their
 * requirements in conditions enabling the security of their systems and/or
 * data to be ensured and,  more generally, to use and operate it in the
 * same conditions as regards security.
 *
 * The fact that you are presently reading this means that you have had
 * knowledge of the CeCILL license and that you accept its terms.
 */

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/satori/go.uuid"
	"gopkg.in/kataras/iris.v6"
	"gopkg.in/kataras/iris.v6/adaptors/cors"
	"gopkg.in/kataras/iris.v6/adaptors/httprouter"
	"gopkg.in/kataras/iris.v6/middleware/basicauth"
	"gopkg.in/kataras/iris.v6/middleware/logger"

	"github.com/dinaAbdelrahman/tabular-pipeline/common"
)

// Available HTTP routes
const (
	RootRoute         = "/"
	HealthRoute       = "/health"
	RunListRoute      = "/run"
	RunRoute          = "/run/:uuid"
	RunStatusRoute    = "/run/:uuid/status"
	RunPerfRoute      = "/run/:uuid/perf"
	ArtifactBlobRoute = "/artifact/:uuid/blob"
)

// APIServer represents the API configurations
type APIServer struct {
	Conf      *ExperimentConfig
	BlobStore common.BlobStore
	RunModel  Model
}

// ConfigureRoutes links the urls with the func and set authentication
func (s *APIServer) ConfigureRoutes(app *iris.Framework, authentication iris.HandlerFunc) {
	// Misc.
	app.Get(RootRoute, s.index)
	app.Get(HealthRoute, s.health)

	// Run
	app.Get(RunListRoute, authentication, s.getRunList)
	app.Post(RunListRoute, authentication, s.postRun)
	app.Get(RunRoute, authentication, s.getRun)
	app.Post(RunStatusRoute, authentication, s.postRunStatus)
	app.Post(RunPerfRoute, authentication, s.postRunPerf)

	// Artifact
	app.Get(ArtifactBlobRoute, authentication, s.getArtifactBlob)
	app.Post(ArtifactBlobRoute, authentication, s.postArtifactBlob)
}

// RunMigrations applies migrations in migrationDir
func RunMigrations(db *sqlx.DB, migrationDir string, rollback bool) (int, error) {
	migrate.SetTable(migrationTable)

	migrations := &migrate.FileMigrationSource{
		Dir: migrationDir,
	}

	operation := migrate.Up
	limit := 0
	if rollback {
		limit = 1
		operation = migrate.Down
	}

	return migrate.ExecMax(db.DB, "postgres", migrations, operation, limit)
}

// SetAuthentication returns the app authentication
func SetAuthentication(user, password string) iris.HandlerFunc {
	authConfig := basicauth.Config{
		Users:      map[string]string{user: password},
		Realm:      "Authorization Required",
		ContextKey: "mycustomkey",
		Expires:    time.Duration(30) * time.Minute,
	}
	return basicauth.New(authConfig)
}

// SetBlobStore defines the blobstore type (local, fake, S3)
func SetBlobStore(dataDir string, awsBucket string, awsRegion string) (common.BlobStore, error) {
	switch {
	case awsBucket == "fake" && awsRegion == "fake":
		log.Println("[MOCKBlobStore] Blobstore Mock used to 'store' artifacts")
		return common.NewFakeBlobStore(), nil
	case awsBucket == "" || awsRegion == "":
		log.Println(fmt.Sprintf("[LocalBlobStore] Artifacts are stored locally in directory: %s", dataDir))
		return common.NewLocalBlobStore(dataDir)
	default:
		return common.NewS3BlobStore(awsBucket, awsRegion)
	}
}

// setTestApp builds an app wired on the mocked model and the fake blob store, for tests
func setTestApp() *iris.Framework {
	app := iris.New()
	app.Adapt(httprouter.New())

	runModel, err := NewMockedModel(RunModelName)
	if err != nil {
		log.Fatalf("Cannot create mocked model %s: %s", RunModelName, err)
	}

	blobStore, err := SetBlobStore("", "fake", "fake")
	if err != nil {
		log.Fatalf("Cannot set blobStore: %s", err)
	}

	api := &APIServer{
		Conf:      &ExperimentConfig{APIUser: "u", APIPassword: "p"},
		BlobStore: blobStore,
		RunModel:  runModel,
	}
	api.ConfigureRoutes(app, SetAuthentication("u", "p"))
	return app
}

func main() {
	// Parses CLI flags to generate the API config
	conf := NewExperimentConfig()

	// Iris setup
	app := iris.New()
	app.Adapt(iris.DevLogger(), httprouter.New())

	// Iris authentication
	authentication := SetAuthentication(conf.APIUser, conf.APIPassword)

	// Iris CORS middleware
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	app.Adapt(corsMiddleware)

	// Logging middleware configuration
	customLogger := logger.New(logger.Config{
		Status: true,
		IP:     true,
		Method: true,
		Path:   true,
	})
	app.Use(customLogger)

	// Model configuration
	var runModel Model
	if conf.DBHost == "" {
		log.Println("[MOCKModel] Model Mock used to 'track' runs")
		mockedModel, err := NewMockedModel(RunModelName)
		if err != nil {
			log.Fatalf("Cannot create mocked model %s: %s", RunModelName, err)
		}
		runModel = mockedModel
	} else {
		db, err := sqlx.Connect(
			"postgres",
			fmt.Sprintf(
				"user=%s password=%s host=%s port=%d sslmode=disable dbname=%s",
				conf.DBUser, conf.DBPass, conf.DBHost, conf.DBPort, conf.DBName,
			),
		)
		if err != nil {
			log.Fatalf("Cannot open connection to database: %s", err)
		}

		n, err := RunMigrations(db, conf.DBMigrationsDir, conf.DBRollback)
		if err != nil {
			log.Fatalf("Cannot apply database migrations: %s", err)
		}
		log.Printf("Applied %d database migrations successfully", n)

		runModel, err = NewSQLModel(db, RunModelName)
		if err != nil {
			log.Fatalf("Cannot create model %s: %s", RunModelName, err)
		}
	}

	// Set BlobStore
	blobStore, err := SetBlobStore(conf.DataDir, conf.AWSBucket, conf.AWSRegion)
	if err != nil {
		log.Fatalf("Cannot set blobStore: %s", err)
	}

	api := &APIServer{
		Conf:      conf,
		BlobStore: blobStore,
		RunModel:  runModel,
	}
	api.ConfigureRoutes(app, authentication)

	// Main server loop
	if conf.TLSOn() {
		app.ListenTLS(fmt.Sprintf("%s:%d", conf.Hostname, conf.Port), conf.CertFile, conf.KeyFile)
	} else {
		app.Listen(fmt.Sprintf("%s:%d", conf.Hostname, conf.Port))
	}
}

// misc routes
func (s *APIServer) index(c *iris.Context) {
	c.JSON(200, []string{
		RootRoute,
		HealthRoute,
		RunListRoute,
		RunRoute,
		RunStatusRoute,
		RunPerfRoute,
		ArtifactBlobRoute,
	})
}

func (s *APIServer) health(c *iris.Context) {
	// TODO: check database and blob store connectivity here
	c.JSON(200, map[string]string{"status": "ok"})
}

// Run related routes
func (s *APIServer) getRunList(c *iris.Context) {
	runs := make([]common.Run, 0, 30)
	err := s.RunModel.List(&runs, 0, 30)
	if err != nil {
		c.JSON(500, common.NewAPIError(fmt.Sprintf("Error retrieving run list: %s", err)))
		return
	}

	c.JSON(200, map[string]interface{}{
		"page":   0,
		"length": len(runs),
		"items":  runs,
	})
}

func (s *APIServer) postRun(c *iris.Context) {
	run := common.Run{}
	err := json.NewDecoder(c.Request.Body).Decode(&run)
	defer c.Request.Body.Close()
	if err != nil {
		c.JSON(400, common.NewAPIError(fmt.Sprintf("Error decoding run: %s", err)))
		return
	}

	if err = run.Check(); err != nil {
		c.JSON(400, common.NewAPIError(fmt.Sprintf("Error in posted run: %s", err)))
		return
	}

	if err = s.RunModel.CheckUUIDNotUsed(run.ID); err != nil {
		c.JSON(409, common.NewAPIError(fmt.Sprintf("Error inserting run %s: %s", run.ID, err)))
		return
	}

	err = s.RunModel.Insert(&run)
	if err != nil {
		c.JSON(500, common.NewAPIError(fmt.Sprintf("Error inserting run %s in database: %s", run.ID, err)))
		return
	}
	c.JSON(201, run)
}

func (s *APIServer) getRunInstance(id uuid.UUID) (*common.Run, error) {
	run := common.Run{}
	err := s.RunModel.GetOne(&run, id)
	if err != nil {
		return nil, common.NewAPIError(fmt.Sprintf("Error retrieving run %s: %s", id, err))
	}
	return &run, nil
}

func (s *APIServer) getRun(c *iris.Context) {
	id, err := uuid.FromString(c.Param("uuid"))
	if err != nil {
		c.JSON(400, common.NewAPIError(fmt.Sprintf("Impossible to parse UUID %s: %s", id, err)))
		return
	}

	run, err := s.getRunInstance(id)
	if err != nil {
		c.JSON(404, common.NewAPIError(fmt.Sprintf("Error retrieving run %s: %s", c.Param("uuid"), err)))
		return
	}

	c.JSON(200, run)
}

func (s *APIServer) postRunStatus(c *iris.Context) {
	id, err := uuid.FromString(c.Param("uuid"))
	if err != nil {
		c.JSON(400, common.NewAPIError(fmt.Sprintf("Impossible to parse UUID %s: %s", id, err)))
		return
	}

	payload := map[string]string{}
	err = json.NewDecoder(c.Request.Body).Decode(&payload)
	defer c.Request.Body.Close()
	if err != nil {
		c.JSON(400, common.NewAPIError(fmt.Sprintf("Error decoding status update: %s", err)))
		return
	}

	status, ok := payload["status"]
	if !ok {
		c.JSON(400, common.NewAPIError("Error in status update: status field is unset"))
		return
	}
	if _, ok := common.ValidStatuses[status]; !ok {
		c.JSON(400, common.NewAPIError(fmt.Sprintf("Error in status update: status \"%s\" ain't valid", status)))
		return
	}

	run, err := s.getRunInstance(id)
	if err != nil {
		c.JSON(404, common.NewAPIError(fmt.Sprintf("Error retrieving run %s: %s", c.Param("uuid"), err)))
		return
	}

	run.Status = status
	err = s.RunModel.Update(run, id)
	if err != nil {
		c.JSON(500, common.NewAPIError(fmt.Sprintf("Error updating run %s in database: %s", id, err)))
		return
	}
	c.JSON(200, run)
}

func (s *APIServer) postRunPerf(c *iris.Context) {
	id, err := uuid.FromString(c.Param("uuid"))
	if err != nil {
		c.JSON(400, common.NewAPIError(fmt.Sprintf("Impossible to parse UUID %s: %s", id, err)))
		return
	}

	perf := common.Perf{}
	err = json.NewDecoder(c.Request.Body).Decode(&perf)
	defer c.Request.Body.Close()
	if err != nil {
		c.JSON(400, common.NewAPIError(fmt.Sprintf("Error decoding perf: %s", err)))
		return
	}

	run, err := s.getRunInstance(id)
	if err != nil {
		c.JSON(404, common.NewAPIError(fmt.Sprintf("Error retrieving run %s: %s", c.Param("uuid"), err)))
		return
	}

	run.Perf = perf.Accuracy
	run.Status = common.RunStatusDone
	err = s.RunModel.Update(run, id)
	if err != nil {
		c.JSON(500, common.NewAPIError(fmt.Sprintf("Error updating run %s in database: %s", id, err)))
		return
	}
	c.JSON(200, run)
}

// Artifact related routes
func (s *APIServer) getArtifactKey(id uuid.UUID) string {
	return fmt.Sprintf("artifact/%s", id)
}

func (s *APIServer) getArtifactBlob(c *iris.Context) {
	id, err := uuid.FromString(c.Param("uuid"))
	if err != nil {
		c.JSON(400, common.NewAPIError(fmt.Sprintf("Impossible to parse UUID %s: %s", id, err)))
		return
	}

	blobReader, err := s.BlobStore.Get(s.getArtifactKey(id))
	if err != nil {
		c.JSON(500, common.NewAPIError(fmt.Sprintf("Error retrieving artifact %s: %s", id, err)))
		return
	}
	defer blobReader.Close()
	c.StreamWriter(func(w io.Writer) bool {
		_, err := io.Copy(w, blobReader)
		if err != nil {
			c.JSON(500, common.NewAPIError(fmt.Sprintf("Error reading artifact %s: %s", id, err)))
			return false
		}
		return false
	})
}

func (s *APIServer) postArtifactBlob(c *iris.Context) {
	id, err := uuid.FromString(c.Param("uuid"))
	if err != nil {
		c.JSON(400, common.NewAPIError(fmt.Sprintf("Impossible to parse UUID %s: %s", id, err)))
		return
	}

	size, err := strconv.ParseInt(c.Request.Header.Get("Content-Length"), 10, 64)
	if err != nil {
		c.JSON(400, common.NewAPIError(fmt.Sprintf("Error parsing header 'Content-Length': should be blob size in bytes. err: %s", err)))
		return
	}

	err = s.BlobStore.Put(s.getArtifactKey(id), c.Request.Body, size)
	defer c.Request.Body.Close()
	if err != nil {
		c.JSON(500, common.NewAPIError(fmt.Sprintf("Error uploading artifact %s - %s", id, err)))
		return
	}
	c.JSON(201, map[string]string{"uuid": id.String()})
}
